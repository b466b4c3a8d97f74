package path

import (
	"fmt"
	"log"
	"math"
	"time"

	"DiffDrive/internal/model"
	"DiffDrive/internal/util"
)

// State of the follower.
type State int

const (
	Idle State = iota
	Following
	Approaching
	Converged
)

func (s State) String() string {
	switch s {
	case Following:
		return "following"
	case Approaching:
		return "approaching"
	case Converged:
		return "converged"
	}
	return "idle"
}

// Status is the result of one Follow call.
type Status int

const (
	NoTrajectory Status = iota
	InProgress
	Done
)

func (s Status) String() string {
	switch s {
	case InProgress:
		return "in progress"
	case Done:
		return "done"
	}
	return "no trajectory"
}

// Driver is the actuation the follower commands.
type Driver interface {
	DriveVector(v, omega float64)
	UpdateOdometry() model.OdometrySample
	Pose() model.Pose
}

// Progress is a snapshot of the follower for telemetry.
type Progress struct {
	State          State
	Index          int
	Length         int
	MaxV           float64
	MaxA           float64
	TargetVelocity float64 // m/s
	TargetOmega    float64 // rad/s
}

// Follower tracks a trajectory one control tick at a time.
type Follower struct {
	cfg   model.FollowerConfig
	drive Driver
	gen   Generator
	dt    float64 // s

	traj    *Trajectory
	profile Profile
	maxA    float64

	state        State
	index        int
	prevVelocity float64
	terminalGain float64
	latched      bool
	velocity     float64
	omega        float64
}

// NewFollower creates an idle follower ticking every tick.
func NewFollower(drive Driver, gen Generator, cfg model.FollowerConfig, tick time.Duration) *Follower {
	return &Follower{cfg: cfg, drive: drive, gen: gen, dt: tick.Seconds()}
}

// CreateTrajectory plans a forward path from the current pose to target.
func (f *Follower) CreateTrajectory(target model.Pose, interior ...model.Point) error {
	return f.create(f.drive.Pose(), target, interior, false)
}

// CreateReversedTrajectory plans a path driven backwards to a target given
// relative to the current pose (x forward, y left, heading delta in degrees).
func (f *Follower) CreateReversedTrajectory(relative model.Pose) error {
	start := f.drive.Pose()
	return f.create(start, relativeToAbsolute(start, relative), nil, true)
}

func (f *Follower) create(start, end model.Pose, interior []model.Point, reversed bool) error {
	states, err := f.gen.Generate(start, end, interior, GeneratorConfig{
		MaxVelocity:     f.cfg.GeneratorMaxVel,
		MaxAcceleration: f.cfg.GeneratorMaxAccel,
		Spacing:         f.cfg.SampleSpacing,
		Reversed:        reversed,
	})
	if err != nil {
		return fmt.Errorf("create trajectory: %w", err)
	}
	return f.SetTrajectory(states, reversed)
}

// SetTrajectory replaces the trajectory and resets progress. The vehicle loop
// calls it between ticks only.
func (f *Follower) SetTrajectory(states []model.PathState, reversed bool) error {
	t, err := NewTrajectory(states, reversed)
	if err != nil {
		return err
	}
	f.traj = t
	f.profile = NewProfile(f.cfg, reversed)
	f.maxA = f.profile.AccelerationLimit(t.Start(), t.End(), f.cfg.CurvatureEpsilon)
	f.index = 1
	f.prevVelocity = 0
	f.terminalGain = f.profile.Sign * f.profile.KVelocity
	f.latched = false
	f.velocity, f.omega = 0, 0
	f.state = Following
	if f.index == t.Len()-1 {
		f.state = Approaching
	}
	log.Printf("[follower] trajectory %s: %d states, reversed=%v, maxA=%.3f", t.ID, t.Len(), reversed, f.maxA)
	return nil
}

// Clear drops the trajectory.
func (f *Follower) Clear() {
	f.traj = nil
	f.state = Idle
	f.velocity, f.omega = 0, 0
}

// Follow runs one control tick.
func (f *Follower) Follow() Status {
	if f.traj == nil {
		f.state = Idle
		return NoTrajectory
	}
	n := f.traj.Len()
	if f.index >= n {
		f.state = Converged
		return Done
	}

	sample := f.drive.UpdateOdometry()
	if f.index == n-1 {
		return f.approach(sample)
	}
	f.state = Following

	p := f.profile
	states := f.traj.States
	target, prev := states[f.index], states[f.index-1]

	look := f.index + f.cfg.LookaheadStates
	if look >= n {
		look = f.index
	}
	kappa := math.Abs(states[look].Curvature)

	// curvature-limited cruise against an acceleration-limited ramp
	acc := f.maxA - f.movingAverageCurvature()/2
	limit := p.MaxVelocity - kappa*p.KCurvature
	mag := math.Min(limit, p.Sign*f.prevVelocity+acc*f.dt)
	if mag < p.MinVelocity {
		mag = p.MinVelocity
	}
	v := p.Sign * mag

	pose := sample.Pose
	bearing := math.Atan2(target.Pose.Y-pose.Y, target.Pose.X-pose.X)
	headingErr := util.WrapRadians(bearing - f.facing(pose.Heading))
	omega := headingErr*p.KTheta - sample.AngularRate*p.KOmega

	if distance(pose, target.Pose) < distance(pose, prev.Pose) {
		f.advance()
	}
	if f.index == n-1 {
		f.state = Approaching
	}

	f.command(v, omega)
	return InProgress
}

// approach is the terminal régime on the final state.
func (f *Follower) approach(sample model.OdometrySample) Status {
	f.state = Approaching
	p := f.profile
	pose := sample.Pose
	goal := f.traj.End()

	rad := pose.Heading * math.Pi / 180
	along := (goal.X-pose.X)*math.Cos(rad) + (goal.Y-pose.Y)*math.Sin(rad)
	travelErr := p.Sign * along

	// the gain flips once on overshoot and holds until the goal is ahead again
	band := f.cfg.DistanceTolerance / 2
	if !f.latched && travelErr < -band {
		f.terminalGain = -f.terminalGain
		f.latched = true
	} else if f.latched && travelErr > band {
		f.terminalGain = -f.terminalGain
		f.latched = false
	}
	v := util.Clamp(f.terminalGain*math.Abs(travelErr), -p.MaxVelocity, p.MaxVelocity)

	headingErr := util.WrapRadians((goal.Heading - pose.Heading) * math.Pi / 180)
	omega := headingErr*p.KTheta - sample.AngularRate*p.KOmega

	distOK := distance(pose, goal) < f.cfg.DistanceTolerance
	angleOK := math.Abs(util.Compassify(goal.Heading-pose.Heading)) < f.cfg.AngleTolerance
	if distOK && angleOK {
		v, omega = 0, 0
	} else {
		if distOK {
			v = 0
		}
		if angleOK {
			omega = 0
		} else {
			omega *= p.TerminalOmegaGain
		}
	}
	v = util.Deadband(v, p.TerminalDeadband)
	omega = util.Deadband(omega, p.TerminalDeadband)

	f.command(v, omega)
	if v == 0 && omega == 0 {
		f.advance()
		f.state = Converged
		log.Printf("[follower] trajectory %s converged at (%.3f, %.3f, %.1f)", f.traj.ID, pose.X, pose.Y, pose.Heading)
		return Done
	}
	return InProgress
}

func (f *Follower) command(v, omega float64) {
	f.velocity, f.omega = v, omega
	f.prevVelocity = v
	f.drive.DriveVector(v, omega)
}

func (f *Follower) advance() {
	if f.index < f.traj.Len() {
		f.index++
	}
}

// facing is the direction of travel in radians.
func (f *Follower) facing(heading float64) float64 {
	if f.profile.Sign < 0 {
		heading += 180
	}
	return heading * math.Pi / 180
}

// movingAverageCurvature folds |curvature| from the end of the trajectory down
// to the current index with avg = (avg + |k|) / 2, so the states nearest the
// vehicle weigh the most.
func (f *Follower) movingAverageCurvature() float64 {
	avg := 0.0
	states := f.traj.States
	for i := len(states) - 1; i >= f.index; i-- {
		avg = (avg + math.Abs(states[i].Curvature)) / 2
	}
	return avg
}

// State returns the follower state.
func (f *Follower) State() State { return f.state }

// Trajectory returns the current trajectory, nil when idle.
func (f *Follower) Trajectory() *Trajectory { return f.traj }

// Command returns the last commanded body velocity (m/s) and omega (rad/s).
func (f *Follower) Command() (v, omega float64) { return f.velocity, f.omega }

// TerminalGain returns the signed terminal velocity gain.
func (f *Follower) TerminalGain() float64 { return f.terminalGain }

// Progress returns a telemetry snapshot.
func (f *Follower) Progress() Progress {
	pr := Progress{
		State:          f.state,
		Index:          f.index,
		TargetVelocity: f.velocity,
		TargetOmega:    f.omega,
	}
	if f.traj != nil {
		pr.Length = f.traj.Len()
		pr.MaxV = f.profile.MaxVelocity
		pr.MaxA = f.maxA
	}
	return pr
}
