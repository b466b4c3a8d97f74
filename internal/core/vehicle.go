package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"DiffDrive/internal/control"
	"DiffDrive/internal/device"
	"DiffDrive/internal/drive"
	"DiffDrive/internal/model"
	"DiffDrive/internal/parser"
	"DiffDrive/internal/path"
)

// Mode is what the control loop does on each tick.
type Mode string

const (
	ModeIdle   Mode = "idle"
	ModePath   Mode = "path"
	ModeManual Mode = "manual"
	ModeTurn   Mode = "turn"
)

// Stepper is implemented by simulated hardware that must be advanced once per tick.
type Stepper interface {
	Step(dt time.Duration)
}

// ErrNotRunning is returned by Submit after the control loop has exited.
var ErrNotRunning = errors.New("vehicle control loop not running")

type request struct {
	cmd   model.Command
	reply chan model.CommandResult
}

// Vehicle runs the control loop of one robot. Every control component is owned
// by the goroutine running Run; other goroutines talk to it only through
// Submit and the telemetry subscriptions.
type Vehicle struct {
	ID       string
	Hardware device.Hardware
	Drive    *drive.Drive
	Follower *path.Follower
	Interval time.Duration

	cmds chan request
	done chan struct{}
	subs []chan model.Telemetry

	mode   Mode
	manual [2]float64 // speed, turn
	turn   [2]float64 // target, offset
	tick   uint64

	mu   sync.RWMutex
	last model.Telemetry
}

// NewVehicle wires the drive and the follower onto hw.
func NewVehicle(id string, hw device.Hardware, cfg *model.Config, clock control.Clock) *Vehicle {
	interval := time.Duration(cfg.Global.TickMs) * time.Millisecond
	d := drive.New(hw, cfg.Drive, clock)
	return &Vehicle{
		ID:       id,
		Hardware: hw,
		Drive:    d,
		Follower: path.NewFollower(d, path.HermiteGenerator{}, cfg.Follower, interval),
		Interval: interval,
		cmds:     make(chan request, 16),
		done:     make(chan struct{}),
		mode:     ModeIdle,
	}
}

// Subscribe returns a channel receiving every published snapshot. Snapshots are
// dropped when the subscriber falls behind. Must be called before Run.
func (v *Vehicle) Subscribe(buffer int) <-chan model.Telemetry {
	ch := make(chan model.Telemetry, buffer)
	v.subs = append(v.subs, ch)
	return ch
}

// Submit queues c for the next tick and waits for its result.
func (v *Vehicle) Submit(ctx context.Context, c model.Command) (model.CommandResult, error) {
	req := request{cmd: c, reply: make(chan model.CommandResult, 1)}
	select {
	case v.cmds <- req:
	case <-v.done:
		return model.CommandResult{}, ErrNotRunning
	case <-ctx.Done():
		return model.CommandResult{}, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res, nil
	case <-v.done:
		return model.CommandResult{}, ErrNotRunning
	case <-ctx.Done():
		return model.CommandResult{}, ctx.Err()
	}
}

// Run ticks the control loop every Interval until ctx is done. The motors are
// stopped and the subscriptions closed on exit.
func (v *Vehicle) Run(ctx context.Context) {
	ticker := time.NewTicker(v.Interval)
	defer ticker.Stop()
	defer v.shutdown()

	log.Printf("[vehicle %s] control loop started (%s)", v.ID, v.Interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.drain()
			v.Tick()
		}
	}
}

func (v *Vehicle) shutdown() {
	v.Drive.Stop()
	close(v.done)
	for _, ch := range v.subs {
		close(ch)
	}
	log.Printf("[vehicle %s] control loop stopped", v.ID)
}

// drain applies every queued command. Commands only take effect between ticks.
func (v *Vehicle) drain() {
	for {
		select {
		case req := <-v.cmds:
			req.reply <- v.Apply(req.cmd)
		default:
			return
		}
	}
}

// Tick runs one control period and publishes the resulting snapshot.
func (v *Vehicle) Tick() model.Telemetry {
	if s, ok := v.Hardware.(Stepper); ok {
		s.Step(v.Interval)
	}
	v.Drive.UpdateVoltage(v.Hardware.SupplyVoltage())

	switch v.mode {
	case ModePath:
		if st := v.Follower.Follow(); st != path.InProgress {
			v.Drive.Stop()
			v.setMode(ModeIdle, "path "+st.String())
		}
	case ModeManual:
		v.Drive.DriveManual(v.manual[0], v.manual[1])
	case ModeTurn:
		if v.Drive.DriveTurn(v.turn[0], v.turn[1]) {
			v.Drive.Stop()
			v.setMode(ModeIdle, "turn reached")
		}
	default:
		v.Drive.UpdateOdometry()
	}
	v.tick++

	t := v.snapshot()
	v.mu.Lock()
	v.last = t
	v.mu.Unlock()
	for _, ch := range v.subs {
		select {
		case ch <- t:
		default:
		}
	}
	return t
}

func (v *Vehicle) setMode(m Mode, why string) {
	if v.mode == m {
		return
	}
	log.Printf("[vehicle %s] mode %s -> %s (%s)", v.ID, v.mode, m, why)
	v.mode = m
}

// Mode returns the current mode. Only safe from the control goroutine or
// before Run.
func (v *Vehicle) Mode() Mode { return v.mode }

// Last returns the most recently published snapshot.
func (v *Vehicle) Last() model.Telemetry {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.last
}

func (v *Vehicle) snapshot() model.Telemetry {
	sample := v.Drive.Odometry().Sample()
	prog := v.Follower.Progress()
	left, right := v.Drive.LastOutputs()
	return model.Telemetry{
		VehicleID:      v.ID,
		Tick:           v.tick,
		Mode:           string(v.mode),
		FollowerState:  prog.State.String(),
		X:              sample.Pose.X,
		Y:              sample.Pose.Y,
		Heading:        sample.Pose.Heading,
		AngularRate:    sample.AngularRate,
		Index:          prog.Index,
		Length:         prog.Length,
		MaxV:           prog.MaxV,
		MaxA:           prog.MaxA,
		TargetVelocity: prog.TargetVelocity,
		TargetOmega:    prog.TargetOmega,
		LeftOutput:     left,
		RightOutput:    right,
		Voltage:        v.Drive.Voltage(),
	}
}

func finished(format string, args ...any) model.CommandResult {
	return model.CommandResult{Finished: true, Message: fmt.Sprintf(format, args...)}
}

func notFinished(format string, args ...any) model.CommandResult {
	return model.CommandResult{Finished: false, Message: fmt.Sprintf(format, args...)}
}

// Apply executes c against the control components. It must run on the control
// goroutine, between ticks.
func (v *Vehicle) Apply(c model.Command) model.CommandResult {
	if err := parser.ValidateCommand(c); err != nil {
		return notFinished("%v", err)
	}
	a := c.Args
	switch c.Kind {
	case model.CmdCreate, model.CmdReverse:
		if v.mode == ModePath {
			return notFinished("cannot %s while following", c.Kind)
		}
		target := model.Pose{X: a[0], Y: a[1], Heading: a[2]}
		var err error
		if c.Kind == model.CmdCreate {
			err = v.Follower.CreateTrajectory(target)
		} else {
			err = v.Follower.CreateReversedTrajectory(target)
		}
		if err != nil {
			return notFinished("%s failed: %v", c.Kind, err)
		}
		tr := v.Follower.Trajectory()
		return finished("trajectory %s with %d states", tr.ID, tr.Len())

	case model.CmdFollow:
		if v.Follower.Trajectory() == nil {
			return notFinished("no trajectory")
		}
		if v.mode != ModePath {
			// wheel loops restart from the current encoder readings
			v.Drive.Stop()
		}
		v.setMode(ModePath, "follow")
		return finished("following")

	case model.CmdFetch:
		pts := []model.PathPoint{}
		if tr := v.Follower.Trajectory(); tr != nil {
			pts = tr.Points()
		}
		b, err := json.Marshal(pts)
		if err != nil {
			return notFinished("fetch failed: %v", err)
		}
		return finished("%s", b)

	case model.CmdReset:
		v.Drive.Stop()
		v.Follower.Clear()
		v.Drive.ResetOdometry()
		v.setMode(ModeIdle, "reset")
		return finished("odometry reset")

	case model.CmdManual:
		v.manual = [2]float64{a[0], a[1]}
		v.setMode(ModeManual, "manual")
		return finished("manual %.2f %.2f", a[0], a[1])

	case model.CmdTurn:
		offset := v.Drive.Pose().Heading
		if len(a) == 2 {
			offset = a[1]
		}
		v.turn = [2]float64{a[0], offset}
		v.Drive.Stop()
		v.setMode(ModeTurn, "turn")
		return finished("turning %.1f from %.1f", a[0], offset)

	case model.CmdStop:
		v.Drive.Stop()
		v.setMode(ModeIdle, "stop")
		return finished("stopped")

	case model.CmdVoltage:
		if a[0] <= 0 {
			return notFinished("invalid voltage %v", a[0])
		}
		v.Drive.UpdateVoltage(a[0])
		return finished("voltage %.2f", a[0])
	}
	return notFinished("unknown command %q", c.Kind)
}
