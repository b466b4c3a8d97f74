// Package sim provides a simulated differential-drive vehicle implementing the
// device interfaces, for tests and for running the control stack without a board.
package sim

import (
	"math"
	"time"

	"DiffDrive/internal/control"
	"DiffDrive/internal/device"
	"DiffDrive/internal/model"
	"DiffDrive/internal/util"
)

// Config describes the simulated drive train.
type Config struct {
	WheelRadius        float64 // m
	TrackWidth         float64 // m
	TicksPerRevolution float64
	BackEMF            float64 // V per rad/s of wheel speed at steady state
	StaticFriction     float64 // V lost before the wheel moves
	TimeConstant       time.Duration
	Voltage            float64 // V
	HasEncoder         bool
}

// ConfigFromDrive matches the plant to a configured drive train.
func ConfigFromDrive(d model.DriveConfig, hasEncoder bool) Config {
	return Config{
		WheelRadius:        d.WheelRadius,
		TrackWidth:         d.TrackWidth,
		TicksPerRevolution: d.TicksPerRevolution,
		BackEMF:            d.VelocityPID.Kf,
		StaticFriction:     d.StaticFriction,
		TimeConstant:       80 * time.Millisecond,
		Voltage:            d.NominalVoltage,
		HasEncoder:         hasEncoder,
	}
}

// Plant integrates wheel speeds into a pose. It is driven by Step from the
// goroutine that owns the control loop and is not safe for concurrent use.
type Plant struct {
	cfg   Config
	clock *control.ManualClock

	pose       model.Pose // true pose, heading unwrapped in degrees
	rate       float64    // deg/s
	headingOff float64

	wheel    [2]float64 // rad/s
	power    [2]float64
	ticks    [2]float64
	tickOff  [2]int64
	encoders [2]*plantEncoder
	motors   [2]*plantMotor
}

// NewPlant creates a plant at the origin. clock is advanced by Step; nil
// creates a private one.
func NewPlant(cfg Config, clock *control.ManualClock) *Plant {
	if clock == nil {
		clock = control.NewManualClock(time.Unix(0, 0))
	}
	p := &Plant{cfg: cfg, clock: clock}
	for _, s := range []device.Side{device.Left, device.Right} {
		p.encoders[s] = &plantEncoder{p: p, side: s}
		p.motors[s] = &plantMotor{p: p, side: s}
	}
	return p
}

// Clock returns the simulated clock.
func (p *Plant) Clock() *control.ManualClock { return p.clock }

// Step advances the simulation by dt.
func (p *Plant) Step(dt time.Duration) {
	sec := dt.Seconds()
	alpha := 1.0
	if p.cfg.TimeConstant > 0 {
		alpha = 1 - math.Exp(-sec/p.cfg.TimeConstant.Seconds())
	}
	radPerTick := 2 * math.Pi / p.cfg.TicksPerRevolution
	for s := range p.wheel {
		p.wheel[s] += (p.steadySpeed(p.power[s]) - p.wheel[s]) * alpha
		p.ticks[s] += p.wheel[s] * sec / radPerTick
	}

	r := p.cfg.WheelRadius
	v := (p.wheel[device.Right] + p.wheel[device.Left]) * r / 2
	omega := (p.wheel[device.Right] - p.wheel[device.Left]) * r / p.cfg.TrackWidth

	p.rate = omega * 180 / math.Pi
	mid := (p.pose.Heading + p.rate*sec/2) * math.Pi / 180
	p.pose.X += v * sec * math.Cos(mid)
	p.pose.Y += v * sec * math.Sin(mid)
	p.pose.Heading += p.rate * sec
	p.clock.Advance(dt)
}

// steadySpeed is the wheel speed a duty fraction settles to.
func (p *Plant) steadySpeed(power float64) float64 {
	volts := power * p.cfg.Voltage
	if math.Abs(volts) <= p.cfg.StaticFriction || p.cfg.BackEMF == 0 {
		return 0
	}
	return (volts - util.Sign(volts)*p.cfg.StaticFriction) / p.cfg.BackEMF
}

// TruePose returns the simulated ground truth with the heading normalised.
func (p *Plant) TruePose() model.Pose {
	pose := p.pose
	pose.Heading = util.Compassify(pose.Heading)
	return pose
}

// SetVoltage changes the simulated supply.
func (p *Plant) SetVoltage(v float64) { p.cfg.Voltage = v }

// Heading implements device.HeadingSensor.
func (p *Plant) Heading() float64 { return p.pose.Heading - p.headingOff }

// AngularRate implements device.HeadingSensor.
func (p *Plant) AngularRate() float64 { return p.rate }

// ResetHeading implements device.HeadingSensor.
func (p *Plant) ResetHeading() { p.headingOff = p.pose.Heading }

// SupplyVoltage implements device.VoltageSensor.
func (p *Plant) SupplyVoltage() float64 { return p.cfg.Voltage }

// Encoder implements device.Hardware.
func (p *Plant) Encoder(side device.Side) device.Encoder { return p.encoders[side] }

// Motor implements device.Hardware.
func (p *Plant) Motor(side device.Side) device.Motor { return p.motors[side] }

// Close implements device.Hardware.
func (p *Plant) Close() error {
	p.power = [2]float64{}
	return nil
}

type plantEncoder struct {
	p    *Plant
	side device.Side
}

func (e *plantEncoder) Ticks() (int64, bool) {
	if !e.p.cfg.HasEncoder {
		return 0, false
	}
	return int64(math.Round(e.p.ticks[e.side])) - e.p.tickOff[e.side], true
}

func (e *plantEncoder) ResetTicks() {
	e.p.tickOff[e.side] = int64(math.Round(e.p.ticks[e.side]))
}

type plantMotor struct {
	p    *Plant
	side device.Side
}

func (m *plantMotor) ApplyPower(fraction float64) {
	m.p.power[m.side] = util.Clamp(fraction, -1, 1)
}
