// Package control provides the PID controller shared by the wheel velocity loops
// and the in-place turn loop.
package control

import (
	"time"

	"DiffDrive/internal/model"
)

// Clock supplies timestamps to the controller so the derivative term can be
// computed from real elapsed time, or from simulated time in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// PID is a proportional-integral-derivative controller with a setpoint
// feed-forward term. Output is never clamped; callers saturate.
//
// UpdateDelta must be called exactly once per control tick before the output
// is computed. A second call in the same tick shrinks the delta and corrupts
// the derivative term.
type PID struct {
	Name string
	Kp   float64
	Ki   float64
	Kd   float64
	Kf   float64

	clock    Clock
	last     time.Time
	delta    float64 // s
	integral float64
	err      float64
	lastErr  float64
	primed   bool
}

// NewPID creates a controller. A nil clock falls back to SystemClock.
func NewPID(name string, kp, ki, kd, kf float64, clock Clock) *PID {
	if clock == nil {
		clock = SystemClock{}
	}
	return &PID{Name: name, Kp: kp, Ki: ki, Kd: kd, Kf: kf, clock: clock}
}

// NewPIDFromGains creates a controller from configured gains.
func NewPIDFromGains(name string, g model.PIDGains, clock Clock) *PID {
	return NewPID(name, g.Kp, g.Ki, g.Kd, g.Kf, clock)
}

// UpdateDelta refreshes the time elapsed since the previous call.
// The first call after construction or Reset yields a zero delta.
func (p *PID) UpdateDelta() {
	now := p.clock.Now()
	if p.last.IsZero() {
		p.delta = 0
	} else {
		p.delta = now.Sub(p.last).Seconds()
	}
	p.last = now
}

// Delta returns the seconds measured by the last UpdateDelta.
func (p *PID) Delta() float64 { return p.delta }

// VelocityOutput computes the output for a velocity loop: the PID terms plus Kf*setpoint.
func (p *PID) VelocityOutput(measured, setpoint float64) float64 {
	return p.compute(measured, setpoint) + p.Kf*setpoint
}

// PositionOutput computes the output for a position loop (no feed-forward).
func (p *PID) PositionOutput(measured, setpoint float64) float64 {
	return p.compute(measured, setpoint)
}

func (p *PID) compute(measured, setpoint float64) float64 {
	p.err = setpoint - measured

	var derivative float64
	if p.delta > 0 {
		p.integral += p.err * p.delta
		if p.primed {
			derivative = (p.err - p.lastErr) / p.delta
		}
	}
	p.lastErr = p.err
	p.primed = true

	return p.Kp*p.err + p.Ki*p.integral + p.Kd*derivative
}

// Error returns the error of the last computed output.
func (p *PID) Error() float64 { return p.err }

// Integral returns the accumulated error integral.
func (p *PID) Integral() float64 { return p.integral }

// SetGains replaces the gains without touching the accumulated state.
func (p *PID) SetGains(g model.PIDGains) {
	p.Kp, p.Ki, p.Kd, p.Kf = g.Kp, g.Ki, g.Kd, g.Kf
}

// Reset clears the integral, error history and clock.
func (p *PID) Reset() {
	p.last = time.Time{}
	p.delta = 0
	p.integral = 0
	p.err = 0
	p.lastErr = 0
	p.primed = false
}
