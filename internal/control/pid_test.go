package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DiffDrive/internal/model"
)

const tick = 20 * time.Millisecond

func TestPIDFirstTickHasNoIntegralOrDerivative(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	pid := NewPID("test", 2, 1, 1, 0, clk)

	pid.UpdateDelta()
	out := pid.PositionOutput(0, 1)

	assert.Equal(t, 0.0, pid.Delta())
	assert.InDelta(t, 2.0, out, 1e-12)
	assert.InDelta(t, 1.0, pid.Error(), 1e-12)
}

func TestPIDTerms(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	pid := NewPID("test", 1, 10, 0.5, 0, clk)

	pid.UpdateDelta()
	pid.PositionOutput(0, 1) // error 1, no delta yet

	clk.Advance(tick)
	pid.UpdateDelta()
	out := pid.PositionOutput(0.5, 1) // error 0.5

	require.InDelta(t, 0.02, pid.Delta(), 1e-9)
	// P = 0.5, I = 10*(0.5*0.02) = 0.1, D = 0.5*(0.5-1)/0.02 = -12.5
	assert.InDelta(t, 0.5+0.1-12.5, out, 1e-9)
}

func TestPIDVelocityFeedForward(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	pid := NewPIDFromGains("vel", model.PIDGains{Kf: 0.22}, clk)

	pid.UpdateDelta()
	assert.InDelta(t, 0.22*10, pid.VelocityOutput(10, 10), 1e-12)
	assert.InDelta(t, 0.0, pid.VelocityOutput(0, 0), 1e-12)
}

func TestPIDDoubleUpdateShrinksDelta(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	pid := NewPID("test", 0, 0, 1, 0, clk)
	pid.UpdateDelta()
	clk.Advance(tick)
	pid.UpdateDelta()
	pid.UpdateDelta()
	assert.Equal(t, 0.0, pid.Delta())
}

func TestPIDConvergesOnFirstOrderPlant(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	pid := NewPID("plant", 0.08, 0.075, 0, 0, clk)

	target, current := 5.0, 0.0
	for i := 0; i < 1000; i++ {
		clk.Advance(100 * time.Millisecond)
		pid.UpdateDelta()
		power := pid.VelocityOutput(current, target)
		current = power * 10
	}
	assert.InDelta(t, target, current, 0.01)
}

func TestPIDReset(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	pid := NewPID("test", 1, 1, 1, 0, clk)
	pid.UpdateDelta()
	clk.Advance(tick)
	pid.UpdateDelta()
	pid.PositionOutput(0, 3)
	require.NotZero(t, pid.Integral())

	pid.Reset()
	assert.Zero(t, pid.Integral())
	assert.Zero(t, pid.Error())
	clk.Advance(tick)
	pid.UpdateDelta()
	assert.Zero(t, pid.Delta())
}
