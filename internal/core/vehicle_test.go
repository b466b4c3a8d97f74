package core

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DiffDrive/internal/model"
	"DiffDrive/internal/path"
	"DiffDrive/internal/sim"
)

func newSimVehicle(t *testing.T) (*Vehicle, *sim.Plant) {
	t.Helper()
	cfg := model.DefaultConfig()
	plant := sim.NewPlant(sim.ConfigFromDrive(cfg.Drive, true), nil)
	return NewVehicle("00001", plant, cfg, plant.Clock()), plant
}

func mustApply(t *testing.T, v *Vehicle, kind model.CommandKind, args ...float64) model.CommandResult {
	t.Helper()
	res := v.Apply(model.Command{Kind: kind, Args: args})
	require.True(t, res.Finished, res.Message)
	return res
}

func TestVehicleFollowsPathToIdle(t *testing.T) {
	v, plant := newSimVehicle(t)
	mustApply(t, v, model.CmdCreate, 2, 0, 0)
	mustApply(t, v, model.CmdFollow)
	require.Equal(t, ModePath, v.Mode())

	var last model.Telemetry
	for i := 0; i < 1500 && v.Mode() == ModePath; i++ {
		last = v.Tick()
	}
	require.Equal(t, ModeIdle, v.Mode())
	assert.Equal(t, "converged", last.FollowerState)
	assert.Equal(t, last.Length, last.Index)
	assert.InDelta(t, 2, plant.TruePose().X, 0.1)
	assert.Equal(t, 0.0, last.LeftOutput)
	assert.Equal(t, 0.0, last.RightOutput)
}

func TestVehicleCommandValidation(t *testing.T) {
	v, _ := newSimVehicle(t)

	res := v.Apply(model.Command{Kind: model.CmdCreate, Args: []float64{1}})
	assert.False(t, res.Finished)

	res = v.Apply(model.Command{Kind: model.CmdFollow})
	assert.False(t, res.Finished, "follow without a trajectory")

	mustApply(t, v, model.CmdCreate, 1, 0, 0)
	mustApply(t, v, model.CmdFollow)
	res = v.Apply(model.Command{Kind: model.CmdReverse, Args: []float64{-1, 0, 0}})
	assert.False(t, res.Finished, "create while following")

	res = v.Apply(model.Command{Kind: model.CmdVoltage, Args: []float64{0}})
	assert.False(t, res.Finished)
	mustApply(t, v, model.CmdVoltage, 11)
	assert.Equal(t, 11.0, v.Drive.Voltage())
}

func TestVehicleFetch(t *testing.T) {
	v, _ := newSimVehicle(t)
	res := mustApply(t, v, model.CmdFetch)
	assert.Equal(t, "[]", res.Message)

	mustApply(t, v, model.CmdCreate, 1, 1, 90)
	res = mustApply(t, v, model.CmdFetch)
	var pts []model.PathPoint
	require.NoError(t, json.Unmarshal([]byte(res.Message), &pts))
	require.Len(t, pts, v.Follower.Trajectory().Len())
	end := pts[len(pts)-1]
	assert.InDelta(t, 1, end.X, 1e-9)
	assert.InDelta(t, 1, end.Y, 1e-9)
	assert.InDelta(t, 90, end.Angle, 1e-9)
}

func TestVehicleManualAndStop(t *testing.T) {
	v, plant := newSimVehicle(t)
	mustApply(t, v, model.CmdManual, 0.3, 0)
	var last model.Telemetry
	for i := 0; i < 25; i++ {
		last = v.Tick()
	}
	assert.Equal(t, "manual", last.Mode)
	assert.Equal(t, 0.3, last.LeftOutput)
	assert.Equal(t, 0.3, last.RightOutput)
	assert.Greater(t, plant.TruePose().X, 0.0)
	assert.Greater(t, last.X, 0.0)

	mustApply(t, v, model.CmdStop)
	last = v.Tick()
	assert.Equal(t, "idle", last.Mode)
	assert.Equal(t, 0.0, last.LeftOutput)
}

// feedForwardOutput is the duty a wheel loop writes on its first tick, when no
// elapsed time and no error history exist yet.
func feedForwardOutput(v *Vehicle, setpoint float64) float64 {
	cfg := model.DefaultConfig().Drive
	volts := cfg.VelocityPID.Kf * setpoint
	if setpoint > 0 {
		volts += cfg.StaticFriction
	} else if setpoint < 0 {
		volts -= cfg.StaticFriction
	}
	out := volts / math.Max(v.Drive.Voltage(), cfg.MinVoltage)
	if math.Abs(out) < cfg.OutputTolerance {
		return 0
	}
	return math.Min(math.Max(out, -1), 1)
}

func TestVehicleFollowAfterManualRestartsWheelLoops(t *testing.T) {
	v, _ := newSimVehicle(t)
	mustApply(t, v, model.CmdCreate, 2, 0, 0)
	mustApply(t, v, model.CmdFollow)
	for i := 0; i < 20; i++ {
		v.Tick()
	}

	mustApply(t, v, model.CmdManual, 0, 0)
	for i := 0; i < 50; i++ {
		v.Tick()
	}

	mustApply(t, v, model.CmdFollow)
	last := v.Tick()
	require.Equal(t, "path", last.Mode)
	sl, sr := v.Drive.Setpoints()
	require.NotZero(t, sl)
	assert.InDelta(t, feedForwardOutput(v, sl), last.LeftOutput, 1e-9)
	assert.InDelta(t, feedForwardOutput(v, sr), last.RightOutput, 1e-9)
}

func TestVehicleTurnRotatesCounterClockwise(t *testing.T) {
	v, plant := newSimVehicle(t)
	mustApply(t, v, model.CmdTurn, 90)
	for i := 0; i < 10; i++ {
		v.Tick()
	}
	assert.Greater(t, plant.TruePose().Heading, 5.0)
}

func TestVehicleReset(t *testing.T) {
	v, _ := newSimVehicle(t)
	mustApply(t, v, model.CmdManual, 0.4, 0.1)
	for i := 0; i < 20; i++ {
		v.Tick()
	}
	mustApply(t, v, model.CmdCreate, 1, 0, 0)
	require.NotEqual(t, model.Pose{}, v.Drive.Pose())

	mustApply(t, v, model.CmdReset)
	assert.Equal(t, ModeIdle, v.Mode())
	assert.Nil(t, v.Follower.Trajectory())
	assert.Equal(t, path.Idle, v.Follower.State())
	pose := v.Drive.Pose()
	assert.InDelta(t, 0, pose.X, 1e-9)
	assert.InDelta(t, 0, pose.Y, 1e-9)
	assert.InDelta(t, 0, pose.Heading, 1e-9)
}

func TestVehicleRunAndSubmit(t *testing.T) {
	v, _ := newSimVehicle(t)
	ch := v.Subscribe(4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		v.Run(ctx)
		close(done)
	}()

	res, err := v.Submit(ctx, model.Command{Kind: model.CmdManual, Args: []float64{0.3, 0}})
	require.NoError(t, err)
	assert.True(t, res.Finished)

	require.Eventually(t, func() bool {
		last := v.Last()
		return last.Mode == "manual" && last.LeftOutput == 0.3
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case snap := <-ch:
		assert.Equal(t, "00001", snap.VehicleID)
	case <-time.After(time.Second):
		t.Fatal("no telemetry published")
	}

	cancel()
	<-done
	for range ch {
		// drained until closed by the loop
	}
	_, err = v.Submit(context.Background(), model.Command{Kind: model.CmdStop})
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestSubmitHonoursContext(t *testing.T) {
	v, _ := newSimVehicle(t)
	// nobody runs the loop, so the reply never comes
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := v.Submit(ctx, model.Command{Kind: model.CmdStop})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
