package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DiffDrive/internal/model"
	"DiffDrive/internal/store"
)

func simConfig(t *testing.T) *model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Hardware.Mode = "sim"
	cfg.Global.RecordPath = filepath.Join(t.TempDir(), "runs.db")
	cfg.Global.TelemetryAddr = "127.0.0.1:0"
	return cfg
}

func reopen(t *testing.T, path string) *store.Recorder {
	t.Helper()
	rec, err := store.Open(path, "check")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })
	return rec
}

func TestSystemRunsSimulatedVehicle(t *testing.T) {
	s, err := NewSystemFromConfig(simConfig(t))
	require.NoError(t, err)
	require.NotNil(t, s.Recorder)
	require.NotNil(t, s.App)
	assert.Nil(t, s.Uplink)

	require.NoError(t, s.StartAll(context.Background()))
	require.NoError(t, s.StartAll(context.Background()), "second start is a no-op")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := s.Vehicle.Submit(ctx, model.Command{Kind: model.CmdCreate, Args: []float64{0.5, 0, 0}})
	require.NoError(t, err)
	require.True(t, res.Finished, res.Message)
	res, err = s.Vehicle.Submit(ctx, model.Command{Kind: model.CmdFollow})
	require.NoError(t, err)
	require.True(t, res.Finished)

	require.Eventually(t, func() bool {
		snap, err := s.Recorder.Latest("")
		return err == nil && snap.Mode == string(ModePath)
	}, 2*time.Second, 20*time.Millisecond)

	run := s.Recorder.CurrentRun()
	require.NoError(t, s.StopAll())
	require.NoError(t, s.StopAll(), "second stop is a no-op")
	assert.Error(t, s.StartAll(context.Background()))

	// the database is closed with the system; reopen to read the run back
	rec := reopen(t, s.Config().Global.RecordPath)
	samples, err := rec.Samples(run, 0, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, samples)
}

func TestNewSystemLoadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	yml := "global:\n  vehicle_id: \"00042\"\n  wire_format: csv\nhardware:\n  mode: sim\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	s, err := NewSystem(path)
	require.NoError(t, err)
	assert.Equal(t, "00042", s.Vehicle.ID)
	assert.Equal(t, path, s.ConfigPath())
	assert.Nil(t, s.Recorder)
	assert.Nil(t, s.App)
	require.NoError(t, s.StopAll())
}

func TestNewSystemErrors(t *testing.T) {
	_, err := NewSystem(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	cfg := simConfig(t)
	cfg.Hardware.Mode = "warp"
	_, err = NewSystemFromConfig(cfg)
	assert.ErrorContains(t, err, "unknown hardware mode")

	cfg = simConfig(t)
	cfg.Global.WireFormat = "xml"
	_, err = NewSystemFromConfig(cfg)
	assert.Error(t, err)

	cfg = simConfig(t)
	cfg.LoRa.Enabled = true
	cfg.LoRa.DevAddr = "zz"
	_, err = NewSystemFromConfig(cfg)
	assert.ErrorContains(t, err, "lora codec")
}
