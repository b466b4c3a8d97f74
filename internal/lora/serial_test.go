package lora

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DiffDrive/internal/model"
	"DiffDrive/internal/parser"
)

type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) ReadLine(time.Duration) (string, error) { select {} }
func (r *recorder) WriteLine(s string) error {
	r.mu.Lock()
	r.lines = append(r.lines, s)
	r.mu.Unlock()
	return nil
}
func (r *recorder) Close() error { return nil }

func (r *recorder) written() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func newCodec(t *testing.T) *parser.LoRaCodec {
	c, err := parser.NewLoRaCodec("26011bda", "2b7e151628aed2a6abf7158809cf4f3c", "000102030405060708090a0b0c0d0e0f", 10)
	require.NoError(t, err)
	return c
}

func TestSendAndReceive(t *testing.T) {
	dev := &recorder{}
	u := New(dev, newCodec(t), parser.NewCSVParser(), 0)
	assert.Equal(t, time.Second, u.Interval)

	snap := model.Telemetry{VehicleID: "00001", Tick: 3, Mode: "idle", FollowerState: "idle", X: 0.5}
	require.NoError(t, u.Send(snap))

	lines := dev.written()
	require.Len(t, lines, 1)
	got, fcnt, err := Receive(lines[0], newCodec(t), parser.NewCSVParser())
	require.NoError(t, err)
	assert.Equal(t, snap, got)
	assert.Equal(t, uint32(1), fcnt)
}

func TestRunSendsLatestOnly(t *testing.T) {
	dev := &recorder{}
	u := New(dev, newCodec(t), parser.NewJSONParser(), 30*time.Millisecond)
	in := make(chan model.Telemetry, 8)
	for i := 1; i <= 5; i++ {
		in <- model.Telemetry{VehicleID: "00001", Tick: uint64(i)}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		u.Run(ctx, in)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(dev.written()) >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	lines := dev.written()
	require.Len(t, lines, 1)
	got, _, err := Receive(lines[0], newCodec(t), parser.NewJSONParser())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got.Tick)
}

func TestReceiveRejectsGarbage(t *testing.T) {
	_, _, err := Receive("not hex", newCodec(t), parser.NewCSVParser())
	assert.Error(t, err)
}
