package device

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice is an in-memory line device standing in for the serial port.
type fakeDevice struct {
	in     chan string
	mu     sync.Mutex
	out    []string
	closed bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{in: make(chan string, 16)}
}

func (f *fakeDevice) ReadLine(timeout time.Duration) (string, error) {
	line, ok := <-f.in
	if !ok {
		return "", io.EOF
	}
	return line + "\n", nil
}

func (f *fakeDevice) WriteLine(s string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("closed")
	}
	f.out = append(f.out, s)
	return nil
}

func (f *fakeDevice) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.in)
	}
	return nil
}

func (f *fakeDevice) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.out...)
}

func TestBridgeHandleLine(t *testing.T) {
	b := NewBridge("t", newFakeDevice())

	require.NoError(t, b.HandleLine("ENC,100,-40"))
	require.NoError(t, b.HandleLine("IMU,12.5,-3.25"))
	require.NoError(t, b.HandleLine("VBAT,11.9"))

	l, ok := b.Encoder(Left).Ticks()
	assert.True(t, ok)
	assert.Equal(t, int64(100), l)
	r, ok := b.Encoder(Right).Ticks()
	assert.True(t, ok)
	assert.Equal(t, int64(-40), r)
	assert.InDelta(t, 12.5, b.Heading(), 1e-9)
	assert.InDelta(t, -3.25, b.AngularRate(), 1e-9)
	assert.InDelta(t, 11.9, b.SupplyVoltage(), 1e-9)

	assert.Error(t, b.HandleLine("ENC,abc,1"))
	assert.Error(t, b.HandleLine("XYZ,1"))
}

func TestBridgeMissingEncoder(t *testing.T) {
	b := NewBridge("t", newFakeDevice())
	require.NoError(t, b.HandleLine("ENC,-,10"))

	_, ok := b.Encoder(Left).Ticks()
	assert.False(t, ok)
	_, ok = b.Encoder(Right).Ticks()
	assert.True(t, ok)
}

func TestBridgeReset(t *testing.T) {
	b := NewBridge("t", newFakeDevice())
	require.NoError(t, b.HandleLine("ENC,500,700"))
	require.NoError(t, b.HandleLine("IMU,45,0"))

	b.Encoder(Left).ResetTicks()
	b.Encoder(Right).ResetTicks()
	b.ResetHeading()

	l, _ := b.Encoder(Left).Ticks()
	r, _ := b.Encoder(Right).Ticks()
	assert.Zero(t, l)
	assert.Zero(t, r)
	assert.Zero(t, b.Heading())

	require.NoError(t, b.HandleLine("ENC,520,690"))
	l, _ = b.Encoder(Left).Ticks()
	r, _ = b.Encoder(Right).Ticks()
	assert.Equal(t, int64(20), l)
	assert.Equal(t, int64(-10), r)
}

func TestBridgeLoopAndPower(t *testing.T) {
	dev := newFakeDevice()
	b := NewBridge("t", dev)
	require.NoError(t, b.Start())

	dev.in <- "VBAT,12.3"
	assert.Eventually(t, func() bool { return b.SupplyVoltage() == 12.3 }, time.Second, 5*time.Millisecond)

	b.Motor(Left).ApplyPower(0.5)
	b.Motor(Right).ApplyPower(-0.25)
	assert.Equal(t, []string{"PWR,L,0.5000", "PWR,R,-0.2500"}, dev.written())

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

func TestBridgeConcurrentClose(t *testing.T) {
	dev := newFakeDevice()
	b := NewBridge("t", dev)
	require.NoError(t, b.Start())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, b.Close())
		}()
	}
	wg.Wait()
	assert.True(t, dev.closed)
}
