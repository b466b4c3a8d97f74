package device

import (
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"DiffDrive/internal/model"
	"DiffDrive/internal/parser"
)

// Bridge implements Hardware on top of a line Device connected to the motor
// controller board. A background reader keeps the latest sensor frames so the
// accessors used by the control loop never block.
type Bridge struct {
	ID     string
	Device Device

	mu         sync.RWMutex
	ticks      [2]int64
	tickOK     [2]bool
	tickOffset [2]int64
	heading    float64
	headingOff float64
	rate       float64
	voltage    float64

	encoders [2]*bridgeEncoder
	motors   [2]*bridgeMotor

	stop      chan struct{}
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

// NewBridge wraps dev. Start must be called before sensor values are updated.
func NewBridge(id string, dev Device) *Bridge {
	b := &Bridge{ID: id, Device: dev, stop: make(chan struct{})}
	for _, side := range []Side{Left, Right} {
		b.encoders[side] = &bridgeEncoder{b: b, side: side}
		b.motors[side] = &bridgeMotor{b: b, side: side}
	}
	return b
}

// Start begins the board read loop in a background goroutine.
func (b *Bridge) Start() error {
	if b.Device == nil {
		return errors.New("bridge: no device")
	}
	b.wg.Add(1)
	go b.loop()
	return nil
}

// loop continuously reads lines from the Device and stores the decoded frames.
func (b *Bridge) loop() {
	defer b.wg.Done()
	for {
		select {
		case <-b.stop:
			return
		default:
		}
		line, err := b.Device.ReadLine(0)
		if err != nil {
			// transient error: wait and continue
			select {
			case <-b.stop:
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := b.HandleLine(line); err != nil {
			log.Printf("[bridge %s] decode err: %v (%s)", b.ID, err, line)
		}
	}
}

// HandleLine decodes one board line and updates the cached readings.
func (b *Bridge) HandleLine(line string) error {
	f, err := parser.ParseSensorLine(line)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	switch f.Kind {
	case model.FrameEncoder:
		b.ticks[Left], b.tickOK[Left] = f.LeftTicks, f.LeftOK
		b.ticks[Right], b.tickOK[Right] = f.RightTicks, f.RightOK
	case model.FrameIMU:
		b.heading, b.rate = f.Heading, f.Rate
	case model.FrameVoltage:
		b.voltage = f.Voltage
	}
	return nil
}

// Heading returns the board heading relative to the last reset, in degrees.
func (b *Bridge) Heading() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.heading - b.headingOff
}

// AngularRate returns the last reported yaw rate in deg/s.
func (b *Bridge) AngularRate() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rate
}

// ResetHeading zeroes the heading reference at the current reading.
func (b *Bridge) ResetHeading() {
	b.mu.Lock()
	b.headingOff = b.heading
	b.mu.Unlock()
}

// SupplyVoltage returns the last reported battery voltage; 0 until the first VBAT frame.
func (b *Bridge) SupplyVoltage() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.voltage
}

// Encoder returns the encoder view of one wheel group.
func (b *Bridge) Encoder(side Side) Encoder { return b.encoders[side] }

// Motor returns the motor view of one wheel group.
func (b *Bridge) Motor(side Side) Motor { return b.motors[side] }

// Close stops the read loop and closes the device.
// Later calls return the first result.
func (b *Bridge) Close() error {
	b.closeOnce.Do(func() {
		close(b.stop)
		if b.Device != nil {
			b.closeErr = b.Device.Close()
		}
		b.wg.Wait()
	})
	return b.closeErr
}

type bridgeEncoder struct {
	b    *Bridge
	side Side
}

func (e *bridgeEncoder) Ticks() (int64, bool) {
	e.b.mu.RLock()
	defer e.b.mu.RUnlock()
	if !e.b.tickOK[e.side] {
		return 0, false
	}
	return e.b.ticks[e.side] - e.b.tickOffset[e.side], true
}

func (e *bridgeEncoder) ResetTicks() {
	e.b.mu.Lock()
	e.b.tickOffset[e.side] = e.b.ticks[e.side]
	e.b.mu.Unlock()
}

type bridgeMotor struct {
	b    *Bridge
	side Side
}

func (m *bridgeMotor) ApplyPower(fraction float64) {
	if err := m.b.Device.WriteLine(parser.FormatPowerLine(m.side.String(), fraction)); err != nil {
		log.Printf("[bridge %s] power write err: %v", m.b.ID, err)
	}
}
