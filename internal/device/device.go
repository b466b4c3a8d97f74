// Package device defines the hardware contracts the control core consumes and a
// unified interface for line-based communication devices such as serial ports.
package device

import "time"

// Device defines an abstract interface for communication devices (e.g., LoRa, Serial).
// Implementations can provide ReadLine/WriteLine operations with optional timeout.
type Device interface {
	// ReadLine reads a single line terminated by '\n'.
	// If timeout > 0, it must return after timeout even if no data available.
	ReadLine(timeout time.Duration) (string, error)

	// WriteLine writes s followed by '\n' to the device.
	WriteLine(s string) error

	// Close closes the device and releases underlying resources.
	Close() error
}

// Side identifies one of the two wheel groups.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "L"
	}
	return "R"
}

// Encoder reads cumulative ticks of one wheel group.
// ok is false when the group has no encoder fitted or the reading is unavailable.
type Encoder interface {
	Ticks() (ticks int64, ok bool)
	ResetTicks()
}

// HeadingSensor is the inertial sensor. Heading is in degrees, counter-clockwise
// positive; AngularRate is in degrees per second.
type HeadingSensor interface {
	Heading() float64
	AngularRate() float64
	ResetHeading()
}

// Motor applies a normalised power in [-1, 1] to one wheel group.
type Motor interface {
	ApplyPower(fraction float64)
}

// VoltageSensor reads the supply voltage in volts.
type VoltageSensor interface {
	SupplyVoltage() float64
}

// Hardware bundles everything the vehicle control loop needs from the robot.
type Hardware interface {
	HeadingSensor
	VoltageSensor
	Encoder(side Side) Encoder
	Motor(side Side) Motor
	Close() error
}
