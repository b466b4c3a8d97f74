package control

import "time"

// ManualClock is a Clock advanced explicitly by the caller. The simulator and
// the tests use it to run control ticks faster than real time.
type ManualClock struct {
	now time.Time
}

// NewManualClock starts a clock at t.
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{now: t}
}

// Now returns the current simulated time.
func (c *ManualClock) Now() time.Time { return c.now }

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
