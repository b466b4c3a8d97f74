// Package odometry integrates wheel encoder displacement and the heading sensor
// into a 2D pose estimate (dead reckoning, skid-steer approximation).
package odometry

import (
	"log"
	"math"

	"DiffDrive/internal/device"
	"DiffDrive/internal/model"
	"DiffDrive/internal/util"
)

// State of the estimator.
type State int

const (
	// Uninitialized means no encoder snapshot is held; the next valid reading
	// becomes the baseline and contributes zero displacement.
	Uninitialized State = iota
	Tracking
)

func (s State) String() string {
	if s == Tracking {
		return "tracking"
	}
	return "uninitialized"
}

// Estimator is the pose estimator. It is owned by a single control loop.
type Estimator struct {
	left, right device.Encoder
	gyro        device.HeadingSensor

	metersPerTick float64

	state    State
	lastL    int64
	lastR    int64
	sample   model.OdometrySample
	wheelL   float64
	wheelR   float64
	degraded bool
}

// New creates an estimator for a drive train with the given wheel radius (m)
// and encoder resolution.
func New(left, right device.Encoder, gyro device.HeadingSensor, wheelRadius, ticksPerRevolution float64) *Estimator {
	return &Estimator{
		left:          left,
		right:         right,
		gyro:          gyro,
		metersPerTick: 2 * math.Pi * wheelRadius / ticksPerRevolution,
	}
}

// Update reads the sensors once and integrates the pose. Call once per tick.
func (e *Estimator) Update() model.OdometrySample {
	heading := util.Compassify(e.gyro.Heading())
	e.sample.Pose.Heading = heading
	e.sample.AngularRate = e.gyro.AngularRate()
	e.sample.Distance = 0
	e.wheelL, e.wheelR = 0, 0

	l, okL := e.left.Ticks()
	r, okR := e.right.Ticks()
	if !okL || !okR {
		if !e.degraded {
			log.Printf("[odometry] encoder unavailable (left=%v right=%v): position frozen", okL, okR)
			e.degraded = true
		}
		e.state = Uninitialized
		return e.sample
	}
	if e.degraded {
		log.Printf("[odometry] encoders back, re-baselining")
		e.degraded = false
	}

	if e.state == Uninitialized {
		e.lastL, e.lastR = l, r
		e.state = Tracking
		return e.sample
	}

	leftMeters := float64(l-e.lastL) * e.metersPerTick
	rightMeters := float64(r-e.lastR) * e.metersPerTick
	e.lastL, e.lastR = l, r
	e.wheelL, e.wheelR = leftMeters, rightMeters

	d := (leftMeters + rightMeters) / 2
	rad := heading * math.Pi / 180
	e.sample.Pose.X += d * math.Cos(rad)
	e.sample.Pose.Y += d * math.Sin(rad)
	e.sample.Distance = d
	return e.sample
}

// Reset zeroes the pose, resets the sensors and takes a fresh encoder snapshot
// so the next tick integrates relative to zero.
func (e *Estimator) Reset() {
	e.gyro.ResetHeading()
	e.left.ResetTicks()
	e.right.ResetTicks()

	e.sample = model.OdometrySample{}
	e.lastL, e.lastR = 0, 0
	e.state = Uninitialized
	e.Update()
}

// Sample returns the last computed odometry sample.
func (e *Estimator) Sample() model.OdometrySample { return e.sample }

// Pose returns the last computed pose.
func (e *Estimator) Pose() model.Pose { return e.sample.Pose }

// WheelDistances returns the meters each wheel group travelled in the last tick.
func (e *Estimator) WheelDistances() (left, right float64) { return e.wheelL, e.wheelR }

// State reports whether the estimator holds an encoder baseline.
func (e *Estimator) State() State { return e.state }

// MetersPerTick is the encoder resolution at the wheel rim.
func (e *Estimator) MetersPerTick() float64 { return e.metersPerTick }
