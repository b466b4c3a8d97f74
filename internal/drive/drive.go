// Package drive implements closed-loop differential-drive actuation: body
// velocity commands are turned into wheel setpoints, tracked by per-wheel
// velocity PID loops and written to the motors as supply-normalised duty.
package drive

import (
	"math"

	"DiffDrive/internal/control"
	"DiffDrive/internal/device"
	"DiffDrive/internal/model"
	"DiffDrive/internal/odometry"
	"DiffDrive/internal/util"
)

// Drive owns the wheel PID state and the odometry estimator. It is not safe
// for concurrent use; the vehicle control loop is its only caller.
type Drive struct {
	cfg model.DriveConfig
	geo Geometry

	encoders [2]device.Encoder
	motors   [2]device.Motor
	gyro     device.HeadingSensor
	odom     *odometry.Estimator

	leftPID  *control.PID
	rightPID *control.PID
	turnPID  *control.PID

	radPerTick float64
	lastTicks  [2]int64
	ticksValid bool

	voltage   float64
	setpoints [2]float64 // rad/s
	outputs   [2]float64
}

// New wires a Drive to the hardware. A nil clock uses the wall clock.
func New(hw device.Hardware, cfg model.DriveConfig, clock control.Clock) *Drive {
	d := &Drive{
		cfg:        cfg,
		geo:        Geometry{WheelRadius: cfg.WheelRadius, TrackWidth: cfg.TrackWidth},
		encoders:   [2]device.Encoder{hw.Encoder(device.Left), hw.Encoder(device.Right)},
		motors:     [2]device.Motor{hw.Motor(device.Left), hw.Motor(device.Right)},
		gyro:       hw,
		leftPID:    control.NewPIDFromGains("left", cfg.VelocityPID, clock),
		rightPID:   control.NewPIDFromGains("right", cfg.VelocityPID, clock),
		turnPID:    control.NewPIDFromGains("turn", cfg.TurnPID, clock),
		radPerTick: 2 * math.Pi / cfg.TicksPerRevolution,
		voltage:    cfg.NominalVoltage,
	}
	d.odom = odometry.New(d.encoders[device.Left], d.encoders[device.Right], hw, cfg.WheelRadius, cfg.TicksPerRevolution)
	return d
}

// DriveVector tracks a body velocity v (m/s) and angular velocity omega (rad/s)
// for one tick, then refreshes odometry.
func (d *Drive) DriveVector(v, omega float64) {
	if !util.Finite(v) || !util.Finite(omega) {
		v, omega = 0, 0
	}
	v = util.Deadband(v, d.cfg.VelocityTolerance)
	omega = util.Deadband(omega, d.cfg.VelocityTolerance)

	dl, dr, measured := d.measureWheels()
	if v == 0 && omega == 0 {
		// stopped: drop accumulated error so the loops cannot hunt around zero
		d.setpoints = [2]float64{}
		d.leftPID.Reset()
		d.rightPID.Reset()
		d.Direct(0, 0)
		d.odom.Update()
		return
	}

	sl, sr := d.geo.RobotToWheels(v, omega)
	d.setpoints = [2]float64{sl, sr}

	d.leftPID.UpdateDelta()
	d.rightPID.UpdateDelta()
	ml, mr := sl, sr
	if dt := d.leftPID.Delta(); measured && dt > 0 {
		ml, mr = dl/dt, dr/dt
	}

	left := d.wheelOutput(d.leftPID.VelocityOutput(ml, sl))
	right := d.wheelOutput(d.rightPID.VelocityOutput(mr, sr))
	d.Direct(left, right)
	d.odom.Update()
}

// measureWheels returns the wheel rotation in radians since the previous call.
// ok is false when either encoder is unavailable or no baseline exists yet.
func (d *Drive) measureWheels() (left, right float64, ok bool) {
	l, okL := d.encoders[device.Left].Ticks()
	r, okR := d.encoders[device.Right].Ticks()
	if !okL || !okR {
		d.ticksValid = false
		return 0, 0, false
	}
	prev, valid := d.lastTicks, d.ticksValid
	d.lastTicks = [2]int64{l, r}
	d.ticksValid = true
	if !valid {
		return 0, 0, false
	}
	left = float64(l-prev[device.Left]) * d.radPerTick
	right = float64(r-prev[device.Right]) * d.radPerTick
	return left, right, true
}

// wheelOutput adds stiction feed-forward to a raw loop output in volts and
// normalises it to a duty fraction.
func (d *Drive) wheelOutput(raw float64) float64 {
	volts := raw + util.Sign(raw)*d.cfg.StaticFriction
	out := volts / math.Max(d.voltage, d.cfg.MinVoltage)
	return util.Deadband(out, d.cfg.OutputTolerance)
}

// DriveManual is the open-loop teleoperation path.
func (d *Drive) DriveManual(speed, turn float64) {
	d.setpoints = [2]float64{}
	d.Direct(speed+turn, speed-turn)
	d.odom.Update()
}

// DriveTurn turns in place until the heading, measured from offset, reaches
// target degrees. It reports true once inside the turn tolerance, with the
// motors stopped.
func (d *Drive) DriveTurn(target, offset float64) bool {
	heading := util.Compassify(d.gyro.Heading() - offset)
	// measure against the wrapped error so the loop never turns the long way round
	measured := target - util.Compassify(target-heading)

	d.turnPID.UpdateDelta()
	power := d.turnPID.PositionOutput(measured, target) / math.Max(d.voltage, d.cfg.MinVoltage)
	if math.Abs(d.turnPID.Error()) < d.cfg.TurnTolerance {
		power = 0
		d.turnPID.Reset()
	}
	d.setpoints = [2]float64{}
	d.Direct(-power, power)
	d.odom.Update()
	return power == 0
}

// Direct writes duty fractions to the motors, saturated to [-1, 1]. A
// non-finite duty is written as 0.
func (d *Drive) Direct(left, right float64) {
	if !util.Finite(left) {
		left = 0
	}
	if !util.Finite(right) {
		right = 0
	}
	d.outputs[device.Left] = util.Clamp(left, -1, 1)
	d.outputs[device.Right] = util.Clamp(right, -1, 1)
	d.motors[device.Left].ApplyPower(d.outputs[device.Left])
	d.motors[device.Right].ApplyPower(d.outputs[device.Right])
}

// Stop zeroes the motors and clears the loop state.
func (d *Drive) Stop() {
	d.Direct(0, 0)
	d.setpoints = [2]float64{}
	d.leftPID.Reset()
	d.rightPID.Reset()
	d.turnPID.Reset()
}

// UpdateVoltage records the supply voltage. Non-positive readings are ignored.
func (d *Drive) UpdateVoltage(v float64) {
	if v > 0 {
		d.voltage = v
	}
}

// Voltage returns the supply voltage used for normalisation.
func (d *Drive) Voltage() float64 { return d.voltage }

// UpdateOdometry refreshes the pose without actuating.
func (d *Drive) UpdateOdometry() model.OdometrySample { return d.odom.Update() }

// ResetOdometry zeroes the pose and the wheel baselines.
func (d *Drive) ResetOdometry() {
	d.odom.Reset()
	d.ticksValid = false
}

// Odometry exposes the estimator for read access.
func (d *Drive) Odometry() *odometry.Estimator { return d.odom }

// Pose is shorthand for Odometry().Pose().
func (d *Drive) Pose() model.Pose { return d.odom.Pose() }

// Geometry returns the drive train geometry.
func (d *Drive) Geometry() Geometry { return d.geo }

// LastOutputs returns the duty fractions written on the last tick.
func (d *Drive) LastOutputs() (left, right float64) {
	return d.outputs[device.Left], d.outputs[device.Right]
}

// Setpoints returns the wheel velocity setpoints (rad/s) of the last DriveVector.
func (d *Drive) Setpoints() (left, right float64) {
	return d.setpoints[device.Left], d.setpoints[device.Right]
}
