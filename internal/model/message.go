// Package model defines shared message structures for DiffDrive.
package model

// Telemetry is the per-tick snapshot published by the vehicle control loop.
type Telemetry struct {
	VehicleID      string  `json:"vehicle_id"`
	Tick           uint64  `json:"tick"`
	Mode           string  `json:"mode"`
	FollowerState  string  `json:"follower_state"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Heading        float64 `json:"heading"`
	AngularRate    float64 `json:"angular_rate"`
	Index          int     `json:"index"`
	Length         int     `json:"length"`
	MaxV           float64 `json:"max_v"`
	MaxA           float64 `json:"max_a"`
	TargetVelocity float64 `json:"target_velocity"`
	TargetOmega    float64 `json:"target_omega"`
	LeftOutput     float64 `json:"left_output"`
	RightOutput    float64 `json:"right_output"`
	Voltage        float64 `json:"voltage"`
}

// CommandKind names an operator or autonomous command.
type CommandKind string

const (
	CmdCreate  CommandKind = "create"
	CmdReverse CommandKind = "reverse"
	CmdFollow  CommandKind = "follow"
	CmdFetch   CommandKind = "fetch"
	CmdReset   CommandKind = "reset"
	CmdManual  CommandKind = "manual"
	CmdTurn    CommandKind = "turn"
	CmdStop    CommandKind = "stop"
	CmdVoltage CommandKind = "voltage"
)

// Command is a parsed control command. Args are positional and depend on Kind:
// create/reverse take x y theta, manual takes speed turn, turn takes angle offset,
// voltage takes volts.
type Command struct {
	Kind CommandKind `json:"kind"`
	Args []float64   `json:"args,omitempty"`
}

// CommandResult mirrors the finished/not-finished replies of the command surface.
type CommandResult struct {
	Finished bool   `json:"finished"`
	Message  string `json:"message"`
}

// PathPoint is the serialised form of a path state returned by fetch.
type PathPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
}

// SensorFrameKind names the line types reported by the motor controller board.
type SensorFrameKind string

const (
	FrameEncoder SensorFrameKind = "ENC"
	FrameIMU     SensorFrameKind = "IMU"
	FrameVoltage SensorFrameKind = "VBAT"
)

// SensorFrame is one decoded line from the motor controller board.
type SensorFrame struct {
	Kind       SensorFrameKind
	LeftTicks  int64
	RightTicks int64
	LeftOK     bool // false when the board reports "-" for the left encoder
	RightOK    bool
	Heading    float64 // deg
	Rate       float64 // deg/s
	Voltage    float64 // V
}
