// Package model defines shared configuration structures used to initialize the DiffDrive system.
// It includes global settings, drive geometry and gains, follower profiles, hardware and LoRa settings.
package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the root structure loaded from configs/config.yml.
type Config struct {
	Global   GlobalConfig   `yaml:"global"`
	Drive    DriveConfig    `yaml:"drive"`
	Follower FollowerConfig `yaml:"follower"`
	Hardware HardwareConfig `yaml:"hardware"`
	LoRa     LoRaConfig     `yaml:"lora"`
}

// GlobalConfig defines shared defaults across the system.
type GlobalConfig struct {
	VehicleID     string `yaml:"vehicle_id"`
	WireFormat    string `yaml:"wire_format"`    // telemetry wire format (csv/json)
	TelemetryAddr string `yaml:"telemetry_addr"` // address for TelemetryServer (e.g. ":10000"), empty disables it
	TickMs        int    `yaml:"tick_ms"`        // control period
	RecordPath    string `yaml:"record_path"`    // bbolt file, empty disables recording
	ControlToken  string `yaml:"control_token"`  // bearer token for POST routes, empty disables the check
}

// PIDGains holds the gains of one PID loop.
type PIDGains struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
	Kf float64 `yaml:"kf"` // feed-forward per unit of setpoint
}

// DriveConfig defines the drive train geometry and the actuation loop tuning.
type DriveConfig struct {
	WheelRadius        float64  `yaml:"wheel_radius"` // m
	TrackWidth         float64  `yaml:"track_width"`  // m, distance between wheel groups
	TicksPerRevolution float64  `yaml:"ticks_per_revolution"`
	VelocityPID        PIDGains `yaml:"velocity_pid"`
	TurnPID            PIDGains `yaml:"turn_pid"`
	StaticFriction     float64  `yaml:"static_friction"`    // V
	VelocityTolerance  float64  `yaml:"velocity_tolerance"` // deadband on driveVector inputs
	OutputTolerance    float64  `yaml:"output_tolerance"`   // duty fraction snapped to zero
	MinVoltage         float64  `yaml:"min_voltage"`        // V, floor used by normalisation
	NominalVoltage     float64  `yaml:"nominal_voltage"`    // V, used until the first reading
	TurnTolerance      float64  `yaml:"turn_tolerance"`     // deg
}

// ProfileConfig holds the gains and limits for one direction of travel.
// Magnitudes are given positive; the follower applies the direction sign.
type ProfileConfig struct {
	KTheta            float64 `yaml:"k_theta"`
	KCurvature        float64 `yaml:"k_curvature"`
	KOmega            float64 `yaml:"k_omega"`
	KVelocity         float64 `yaml:"k_velocity"`
	MaxVelocity       float64 `yaml:"max_velocity"`     // m/s
	MaxAcceleration   float64 `yaml:"max_acceleration"` // m/s²
	MinVelocity       float64 `yaml:"min_velocity"`     // m/s
	LateralThreshold  float64 `yaml:"lateral_threshold"`
	AccelChordGain    float64 `yaml:"accel_chord_gain"`
	AccelStraightGain float64 `yaml:"accel_straight_gain"`
	TerminalDeadband  float64 `yaml:"terminal_deadband"`
	TerminalOmegaGain float64 `yaml:"terminal_omega_gain"`
}

// FollowerConfig defines path generation and path following parameters.
type FollowerConfig struct {
	Forward           ProfileConfig `yaml:"forward"`
	Reverse           ProfileConfig `yaml:"reverse"`
	DistanceTolerance float64       `yaml:"distance_tolerance"` // m
	AngleTolerance    float64       `yaml:"angle_tolerance"`    // deg
	LookaheadStates   int           `yaml:"lookahead_states"`
	CurvatureEpsilon  float64       `yaml:"curvature_epsilon"`
	SampleSpacing     float64       `yaml:"sample_spacing"` // m between generated path states
	GeneratorMaxVel   float64       `yaml:"generator_max_velocity"`
	GeneratorMaxAccel float64       `yaml:"generator_max_acceleration"`
}

// HardwareConfig selects the hardware backend.
type HardwareConfig struct {
	Mode      string `yaml:"mode"` // serial or sim
	Device    string `yaml:"device"`
	Baud      int    `yaml:"baud"`
	NoEncoder bool   `yaml:"no_encoder"` // sim only: wheels without encoders
}

// LoRaConfig defines the optional LoRa telemetry uplink.
type LoRaConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Device     string `yaml:"device"`
	Baud       int    `yaml:"baud"`
	DevAddr    string `yaml:"dev_addr"`  // 8 hex chars
	AppSKey    string `yaml:"app_s_key"` // 32 hex chars
	NwkSKey    string `yaml:"nwk_s_key"` // 32 hex chars
	FPort      uint8  `yaml:"f_port"`
	IntervalMs int    `yaml:"interval_ms"`
}

// LoadConfig reads the YAML file at path and fills in defaults for anything left unset.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(b)
}

// ParseConfig decodes YAML bytes into a Config and applies defaults.
func ParseConfig(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in missing configuration values.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()

	if c.Global.VehicleID == "" {
		c.Global.VehicleID = d.Global.VehicleID
	}
	if c.Global.WireFormat == "" {
		c.Global.WireFormat = d.Global.WireFormat
	}
	if c.Global.TickMs <= 0 {
		c.Global.TickMs = d.Global.TickMs
	}

	dr := &c.Drive
	setDefault(&dr.WheelRadius, d.Drive.WheelRadius)
	setDefault(&dr.TrackWidth, d.Drive.TrackWidth)
	setDefault(&dr.TicksPerRevolution, d.Drive.TicksPerRevolution)
	if dr.VelocityPID == (PIDGains{}) {
		dr.VelocityPID = d.Drive.VelocityPID
	}
	if dr.TurnPID == (PIDGains{}) {
		dr.TurnPID = d.Drive.TurnPID
	}
	setDefault(&dr.StaticFriction, d.Drive.StaticFriction)
	setDefault(&dr.VelocityTolerance, d.Drive.VelocityTolerance)
	setDefault(&dr.OutputTolerance, d.Drive.OutputTolerance)
	setDefault(&dr.MinVoltage, d.Drive.MinVoltage)
	setDefault(&dr.NominalVoltage, d.Drive.NominalVoltage)
	setDefault(&dr.TurnTolerance, d.Drive.TurnTolerance)

	f := &c.Follower
	applyProfileDefaults(&f.Forward, d.Follower.Forward)
	applyProfileDefaults(&f.Reverse, d.Follower.Reverse)
	setDefault(&f.DistanceTolerance, d.Follower.DistanceTolerance)
	setDefault(&f.AngleTolerance, d.Follower.AngleTolerance)
	if f.LookaheadStates <= 0 {
		f.LookaheadStates = d.Follower.LookaheadStates
	}
	setDefault(&f.CurvatureEpsilon, d.Follower.CurvatureEpsilon)
	setDefault(&f.SampleSpacing, d.Follower.SampleSpacing)
	setDefault(&f.GeneratorMaxVel, d.Follower.GeneratorMaxVel)
	setDefault(&f.GeneratorMaxAccel, d.Follower.GeneratorMaxAccel)

	if c.Hardware.Mode == "" {
		c.Hardware.Mode = d.Hardware.Mode
	}
	if c.Hardware.Baud == 0 {
		c.Hardware.Baud = d.Hardware.Baud
	}

	if c.LoRa.Baud == 0 {
		c.LoRa.Baud = d.LoRa.Baud
	}
	if c.LoRa.FPort == 0 {
		c.LoRa.FPort = d.LoRa.FPort
	}
	if c.LoRa.IntervalMs <= 0 {
		c.LoRa.IntervalMs = d.LoRa.IntervalMs
	}
}

func applyProfileDefaults(p *ProfileConfig, d ProfileConfig) {
	setDefault(&p.KTheta, d.KTheta)
	setDefault(&p.KCurvature, d.KCurvature)
	setDefault(&p.KOmega, d.KOmega)
	setDefault(&p.KVelocity, d.KVelocity)
	setDefault(&p.MaxVelocity, d.MaxVelocity)
	setDefault(&p.MaxAcceleration, d.MaxAcceleration)
	setDefault(&p.MinVelocity, d.MinVelocity)
	setDefault(&p.LateralThreshold, d.LateralThreshold)
	setDefault(&p.AccelChordGain, d.AccelChordGain)
	setDefault(&p.AccelStraightGain, d.AccelStraightGain)
	setDefault(&p.TerminalDeadband, d.TerminalDeadband)
	setDefault(&p.TerminalOmegaGain, d.TerminalOmegaGain)
}

func setDefault(v *float64, d float64) {
	if *v == 0 {
		*v = d
	}
}

// DefaultConfig returns the tuning used on the competition drive train
// (6 wheels, 3 inch radius, 2048 tick encoders).
func DefaultConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			VehicleID:  "00001",
			WireFormat: "json",
			TickMs:     20,
		},
		Drive: DriveConfig{
			WheelRadius:        0.0762,
			TrackWidth:         0.66,
			TicksPerRevolution: 2048,
			VelocityPID:        PIDGains{Kp: 0, Ki: 0.05, Kd: 0, Kf: 0.22},
			TurnPID:            PIDGains{Kp: 0.3, Ki: 0.17, Kd: 0.05},
			StaticFriction:     0.826, // 0.07 duty at 11.8 V
			VelocityTolerance:  0.05,
			OutputTolerance:    0.07,
			MinVoltage:         1.0,
			NominalVoltage:     12,
			TurnTolerance:      3,
		},
		Follower: FollowerConfig{
			Forward: ProfileConfig{
				KTheta:            3.5,
				KCurvature:        4,
				KOmega:            0.05,
				KVelocity:         2,
				MaxVelocity:       2,
				MaxAcceleration:   2,
				MinVelocity:       0.5,
				LateralThreshold:  0.4,
				AccelChordGain:    3,
				AccelStraightGain: 3.5,
				TerminalDeadband:  0.1,
				TerminalOmegaGain: 3,
			},
			Reverse: ProfileConfig{
				KTheta:            2.5,
				KCurvature:        3.5,
				KOmega:            0.03,
				KVelocity:         6,
				MaxVelocity:       2.5,
				MaxAcceleration:   2,
				MinVelocity:       0.5,
				LateralThreshold:  0.4,
				AccelChordGain:    3,
				AccelStraightGain: 4.5,
				TerminalDeadband:  0.15,
				TerminalOmegaGain: 3.5,
			},
			DistanceTolerance: 0.05,
			AngleTolerance:    3,
			LookaheadStates:   2,
			CurvatureEpsilon:  1e-3,
			SampleSpacing:     0.127,
			GeneratorMaxVel:   2,
			GeneratorMaxAccel: 1,
		},
		Hardware: HardwareConfig{
			Mode:   "sim",
			Device: "/dev/ttyACM0",
			Baud:   115200,
		},
		LoRa: LoRaConfig{
			Baud:       9600,
			FPort:      10,
			IntervalMs: 1000,
		},
	}
}
