// Package parser converts the motor controller board line protocol to structured types and back.
//
// Board to host:
//
//	ENC,LEFT_TICKS,RIGHT_TICKS   ("-" for a missing encoder)
//	IMU,HEADING_DEG,RATE_DEG_S
//	VBAT,VOLTS
//
// Host to board:
//
//	PWR,SIDE,FRACTION            (SIDE is L or R, FRACTION in [-1, 1])
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"DiffDrive/internal/model"
)

// ParseSensorLine parses one board line into a SensorFrame.
func ParseSensorLine(line string) (model.SensorFrame, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) == 0 || fields[0] == "" {
		return model.SensorFrame{}, errors.New("empty sensor line")
	}

	switch model.SensorFrameKind(fields[0]) {
	case model.FrameEncoder:
		if len(fields) != 3 {
			return model.SensorFrame{}, fmt.Errorf("ENC: expected 3 fields, got %d", len(fields))
		}
		left, leftOK, err := parseTicks(fields[1])
		if err != nil {
			return model.SensorFrame{}, errors.New("invalid left ticks")
		}
		right, rightOK, err := parseTicks(fields[2])
		if err != nil {
			return model.SensorFrame{}, errors.New("invalid right ticks")
		}
		return model.SensorFrame{
			Kind:       model.FrameEncoder,
			LeftTicks:  left,
			RightTicks: right,
			LeftOK:     leftOK,
			RightOK:    rightOK,
		}, nil

	case model.FrameIMU:
		if len(fields) != 3 {
			return model.SensorFrame{}, fmt.Errorf("IMU: expected 3 fields, got %d", len(fields))
		}
		heading, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return model.SensorFrame{}, errors.New("invalid heading")
		}
		rate, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return model.SensorFrame{}, errors.New("invalid rate")
		}
		return model.SensorFrame{Kind: model.FrameIMU, Heading: heading, Rate: rate}, nil

	case model.FrameVoltage:
		if len(fields) != 2 {
			return model.SensorFrame{}, fmt.Errorf("VBAT: expected 2 fields, got %d", len(fields))
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return model.SensorFrame{}, errors.New("invalid voltage")
		}
		return model.SensorFrame{Kind: model.FrameVoltage, Voltage: v}, nil
	}
	return model.SensorFrame{}, fmt.Errorf("unknown sensor frame %q", fields[0])
}

func parseTicks(s string) (int64, bool, error) {
	if s == "-" {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// FormatSensorLine is the inverse of ParseSensorLine. The simulator uses it to
// emulate the board.
func FormatSensorLine(f model.SensorFrame) string {
	switch f.Kind {
	case model.FrameEncoder:
		return fmt.Sprintf("ENC,%s,%s", formatTicks(f.LeftTicks, f.LeftOK), formatTicks(f.RightTicks, f.RightOK))
	case model.FrameIMU:
		return fmt.Sprintf("IMU,%.3f,%.3f", f.Heading, f.Rate)
	case model.FrameVoltage:
		return fmt.Sprintf("VBAT,%.2f", f.Voltage)
	}
	return ""
}

func formatTicks(v int64, ok bool) string {
	if !ok {
		return "-"
	}
	return strconv.FormatInt(v, 10)
}

// FormatPowerLine builds the PWR command for one wheel group.
func FormatPowerLine(side string, fraction float64) string {
	return fmt.Sprintf("PWR,%s,%.4f", side, fraction)
}

// ParsePowerLine parses a PWR command. Used by the board emulator in tests.
func ParsePowerLine(line string) (string, float64, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 3 || fields[0] != "PWR" {
		return "", 0, fmt.Errorf("invalid power line %q", line)
	}
	if fields[1] != "L" && fields[1] != "R" {
		return "", 0, fmt.Errorf("invalid side %q", fields[1])
	}
	v, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return "", 0, errors.New("invalid power")
	}
	return fields[1], v, nil
}
