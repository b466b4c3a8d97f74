// Package parser implements the CSVParser which handles encoding and decoding
// of telemetry and commands using comma-separated values format.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"DiffDrive/internal/model"
)

const telemetryFields = 17

// CSVParser implements Parser interface using CSV format.
type CSVParser struct{}

// NewCSVParser creates a new CSV parser instance.
func NewCSVParser() *CSVParser { return &CSVParser{} }

// EncodeTelemetry converts a Telemetry snapshot into a CSV line.
func (p *CSVParser) EncodeTelemetry(t model.Telemetry) (string, error) {
	if strings.Contains(t.VehicleID, ",") {
		return "", errors.New("vehicle id contains a comma")
	}
	line := fmt.Sprintf("%s,%d,%s,%s,%.4f,%.4f,%.2f,%.2f,%d,%d,%.3f,%.3f,%.3f,%.3f,%.4f,%.4f,%.2f",
		t.VehicleID, t.Tick, t.Mode, t.FollowerState,
		t.X, t.Y, t.Heading, t.AngularRate,
		t.Index, t.Length, t.MaxV, t.MaxA, t.TargetVelocity, t.TargetOmega,
		t.LeftOutput, t.RightOutput, t.Voltage)
	return line, nil
}

// DecodeTelemetry parses a CSV telemetry line into a Telemetry snapshot.
func (p *CSVParser) DecodeTelemetry(line string) (model.Telemetry, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != telemetryFields {
		return model.Telemetry{}, fmt.Errorf("expected %d fields, got %d", telemetryFields, len(fields))
	}

	tick, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return model.Telemetry{}, errors.New("invalid tick")
	}
	index, err := strconv.Atoi(fields[8])
	if err != nil {
		return model.Telemetry{}, errors.New("invalid index")
	}
	length, err := strconv.Atoi(fields[9])
	if err != nil {
		return model.Telemetry{}, errors.New("invalid length")
	}

	names := []string{"x", "y", "heading", "rate", "", "", "max_v", "max_a", "target_velocity", "target_omega", "left", "right", "voltage"}
	vals := make([]float64, len(names))
	for i, name := range names {
		if name == "" {
			continue
		}
		v, err := strconv.ParseFloat(fields[4+i], 64)
		if err != nil {
			return model.Telemetry{}, fmt.Errorf("invalid %s", name)
		}
		vals[i] = v
	}

	return model.Telemetry{
		VehicleID:      fields[0],
		Tick:           tick,
		Mode:           fields[2],
		FollowerState:  fields[3],
		X:              vals[0],
		Y:              vals[1],
		Heading:        vals[2],
		AngularRate:    vals[3],
		Index:          index,
		Length:         length,
		MaxV:           vals[6],
		MaxA:           vals[7],
		TargetVelocity: vals[8],
		TargetOmega:    vals[9],
		LeftOutput:     vals[10],
		RightOutput:    vals[11],
		Voltage:        vals[12],
	}, nil
}

// EncodeCommand converts a Command into a CSV line.
func (p *CSVParser) EncodeCommand(c model.Command) (string, error) {
	if err := ValidateCommand(c); err != nil {
		return "", err
	}
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, string(c.Kind))
	for _, a := range c.Args {
		parts = append(parts, strconv.FormatFloat(a, 'f', -1, 64))
	}
	return strings.Join(parts, ","), nil
}

// DecodeCommand parses a CSV command line.
func (p *CSVParser) DecodeCommand(line string) (model.Command, error) {
	return parseCommandFields(strings.Split(strings.TrimSpace(line), ","))
}
