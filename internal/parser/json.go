// Package parser implements the JSONParser which encodes and decodes telemetry
// and commands in JSON format.
package parser

import (
	"encoding/json"

	"DiffDrive/internal/model"
)

// JSONParser implements Parser interface using JSON serialization.
type JSONParser struct{}

// NewJSONParser creates a new JSON parser.
func NewJSONParser() *JSONParser { return &JSONParser{} }

// EncodeTelemetry encodes a Telemetry snapshot into a JSON string.
func (p *JSONParser) EncodeTelemetry(t model.Telemetry) (string, error) {
	b, err := json.Marshal(t)
	return string(b), err
}

// DecodeTelemetry decodes a JSON string into a Telemetry snapshot.
func (p *JSONParser) DecodeTelemetry(s string) (model.Telemetry, error) {
	var t model.Telemetry
	err := json.Unmarshal([]byte(s), &t)
	return t, err
}

// EncodeCommand encodes a Command into a JSON string.
func (p *JSONParser) EncodeCommand(c model.Command) (string, error) {
	if err := ValidateCommand(c); err != nil {
		return "", err
	}
	b, err := json.Marshal(c)
	return string(b), err
}

// DecodeCommand decodes and validates a JSON command.
func (p *JSONParser) DecodeCommand(s string) (model.Command, error) {
	var c model.Command
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return model.Command{}, err
	}
	if err := ValidateCommand(c); err != nil {
		return model.Command{}, err
	}
	return c, nil
}
