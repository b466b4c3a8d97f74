// Package parser converts between the wire formats and the structured types.
//
// CSV telemetry wire format (vehicle -> monitor):
//
//	VEHICLE_ID,TICK,MODE,STATE,X,Y,HEAD,RATE,INDEX,LENGTH,MAXV,MAXA,TV,TW,LEFT,RIGHT,VOLT
//
// CSV command wire format (monitor -> vehicle):
//
//	KIND,ARG1,ARG2,...
package parser

import (
	"fmt"

	"DiffDrive/internal/model"
)

// Parser encodes and decodes telemetry snapshots and commands.
type Parser interface {
	EncodeTelemetry(t model.Telemetry) (string, error)
	DecodeTelemetry(s string) (model.Telemetry, error)
	EncodeCommand(c model.Command) (string, error)
	DecodeCommand(s string) (model.Command, error)
}

// New returns the parser registered for format ("csv" or "json").
func New(format string) (Parser, error) {
	switch format {
	case "csv":
		return NewCSVParser(), nil
	case "json":
		return NewJSONParser(), nil
	}
	return nil, fmt.Errorf("unknown wire format %q", format)
}
