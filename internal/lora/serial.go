// Package lora publishes telemetry through a LoRa serial module (E32 in
// transparent mode). Each snapshot is wrapped in a LoRaWAN uplink frame and
// written as one hex encoded line.
package lora

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"DiffDrive/internal/device"
	"DiffDrive/internal/model"
	"DiffDrive/internal/parser"
)

// Uplink rate-limits telemetry to the radio. Only the newest snapshot is sent
// each interval.
type Uplink struct {
	Device   device.Device
	Codec    *parser.LoRaCodec
	Parser   parser.Parser
	Interval time.Duration
}

// New creates an uplink. A non-positive interval defaults to one second.
func New(dev device.Device, codec *parser.LoRaCodec, p parser.Parser, interval time.Duration) *Uplink {
	if interval <= 0 {
		interval = time.Second
	}
	return &Uplink{Device: dev, Codec: codec, Parser: p, Interval: interval}
}

// Send encodes one snapshot and writes it to the module.
func (u *Uplink) Send(t model.Telemetry) error {
	line, err := u.Parser.EncodeTelemetry(t)
	if err != nil {
		return fmt.Errorf("encode telemetry: %w", err)
	}
	frame, err := u.Codec.Encode([]byte(line))
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return u.Device.WriteLine(hex.EncodeToString(frame))
}

// Run sends the latest snapshot from in every Interval until ctx is done or in
// is closed.
func (u *Uplink) Run(ctx context.Context, in <-chan model.Telemetry) {
	ticker := time.NewTicker(u.Interval)
	defer ticker.Stop()

	var latest model.Telemetry
	pending := false
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-in:
			if !ok {
				return
			}
			latest, pending = t, true
		case <-ticker.C:
			if !pending {
				continue
			}
			if err := u.Send(latest); err != nil {
				log.Printf("[lora] uplink err: %v", err)
			}
			pending = false
		}
	}
}

// Receive is the gateway side of Send: it decodes one hex line.
func Receive(line string, codec *parser.LoRaCodec, p parser.Parser) (model.Telemetry, uint32, error) {
	frame, err := hex.DecodeString(strings.TrimSpace(line))
	if err != nil {
		return model.Telemetry{}, 0, fmt.Errorf("hex: %w", err)
	}
	payload, fcnt, err := codec.Decode(frame)
	if err != nil {
		return model.Telemetry{}, 0, err
	}
	t, err := p.DecodeTelemetry(string(payload))
	return t, fcnt, err
}
