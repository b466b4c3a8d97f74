package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"DiffDrive/internal/device"
	"DiffDrive/internal/lora"
	"DiffDrive/internal/parser"
)

// ErrStaleFrame is returned for an uplink whose frame counter did not advance.
var ErrStaleFrame = errors.New("stale frame counter")

// Gateway is the ground station side of the LoRa uplink. It reads hex frames
// from the radio, verifies and decrypts them, and forwards the snapshots as
// JSON to a monitoring server's /api/telemetry.
type Gateway struct {
	ID         string
	Device     device.Device
	Codec      *parser.LoRaCodec
	Parser     parser.Parser
	MonitorURL string
	Token      string

	client   *http.Client
	lastFCnt uint32
	seen     bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewGateway constructs a Gateway reading from dev. p must match the vehicle's
// wire format.
func NewGateway(id string, dev device.Device, codec *parser.LoRaCodec, p parser.Parser, monitorURL, token string) *Gateway {
	return &Gateway{
		ID:         id,
		Device:     dev,
		Codec:      codec,
		Parser:     p,
		MonitorURL: strings.TrimRight(monitorURL, "/"),
		Token:      token,
		client:     &http.Client{Timeout: 5 * time.Second},
		stop:       make(chan struct{}),
	}
}

// Start begins the gateway read/forward loop in a background goroutine.
func (g *Gateway) Start() error {
	if g.Device == nil {
		return errors.New("gateway: no device")
	}
	g.wg.Add(1)
	go g.loop()
	return nil
}

// loop continuously reads frames from the Device and forwards them.
func (g *Gateway) loop() {
	defer g.wg.Done()
	for {
		select {
		case <-g.stop:
			return
		default:
		}
		line, err := g.Device.ReadLine(0)
		if err != nil {
			// transient error: wait and continue
			select {
			case <-g.stop:
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := g.Forward(line); err != nil {
			log.Printf("[gateway %s] forward err: %v", g.ID, err)
		}
	}
}

// Forward decodes one radio line and posts the snapshot to the monitor.
func (g *Gateway) Forward(line string) error {
	t, fcnt, err := lora.Receive(line, g.Codec, g.Parser)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if g.seen {
		if fcnt <= g.lastFCnt {
			return fmt.Errorf("%w: %d after %d", ErrStaleFrame, fcnt, g.lastFCnt)
		}
		if lost := fcnt - g.lastFCnt - 1; lost > 0 {
			log.Printf("[gateway %s] %d frame(s) lost before fcnt %d", g.ID, lost, fcnt)
		}
	}
	g.lastFCnt, g.seen = fcnt, true

	body, err := json.Marshal(t)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, g.MonitorURL+"/api/telemetry", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.Token)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		log.Printf("[gateway %s] warning: failed to discard response body: %v", g.ID, err)
	}
	if err := resp.Body.Close(); err != nil {
		log.Printf("[gateway %s] warning: failed to close response body: %v", g.ID, err)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("monitor answered %s", resp.Status)
	}
	return nil
}

// Stop stops the gateway background loop and closes the device.
func (g *Gateway) Stop() error {
	// close stop channel (idempotent)
	select {
	case <-g.stop:
		return nil
	default:
		close(g.stop)
	}
	var err error
	if g.Device != nil {
		err = g.Device.Close()
	}
	g.wg.Wait()
	return err
}
