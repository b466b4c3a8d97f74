// Package core contains the runtime orchestration of DiffDrive: the Vehicle
// control loop, the System that wires it to hardware and to the monitoring
// outputs, the operator console and the LoRa ground station Gateway.
package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.uber.org/multierr"

	"DiffDrive/internal/app"
	"DiffDrive/internal/control"
	"DiffDrive/internal/device"
	"DiffDrive/internal/lora"
	"DiffDrive/internal/model"
	"DiffDrive/internal/parser"
	"DiffDrive/internal/sim"
	"DiffDrive/internal/store"
)

// System manages the lifecycle of one vehicle and its outputs.
// It loads configuration from a YAML file and constructs objects accordingly.
type System struct {
	cfgPath  string
	cfg      *model.Config
	parser   parser.Parser
	Hardware device.Hardware
	Vehicle  *Vehicle
	Recorder *store.Recorder
	App      *app.App
	Uplink   *lora.Uplink

	started   bool
	stopped   bool
	startLock sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewSystem reads the YAML configuration at cfgPath and creates a System instance.
func NewSystem(cfgPath string) (*System, error) {
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	s, err := NewSystemFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	s.cfgPath = cfgPath
	return s, nil
}

// NewSystemFromConfig opens the hardware and every enabled output. Whatever was
// opened is closed again if a later step fails.
func NewSystemFromConfig(cfg *model.Config) (*System, error) {
	p, err := parser.New(cfg.Global.WireFormat)
	if err != nil {
		return nil, err
	}
	hw, clock, err := openHardware(cfg)
	if err != nil {
		return nil, err
	}

	s := &System{cfg: cfg, parser: p, Hardware: hw}
	fail := func(err error) (*System, error) {
		return nil, multierr.Append(err, s.close())
	}

	s.Vehicle = NewVehicle(cfg.Global.VehicleID, hw, cfg, clock)

	if cfg.Global.RecordPath != "" {
		if s.Recorder, err = store.Open(cfg.Global.RecordPath, cfg.Global.VehicleID); err != nil {
			return fail(err)
		}
	}
	if cfg.Global.TelemetryAddr != "" {
		if s.App, err = app.NewApp(s.Vehicle, s.Recorder, p, cfg.Global.ControlToken); err != nil {
			return fail(err)
		}
	}
	if cfg.LoRa.Enabled {
		codec, err := parser.NewLoRaCodec(cfg.LoRa.DevAddr, cfg.LoRa.AppSKey, cfg.LoRa.NwkSKey, cfg.LoRa.FPort)
		if err != nil {
			return fail(fmt.Errorf("lora codec: %w", err))
		}
		dev, err := device.NewSerialDevice(cfg.LoRa.Device, cfg.LoRa.Baud)
		if err != nil {
			return fail(err)
		}
		s.Uplink = lora.New(dev, codec, p, time.Duration(cfg.LoRa.IntervalMs)*time.Millisecond)
	}
	return s, nil
}

// openHardware returns the hardware backend and the clock its control loops use.
func openHardware(cfg *model.Config) (device.Hardware, control.Clock, error) {
	switch cfg.Hardware.Mode {
	case "sim":
		plant := sim.NewPlant(sim.ConfigFromDrive(cfg.Drive, !cfg.Hardware.NoEncoder), nil)
		log.Printf("[system] using simulated drive train")
		return plant, plant.Clock(), nil
	case "serial":
		dev, err := device.NewSerialDevice(cfg.Hardware.Device, cfg.Hardware.Baud)
		if err != nil {
			return nil, nil, err
		}
		b := device.NewBridge(cfg.Global.VehicleID, dev)
		if err := b.Start(); err != nil {
			return nil, nil, multierr.Append(err, dev.Close())
		}
		log.Printf("[system] motor controller on %s @ %d", cfg.Hardware.Device, cfg.Hardware.Baud)
		return b, control.SystemClock{}, nil
	}
	return nil, nil, fmt.Errorf("unknown hardware mode %q", cfg.Hardware.Mode)
}

// Config returns the loaded configuration.
func (s *System) Config() *model.Config { return s.cfg }

// ConfigPath returns the file the configuration was loaded from, if any.
func (s *System) ConfigPath() string { return s.cfgPath }

// Parser returns the parser selected by global.wire_format.
func (s *System) Parser() parser.Parser { return s.parser }

func (s *System) spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// StartAll starts the control loop and every configured output. It returns
// immediately; StopAll ends everything.
func (s *System) StartAll(ctx context.Context) error {
	s.startLock.Lock()
	defer s.startLock.Unlock()
	if s.started {
		return nil
	}
	if s.stopped {
		return errors.New("system already stopped")
	}
	ctx, s.cancel = context.WithCancel(ctx)

	// subscriptions must exist before the loop publishes
	if s.Recorder != nil {
		ch := s.Vehicle.Subscribe(64)
		s.spawn(func() { s.Recorder.Run(ctx, ch) })
	}
	if s.App != nil {
		ch := s.Vehicle.Subscribe(8)
		s.spawn(func() { s.App.Hub.Run(ctx, ch) })
		s.spawn(func() {
			if err := s.App.Start(s.cfg.Global.TelemetryAddr); err != nil {
				log.Printf("[system] %v", err)
			}
		})
	}
	if s.Uplink != nil {
		ch := s.Vehicle.Subscribe(1)
		s.spawn(func() { s.Uplink.Run(ctx, ch) })
	}
	s.spawn(func() { s.Vehicle.Run(ctx) })

	s.started = true
	log.Printf("[system] vehicle %s started", s.Vehicle.ID)
	return nil
}

// StopAll stops all running components gracefully and closes the hardware.
func (s *System) StopAll() error {
	s.startLock.Lock()
	defer s.startLock.Unlock()
	if !s.started {
		if s.stopped {
			return nil
		}
		s.stopped = true
		return s.close()
	}
	s.cancel()
	err := s.App.Stop()
	s.wg.Wait()
	err = multierr.Append(err, s.close())
	s.started = false
	s.stopped = true
	return err
}

func (s *System) close() error {
	var err error
	if s.Recorder != nil {
		err = multierr.Append(err, s.Recorder.Close())
	}
	if s.Uplink != nil {
		err = multierr.Append(err, s.Uplink.Device.Close())
	}
	if s.Hardware != nil {
		err = multierr.Append(err, s.Hardware.Close())
	}
	return err
}
