// Gateway program:
// - Reads hex LoRaWAN frames from the LoRa module (/dev/serial0)
// - Verifies and decrypts them with the session keys from the config file
// - Forwards the telemetry as JSON to the monitor's /api/telemetry
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"DiffDrive/internal/core"
	"DiffDrive/internal/device"
	"DiffDrive/internal/model"
	"DiffDrive/internal/parser"
	"DiffDrive/internal/util"
)

func main() {
	cfgPath := flag.String("c", "configs/config.yml", "config with the lora session keys and wire format")
	serialDev := flag.String("lora", "/dev/serial0", "LoRa serial device")
	monitorURL := flag.String("monitor", "http://127.0.0.1:10000", "monitor base URL")
	gatewayID := flag.String("id", "GW01", "gateway id")
	token := flag.String("token", "", "bearer token for the monitor")
	flag.Parse()

	util.SetupLogger("")

	cfg, err := model.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	p, err := parser.New(cfg.Global.WireFormat)
	if err != nil {
		log.Fatalf("parser: %v", err)
	}
	codec, err := parser.NewLoRaCodec(cfg.LoRa.DevAddr, cfg.LoRa.AppSKey, cfg.LoRa.NwkSKey, cfg.LoRa.FPort)
	if err != nil {
		log.Fatalf("lora codec: %v", err)
	}
	dev, err := device.NewSerialDevice(*serialDev, cfg.LoRa.Baud)
	if err != nil {
		log.Fatalf("open lora: %v", err)
	}

	g := core.NewGateway(*gatewayID, dev, codec, p, *monitorURL, *token)
	if err := g.Start(); err != nil {
		log.Fatalf("start gateway: %v", err)
	}
	log.Printf("[gateway %s] forwarding %s -> %s", *gatewayID, *serialDev, *monitorURL)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	if err := g.Stop(); err != nil {
		log.Printf("warning: close lora err: %v", err)
	}
}
