// Package main is the entry point of the DiffDrive vehicle.
// It initializes the logger, loads the configuration, constructs the system
// (hardware, control loop, recorder, web server, LoRa uplink) and starts it.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"DiffDrive/internal/core"
	"DiffDrive/internal/util"
)

// main loads configuration, constructs the system and starts all components.
// Operator commands are read from stdin unless -console=false. The program
// waits for an interrupt signal and performs graceful shutdown.
func main() {
	cfgPath := flag.String("c", "configs/config.yml", "path to configuration file")
	console := flag.Bool("console", true, "read operator commands from stdin")
	flag.Parse()

	util.SetupLogger("")
	log.Printf("[Main] Using config: %s", *cfgPath)

	sys, err := core.NewSystem(*cfgPath)
	if err != nil {
		log.Fatalf("failed to create system: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := sys.StartAll(ctx); err != nil {
		log.Fatalf("failed to start system: %v", err)
	}

	if *console {
		go func() {
			if err := core.RunConsole(ctx, os.Stdin, os.Stdout, sys.Vehicle); err != nil {
				util.Error("console: %v", err)
			}
		}()
	}

	// wait for Ctrl+C or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("[Main] Shutting down system...")
	if err := sys.StopAll(); err != nil {
		log.Fatalf("[Main] shutdown: %v", err)
	}
	log.Println("[Main] System stopped cleanly.")
}
