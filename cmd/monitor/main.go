// Monitor server for vehicles reporting over LoRa:
// - POST /api/telemetry : ground station gateways forward decoded snapshots
// - GET  /ws            : websocket clients subscribe to telemetry
// - GET  /api/latest, /api/runs, /api/runs/{id} : recorded history
//
// There is no vehicle attached, so /control and /api/path answer 503.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"DiffDrive/internal/app"
	"DiffDrive/internal/parser"
	"DiffDrive/internal/store"
	"DiffDrive/internal/util"
)

func main() {
	addr := flag.String("addr", ":10000", "listen address")
	dbPath := flag.String("db", "tmp/monitor.db", "BoltDB file for received telemetry")
	wire := flag.String("wire", "json", "websocket feed format (csv/json)")
	token := flag.String("token", "", "bearer token required on POST routes")
	flag.Parse()

	util.SetupLogger("")

	p, err := parser.New(*wire)
	if err != nil {
		log.Fatalf("parser: %v", err)
	}
	rec, err := store.Open(*dbPath, "ground")
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	a, err := app.NewApp(nil, rec, p, *token)
	if err != nil {
		log.Fatalf("app: %v", err)
	}

	errc := make(chan error, 1)
	go func() { errc <- a.Start(*addr) }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-errc:
		if err != nil {
			util.Error("%v", err)
		}
	}

	if err := a.Stop(); err != nil {
		util.Error("%v", err)
	}
	if err := rec.Close(); err != nil {
		util.Error("%v", err)
	}
}
