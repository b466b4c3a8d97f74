// Simulation runs the vehicle control loop against the simulated drive train
// faster than real time. It drives one path and prints a JSON line per logged
// tick followed by a summary line.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math"
	"os"

	"DiffDrive/internal/core"
	"DiffDrive/internal/model"
	"DiffDrive/internal/sim"
	"DiffDrive/internal/util"
)

type record struct {
	model.Telemetry
	TrueX       float64 `json:"true_x"`
	TrueY       float64 `json:"true_y"`
	TrueHeading float64 `json:"true_heading"`
}

type summary struct {
	Converged bool       `json:"converged"`
	Ticks     int        `json:"ticks"`
	Target    model.Pose `json:"target"`
	Estimate  model.Pose `json:"estimate"`
	Truth     model.Pose `json:"truth"`
	ErrorM    float64    `json:"error_m"`
}

func main() {
	cfgPath := flag.String("c", "", "optional configuration file (defaults when empty)")
	x := flag.Float64("x", 2, "target x (m); relative to the start with -reverse")
	y := flag.Float64("y", 0, "target y (m)")
	theta := flag.Float64("theta", 0, "target heading (deg)")
	reverse := flag.Bool("reverse", false, "drive the path backwards")
	maxTicks := flag.Int("ticks", 3000, "give up after this many ticks")
	every := flag.Int("every", 5, "log every n-th tick")
	flag.Parse()

	util.SetupLogger("")
	log.SetOutput(os.Stderr)

	cfg := model.DefaultConfig()
	if *cfgPath != "" {
		var err error
		if cfg, err = model.LoadConfig(*cfgPath); err != nil {
			log.Fatalf("config: %v", err)
		}
	}

	plant := sim.NewPlant(sim.ConfigFromDrive(cfg.Drive, !cfg.Hardware.NoEncoder), nil)
	v := core.NewVehicle(cfg.Global.VehicleID, plant, cfg, plant.Clock())

	target := model.Pose{X: *x, Y: *y, Heading: *theta}
	kind := model.CmdCreate
	if *reverse {
		kind = model.CmdReverse
	}
	for _, c := range []model.Command{
		{Kind: kind, Args: []float64{target.X, target.Y, target.Heading}},
		{Kind: model.CmdFollow},
	} {
		if res := v.Apply(c); !res.Finished {
			log.Fatalf("%s: %s", c.Kind, res.Message)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	ticks := 0
	for ticks < *maxTicks && v.Mode() == core.ModePath {
		t := v.Tick()
		ticks++
		if ticks%*every == 0 || v.Mode() != core.ModePath {
			truth := plant.TruePose()
			if err := enc.Encode(record{Telemetry: t, TrueX: truth.X, TrueY: truth.Y, TrueHeading: truth.Heading}); err != nil {
				log.Fatalf("encode: %v", err)
			}
		}
	}

	truth := plant.TruePose()
	goal := v.Follower.Trajectory().End()
	s := summary{
		Converged: v.Mode() != core.ModePath,
		Ticks:     ticks,
		Target:    goal,
		Estimate:  v.Drive.Pose(),
		Truth:     truth,
		ErrorM:    math.Hypot(goal.X-truth.X, goal.Y-truth.Y),
	}
	if err := enc.Encode(s); err != nil {
		log.Fatalf("encode: %v", err)
	}
	util.Info("simulation finished after %d ticks, error %.3f m", ticks, s.ErrorM)
	if !s.Converged {
		os.Exit(1)
	}
}
