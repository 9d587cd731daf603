package main

import (
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/google/uuid"

	"github.com/pthm-cable/flap/config"
	"github.com/pthm-cable/flap/game"
	"github.com/pthm-cable/flap/sim"
	"github.com/pthm-cable/flap/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	maxGenerations := flag.Int("max-generations", 0, "Stop after N evolved generations (0 = unlimited)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	runID := uuid.NewString()

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	var metrics *telemetry.Metrics
	if *metricsAddr != "" {
		metrics = telemetry.NewMetrics()
		serveMetrics(*metricsAddr, metrics)
	}

	s, err := sim.New(sim.Options{
		Config:  cfg,
		Seed:    rngSeed,
		RunID:   runID,
		Output:  output,
		Metrics: metrics,
	})
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}

	slog.Info("starting simulation",
		"run_id", runID,
		"seed", rngSeed,
		"headless", *headless,
		"population", cfg.Population.Size,
		"top_units", cfg.Population.TopUnits,
		"max_ticks", *maxTicks,
		"max_generations", *maxGenerations,
		"output_dir", output.Dir(),
	)

	done := func() bool {
		if *maxTicks > 0 && int(s.Tick()) >= *maxTicks {
			slog.Info("max ticks reached", "tick", s.Tick())
			return true
		}
		if *maxGenerations > 0 && s.Generation() > *maxGenerations {
			slog.Info("max generations reached", "generation", s.Generation()-1)
			return true
		}
		return false
	}

	if *headless {
		// Pure CPU simulation, no raylib needed
		for !done() {
			if err := s.Step(); err != nil {
				slog.Error("simulation step failed", "error", err)
				os.Exit(1)
			}
		}
	} else {
		rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height+cfg.Screen.HUDHeight), "Flappy Neuroevolution")
		defer rl.CloseWindow()

		rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

		g := game.NewGame(game.Options{Sim: s})
		defer g.Unload()

		for !rl.WindowShouldClose() && !done() {
			g.Update()
			g.Draw()
		}
	}

	champ := s.Population().Champion()
	slog.Info("simulation finished",
		"run_id", runID,
		"generation", s.Generation(),
		"tick", s.Tick(),
		"best_fitness", champ.Fitness,
		"best_generation", champ.Generation,
	)
}

// serveMetrics exposes the registry on addr in the background.
func serveMetrics(addr string, metrics *telemetry.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	slog.Info("serving metrics", "addr", addr)
}
