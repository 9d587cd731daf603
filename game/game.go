// Package game wraps the simulation in a raylib window: it steps the world
// at the selected speed, handles pause and speed controls and draws the
// birds, pipes and HUD. The leading bird is outlined.
package game

import (
	"log/slog"
	"time"

	"github.com/pthm-cable/flap/config"
	"github.com/pthm-cable/flap/sim"
	"github.com/pthm-cable/flap/ui"
)

// Options configures a game.
type Options struct {
	Sim *sim.Sim
}

// Game holds the window-side state around a simulation.
type Game struct {
	sim *sim.Sim
	cfg *config.Config

	// State
	paused   bool
	speeds   []int
	speedIdx int
	frames   int

	// UI
	hud      *ui.HUD
	controls *ui.ControlsPanel
	perf     *PerfStats
}

// NewGame creates a game driving opts.Sim. It does not touch the window, so
// it can be built before rl.InitWindow.
func NewGame(opts Options) *Game {
	cfg := opts.Sim.Config()
	worldW := int32(cfg.Screen.Width)
	worldH := int32(cfg.Screen.Height)
	hudH := int32(cfg.Screen.HUDHeight)

	speeds := cfg.Simulation.Speeds
	if len(speeds) == 0 {
		speeds = []int{1}
	}

	return &Game{
		sim:      opts.Sim,
		cfg:      cfg,
		speeds:   speeds,
		hud:      ui.NewHUD(0, worldH, worldW, hudH),
		controls: ui.NewControlsPanel(float32(worldW)-240, float32(worldH+hudH)-40),
		perf:     NewPerfStats(),
	}
}

// Update processes input and advances the simulation.
func (g *Game) Update() {
	g.handleInput()
	g.advance()
}

// advance runs Speed() simulation steps unless paused.
func (g *Game) advance() {
	g.frames++
	if g.paused {
		return
	}

	for i := 0; i < g.Speed(); i++ {
		start := time.Now()
		if err := g.sim.Step(); err != nil {
			slog.Error("simulation step failed", "error", err, "tick", g.sim.Tick())
			g.paused = true
			return
		}
		g.perf.Record("step", time.Since(start))
	}

	if g.frames%600 == 0 {
		g.logPerfStats()
	}
}

// TogglePause pauses or resumes the simulation.
func (g *Game) TogglePause() {
	g.paused = !g.paused
	slog.Debug("pause toggled", "paused", g.paused, "tick", g.sim.Tick())
}

// CycleSpeed moves to the next configured speed, wrapping around.
func (g *Game) CycleSpeed() {
	g.speedIdx = (g.speedIdx + 1) % len(g.speeds)
	slog.Debug("speed changed", "speed", g.Speed())
}

// Paused reports whether the simulation is paused.
func (g *Game) Paused() bool { return g.paused }

// Speed returns the number of simulation steps per frame.
func (g *Game) Speed() int { return g.speeds[g.speedIdx] }

// Sim returns the underlying simulation.
func (g *Game) Sim() *sim.Sim { return g.sim }

// Tick returns the current simulation tick.
func (g *Game) Tick() int32 { return g.sim.Tick() }

// Unload releases resources. Nothing is GPU-backed yet.
func (g *Game) Unload() {
	g.logPerfStats()
}

func (g *Game) logPerfStats() {
	slog.Debug("perf",
		"tick", g.sim.Tick(),
		"speed", g.Speed(),
		"step_avg", g.perf.Avg("step"),
		"draw_avg", g.perf.Avg("draw"),
	)
}
