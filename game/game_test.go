package game

import (
	"testing"
	"time"

	"github.com/pthm-cable/flap/config"
	"github.com/pthm-cable/flap/sim"
)

func newTestGame(t *testing.T, speeds []int) *Game {
	t.Helper()
	cfg := config.Default()
	cfg.Telemetry.LogGenerations = false
	cfg.Simulation.Speeds = speeds
	cfg.Simulation.MaxGenerationTicks = 3000
	s, err := sim.New(sim.Options{Config: cfg, Seed: 42})
	if err != nil {
		t.Fatal(err)
	}
	return NewGame(Options{Sim: s})
}

func TestAdvanceRunsSpeedSteps(t *testing.T) {
	g := newTestGame(t, []int{1, 2, 5, 10})

	g.advance()
	if g.Tick() != 1 {
		t.Errorf("speed 1: tick %d, want 1", g.Tick())
	}

	g.CycleSpeed()
	g.CycleSpeed() // 5x
	if g.Speed() != 5 {
		t.Fatalf("speed: got %d, want 5", g.Speed())
	}
	g.advance()
	if g.Tick() != 6 {
		t.Errorf("speed 5: tick %d, want 6", g.Tick())
	}
}

func TestPauseStopsSimulation(t *testing.T) {
	g := newTestGame(t, []int{1})

	g.TogglePause()
	if !g.Paused() {
		t.Fatal("expected paused")
	}
	for i := 0; i < 5; i++ {
		g.advance()
	}
	if g.Tick() != 0 {
		t.Errorf("paused game advanced to tick %d", g.Tick())
	}

	g.TogglePause()
	g.advance()
	if g.Tick() != 1 {
		t.Errorf("resumed game at tick %d, want 1", g.Tick())
	}
}

func TestCycleSpeedWraps(t *testing.T) {
	g := newTestGame(t, []int{1, 2, 5, 10})
	var seen []int
	for i := 0; i < 5; i++ {
		seen = append(seen, g.Speed())
		g.CycleSpeed()
	}
	want := []int{1, 2, 5, 10, 1}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("speed sequence: got %v, want %v", seen, want)
		}
	}
}

func TestEmptySpeedsFallsBack(t *testing.T) {
	g := newTestGame(t, nil)
	if g.Speed() != 1 {
		t.Errorf("speed: got %d, want 1", g.Speed())
	}
}

func TestHUDData(t *testing.T) {
	g := newTestGame(t, []int{1})
	data := g.hudData(60)
	if data.Total != 10 || data.Alive != 10 || data.Generation != 1 || data.HasLast || data.FPS != 60 {
		t.Errorf("hud data: %+v", data)
	}

	if err := g.Sim().RunGenerations(1, 0); err != nil {
		t.Fatal(err)
	}
	data = g.hudData(60)
	if !data.HasLast || data.Generation != 2 {
		t.Errorf("hud data after one generation: %+v", data)
	}
}

func TestPerfStats(t *testing.T) {
	p := NewPerfStats()
	if p.Avg("step") != 0 {
		t.Error("empty average should be zero")
	}
	p.Record("step", 2*time.Millisecond)
	p.Record("step", 4*time.Millisecond)
	p.Record("draw", 10*time.Millisecond)

	if got := p.Avg("step"); got != 3*time.Millisecond {
		t.Errorf("step avg: got %v", got)
	}
	names := p.SortedNames()
	if len(names) != 2 || names[0] != "draw" {
		t.Errorf("sorted names: %v", names)
	}

	for i := 0; i < 200; i++ {
		p.Record("step", time.Millisecond)
	}
	if got := len(p.samples["step"]); got != p.maxSamples {
		t.Errorf("window size: got %d, want %d", got, p.maxSamples)
	}
}
