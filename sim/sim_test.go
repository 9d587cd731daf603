package sim

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/flap/components"
	"github.com/pthm-cable/flap/config"
	"github.com/pthm-cable/flap/telemetry"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Telemetry.LogGenerations = false
	cfg.Simulation.MaxGenerationTicks = 3000
	return cfg
}

func newTestSim(t *testing.T, cfg *config.Config, seed int64) *Sim {
	t.Helper()
	s, err := New(Options{Config: cfg, Seed: seed, RunID: "test"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestNewSim(t *testing.T) {
	cfg := testConfig()
	s := newTestSim(t, cfg, 42)

	birds := s.Birds()
	if len(birds) != cfg.Population.Size {
		t.Fatalf("expected %d birds, got %d", cfg.Population.Size, len(birds))
	}
	for i, b := range birds {
		if b.Slot != i || !b.Alive {
			t.Errorf("bird %d: slot %d alive %v", i, b.Slot, b.Alive)
		}
		if b.X != cfg.Bird.StartX || b.Y != 300 {
			t.Errorf("bird %d spawned at (%f, %f)", i, b.X, b.Y)
		}
	}
	if s.AliveCount() != cfg.Population.Size {
		t.Errorf("alive count: got %d", s.AliveCount())
	}
	if s.Generation() != 1 || s.Phase() != PhaseActive {
		t.Errorf("generation %d phase %s", s.Generation(), s.Phase())
	}

	pipes := s.Pipes()
	if len(pipes) != 3 {
		t.Fatalf("expected 3 pipes, got %d", len(pipes))
	}
	for i, p := range pipes {
		if p.ID != i+1 {
			t.Errorf("pipe %d id: got %d", i, p.ID)
		}
		if want := 800 + float64(i)*300; p.X != want {
			t.Errorf("pipe %d x: got %f, want %f", i, p.X, want)
		}
		if p.GapY < 150 || p.GapY > 290 || p.GapY != math.Floor(p.GapY) {
			t.Errorf("pipe %d gap top %f outside integer range [150, 290]", i, p.GapY)
		}
	}
}

func TestNewSimInvalidPopulation(t *testing.T) {
	cfg := testConfig()
	cfg.Population.TopUnits = 1
	if _, err := New(Options{Config: cfg}); err == nil {
		t.Error("expected error for top_units 1")
	}
}

func TestFitness(t *testing.T) {
	fc := config.Default().Fitness
	bird := components.Bird{Score: 2, Distance: 300, Alive: true}
	pos := components.Position{X: 150, Y: 250}
	pipe := Pipe{X: 300, Width: 70, GapY: 200, GapHeight: 160}

	got := Fitness(fc, bird, pos, pipe)
	want := 2000 + 3 - 30.0/280*100 + 50
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("fitness: got %f, want %f", got, want)
	}

	// Pipe already passed: no alive bonus.
	pipe.X = 50
	got = Fitness(fc, bird, pos, pipe)
	if math.Abs(got-(want-50)) > 1e-9 {
		t.Errorf("fitness without bonus: got %f, want %f", got, want-50)
	}
}

func TestNearestPipe(t *testing.T) {
	pipes := []Pipe{
		{ID: 1, X: 50, Width: 70},  // trailing edge 120, behind the bird
		{ID: 2, X: 500, Width: 70}, // further
		{ID: 3, X: 200, Width: 70}, // nearest ahead
	}
	p, ok := nearestPipe(pipes, 150)
	if !ok || p.ID != 3 {
		t.Errorf("expected pipe 3, got %+v (ok=%v)", p, ok)
	}

	if _, ok := nearestPipe(pipes[:1], 150); ok {
		t.Error("expected no pipe ahead")
	}
}

func TestPipeRects(t *testing.T) {
	p := Pipe{X: 100, Width: 70, GapY: 200, GapHeight: 160, Height: 600}
	rects := p.Rects()
	if rects[0] != (components.Rect{X: 100, Y: 0, W: 70, H: 200}) {
		t.Errorf("top rect: %+v", rects[0])
	}
	if rects[1] != (components.Rect{X: 100, Y: 360, W: 70, H: 240}) {
		t.Errorf("bottom rect: %+v", rects[1])
	}

	inGap := components.Rect{X: 120, Y: 250, W: 34, H: 24}
	if inGap.Overlaps(rects[0]) || inGap.Overlaps(rects[1]) {
		t.Error("bird inside the gap should not collide")
	}
	hitting := components.Rect{X: 120, Y: 190, W: 34, H: 24}
	if !hitting.Overlaps(rects[0]) {
		t.Error("bird overlapping the top column should collide")
	}
}

func TestPipeRecycle(t *testing.T) {
	s := newTestSim(t, testConfig(), 1)
	s.pipes[0].X = -69

	s.updatePipes()

	if len(s.pipes) != 3 {
		t.Fatalf("pipe count changed to %d", len(s.pipes))
	}
	if s.pipes[0].ID != 2 {
		t.Errorf("first pipe should now be id 2, got %d", s.pipes[0].ID)
	}
	last := s.pipes[2]
	if last.ID != 4 || last.X != s.pipes[1].X+300 {
		t.Errorf("recycled pipe: %+v", last)
	}
}

func TestScoreOncePerPipe(t *testing.T) {
	s := newTestSim(t, testConfig(), 1)
	// Trailing edge just behind the birds, no overlap.
	s.pipes = []Pipe{{ID: 7, X: 79, Width: 70, GapY: 200, GapHeight: 160, Height: 600}}

	for i := 0; i < 3; i++ {
		if err := s.Step(); err != nil {
			t.Fatal(err)
		}
	}

	for _, b := range s.Birds() {
		if b.Score != 1 {
			t.Errorf("slot %d: score %d, want 1", b.Slot, b.Score)
		}
	}
}

func TestFitnessFrozenAfterDeath(t *testing.T) {
	s := newTestSim(t, testConfig(), 3)
	for i := 0; i < 3; i++ {
		if err := s.Step(); err != nil {
			t.Fatal(err)
		}
	}

	// Kill slot 0 by hand.
	var frozen float64
	query := s.birdFilter.Query()
	for query.Next() {
		_, _, _, bird := query.Get()
		if bird.Slot == 0 {
			frozen = bird.Fitness
			s.kill(bird)
		}
	}
	other := s.Birds()[1].Fitness

	for i := 0; i < 5; i++ {
		if err := s.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if s.Generation() != 1 {
		t.Fatal("generation ended unexpectedly early")
	}

	birds := s.Birds()
	if birds[0].Alive {
		t.Error("slot 0 should be dead")
	}
	if birds[0].Fitness != frozen {
		t.Errorf("dead bird fitness changed: %f -> %f", frozen, birds[0].Fitness)
	}
	if birds[1].Fitness == other {
		t.Error("live bird fitness did not update")
	}
}

func TestGenerationBoundary(t *testing.T) {
	cfg := testConfig()
	s := newTestSim(t, cfg, 42)

	if err := s.RunGenerations(1, 0); err != nil {
		t.Fatal(err)
	}

	if s.Generation() != 2 {
		t.Fatalf("generation: got %d, want 2", s.Generation())
	}
	stats, ok := s.LastStats()
	if !ok || stats.Generation != 1 {
		t.Fatalf("last stats: %+v (ok=%v)", stats, ok)
	}
	if stats.RunID != "test" || stats.Ticks <= 0 {
		t.Errorf("stats: %+v", stats)
	}
	if s.Phase() != PhaseActive {
		t.Errorf("phase after boundary: %s", s.Phase())
	}

	// Birds are rebound to slots 0..n-1 of the new population.
	birds := s.Birds()
	if len(birds) != cfg.Population.Size || s.AliveCount() != cfg.Population.Size {
		t.Fatalf("expected %d fresh birds, got %d (alive %d)", cfg.Population.Size, len(birds), s.AliveCount())
	}
	for i, b := range birds {
		if b.Slot != i || !b.Alive || b.Score != 0 || b.Fitness != 0 {
			t.Errorf("bird %d not reset: %+v", i, b)
		}
	}
	if s.Pipes()[0].X != cfg.Pipes.FirstX {
		t.Error("pipes were not reset")
	}
}

func TestChampionMonotonicAcrossGenerations(t *testing.T) {
	s := newTestSim(t, testConfig(), 9)
	prev := s.Population().BestFitness()
	for i := 0; i < 5; i++ {
		if err := s.RunGenerations(1, 0); err != nil {
			t.Fatal(err)
		}
		best := s.Population().BestFitness()
		if best < prev {
			t.Fatalf("champion fitness decreased: %f -> %f", prev, best)
		}
		prev = best
	}
	if s.Generation() != 6 {
		t.Errorf("generation: got %d, want 6", s.Generation())
	}
}

func TestMaxGenerationTicks(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.MaxGenerationTicks = 5
	s := newTestSim(t, cfg, 1)

	for i := 0; i < 6; i++ {
		if err := s.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if s.Generation() != 2 {
		t.Fatalf("generation: got %d, want 2", s.Generation())
	}
	stats, _ := s.LastStats()
	if stats.Ticks != 5 {
		t.Errorf("ticks: got %d, want 5", stats.Ticks)
	}
}

func TestDeterministic(t *testing.T) {
	run := func() ([]BirdView, int) {
		s := newTestSim(t, testConfig(), 5)
		for i := 0; i < 1500; i++ {
			if err := s.Step(); err != nil {
				t.Fatal(err)
			}
		}
		return s.Birds(), s.Generation()
	}

	a, genA := run()
	b, genB := run()
	if genA != genB {
		t.Fatalf("generations differ: %d vs %d", genA, genB)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bird %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	run := func(threshold, workers int) []BirdView {
		cfg := testConfig()
		cfg.Population.Size = 24
		cfg.Simulation.ParallelThreshold = threshold
		s := newTestSim(t, cfg, 11)
		s.par.numWorkers = workers
		for i := 0; i < 1200; i++ {
			if err := s.Step(); err != nil {
				t.Fatal(err)
			}
		}
		return s.Birds()
	}

	serial := run(0, 1)
	parallel := run(1, 4)
	for i := range serial {
		if serial[i] != parallel[i] {
			t.Fatalf("bird %d differs: serial %+v parallel %+v", i, serial[i], parallel[i])
		}
	}
}

func TestTelemetryOutput(t *testing.T) {
	dir := t.TempDir()
	om, err := telemetry.NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	metrics := telemetry.NewMetrics()

	s, err := New(Options{Config: testConfig(), Seed: 2, RunID: "run-1", Output: om, Metrics: metrics})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RunGenerations(2, 0); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	records, err := telemetry.ReadGenerations(filepath.Join(dir, "generations.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 generation records, got %d", len(records))
	}
	if records[0].Generation != 1 || records[1].Generation != 2 || records[1].RunID != "run-1" {
		t.Errorf("records: %+v", records)
	}
	if records[1].ChampionFitness < records[0].ChampionFitness {
		t.Error("champion fitness decreased between records")
	}
}

func TestLeader(t *testing.T) {
	s := newTestSim(t, testConfig(), 4)
	for i := 0; i < 3; i++ {
		if err := s.Step(); err != nil {
			t.Fatal(err)
		}
	}

	slot, ok := s.Leader()
	if !ok {
		t.Fatal("expected a leader")
	}
	birds := s.Birds()
	for _, b := range birds {
		if b.Alive && b.Fitness > birds[slot].Fitness {
			t.Errorf("slot %d has higher fitness than leader %d", b.Slot, slot)
		}
	}

	s.killAll()
	if _, ok := s.Leader(); ok {
		t.Error("expected no leader once every bird is dead")
	}
}
