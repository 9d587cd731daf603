package telemetry

import (
	"math"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pthm-cable/flap/config"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestFillFitness(t *testing.T) {
	var s GenerationStats
	s.FillFitness([]float64{10, 50, 5, 0, 20, 1}, []int{0, 3, 0, 0, 1, 0})

	if s.BestSlot != 1 || s.BestFitness != 50 {
		t.Errorf("best: got slot %d fitness %f", s.BestSlot, s.BestFitness)
	}
	if s.MinFitness != 0 {
		t.Errorf("min: got %f", s.MinFitness)
	}
	if math.Abs(s.MeanFitness-86.0/6) > 1e-9 {
		t.Errorf("mean: got %f, want %f", s.MeanFitness, 86.0/6)
	}
	if s.StdFitness <= 0 {
		t.Errorf("std should be positive, got %f", s.StdFitness)
	}
	if s.FitnessP50 != 7.5 {
		t.Errorf("p50: got %f, want 7.5", s.FitnessP50)
	}
	if s.MaxScore != 3 {
		t.Errorf("max score: got %d", s.MaxScore)
	}
	if math.Abs(s.MeanScore-4.0/6) > 1e-9 {
		t.Errorf("mean score: got %f", s.MeanScore)
	}
}

func TestFillFitnessSingleAndEmpty(t *testing.T) {
	var s GenerationStats
	s.FillFitness(nil, nil)
	if s.BestFitness != 0 || s.MeanFitness != 0 {
		t.Error("empty input should leave stats zero")
	}

	s.FillFitness([]float64{42}, nil)
	if s.MeanFitness != 42 || s.StdFitness != 0 || s.BestFitness != 42 {
		t.Errorf("single: got %+v", s)
	}
}

func TestOutputManagerRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	for gen := 1; gen <= 3; gen++ {
		s := GenerationStats{RunID: "abc", Generation: gen, BestFitness: float64(gen * 100)}
		if err := om.WriteGeneration(s); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.WriteConfig(config.Default()); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	records, err := ReadGenerations(filepath.Join(dir, "generations.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records (one header), got %d", len(records))
	}
	if records[2].Generation != 3 || records[2].BestFitness != 300 || records[2].RunID != "abc" {
		t.Errorf("last record: got %+v", records[2])
	}

	if _, err := config.Load(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config snapshot does not load: %v", err)
	}
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("expected nil manager, got %v, %v", om, err)
	}
	// All methods are nil-safe.
	if err := om.WriteGeneration(GenerationStats{}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
	if om.Dir() != "" {
		t.Error("nil manager should have empty dir")
	}
}

func TestMetricsObserve(t *testing.T) {
	m := NewMetrics()
	m.Observe(GenerationStats{Generation: 1, BestFitness: 120, ChampionFitness: 120, NewChampion: true, Ticks: 300})
	m.Observe(GenerationStats{Generation: 2, BestFitness: 80, ChampionFitness: 120, Ticks: 200})

	if got := testutil.ToFloat64(m.generations); got != 2 {
		t.Errorf("generations: got %f, want 2", got)
	}
	if got := testutil.ToFloat64(m.newChampions); got != 1 {
		t.Errorf("new champions: got %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.bestFitness); got != 80 {
		t.Errorf("best fitness: got %f, want 80", got)
	}
	if got := testutil.ToFloat64(m.championFitness); got != 120 {
		t.Errorf("champion fitness: got %f, want 120", got)
	}

	if n, err := testutil.GatherAndCount(m.Registry(), "flap_generations_total"); err != nil || n != 1 {
		t.Errorf("registry generations series: got %d (%v), want 1", n, err)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "flap_champion_fitness 120") {
		t.Errorf("exposition missing champion gauge:\n%s", rec.Body.String())
	}

	var nilMetrics *Metrics
	nilMetrics.Observe(GenerationStats{})
}
