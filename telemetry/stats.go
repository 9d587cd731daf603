// Package telemetry collects per-generation statistics and writes them to
// logs, CSV files and Prometheus metrics.
package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GenerationStats summarizes one evaluated generation.
type GenerationStats struct {
	RunID      string `csv:"run_id"`
	Generation int    `csv:"generation"`
	Ticks      int32  `csv:"ticks"` // ticks until the last bird died
	EndTick    int32  `csv:"end_tick"`

	// Fitness distribution over all slots
	BestSlot    int     `csv:"best_slot"`
	BestFitness float64 `csv:"best_fitness"`
	MinFitness  float64 `csv:"min_fitness"`
	MeanFitness float64 `csv:"mean_fitness"`
	StdFitness  float64 `csv:"std_fitness"`
	FitnessP10  float64 `csv:"fitness_p10"`
	FitnessP50  float64 `csv:"fitness_p50"`
	FitnessP90  float64 `csv:"fitness_p90"`

	// Pipes passed
	MaxScore  int     `csv:"max_score"`
	MeanScore float64 `csv:"mean_score"`

	// Champion and GA state after evolving
	NewChampion        bool    `csv:"new_champion"`
	ChampionFitness    float64 `csv:"champion_fitness"`
	ChampionGeneration int     `csv:"champion_generation"`
	MutationRate       float64 `csv:"mutation_rate"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// FillFitness computes the fitness and score distribution fields.
// fitness and scores are indexed by slot.
func (s *GenerationStats) FillFitness(fitness []float64, scores []int) {
	n := len(fitness)
	if n == 0 {
		return
	}

	s.BestSlot = floats.MaxIdx(fitness)
	s.BestFitness = fitness[s.BestSlot]
	s.MinFitness = floats.Min(fitness)

	if n == 1 {
		s.MeanFitness, s.StdFitness = fitness[0], 0
	} else {
		s.MeanFitness, s.StdFitness = stat.MeanStdDev(fitness, nil)
	}

	sorted := make([]float64, n)
	copy(sorted, fitness)
	sort.Float64s(sorted)
	s.FitnessP10 = Percentile(sorted, 0.10)
	s.FitnessP50 = Percentile(sorted, 0.50)
	s.FitnessP90 = Percentile(sorted, 0.90)

	if len(scores) == 0 {
		return
	}
	sf := make([]float64, len(scores))
	for i, sc := range scores {
		sf[i] = float64(sc)
	}
	s.MaxScore = int(floats.Max(sf))
	s.MeanScore = stat.Mean(sf, nil)
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("run_id", s.RunID),
		slog.Int("generation", s.Generation),
		slog.Int("ticks", int(s.Ticks)),
		slog.Int("best_slot", s.BestSlot),
		slog.Float64("best_fitness", round2(s.BestFitness)),
		slog.Float64("mean_fitness", round2(s.MeanFitness)),
		slog.Float64("std_fitness", round2(s.StdFitness)),
		slog.Float64("fitness_p50", round2(s.FitnessP50)),
		slog.Int("max_score", s.MaxScore),
		slog.Float64("mean_score", round2(s.MeanScore)),
		slog.Bool("new_champion", s.NewChampion),
		slog.Float64("champion_fitness", round2(s.ChampionFitness)),
		slog.Int("champion_generation", s.ChampionGeneration),
		slog.Float64("mutation_rate", s.MutationRate),
	)
}

// LogStats logs the generation stats using slog.
func (s GenerationStats) LogStats() {
	slog.Info("generation complete", "stats", s)
}

// round2 keeps log lines short.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
