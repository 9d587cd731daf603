package main

import (
	"fmt"
	"math"
	"sync"

	"github.com/sourcegraph/conc/iter"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/flap/config"
	"github.com/pthm-cable/flap/sim"
)

// FitnessEvaluator runs headless simulations and scores a parameter vector.
type FitnessEvaluator struct {
	params      *ParamVector
	generations int
	maxTicks    int32
	seeds       []int64
	baseConfig  *config.Config

	mu         sync.Mutex
	lastResult evalResult
}

// evalResult summarizes one Evaluate call across seeds.
type evalResult struct {
	MeanChampion float64
	StdChampion  float64
	MeanScore    float64
	Failures     int
}

// seedResult holds the result from one seed.
type seedResult struct {
	champion float64
	maxScore float64
	err      error
}

// NewFitnessEvaluator creates a new evaluator. Each run evolves generations
// generations, capped at maxTicks total ticks.
func NewFitnessEvaluator(params *ParamVector, generations int, maxTicks int32, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		generations: generations,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
	}
}

// LastResult returns the summary of the most recent evaluation.
func (fe *FitnessEvaluator) LastResult() evalResult {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastResult
}

// Evaluate computes the objective for a parameter vector (lower = better):
// the negated mean champion fitness across seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Telemetry.LogGenerations = false

	results := iter.Map(fe.seeds, func(seed *int64) seedResult {
		return fe.runSimulation(cfg, *seed)
	})

	champions := make([]float64, 0, len(results))
	var scores []float64
	failures := 0
	for _, r := range results {
		if r.err != nil {
			failures++
			continue
		}
		champions = append(champions, r.champion)
		scores = append(scores, r.maxScore)
	}

	res := evalResult{Failures: failures}
	objective := math.Inf(1)
	if len(champions) > 0 {
		res.MeanChampion, res.StdChampion = stat.MeanStdDev(champions, nil)
		if len(champions) == 1 {
			res.StdChampion = 0
		}
		res.MeanScore = stat.Mean(scores, nil)
		objective = -res.MeanChampion
	}

	fe.mu.Lock()
	fe.lastResult = res
	fe.mu.Unlock()

	return objective
}

// runSimulation evolves one seeded population and reports its champion.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) seedResult {
	s, err := sim.New(sim.Options{Config: cfg, Seed: seed, RunID: fmt.Sprintf("optimize-%d", seed)})
	if err != nil {
		return seedResult{err: err}
	}
	if err := s.RunGenerations(fe.generations, fe.maxTicks); err != nil {
		return seedResult{err: err}
	}

	var maxScore float64
	if last, ok := s.LastStats(); ok {
		maxScore = float64(last.MaxScore)
	}
	return seedResult{
		champion: s.Population().BestFitness(),
		maxScore: maxScore,
	}
}
