// Package main tunes mutation rate, elite fraction and population size with
// CMA-ES, scoring each candidate by the champion fitness it reaches in a
// fixed number of headless generations.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/flap/config"
)

// evalRecord is one row of optimize_log.csv.
type evalRecord struct {
	Eval           int     `csv:"eval"`
	Objective      float64 `csv:"objective"`
	MeanChampion   float64 `csv:"mean_champion"`
	StdChampion    float64 `csv:"std_champion"`
	MeanMaxScore   float64 `csv:"mean_max_score"`
	Failures       int     `csv:"failures"`
	MutationRate   float64 `csv:"mutation_rate"`
	EliteFraction  float64 `csv:"elite_fraction"`
	PopulationSize int     `csv:"population_size"`
	TopUnits       int     `csv:"top_units"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	generations := flag.Int("generations", 30, "Generations evolved per evaluation run")
	generationTicks := flag.Int("generation-ticks", 5000, "Tick cap per generation")
	maxTicks := flag.Int("max-ticks", 0, "Total tick cap per run (0 = unlimited)")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 100, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg().Clone()
	baseCfg.Simulation.MaxGenerationTicks = *generationTicks

	params := NewParamVector()

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	evaluator := NewFitnessEvaluator(params, *generations, int32(*maxTicks), evalSeeds, baseCfg)

	dim := params.Dim()
	initX := params.Normalize(params.ExtractFromConfig(baseCfg))

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}

	logPath := filepath.Join(*outputDir, "optimize_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	evalCount := 0
	bestObjective := 1e18
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Denormalize(x)
			objective := evaluator.Evaluate(raw)
			evalCount++

			// Log clamped values, these are the values actually used
			clamped := params.Clamp(raw)
			if objective < bestObjective {
				bestObjective = objective
				bestParams = clamped
			}

			res := evaluator.LastResult()
			size := int(clamped[2] + 0.5)
			rec := evalRecord{
				Eval:           evalCount,
				Objective:      objective,
				MeanChampion:   res.MeanChampion,
				StdChampion:    res.StdChampion,
				MeanMaxScore:   res.MeanScore,
				Failures:       res.Failures,
				MutationRate:   clamped[0],
				EliteFraction:  clamped[1],
				PopulationSize: size,
				TopUnits:       eliteCount(clamped[1], size),
			}
			if err := writeRecord(logFile, rec, evalCount == 1); err != nil {
				slog.Error("failed to write eval log", "error", err)
			}

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(*maxEvals-evalCount) * avgPerEval

			fmt.Printf("Eval %d/%d: champion=%.0f±%.0f score=%.1f (best=%.0f) | elapsed: %s, ETA: %s\n",
				evalCount, *maxEvals, res.MeanChampion, res.StdChampion, res.MeanScore, -bestObjective,
				formatDuration(elapsed), formatDuration(remaining))

			return objective
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0,
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	fmt.Printf("Starting CMA-ES optimization with %d parameters, population=%d, max_evals=%d\n",
		dim, popSize, *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, generations per run: %d\n", *seeds, *generations)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}

	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		log.Fatal("no evaluations completed")
	}

	fmt.Printf("\nOptimization complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best mean champion fitness: %.0f\n", -bestObjective)

	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.6f\n", spec.Name, bestParams[i])
	}

	bestCfg := config.Cfg().Clone()
	params.ApplyToConfig(bestCfg, bestParams)

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}
}

// writeRecord appends one row to the eval log, with headers on the first row.
func writeRecord(f *os.File, rec evalRecord, header bool) error {
	rows := []evalRecord{rec}
	if header {
		return gocsv.Marshal(rows, f)
	}
	return gocsv.MarshalWithoutHeaders(rows, f)
}
