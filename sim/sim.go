// Package sim runs the flappy-bird world that evaluates a population of brains.
//
// Each bird entity is bound to one population slot for a whole generation.
// Every tick the birds fall, collide and score, the live ones get their
// fitness refreshed and ask their brain whether to flap. When the last bird
// dies the population is evolved once and the world is reset.
package sim

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/flap/components"
	"github.com/pthm-cable/flap/config"
	"github.com/pthm-cable/flap/evolution"
	"github.com/pthm-cable/flap/policy"
	"github.com/pthm-cable/flap/telemetry"
)

// Phase is the state of the generation cycle.
type Phase uint8

const (
	PhaseActive   Phase = iota // birds are being evaluated
	PhaseEvolving              // the population is being replaced
)

func (p Phase) String() string {
	if p == PhaseEvolving {
		return "evolving"
	}
	return "active"
}

// Options configures a simulation.
type Options struct {
	Config  *config.Config // nil = embedded defaults
	Seed    int64
	RunID   string
	Output  *telemetry.OutputManager // may be nil
	Metrics *telemetry.Metrics       // may be nil
}

// Sim is a headless flappy-bird world coupled to an evolving population.
type Sim struct {
	cfg       *config.Config
	policy    policy.Policy
	runID     string
	output    *telemetry.OutputManager
	metrics   *telemetry.Metrics
	bookmarks *telemetry.BookmarkDetector

	// Separate streams so pipe layout does not depend on GA draws.
	worldRng *rand.Rand
	evoRng   *rand.Rand

	world      *ecs.World
	birdMapper *ecs.Map4[components.Position, components.Velocity, components.Body, components.Bird]
	birdFilter *ecs.Filter4[components.Position, components.Velocity, components.Body, components.Bird]

	pipes      []Pipe
	nextPipeID int
	pop        *evolution.Population
	par        *parallelState

	phase     Phase
	tick      int32
	genStart  int32
	alive     int
	lastStats telemetry.GenerationStats
	evolved   bool
}

// New creates a simulation with a fresh random population.
func New(opts Options) (*Sim, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	evoRng := rand.New(rand.NewSource(opts.Seed + 1))
	pop, err := evolution.NewPopulation(evoRng, cfg.Population.Size, cfg.Population.TopUnits)
	if err != nil {
		return nil, fmt.Errorf("creating population: %w", err)
	}
	if err := pop.SetMutationRate(cfg.Mutation.Rate); err != nil {
		return nil, fmt.Errorf("creating population: %w", err)
	}

	var bookmarks *telemetry.BookmarkDetector
	if cfg.Telemetry.BookmarkHistory > 0 {
		bookmarks = telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistory)
	}

	world := ecs.NewWorld()
	s := &Sim{
		cfg: cfg,
		policy: policy.Policy{
			HorizontalNorm: cfg.Policy.HorizontalNorm,
			VerticalNorm:   cfg.Policy.VerticalNorm,
			MaxVelocity:    cfg.Bird.MaxVelocity,
			FlapThreshold:  cfg.Policy.FlapThreshold,
		},
		runID:      opts.RunID,
		output:     opts.Output,
		metrics:    opts.Metrics,
		bookmarks:  bookmarks,
		worldRng:   rand.New(rand.NewSource(opts.Seed)),
		evoRng:     evoRng,
		world:      world,
		birdMapper: ecs.NewMap4[components.Position, components.Velocity, components.Body, components.Bird](world),
		birdFilter: ecs.NewFilter4[components.Position, components.Velocity, components.Body, components.Bird](world),
		pop:        pop,
		par:        newParallelState(cfg.Simulation.ParallelThreshold),
	}
	s.reset()
	return s, nil
}

// Step advances the world by one tick. If every bird is dead afterwards the
// population is evolved and the world reset before Step returns.
func (s *Sim) Step() error {
	s.updateBirds()
	s.updatePipes()

	nearest, ok := nearestPipe(s.pipes, s.cfg.Bird.StartX)
	var pipe *Pipe
	if ok {
		pipe = &nearest
	}

	s.updateFitness(pipe)

	limit := s.cfg.Simulation.MaxGenerationTicks
	if limit > 0 && s.tick-s.genStart >= int32(limit) {
		s.killAll()
	}

	if s.alive == 0 {
		if err := s.endGeneration(); err != nil {
			return err
		}
		s.tick++
		return nil
	}

	if err := s.decideAll(pipe); err != nil {
		return err
	}
	s.tick++
	return nil
}

// RunGenerations steps until n more generations have been evolved or maxTicks
// ticks have elapsed (0 = no tick limit).
func (s *Sim) RunGenerations(n int, maxTicks int32) error {
	target := s.pop.Generation() + n
	start := s.tick
	for s.pop.Generation() < target {
		if maxTicks > 0 && s.tick-start >= maxTicks {
			return nil
		}
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

// updateBirds applies gravity, collisions and scoring to live birds.
func (s *Sim) updateBirds() {
	bc := s.cfg.Bird
	worldH := s.cfg.Derived.WorldH

	query := s.birdFilter.Query()
	for query.Next() {
		pos, vel, body, bird := query.Get()
		if !bird.Alive {
			continue
		}

		vel.Y += bc.Gravity
		vel.Y = math.Min(math.Max(vel.Y, -bc.MaxVelocity), bc.MaxVelocity)
		pos.Y += vel.Y
		bird.Distance++

		// Ceiling and ground
		if pos.Y < 0 || pos.Y > worldH-body.Height {
			s.kill(bird)
			continue
		}

		rect := body.Rect(*pos)
		for _, p := range s.pipes {
			for _, r := range p.Rects() {
				if rect.Overlaps(r) {
					s.kill(bird)
					break
				}
			}
			if !bird.Alive {
				break
			}

			// Score once per pipe as its trailing edge passes the bird.
			if p.X+p.Width < pos.X && p.ID > bird.LastPipe {
				bird.Score++
				bird.LastPipe = p.ID
			}
		}
	}
}

// updatePipes scrolls the pipes and recycles the first one once it is off screen.
func (s *Sim) updatePipes() {
	for i := range s.pipes {
		s.pipes[i].X -= s.cfg.Pipes.Speed
	}

	if first := s.pipes[0]; first.X < -first.Width {
		last := s.pipes[len(s.pipes)-1]
		s.pipes = append(s.pipes[1:], s.spawnPipe(last.X+s.cfg.Pipes.Spacing))
	}
}

// updateFitness refreshes fitness of live birds. Dead birds keep the value
// they had when they died.
func (s *Sim) updateFitness(pipe *Pipe) {
	if pipe == nil {
		return
	}
	query := s.birdFilter.Query()
	for query.Next() {
		pos, _, _, bird := query.Get()
		if bird.Alive {
			bird.Fitness = Fitness(s.cfg.Fitness, *bird, *pos, *pipe)
		}
	}
}

func (s *Sim) spawnPipe(x float64) Pipe {
	s.nextPipeID++
	return newPipe(s.worldRng, s.nextPipeID, x, s.cfg)
}

func (s *Sim) kill(bird *components.Bird) {
	bird.Alive = false
	s.alive--
}

func (s *Sim) killAll() {
	query := s.birdFilter.Query()
	for query.Next() {
		_, _, _, bird := query.Get()
		if bird.Alive {
			s.kill(bird)
		}
	}
}

// report collects the fitness and score of every slot.
func (s *Sim) report() ([]float64, []int) {
	fitness := make([]float64, s.pop.Size())
	scores := make([]int, s.pop.Size())

	query := s.birdFilter.Query()
	for query.Next() {
		_, _, _, bird := query.Get()
		fitness[bird.Slot] = bird.Fitness
		scores[bird.Slot] = bird.Score
	}
	return fitness, scores
}

// endGeneration evolves the population from the frozen fitness report and
// resets the world for the next generation.
func (s *Sim) endGeneration() error {
	s.phase = PhaseEvolving
	defer func() { s.phase = PhaseActive }()

	fitness, scores := s.report()
	next, sum, err := evolution.Evolve(s.evoRng, s.pop, fitness)
	if err != nil {
		return fmt.Errorf("evolving generation %d: %w", s.pop.Generation(), err)
	}

	champ := next.Champion()
	stats := telemetry.GenerationStats{
		RunID:              s.runID,
		Generation:         sum.Generation,
		Ticks:              s.tick - s.genStart,
		EndTick:            s.tick,
		NewChampion:        sum.NewChampion,
		ChampionFitness:    champ.Fitness,
		ChampionGeneration: champ.Generation,
		MutationRate:       next.MutationRate(),
	}
	stats.FillFitness(fitness, scores)
	stats.BestSlot = sum.BestSlot

	if sum.NewChampion {
		slog.Info("new best fitness",
			"run_id", s.runID,
			"fitness", math.Round(champ.Fitness),
			"generation", champ.Generation,
		)
	}
	if s.cfg.Telemetry.LogGenerations {
		stats.LogStats()
	}
	for _, b := range s.bookmarks.Check(stats) {
		b.LogBookmark()
	}
	if err := s.output.WriteGeneration(stats); err != nil {
		slog.Error("failed to write generation stats", "error", err)
	}
	s.metrics.Observe(stats)

	s.pop = next
	s.lastStats = stats
	s.evolved = true
	s.reset()
	return nil
}

// reset clears the world and binds one new bird to each population slot.
func (s *Sim) reset() {
	var entities []ecs.Entity
	query := s.birdFilter.Query()
	for query.Next() {
		entities = append(entities, query.Entity())
	}
	for _, e := range entities {
		s.world.RemoveEntity(e)
	}

	s.pipes = s.pipes[:0]
	for i := 0; i < s.cfg.Pipes.InitialCount; i++ {
		x := s.cfg.Pipes.FirstX + float64(i)*s.cfg.Pipes.Spacing
		s.pipes = append(s.pipes, s.spawnPipe(x))
	}

	bc := s.cfg.Bird
	for slot := 0; slot < s.pop.Size(); slot++ {
		pos := components.Position{X: bc.StartX, Y: math.Floor(s.cfg.Derived.WorldH / 2)}
		vel := components.Velocity{}
		body := components.Body{Width: bc.Width, Height: bc.Height}
		bird := components.NewBird(slot)
		s.birdMapper.NewEntity(&pos, &vel, &body, &bird)
	}
	s.alive = s.pop.Size()
	s.genStart = s.tick
}

// Config returns the simulation configuration.
func (s *Sim) Config() *config.Config { return s.cfg }

// Population returns the population currently being evaluated.
func (s *Sim) Population() *evolution.Population { return s.pop }

// Generation returns the generation currently being evaluated.
func (s *Sim) Generation() int { return s.pop.Generation() }

// Phase returns the current generation phase. The generation boundary runs
// inside a single Step, so PhaseEvolving is only observed by code called
// during that boundary; between Steps the phase is always PhaseActive.
func (s *Sim) Phase() Phase { return s.phase }

// Tick returns the total number of ticks simulated.
func (s *Sim) Tick() int32 { return s.tick }

// AliveCount returns the number of live birds.
func (s *Sim) AliveCount() int { return s.alive }

// LastStats returns the stats of the most recently evolved generation.
func (s *Sim) LastStats() (telemetry.GenerationStats, bool) {
	return s.lastStats, s.evolved
}

// Pipes returns a copy of the current pipes.
func (s *Sim) Pipes() []Pipe {
	return append([]Pipe(nil), s.pipes...)
}

// BirdView is a read-only snapshot of one bird.
type BirdView struct {
	Slot          int
	X, Y          float64
	Width, Height float64
	Velocity      float64
	Alive         bool
	Score         int
	Fitness       float64
}

// Birds returns a snapshot of every bird ordered by slot.
func (s *Sim) Birds() []BirdView {
	views := make([]BirdView, s.pop.Size())
	query := s.birdFilter.Query()
	for query.Next() {
		pos, vel, body, bird := query.Get()
		views[bird.Slot] = BirdView{
			Slot:     bird.Slot,
			X:        pos.X,
			Y:        pos.Y,
			Width:    body.Width,
			Height:   body.Height,
			Velocity: vel.Y,
			Alive:    bird.Alive,
			Score:    bird.Score,
			Fitness:  bird.Fitness,
		}
	}
	return views
}
