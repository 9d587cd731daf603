package sim

import (
	"runtime"

	"github.com/mlange-42/ark/ecs"
	"github.com/sourcegraph/conc/pool"

	"github.com/pthm-cable/flap/policy"
)

// decision captures the read-only inputs of one bird and, after the
// parallel phase, the action to apply.
type decision struct {
	Entity ecs.Entity
	Slot   int
	Agent  policy.Agent
	Action policy.Action
}

// parallelState holds reusable buffers for per-tick inference.
type parallelState struct {
	threshold  int // below this many live birds, run serially (0 = always serial)
	numWorkers int
	decisions  []decision
}

func newParallelState(threshold int) *parallelState {
	return &parallelState{
		threshold:  threshold,
		numWorkers: runtime.GOMAXPROCS(0),
		decisions:  make([]decision, 0, 64),
	}
}

// decideAll snapshots every live bird, runs the policy for each, then applies
// the flaps. Networks are only read during the parallel phase.
func (s *Sim) decideAll(pipe *Pipe) error {
	var obstacle *policy.Obstacle
	if pipe != nil {
		o := pipe.Obstacle()
		obstacle = &o
	}

	// Snapshot phase
	p := s.par
	p.decisions = p.decisions[:0]
	query := s.birdFilter.Query()
	for query.Next() {
		pos, vel, _, bird := query.Get()
		if !bird.Alive {
			continue
		}
		p.decisions = append(p.decisions, decision{
			Entity: query.Entity(),
			Slot:   bird.Slot,
			Agent:  policy.Agent{X: pos.X, Y: pos.Y, Velocity: vel.Y},
		})
	}

	// Inference phase
	if err := s.runDecisions(obstacle); err != nil {
		return err
	}

	// Apply phase
	flap := s.cfg.Bird.FlapStrength
	for _, d := range p.decisions {
		if d.Action != policy.ActionFlap {
			continue
		}
		_, vel, _, bird := s.birdMapper.Get(d.Entity)
		if bird.Alive {
			vel.Y = flap
			bird.Flaps++
		}
	}
	return nil
}

func (s *Sim) runDecisions(obstacle *policy.Obstacle) error {
	p := s.par
	n := len(p.decisions)

	decideRange := func(start, end int) error {
		for i := start; i < end; i++ {
			d := &p.decisions[i]
			action, err := s.policy.Decide(d.Agent, obstacle, s.pop.Network(d.Slot))
			if err != nil {
				return err
			}
			d.Action = action
		}
		return nil
	}

	if p.threshold <= 0 || n < p.threshold || p.numWorkers < 2 {
		return decideRange(0, n)
	}

	chunk := (n + p.numWorkers - 1) / p.numWorkers
	wp := pool.New().WithErrors().WithMaxGoroutines(p.numWorkers)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wp.Go(func() error {
			return decideRange(start, end)
		})
	}
	return wp.Wait()
}
