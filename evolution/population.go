// Package evolution implements the generational genetic algorithm that
// evolves a fixed-size population of neural.FFNN brains.
package evolution

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/pthm-cable/flap/neural"
)

// Defaults for a fresh population.
const (
	DefaultPopulationSize = 10
	DefaultTopUnits       = 4
	DefaultMutationRate   = 0.2

	// MaxMutationRate is the sentinel rate of the high-exploration phase.
	// Nothing in this package raises the rate to it; see Evolve.
	MaxMutationRate = 1.0

	// MinTopUnits is required by the first-offspring rule, which breeds ranks 0 and 1.
	MinTopUnits = 2
)

// ErrInvalidConfiguration is returned for population sizes that cannot be evolved.
var ErrInvalidConfiguration = errors.New("evolution: invalid configuration")

// Champion records the best network ever observed.
type Champion struct {
	Network    *neural.FFNN // nil until a positive fitness is seen
	Fitness    float64
	Generation int
}

// Population is a fixed-size, slot-indexed set of networks plus GA bookkeeping.
// Slot i is bound to simulation agent i for a whole generation.
type Population struct {
	networks     []*neural.FFNN
	generation   int
	mutationRate float64
	topUnits     int
	champion     Champion
}

// NewPopulation creates a randomly initialized population.
// Requires size >= topUnits >= 2.
func NewPopulation(rng *rand.Rand, size, topUnits int) (*Population, error) {
	if topUnits < MinTopUnits {
		return nil, fmt.Errorf("%w: top_units %d < %d", ErrInvalidConfiguration, topUnits, MinTopUnits)
	}
	if size < topUnits {
		return nil, fmt.Errorf("%w: population_size %d < top_units %d", ErrInvalidConfiguration, size, topUnits)
	}

	networks := make([]*neural.FFNN, size)
	for i := range networks {
		networks[i] = neural.NewFFNN(rng)
	}

	return &Population{
		networks:     networks,
		generation:   1,
		mutationRate: DefaultMutationRate,
		topUnits:     topUnits,
	}, nil
}

// Size returns the number of slots.
func (p *Population) Size() int { return len(p.networks) }

// TopUnits returns the elite count.
func (p *Population) TopUnits() int { return p.topUnits }

// Generation returns the 1-based generation counter.
func (p *Population) Generation() int { return p.generation }

// MutationRate returns the per-element mutation probability.
func (p *Population) MutationRate() float64 { return p.mutationRate }

// SetMutationRate sets the per-element mutation probability. Must be in [0, 1].
func (p *Population) SetMutationRate(rate float64) error {
	if rate < 0 || rate > MaxMutationRate {
		return fmt.Errorf("%w: mutation_rate %v outside [0, 1]", ErrInvalidConfiguration, rate)
	}
	p.mutationRate = rate
	return nil
}

// Network returns the network bound to slot. The returned network must be
// treated as read-only.
func (p *Population) Network(slot int) *neural.FFNN {
	return p.networks[slot]
}

// Champion returns a snapshot of the champion record. The network is a clone,
// so the caller may keep it across later generations.
func (p *Population) Champion() Champion {
	c := p.champion
	if c.Network != nil {
		c.Network = c.Network.Clone()
	}
	return c
}

// BestFitness returns the champion fitness.
func (p *Population) BestFitness() float64 { return p.champion.Fitness }

// BestGeneration returns the generation the champion was captured in (0 if none).
func (p *Population) BestGeneration() int { return p.champion.Generation }
