package evolution

import (
	"cmp"
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"github.com/pthm-cable/flap/neural"
)

// ErrFitnessReport is returned when the fitness report does not cover every slot.
var ErrFitnessReport = errors.New("evolution: fitness report does not match population")

// Ranked pairs a slot with its reported fitness.
type Ranked struct {
	Slot    int
	Fitness float64
}

// Summary describes what one Evolve call did.
type Summary struct {
	Generation  int      // generation that was evaluated
	Ranking     []Ranked // all slots, fitness descending
	Elites      []int    // old slots carried over, in rank order
	BestSlot    int
	BestFitness float64
	NewChampion bool
}

// Rank orders slots by fitness descending. Ties keep ascending slot order.
func Rank(fitness []float64) []Ranked {
	ranked := make([]Ranked, len(fitness))
	for i, f := range fitness {
		ranked[i] = Ranked{Slot: i, Fitness: f}
	}
	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		return cmp.Compare(b.Fitness, a.Fitness)
	})
	return ranked
}

// Evolve produces the next generation from pop and the per-slot fitness report.
//
// The first TopUnits ranked networks are carried over unchanged (as clones) in
// rank order. The offspring created when the new population holds exactly
// TopUnits members is bred from ranks 0 and 1; every later offspring is bred
// from two elites drawn uniformly with replacement. Offspring are
// Mutate(Crossover(p1, p2)).
//
// pop itself is never modified: the returned population carries the updated
// generation, champion and mutation rate, so a reader holding pop keeps a
// stable snapshot.
func Evolve(rng *rand.Rand, pop *Population, fitness []float64) (*Population, Summary, error) {
	if len(fitness) != pop.Size() {
		return nil, Summary{}, fmt.Errorf("%w: got %d values for %d slots", ErrFitnessReport, len(fitness), pop.Size())
	}

	ranked := Rank(fitness)
	best := ranked[0]

	sum := Summary{
		Generation:  pop.generation,
		Ranking:     ranked,
		BestSlot:    best.Slot,
		BestFitness: best.Fitness,
	}

	next := &Population{
		generation:   pop.generation + 1,
		mutationRate: pop.mutationRate,
		topUnits:     pop.topUnits,
		champion:     pop.champion,
	}

	if best.Fitness > pop.champion.Fitness {
		next.champion = Champion{
			Network:    pop.networks[best.Slot].Clone(),
			Fitness:    best.Fitness,
			Generation: pop.generation,
		}
		sum.NewChampion = true
	}

	winners := make([]*neural.FFNN, pop.topUnits)
	sum.Elites = make([]int, pop.topUnits)
	for i := range winners {
		winners[i] = pop.networks[ranked[i].Slot]
		sum.Elites[i] = ranked[i].Slot
	}

	networks := make([]*neural.FFNN, 0, pop.Size())
	for _, w := range winners {
		networks = append(networks, w.Clone())
	}

	for len(networks) < pop.Size() {
		var p1, p2 *neural.FFNN
		if len(networks) == pop.topUnits {
			p1, p2 = winners[0], winners[1]
		} else {
			p1 = winners[rng.Intn(len(winners))]
			p2 = winners[rng.Intn(len(winners))]
		}

		child := Crossover(rng, p1, p2)
		Mutate(rng, child, pop.mutationRate)
		networks = append(networks, child)
	}
	next.networks = networks

	// Legacy exploration back-off. The rate never reaches MaxMutationRate with
	// the shipped settings, so this branch does not fire today.
	if next.mutationRate == MaxMutationRate && best.Fitness > 0 {
		next.mutationRate = DefaultMutationRate
	}

	return next, sum, nil
}
