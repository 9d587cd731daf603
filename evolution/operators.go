package evolution

import (
	"math/rand"

	"github.com/pthm-cable/flap/neural"
)

// MutationSigma is the standard deviation of the Gaussian mutation noise.
const MutationSigma = 0.1

// Crossover builds a child by uniform crossover at element granularity: every
// weight and bias scalar comes from a or b on an independent fair coin.
// Neither parent is modified.
func Crossover(rng *rand.Rand, a, b *neural.FFNN) *neural.FFNN {
	pa := a.Params()
	pb := b.Params()
	child := neural.NewParams()

	ga, gb, gc := pa.Genes(), pb.Genes(), child.Genes()
	for k := range gc {
		for i := range gc[k] {
			if rng.Float64() >= 0.5 {
				gc[k][i] = ga[k][i]
			} else {
				gc[k][i] = gb[k][i]
			}
		}
	}

	nn, err := neural.NewFFNNFromParams(child)
	if err != nil {
		// NewParams always has the fixed shape.
		panic(err)
	}
	return nn
}

// Mutate perturbs each element independently: with probability rate it gets
// N(0,1)*MutationSigma added. nn is modified in place and must be a fresh
// offspring, never a live population member.
func Mutate(rng *rand.Rand, nn *neural.FFNN, rate float64) {
	p := nn.Params()
	for _, gene := range p.Genes() {
		for i := range gene {
			if rng.Float64() < rate {
				gene[i] += rng.NormFloat64() * MutationSigma
			}
		}
	}
	if err := nn.SetParams(p); err != nil {
		panic(err)
	}
}
