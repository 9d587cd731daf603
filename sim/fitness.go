package sim

import (
	"math"

	"github.com/pthm-cable/flap/components"
	"github.com/pthm-cable/flap/config"
)

// Fitness scores a live bird against the nearest pipe:
//
//	score*ScoreWeight + distance/DistanceDivisor
//	  - |dy|/gapCenter*OffsetPenalty + AliveBonus (if the pipe is still ahead)
//
// where dy is the bird's offset from the gap center.
func Fitness(fc config.FitnessConfig, bird components.Bird, pos components.Position, pipe Pipe) float64 {
	dx := pipe.X + pipe.Width - pos.X
	center := pipe.GapCenter()
	dy := pos.Y - center

	f := float64(bird.Score)*fc.ScoreWeight +
		bird.Distance/fc.DistanceDivisor -
		math.Abs(dy)/center*fc.OffsetPenalty
	if dx > 0 {
		f += fc.AliveBonus
	}
	return f
}
