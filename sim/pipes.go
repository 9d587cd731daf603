package sim

import (
	"math/rand"

	"github.com/pthm-cable/flap/components"
	"github.com/pthm-cable/flap/config"
	"github.com/pthm-cable/flap/policy"
)

// Pipe is a pair of columns with a passable gap, scrolling left.
type Pipe struct {
	ID        int // increases left to right, starting at 1
	X         float64
	Width     float64
	GapY      float64 // top of the gap
	GapHeight float64
	Height    float64 // world height, bottom column extends to it
}

// newPipe places a pipe at x with a random integer gap position.
func newPipe(rng *rand.Rand, id int, x float64, cfg *config.Config) Pipe {
	lo, hi := cfg.Derived.GapMinY, cfg.Derived.GapMaxY
	return Pipe{
		ID:        id,
		X:         x,
		Width:     cfg.Pipes.Width,
		GapY:      float64(lo + rng.Intn(hi-lo+1)),
		GapHeight: cfg.Pipes.GapHeight,
		Height:    cfg.Derived.WorldH,
	}
}

// Rects returns the top and bottom collision rectangles.
func (p Pipe) Rects() [2]components.Rect {
	bottomY := p.GapY + p.GapHeight
	return [2]components.Rect{
		{X: p.X, Y: 0, W: p.Width, H: p.GapY},
		{X: p.X, Y: bottomY, W: p.Width, H: p.Height - bottomY},
	}
}

// GapCenter returns the vertical center of the gap.
func (p Pipe) GapCenter() float64 {
	return p.GapY + p.GapHeight/2
}

// Obstacle converts the pipe into the policy's view of it.
func (p Pipe) Obstacle() policy.Obstacle {
	return policy.Obstacle{X: p.X, Width: p.Width, GapY: p.GapY, GapHeight: p.GapHeight}
}

// nearestPipe returns the closest pipe whose trailing edge is still ahead of x.
func nearestPipe(pipes []Pipe, x float64) (Pipe, bool) {
	var best Pipe
	found := false
	for _, p := range pipes {
		if p.X+p.Width > x && (!found || p.X < best.X) {
			best = p
			found = true
		}
	}
	return best, found
}
