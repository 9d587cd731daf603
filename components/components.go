// Package components defines ECS components for the simulation.
package components

// Position represents an entity's top-left corner in world coordinates.
type Position struct {
	X, Y float64
}

// Velocity is vertical only; birds never move horizontally, the pipes do.
type Velocity struct {
	Y float64
}

// Body is an axis-aligned collision box.
type Body struct {
	Width, Height float64
}

// Rect returns the collision rectangle of a body at pos.
func (b Body) Rect(pos Position) Rect {
	return Rect{X: pos.X, Y: pos.Y, W: b.Width, H: b.Height}
}

// Bird holds per-agent game state.
// Slot binds the bird to a population slot for the current generation.
type Bird struct {
	Slot     int
	Alive    bool
	Score    int     // pipes passed
	Distance float64 // ticks survived
	Fitness  float64 // frozen when the bird dies
	LastPipe int     // id of the last pipe scored, guards double counting
	Flaps    int
}

// NewBird returns a live bird bound to slot.
func NewBird(slot int) Bird {
	return Bird{Slot: slot, Alive: true}
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, W, H float64
}

// Overlaps reports whether r and o share interior area.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.W && r.X+r.W > o.X &&
		r.Y < o.Y+o.H && r.Y+r.H > o.Y
}
