// Package policy turns a bird's view of the nearest pipe into a flap decision.
package policy

import "github.com/pthm-cable/flap/neural"

// Default normalization constants.
const (
	DefaultHorizontalNorm = 300.0
	DefaultVerticalNorm   = 200.0
	DefaultMaxVelocity    = 8.0
	DefaultFlapThreshold  = 0.5
)

// Action is the outcome of one decision.
type Action uint8

const (
	ActionNone Action = iota // no obstacle, no inference was run
	ActionHold               // inference ran, stay passive
	ActionFlap               // inference ran, trigger the impulse
)

func (a Action) String() string {
	switch a {
	case ActionHold:
		return "hold"
	case ActionFlap:
		return "flap"
	default:
		return "none"
	}
}

// Agent is the part of a bird's state the policy observes.
type Agent struct {
	X, Y     float64
	Velocity float64 // vertical, positive is down
}

// Obstacle is a pipe with a passable gap.
type Obstacle struct {
	X, Width  float64
	GapY      float64 // top of the gap
	GapHeight float64
}

// GapCenter returns the vertical center of the passable gap.
func (o Obstacle) GapCenter() float64 {
	return o.GapY + o.GapHeight/2
}

// Inferer runs a single-output network. *neural.FFNN satisfies it.
type Inferer interface {
	Infer(inputs []float64) (float64, error)
}

// Policy holds the normalization constants used to build network inputs.
type Policy struct {
	HorizontalNorm float64
	VerticalNorm   float64
	MaxVelocity    float64
	FlapThreshold  float64
}

// Default returns the policy with the standard constants.
func Default() Policy {
	return Policy{
		HorizontalNorm: DefaultHorizontalNorm,
		VerticalNorm:   DefaultVerticalNorm,
		MaxVelocity:    DefaultMaxVelocity,
		FlapThreshold:  DefaultFlapThreshold,
	}
}

// Inputs builds the normalized network input vector.
func (p Policy) Inputs(agent Agent, obstacle Obstacle) [neural.NumInputs]float64 {
	return [neural.NumInputs]float64{
		(obstacle.X + obstacle.Width - agent.X) / p.HorizontalNorm,
		(agent.Y - obstacle.GapCenter()) / p.VerticalNorm,
		agent.Velocity / p.MaxVelocity,
	}
}

// Decide runs net on the normalized observation. With no obstacle it returns
// ActionNone without calling net.
func (p Policy) Decide(agent Agent, obstacle *Obstacle, net Inferer) (Action, error) {
	if obstacle == nil {
		return ActionNone, nil
	}

	inputs := p.Inputs(agent, *obstacle)
	out, err := net.Infer(inputs[:])
	if err != nil {
		return ActionNone, err
	}
	if out > p.FlapThreshold {
		return ActionFlap, nil
	}
	return ActionHold, nil
}
