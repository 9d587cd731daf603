// Package neural provides the fixed-shape feedforward network used as a bird's brain.
package neural

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Network dimensions. The architecture is fixed for the lifetime of the program.
const (
	NumInputs  = 3 // horizontal distance, gap offset, velocity
	NumHidden  = 6
	NumOutputs = 1 // flap
)

// InitScale scales the standard normal draws used for fresh networks.
const InitScale = 0.1

// ErrInputLength is returned when Infer receives a vector of the wrong length.
var ErrInputLength = errors.New("neural: input length mismatch")

// FFNN is a two-layer feedforward network with sigmoid activations.
// Inference only reads the parameters, so one network may be evaluated from
// several goroutines as long as nobody calls SetParams concurrently.
type FFNN struct {
	params Params
}

// NewFFNN creates a network with every weight and bias drawn from N(0,1)*InitScale.
func NewFFNN(rng *rand.Rand) *FFNN {
	p := NewParams()
	for _, gene := range p.Genes() {
		for i := range gene {
			gene[i] = rng.NormFloat64() * InitScale
		}
	}
	return &FFNN{params: p}
}

// NewFFNNFromParams creates a network holding a copy of p.
func NewFFNNFromParams(p Params) (*FFNN, error) {
	nn := &FFNN{}
	if err := nn.SetParams(p); err != nil {
		return nil, err
	}
	return nn, nil
}

// Infer runs the network and returns the single output in (0, 1).
func (nn *FFNN) Infer(inputs []float64) (float64, error) {
	out, _, err := nn.forward(inputs, false)
	return out, err
}

// Activations holds captured intermediate layer values.
type Activations struct {
	Inputs []float64
	Hidden []float64
	Output float64
}

// InferWithCapture runs the network and also returns the layer activations.
func (nn *FFNN) InferWithCapture(inputs []float64) (float64, *Activations, error) {
	return nn.forward(inputs, true)
}

func (nn *FFNN) forward(inputs []float64, capture bool) (float64, *Activations, error) {
	if len(inputs) != NumInputs {
		return 0, nil, fmt.Errorf("%w: got %d, want %d", ErrInputLength, len(inputs), NumInputs)
	}

	x := mat.NewVecDense(NumInputs, append([]float64(nil), inputs...))

	// hidden = sigmoid(x . W1 + b1)
	var hidden mat.VecDense
	hidden.MulVec(nn.params.W1.T(), x)
	hidden.AddVec(&hidden, nn.params.B1)
	sigmoidVec(&hidden)

	// output = sigmoid(hidden . W2 + b2)
	var output mat.VecDense
	output.MulVec(nn.params.W2.T(), &hidden)
	output.AddVec(&output, nn.params.B2)
	sigmoidVec(&output)

	out := output.AtVec(0)
	if !capture {
		return out, nil, nil
	}

	act := &Activations{
		Inputs: append([]float64(nil), inputs...),
		Hidden: make([]float64, NumHidden),
		Output: out,
	}
	for i := range act.Hidden {
		act.Hidden[i] = hidden.AtVec(i)
	}
	return out, act, nil
}

// Params returns a deep copy of the network parameters.
func (nn *FFNN) Params() Params {
	return nn.params.Clone()
}

// SetParams replaces the network parameters with a copy of p.
func (nn *FFNN) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	nn.params = p.Clone()
	return nil
}

// Clone creates a deep copy of the network.
func (nn *FFNN) Clone() *FFNN {
	return &FFNN{params: nn.params.Clone()}
}

// sigmoid is the logistic function 1/(1+e^-x).
func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func sigmoidVec(v *mat.VecDense) {
	for i := 0; i < v.Len(); i++ {
		v.SetVec(i, sigmoid(v.AtVec(i)))
	}
}
