package neural

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrShapeMismatch is returned when parameters do not match the fixed architecture.
var ErrShapeMismatch = errors.New("neural: parameter shape mismatch")

// Params is the full genome of one network: two weight matrices and two bias vectors.
type Params struct {
	W1 *mat.Dense    // NumInputs x NumHidden
	B1 *mat.VecDense // NumHidden
	W2 *mat.Dense    // NumHidden x NumOutputs
	B2 *mat.VecDense // NumOutputs
}

// NewParams returns zero-valued parameters with the fixed architecture.
func NewParams() Params {
	return Params{
		W1: mat.NewDense(NumInputs, NumHidden, nil),
		B1: mat.NewVecDense(NumHidden, nil),
		W2: mat.NewDense(NumHidden, NumOutputs, nil),
		B2: mat.NewVecDense(NumOutputs, nil),
	}
}

// Validate checks that all four arrays exist and have the fixed shapes.
func (p Params) Validate() error {
	if p.W1 == nil || p.B1 == nil || p.W2 == nil || p.B2 == nil {
		return fmt.Errorf("%w: missing array", ErrShapeMismatch)
	}
	if r, c := p.W1.Dims(); r != NumInputs || c != NumHidden {
		return fmt.Errorf("%w: w1 is %dx%d, want %dx%d", ErrShapeMismatch, r, c, NumInputs, NumHidden)
	}
	if n := p.B1.Len(); n != NumHidden {
		return fmt.Errorf("%w: b1 has %d elements, want %d", ErrShapeMismatch, n, NumHidden)
	}
	if r, c := p.W2.Dims(); r != NumHidden || c != NumOutputs {
		return fmt.Errorf("%w: w2 is %dx%d, want %dx%d", ErrShapeMismatch, r, c, NumHidden, NumOutputs)
	}
	if n := p.B2.Len(); n != NumOutputs {
		return fmt.Errorf("%w: b2 has %d elements, want %d", ErrShapeMismatch, n, NumOutputs)
	}
	return nil
}

// Clone returns a deep copy backed by fresh contiguous storage.
// The receiver must be valid.
func (p Params) Clone() Params {
	c := NewParams()
	c.W1.Copy(p.W1)
	c.B1.CopyVec(p.B1)
	c.W2.Copy(p.W2)
	c.B2.CopyVec(p.B2)
	return c
}

// Genes returns the backing slices of the four arrays in a fixed order
// (w1, w2, b1, b2). Writes through the slices modify p. Only valid for
// params built by NewParams or Clone, whose storage is contiguous.
func (p Params) Genes() [][]float64 {
	return [][]float64{
		p.W1.RawMatrix().Data,
		p.W2.RawMatrix().Data,
		p.B1.RawVector().Data,
		p.B2.RawVector().Data,
	}
}

// NumGenes is the number of scalar parameters in one network.
const NumGenes = NumInputs*NumHidden + NumHidden*NumOutputs + NumHidden + NumOutputs

// Equal reports whether p and q hold bit-identical values.
func (p Params) Equal(q Params) bool {
	return mat.Equal(p.W1, q.W1) &&
		mat.Equal(p.W2, q.W2) &&
		mat.Equal(p.B1, q.B1) &&
		mat.Equal(p.B2, q.B2)
}
