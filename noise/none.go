package noise

import (
	"gonum.org/v1/gonum/mat"
)

// None is noise with empty mean and zero size covariance matrix.
// It marks a noise source which is not present at all, unlike Zero which has dimension.
type None struct{}

// NewNone creates new None noise and returns it
func NewNone() *None {
	return &None{}
}

// Sample returns zero size vector.
func (e *None) Sample() mat.Vector {
	return &mat.VecDense{}
}

// Cov returns zero size covariance matrix.
func (e *None) Cov() mat.Symmetric {
	return &mat.SymDense{}
}

// Mean returns None mean.
func (e *None) Mean() []float64 {
	return nil
}

// Reset does nothing.
func (e *None) Reset() error { return nil }

// String implements the Stringer interface.
func (e *None) String() string {
	return "None{}"
}
