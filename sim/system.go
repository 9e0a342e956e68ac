// Package sim simulates predictive control loops on linear discrete-time plants.
package sim

import (
	"fmt"

	gpc "github.com/milosgajdos/go-gpc"
	"gonum.org/v1/gonum/mat"
)

// System defines a linear model of a plant using
// traditional matrices of modern control theory.
//
// It contains the System (A), input (B), Observation/Output (C)
// and Feedthrough (D) matrices.
type System struct {
	// System/State matrix A
	A *mat.Dense
	// Control/Input Matrix B
	B *mat.Dense
	// Observation/Output Matrix C
	C *mat.Dense
	// Feedthrough matrix D
	D *mat.Dense
}

func newSystem(A, B, C, D *mat.Dense) System {
	sys := System{A: mat.DenseCopyOf(A)}
	if B != nil {
		sys.B = mat.DenseCopyOf(B)
	}
	if C != nil {
		sys.C = mat.DenseCopyOf(C)
	}
	if D != nil {
		sys.D = mat.DenseCopyOf(D)
	}
	return sys
}

// checkDims returns error if A is missing or not square, or if B, C or D dimensions do not match it.
func checkDims(A, B, C, D *mat.Dense) error {
	if A == nil {
		return fmt.Errorf("%w: system matrix must be defined for a model", gpc.ErrDimension)
	}

	nx, cols := A.Dims()
	if nx != cols {
		return fmt.Errorf("%w: system matrix must be square: [%d x %d]", gpc.ErrDimension, nx, cols)
	}

	var nu, ny int
	if B != nil {
		var r int
		if r, nu = B.Dims(); r != nx {
			return fmt.Errorf("%w: invalid input matrix rows: %d", gpc.ErrDimension, r)
		}
	}

	if C != nil {
		var c int
		if ny, c = C.Dims(); c != nx {
			return fmt.Errorf("%w: invalid output matrix columns: %d", gpc.ErrDimension, c)
		}
	}

	if D != nil {
		if r, c := D.Dims(); r != ny || c != nu {
			return fmt.Errorf("%w: invalid feedthrough matrix dimensions: [%d x %d]", gpc.ErrDimension, r, c)
		}
	}

	return nil
}

// SystemDims returns internal state length (nx), input vector length (nu),
// external/observable/output state length (ny) and disturbance vector length (nz).
// Disturbances are modelled as additive state noise so nz is always zero.
func (s System) SystemDims() (nx, nu, ny, nz int) {
	nx, _ = s.A.Dims()
	if s.B != nil {
		_, nu = s.B.Dims()
	}
	if s.C != nil {
		ny, _ = s.C.Dims()
	}
	return nx, nu, ny, 0
}

// SystemMatrix returns state propagation matrix `A`.
func (s System) SystemMatrix() (A mat.Matrix) { return s.A }

// ControlMatrix returns state propagation control matrix `B`
func (s System) ControlMatrix() (B mat.Matrix) {
	if s.B == nil {
		return nil
	}
	return s.B
}

// OutputMatrix returns observation matrix `C`
func (s System) OutputMatrix() (C mat.Matrix) {
	if s.C == nil {
		return nil
	}
	return s.C
}

// FeedForwardMatrix returns observation control matrix `D`
func (s System) FeedForwardMatrix() (D mat.Matrix) {
	if s.D == nil {
		return nil
	}
	return s.D
}

// Observe returns external/observable state given internal state x and input u.
// wn is added to the output as a noise vector unless it is nil or empty.
func (s System) Observe(x, u, wn mat.Vector) (mat.Vector, error) {
	nx, nu, ny, _ := s.SystemDims()
	if u != nil && u.Len() != nu {
		return nil, fmt.Errorf("%w: invalid input vector length: %d", gpc.ErrDimension, u.Len())
	}

	if x.Len() != nx {
		return nil, fmt.Errorf("%w: invalid state vector length: %d", gpc.ErrDimension, x.Len())
	}

	if s.C == nil {
		return nil, fmt.Errorf("%w: missing output matrix", gpc.ErrDimension)
	}

	out := mat.NewVecDense(ny, nil)
	out.MulVec(s.C, x)

	if u != nil && s.D != nil {
		outU := mat.NewVecDense(ny, nil)
		outU.MulVec(s.D, u)
		out.AddVec(out, outU)
	}

	if wn != nil && wn.Len() > 0 {
		if wn.Len() != ny {
			return nil, fmt.Errorf("%w: invalid output noise length: %d", gpc.ErrDimension, wn.Len())
		}
		out.AddVec(out, wn)
	}

	return out, nil
}
