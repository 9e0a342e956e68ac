package gpc

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Problem is a quadratic program in standard form
//
//	min ½xᵀHx + qᵀx subject to Ax ≤ b
//
// Problem matrices are shared with the assembler that built them and must not be modified.
type Problem struct {
	// H is objective Hessian
	H mat.Symmetric
	// Q is objective linear term
	Q mat.Vector
	// A is inequality constraints matrix
	A mat.Matrix
	// B is inequality constraints vector
	B mat.Vector
}

// Dims returns the number of variables n and the number of inequality constraints k
func (p *Problem) Dims() (n, k int) {
	n = p.H.SymmetricDim()
	if p.A != nil {
		k, _ = p.A.Dims()
	}
	return n, k
}

// Validate checks problem dimensions.
func (p *Problem) Validate() error {
	if p.H == nil || p.Q == nil {
		return fmt.Errorf("%w: missing objective", ErrDimension)
	}

	n := p.H.SymmetricDim()
	if n == 0 || p.Q.Len() != n {
		return fmt.Errorf("%w: invalid objective dimensions: [%d x %d], %d", ErrDimension, n, n, p.Q.Len())
	}

	if p.A == nil {
		if p.B != nil && p.B.Len() != 0 {
			return fmt.Errorf("%w: constraint vector without matrix", ErrDimension)
		}
		return nil
	}

	rows, cols := p.A.Dims()
	if cols != n || p.B == nil || p.B.Len() != rows {
		return fmt.Errorf("%w: invalid constraint dimensions: [%d x %d]", ErrDimension, rows, cols)
	}

	return nil
}

// Objective evaluates ½xᵀHx + qᵀx
func (p *Problem) Objective(x mat.Vector) float64 {
	hx := mat.NewVecDense(x.Len(), nil)
	hx.MulVec(p.H, x)

	return 0.5*mat.Dot(x, hx) + mat.Dot(p.Q, x)
}

// Feasible returns true if x satisfies Ax ≤ b within tolerance tol
func (p *Problem) Feasible(x mat.Vector, tol float64) bool {
	if p.A == nil {
		return true
	}

	rows, _ := p.A.Dims()
	ax := mat.NewVecDense(rows, nil)
	ax.MulVec(p.A, x)

	for i := 0; i < rows; i++ {
		if ax.AtVec(i) > p.B.AtVec(i)+tol {
			return false
		}
	}

	return true
}
