// Package qp assembles the quadratic program solved by the predictive controller every cycle.
//
// Given dynamic matrix G, diagonal weights Q and R, free response f and reference w
// the predicted tracking cost over the horizon is
//
//	J(Δu) = (GΔu + f - w)ᵀQ(GΔu + f - w) + ΔuᵀRΔu
//
// which, dropping the constant term, is ½ΔuᵀHΔu + qᵀΔu with
//
//	H = 2(GᵀQG + R)
//	q = 2GᵀQ(f - w)
//
// Increments are bounded by du_min ≤ Δu ≤ du_max which is expressed as
// [I; -I]Δu ≤ [du_max; -du_min].
package qp

import (
	"fmt"

	gpc "github.com/milosgajdos/go-gpc"
	"github.com/milosgajdos/go-gpc/matrix"
	"gonum.org/v1/gonum/mat"
)

// symTol is relative tolerance of the Hessian symmetry check
const symTol = 1e-9

// Assembler builds controller QP problems.
// Everything but the linear objective term is cycle invariant and computed once.
type Assembler struct {
	// h is objective Hessian 2(GᵀQG + R)
	h *mat.SymDense
	// gtq is 2GᵀQ
	gtq *mat.Dense
	// a is constraints matrix [I; -I]
	a *mat.Dense
	// b is constraints vector [du_max; -du_min]
	b *mat.VecDense
	// rows is the length of free response and reference vectors
	rows int
}

// New creates new QP assembler and returns it.
// It accepts the following parameters:
//   - G:      dynamic matrix of (p·ny) x (m·nu) dimensions
//   - Q:      (p·ny) diagonal output weights
//   - R:      (m·nu) diagonal increment weights
//   - duMin:  lower increment bound per input, or a single value for all inputs
//   - duMax:  upper increment bound per input, or a single value for all inputs
//   - m:      control horizon
//
// It returns error if either of the following conditions is met:
//   - matrix dimensions are inconsistent
//   - Q has negative entries
//   - R has non-positive entries or H is not positive definite
//   - any lower bound exceeds its upper bound
func New(G *mat.Dense, Q, R *mat.DiagDense, duMin, duMax []float64, m int) (*Assembler, error) {
	rows, cols := G.Dims()
	if m < 1 || cols%m != 0 {
		return nil, fmt.Errorf("%w: invalid control horizon %d for %d columns", gpc.ErrConfiguration, m, cols)
	}
	nu := cols / m

	if Q.Diag() != rows {
		return nil, fmt.Errorf("%w: invalid output weights dimensions: [%d x %d]", gpc.ErrConfiguration, Q.Diag(), Q.Diag())
	}

	if R.Diag() != cols {
		return nil, fmt.Errorf("%w: invalid increment weights dimensions: [%d x %d]", gpc.ErrConfiguration, R.Diag(), R.Diag())
	}

	for i, q := range matrix.DiagValues(Q) {
		if q < 0 {
			return nil, fmt.Errorf("%w: negative output weight %d: %f", gpc.ErrConfiguration, i, q)
		}
	}

	for i, r := range matrix.DiagValues(R) {
		if r <= 0 {
			return nil, fmt.Errorf("%w: %w: non-positive increment weight %d: %f", gpc.ErrConfiguration, gpc.ErrIllConditioned, i, r)
		}
	}

	lo, err := expandBounds(duMin, nu, m)
	if err != nil {
		return nil, err
	}

	hi, err := expandBounds(duMax, nu, m)
	if err != nil {
		return nil, err
	}

	for i := range lo {
		if lo[i] > hi[i] {
			return nil, fmt.Errorf("%w: lower bound exceeds upper bound at %d: %f > %f", gpc.ErrConfiguration, i, lo[i], hi[i])
		}
	}

	// 2GᵀQ
	gtq := &mat.Dense{}
	gtq.Mul(G.T(), Q)
	gtq.Scale(2, gtq)

	// 2(GᵀQG + R)
	hd := &mat.Dense{}
	hd.Mul(gtq, G)
	r2 := &mat.Dense{}
	r2.Scale(2, R)
	hd.Add(hd, r2)

	if !matrix.IsSymmetric(hd, symTol) {
		return nil, fmt.Errorf("%w: %w: asymmetric Hessian", gpc.ErrConfiguration, gpc.ErrIllConditioned)
	}

	h := matrix.Symmetrize(hd)
	if !matrix.IsPosDef(h) {
		return nil, fmt.Errorf("%w: %w: Hessian is not positive definite", gpc.ErrConfiguration, gpc.ErrIllConditioned)
	}

	// [I; -I]
	a := mat.NewDense(2*cols, cols, nil)
	b := mat.NewVecDense(2*cols, nil)
	for i := 0; i < cols; i++ {
		a.Set(i, i, 1)
		a.Set(cols+i, i, -1)
		b.SetVec(i, hi[i])
		b.SetVec(cols+i, -lo[i])
	}

	return &Assembler{
		h:    h,
		gtq:  gtq,
		a:    a,
		b:    b,
		rows: rows,
	}, nil
}

// Assemble returns QP problem for free response f and reference trajectory w.
// Both f and w are output-major vectors of p·ny elements.
// The returned problem shares the cycle invariant matrices with the assembler.
// It returns error if f or w have invalid dimensions.
func (a *Assembler) Assemble(f, w mat.Vector) (*gpc.Problem, error) {
	if f.Len() != a.rows {
		return nil, fmt.Errorf("%w: invalid free response length: %d != %d", gpc.ErrDimension, f.Len(), a.rows)
	}

	if w.Len() != a.rows {
		return nil, fmt.Errorf("%w: invalid reference length: %d != %d", gpc.ErrDimension, w.Len(), a.rows)
	}

	e := mat.NewVecDense(a.rows, nil)
	e.SubVec(f, w)

	q := mat.NewVecDense(a.h.SymmetricDim(), nil)
	q.MulVec(a.gtq, e)

	return &gpc.Problem{
		H: a.h,
		Q: q,
		A: a.a,
		B: a.b,
	}, nil
}

// Hessian returns a copy of objective Hessian
func (a *Assembler) Hessian() mat.Symmetric {
	h := mat.NewSymDense(a.h.SymmetricDim(), nil)
	h.CopySym(a.h)

	return h
}

// Bounds returns a copy of constraints matrix and vector
func (a *Assembler) Bounds() (mat.Matrix, mat.Vector) {
	A := mat.DenseCopyOf(a.a)
	b := mat.VecDenseCopyOf(a.b)

	return A, b
}

// expandBounds repeats per input bounds over control horizon m.
// A single bound applies to every input.
func expandBounds(bounds []float64, nu, m int) ([]float64, error) {
	switch len(bounds) {
	case 1:
		out := make([]float64, nu*m)
		for i := range out {
			out[i] = bounds[0]
		}
		return out, nil
	case nu:
		out := make([]float64, nu*m)
		for j, v := range bounds {
			for c := 0; c < m; c++ {
				out[j*m+c] = v
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: invalid bounds length: %d, expected 1 or %d", gpc.ErrConfiguration, len(bounds), nu)
	}
}
