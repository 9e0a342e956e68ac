// Package box implements a primal active-set solver of bound constrained quadratic programs
//
//	min ½xᵀHx + qᵀx subject to lo ≤ x ≤ hi
//
// Bounds are read off the rows of the inequality constraints matrix which must
// each have a single non-zero entry. Every iteration solves the unconstrained
// problem over the free variables with Cholesky factorization, then either
// steps to the nearest blocking bound or releases the bound with the most
// negative multiplier. Variables with equal bounds never leave their bound.
package box

import (
	"context"
	"fmt"
	"math"

	gpc "github.com/milosgajdos/go-gpc"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultMaxIter is default maximum number of active-set iterations
	DefaultMaxIter = 200
	// DefaultTol is default optimality and feasibility tolerance
	DefaultTol = 1e-10
)

// Config is box solver configuration
type Config struct {
	// MaxIter is maximum number of iterations
	MaxIter int
	// Tol is optimality and feasibility tolerance
	Tol float64
}

// Solver is active-set box constrained QP solver
type Solver struct {
	maxIter int
	tol     float64
}

// New creates new box solver and returns it.
// Zero configuration values are replaced by defaults; nil c means default configuration.
func New(c *Config) (*Solver, error) {
	s := &Solver{maxIter: DefaultMaxIter, tol: DefaultTol}
	if c == nil {
		return s, nil
	}

	if c.MaxIter < 0 || c.Tol < 0 {
		return nil, fmt.Errorf("%w: invalid box solver config: %+v", gpc.ErrConfiguration, *c)
	}

	if c.MaxIter > 0 {
		s.maxIter = c.MaxIter
	}

	if c.Tol > 0 {
		s.tol = c.Tol
	}

	return s, nil
}

// bound state of a variable
const (
	free = iota
	atLower
	atUpper
	fixed
)

// Solve solves bound constrained QP p.
// It returns error if p is malformed, if its constraints are not simple bounds or if ctx is done.
// Infeasible bounds and numerical problems are reported through the returned solution status.
func (s *Solver) Solve(ctx context.Context, p *gpc.Problem) (*gpc.Solution, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	n, _ := p.Dims()
	lo, hi, err := Bounds(p.A, p.B, n)
	if err != nil {
		return nil, err
	}

	x := mat.NewVecDense(n, nil)
	state := make([]int, n)

	for i := 0; i < n; i++ {
		if lo[i] > hi[i]+s.tol {
			return &gpc.Solution{X: x, Status: gpc.Infeasible}, nil
		}
		switch {
		case hi[i]-lo[i] <= s.tol:
			x.SetVec(i, lo[i])
			state[i] = fixed
		case lo[i] > 0:
			x.SetVec(i, lo[i])
			state[i] = atLower
		case hi[i] < 0:
			x.SetVec(i, hi[i])
			state[i] = atUpper
		}
	}

	g := mat.NewVecDense(n, nil)
	for iter := 1; iter <= s.maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cand, ok := s.subproblem(p, x, state)
		if !ok {
			return &gpc.Solution{X: x, Status: gpc.NumericalFailure, Objective: p.Objective(x), Iterations: iter}, nil
		}

		// largest step towards the candidate keeping every free variable within its bounds
		alpha, block := 1.0, -1
		for i := 0; i < n; i++ {
			if state[i] != free {
				continue
			}
			d := cand[i] - x.AtVec(i)
			var t float64
			switch {
			case d > 0 && cand[i] > hi[i]:
				t = (hi[i] - x.AtVec(i)) / d
			case d < 0 && cand[i] < lo[i]:
				t = (lo[i] - x.AtVec(i)) / d
			default:
				continue
			}
			if t < alpha {
				alpha, block = t, i
			}
		}

		for i := 0; i < n; i++ {
			if state[i] == free {
				x.SetVec(i, x.AtVec(i)+alpha*(cand[i]-x.AtVec(i)))
			}
		}

		if block >= 0 {
			if cand[block] > hi[block] {
				x.SetVec(block, hi[block])
				state[block] = atUpper
			} else {
				x.SetVec(block, lo[block])
				state[block] = atLower
			}
			continue
		}

		// gradient at the subproblem minimizer holds the bound multipliers
		g.MulVec(p.H, x)
		g.AddVec(g, p.Q)

		release, worst := -1, s.tol*(1+floats.Norm(mat.Col(nil, 0, p.Q), math.Inf(1)))
		for i := 0; i < n; i++ {
			var v float64
			switch state[i] {
			case atLower:
				v = -g.AtVec(i)
			case atUpper:
				v = g.AtVec(i)
			default:
				continue
			}
			if v > worst {
				release, worst = i, v
			}
		}

		if release < 0 {
			return &gpc.Solution{X: x, Status: gpc.Optimal, Objective: p.Objective(x), Iterations: iter}, nil
		}
		state[release] = free
	}

	return &gpc.Solution{X: x, Status: gpc.NumericalFailure, Objective: p.Objective(x), Iterations: s.maxIter}, nil
}

// subproblem minimizes the objective over free variables with the rest held at x.
// It returns the full candidate vector and false if the reduced Hessian can not be factorized.
func (s *Solver) subproblem(p *gpc.Problem, x *mat.VecDense, state []int) ([]float64, bool) {
	n := x.Len()
	cand := make([]float64, n)
	copy(cand, x.RawVector().Data)

	idx := make([]int, 0, n)
	for i, st := range state {
		if st == free {
			idx = append(idx, i)
		}
	}

	if len(idx) == 0 {
		return cand, true
	}

	// H_FF x_F = -(q_F + H_FB x_B)
	hff := mat.NewSymDense(len(idx), nil)
	rhs := mat.NewVecDense(len(idx), nil)
	for a, i := range idx {
		for b := a; b < len(idx); b++ {
			hff.SetSym(a, b, p.H.At(i, idx[b]))
		}
		v := -p.Q.AtVec(i)
		for k := 0; k < n; k++ {
			if state[k] != free {
				v -= p.H.At(i, k) * x.AtVec(k)
			}
		}
		rhs.SetVec(a, v)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(hff); !ok {
		return nil, false
	}

	xf := mat.NewVecDense(len(idx), nil)
	if err := chol.SolveVecTo(xf, rhs); err != nil {
		return nil, false
	}

	for a, i := range idx {
		cand[i] = xf.AtVec(a)
	}

	return cand, true
}

// Bounds extracts per-variable bounds lo ≤ x ≤ hi from constraints Ax ≤ b.
// Every row of A must have exactly one non-zero entry. Variables without
// a bound in either direction get an infinite bound.
// It returns error if any row of A is not a simple bound.
func Bounds(A mat.Matrix, b mat.Vector, n int) (lo, hi []float64, err error) {
	lo, hi = make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		lo[i], hi[i] = math.Inf(-1), math.Inf(1)
	}

	if A == nil {
		return lo, hi, nil
	}

	rows, _ := A.Dims()
	for r := 0; r < rows; r++ {
		col := -1
		for c := 0; c < n; c++ {
			if A.At(r, c) != 0 {
				if col >= 0 {
					return nil, nil, fmt.Errorf("%w: constraint %d is not a bound", gpc.ErrDimension, r)
				}
				col = c
			}
		}

		if col < 0 {
			if b.AtVec(r) < 0 {
				return nil, nil, fmt.Errorf("%w: empty constraint %d with negative bound", gpc.ErrDimension, r)
			}
			continue
		}

		v := b.AtVec(r) / A.At(r, col)
		if A.At(r, col) > 0 {
			hi[col] = math.Min(hi[col], v)
		} else {
			lo[col] = math.Max(lo[col], v)
		}
	}

	return lo, hi, nil
}
