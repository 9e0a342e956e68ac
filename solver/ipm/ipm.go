// Package ipm implements Mehrotra predictor-corrector interior-point solver of convex quadratic programs
//
//	min ½xᵀHx + qᵀx subject to Ax ≤ b
//
// Inequalities are turned into equalities Ax + s = b with non-negative slacks s
// and multipliers λ. Every iteration factorizes the reduced normal matrix
// H + AᵀS⁻¹ΛA once and reuses the factorization for both the affine scaling
// and the centering-corrector directions.
package ipm

import (
	"context"
	"fmt"
	"math"

	gpc "github.com/milosgajdos/go-gpc"
	"github.com/milosgajdos/go-gpc/matrix"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultMaxIter is default maximum number of iterations
	DefaultMaxIter = 100
	// DefaultTol is default convergence tolerance
	DefaultTol = 1e-9
	// DefaultDivergence is default multiplier magnitude treated as primal infeasibility
	DefaultDivergence = 1e10
	// stepScale keeps iterates strictly inside the positive orthant
	stepScale = 0.995
)

// Config is interior-point solver configuration
type Config struct {
	// MaxIter is maximum number of iterations
	MaxIter int
	// Tol is residuals and complementarity tolerance
	Tol float64
	// Divergence is multiplier magnitude which marks the problem infeasible
	Divergence float64
}

// Solver is interior-point QP solver
type Solver struct {
	maxIter    int
	tol        float64
	divergence float64
}

// New creates new interior-point solver and returns it.
// Zero configuration values are replaced by defaults; nil c means default configuration.
func New(c *Config) (*Solver, error) {
	s := &Solver{
		maxIter:    DefaultMaxIter,
		tol:        DefaultTol,
		divergence: DefaultDivergence,
	}

	if c == nil {
		return s, nil
	}

	if c.MaxIter < 0 || c.Tol < 0 || c.Divergence < 0 {
		return nil, fmt.Errorf("%w: invalid interior-point solver config: %+v", gpc.ErrConfiguration, *c)
	}

	if c.MaxIter > 0 {
		s.maxIter = c.MaxIter
	}

	if c.Tol > 0 {
		s.tol = c.Tol
	}

	if c.Divergence > 0 {
		s.divergence = c.Divergence
	}

	return s, nil
}

// Solve solves QP p.
// It returns error if p is malformed or if ctx is done.
// Infeasibility and numerical problems are reported through the returned solution status.
func (s *Solver) Solve(ctx context.Context, p *gpc.Problem) (*gpc.Solution, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	n, k := p.Dims()
	if k == 0 {
		return unconstrained(p), nil
	}

	x := mat.NewVecDense(n, nil)
	sl := mat.NewVecDense(k, nil)
	lam := mat.NewVecDense(k, nil)

	ax := mat.NewVecDense(k, nil)
	ax.MulVec(p.A, x)
	for i := 0; i < k; i++ {
		sl.SetVec(i, math.Max(p.B.AtVec(i)-ax.AtVec(i), 1))
		lam.SetVec(i, 1)
	}

	qScale := 1 + floats.Norm(mat.Col(nil, 0, p.Q), math.Inf(1))
	bScale := 1 + floats.Norm(mat.Col(nil, 0, p.B), math.Inf(1))

	rd := mat.NewVecDense(n, nil)
	rp := mat.NewVecDense(k, nil)
	atl := mat.NewVecDense(n, nil)
	d := make([]float64, k)
	rc := make([]float64, k)

	for iter := 1; iter <= s.maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// rd = Hx + q + Aᵀλ
		rd.MulVec(p.H, x)
		rd.AddVec(rd, p.Q)
		atl.MulVec(p.A.T(), lam)
		rd.AddVec(rd, atl)

		// rp = Ax + s - b
		rp.MulVec(p.A, x)
		rp.AddVec(rp, sl)
		rp.SubVec(rp, p.B)

		mu := mat.Dot(sl, lam) / float64(k)

		if mat.Norm(rd, math.Inf(1)) <= s.tol*qScale && mat.Norm(rp, math.Inf(1)) <= s.tol*bScale && mu <= s.tol {
			return &gpc.Solution{X: x, Status: gpc.Optimal, Objective: p.Objective(x), Iterations: iter}, nil
		}

		if mat.Max(lam) > s.divergence {
			return &gpc.Solution{X: x, Status: gpc.Infeasible, Objective: p.Objective(x), Iterations: iter}, nil
		}

		for i := 0; i < k; i++ {
			d[i] = lam.AtVec(i) / sl.AtVec(i)
		}

		chol, ok := normal(p, d)
		if !ok {
			return &gpc.Solution{X: x, Status: gpc.NumericalFailure, Objective: p.Objective(x), Iterations: iter}, nil
		}

		// predictor
		for i := 0; i < k; i++ {
			rc[i] = sl.AtVec(i) * lam.AtVec(i)
		}
		_, dsa, dla, err := direction(chol, p.A, d, sl, rd, rp, rc)
		if err != nil {
			return &gpc.Solution{X: x, Status: gpc.NumericalFailure, Objective: p.Objective(x), Iterations: iter}, nil
		}

		alpha := math.Min(1, maxStep(sl, dsa, lam, dla))
		var muAff float64
		for i := 0; i < k; i++ {
			muAff += (sl.AtVec(i) + alpha*dsa.AtVec(i)) * (lam.AtVec(i) + alpha*dla.AtVec(i))
		}
		muAff /= float64(k)
		sigma := math.Pow(muAff/mu, 3)

		// corrector
		for i := 0; i < k; i++ {
			rc[i] = sl.AtVec(i)*lam.AtVec(i) + dsa.AtVec(i)*dla.AtVec(i) - sigma*mu
		}
		dx, ds, dl, err := direction(chol, p.A, d, sl, rd, rp, rc)
		if err != nil {
			return &gpc.Solution{X: x, Status: gpc.NumericalFailure, Objective: p.Objective(x), Iterations: iter}, nil
		}

		alpha = math.Min(1, stepScale*maxStep(sl, ds, lam, dl))
		x.AddScaledVec(x, alpha, dx)
		sl.AddScaledVec(sl, alpha, ds)
		lam.AddScaledVec(lam, alpha, dl)
	}

	return &gpc.Solution{X: x, Status: gpc.NumericalFailure, Objective: p.Objective(x), Iterations: s.maxIter}, nil
}

// normal factorizes H + AᵀDA
func normal(p *gpc.Problem, d []float64) (*mat.Cholesky, bool) {
	da := mat.DenseCopyOf(p.A)
	rows, cols := da.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			da.Set(i, j, d[i]*da.At(i, j))
		}
	}

	m := &mat.Dense{}
	m.Mul(p.A.T(), da)
	m.Add(m, p.H)

	chol := &mat.Cholesky{}
	if ok := chol.Factorize(matrix.Symmetrize(m)); !ok {
		return nil, false
	}

	return chol, true
}

// direction solves the Newton system for complementarity residual rc:
//
//	(H + AᵀDA)dx = -rd - Aᵀ(D·rp - S⁻¹rc)
//	dλ = D(A·dx + rp) - S⁻¹rc
//	ds = -rp - A·dx
func direction(chol *mat.Cholesky, A mat.Matrix, d []float64, sl, rd, rp *mat.VecDense, rc []float64) (dx, ds, dl *mat.VecDense, err error) {
	k := len(d)
	n := rd.Len()

	v := mat.NewVecDense(k, nil)
	for i := 0; i < k; i++ {
		v.SetVec(i, d[i]*rp.AtVec(i)-rc[i]/sl.AtVec(i))
	}

	rhs := mat.NewVecDense(n, nil)
	rhs.MulVec(A.T(), v)
	rhs.AddVec(rhs, rd)
	rhs.ScaleVec(-1, rhs)

	dx = mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(dx, rhs); err != nil {
		return nil, nil, nil, err
	}

	adx := mat.NewVecDense(k, nil)
	adx.MulVec(A, dx)

	ds = mat.NewVecDense(k, nil)
	dl = mat.NewVecDense(k, nil)
	for i := 0; i < k; i++ {
		ds.SetVec(i, -rp.AtVec(i)-adx.AtVec(i))
		dl.SetVec(i, d[i]*(adx.AtVec(i)+rp.AtVec(i))-rc[i]/sl.AtVec(i))
	}

	return dx, ds, dl, nil
}

// maxStep returns the largest step keeping both s and λ non-negative
func maxStep(sl, ds, lam, dl *mat.VecDense) float64 {
	alpha := math.Inf(1)
	for i := 0; i < sl.Len(); i++ {
		if ds.AtVec(i) < 0 {
			alpha = math.Min(alpha, -sl.AtVec(i)/ds.AtVec(i))
		}
		if dl.AtVec(i) < 0 {
			alpha = math.Min(alpha, -lam.AtVec(i)/dl.AtVec(i))
		}
	}

	return alpha
}

// unconstrained solves Hx = -q
func unconstrained(p *gpc.Problem) *gpc.Solution {
	n, _ := p.Dims()
	x := mat.NewVecDense(n, nil)

	var chol mat.Cholesky
	if ok := chol.Factorize(p.H); !ok {
		return &gpc.Solution{X: x, Status: gpc.NumericalFailure}
	}

	rhs := mat.NewVecDense(n, nil)
	rhs.ScaleVec(-1, p.Q)
	if err := chol.SolveVecTo(x, rhs); err != nil {
		return &gpc.Solution{X: x, Status: gpc.NumericalFailure}
	}

	return &gpc.Solution{X: x, Status: gpc.Optimal, Objective: p.Objective(x), Iterations: 1}
}
