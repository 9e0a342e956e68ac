package ipm

import (
	"context"
	"errors"
	"testing"

	gpc "github.com/milosgajdos/go-gpc"
	"github.com/milosgajdos/go-gpc/solver/box"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

// boxProblem builds QP with constraints [I; -I]x ≤ [hi; -lo]
func boxProblem(h []float64, q, lo, hi []float64) *gpc.Problem {
	n := len(q)
	A := mat.NewDense(2*n, n, nil)
	b := mat.NewVecDense(2*n, nil)
	for i := 0; i < n; i++ {
		A.Set(i, i, 1)
		A.Set(n+i, i, -1)
		b.SetVec(i, hi[i])
		b.SetVec(n+i, -lo[i])
	}

	return &gpc.Problem{
		H: mat.NewSymDense(n, h),
		Q: mat.NewVecDense(n, q),
		A: A,
		B: b,
	}
}

func TestNew(t *testing.T) {
	assert := assert.New(t)

	s, err := New(nil)
	assert.NoError(err)
	assert.Equal(DefaultMaxIter, s.maxIter)
	assert.Equal(DefaultDivergence, s.divergence)

	s, err = New(&Config{Tol: 1e-6})
	assert.NoError(err)
	assert.Equal(1e-6, s.tol)
	assert.Equal(DefaultMaxIter, s.maxIter)

	for _, c := range []*Config{
		{MaxIter: -1},
		{Tol: -1},
		{Divergence: -1},
	} {
		s, err := New(c)
		assert.Nil(s)
		assert.True(errors.Is(err, gpc.ErrConfiguration))
	}
}

func TestSolve(t *testing.T) {
	assert := assert.New(t)

	s, err := New(nil)
	assert.NoError(err)

	testCases := []struct {
		h      []float64
		q      []float64
		lo, hi []float64
		x      []float64
	}{
		{h: []float64{2, 0, 0, 2}, q: []float64{-2, 4}, lo: []float64{-5, -5}, hi: []float64{5, 5}, x: []float64{1, -2}},
		{h: []float64{2, 0, 0, 2}, q: []float64{-2, 4}, lo: []float64{-0.5, -0.5}, hi: []float64{0.5, 0.5}, x: []float64{0.5, -0.5}},
		{h: []float64{2, 1, 1, 2}, q: []float64{-1, -1}, lo: []float64{-1, -1}, hi: []float64{0.2, 0.2}, x: []float64{0.2, 0.2}},
		{h: []float64{2, 1, 1, 2}, q: []float64{-4, 0}, lo: []float64{-1, -1}, hi: []float64{1, 1}, x: []float64{1, -0.5}},
		{h: []float64{2, 0, 0, 2}, q: []float64{0, 0}, lo: []float64{1, -3}, hi: []float64{2, -2}, x: []float64{1, -2}},
	}

	for _, tc := range testCases {
		p := boxProblem(tc.h, tc.q, tc.lo, tc.hi)
		sol, err := s.Solve(context.Background(), p)
		assert.NoError(err)
		assert.Equal(gpc.Optimal, sol.Status)
		assert.InDeltaSlice(tc.x, sol.X.RawVector().Data, 1e-6)
		assert.True(p.Feasible(sol.X, 1e-6))
	}
}

func TestSolveGeneralConstraints(t *testing.T) {
	assert := assert.New(t)

	s, err := New(nil)
	assert.NoError(err)

	// min (x0-1)² + (x1-1)² subject to x0 + x1 ≤ 1
	p := &gpc.Problem{
		H: mat.NewSymDense(2, []float64{2, 0, 0, 2}),
		Q: mat.NewVecDense(2, []float64{-2, -2}),
		A: mat.NewDense(1, 2, []float64{1, 1}),
		B: mat.NewVecDense(1, []float64{1}),
	}

	sol, err := s.Solve(context.Background(), p)
	assert.NoError(err)
	assert.Equal(gpc.Optimal, sol.Status)
	assert.InDeltaSlice([]float64{0.5, 0.5}, sol.X.RawVector().Data, 1e-6)
	assert.InDelta(-1.5, sol.Objective, 1e-6)
}

func TestSolveMatchesBox(t *testing.T) {
	assert := assert.New(t)

	s, err := New(nil)
	assert.NoError(err)
	b, err := box.New(nil)
	assert.NoError(err)

	h := []float64{
		4, 1, 0.5, 0,
		1, 3, 0.2, 0.1,
		0.5, 0.2, 2, 0.3,
		0, 0.1, 0.3, 1,
	}
	q := []float64{-3, 2, -1, 0.5}
	lo := []float64{-0.2, -0.2, -1, -0.1}
	hi := []float64{0.2, 0.2, 1, 0.1}
	p := boxProblem(h, q, lo, hi)

	exp, err := b.Solve(context.Background(), p)
	assert.NoError(err)
	assert.Equal(gpc.Optimal, exp.Status)

	sol, err := s.Solve(context.Background(), p)
	assert.NoError(err)
	assert.Equal(gpc.Optimal, sol.Status)
	assert.InDeltaSlice(exp.X.RawVector().Data, sol.X.RawVector().Data, 1e-6)
	assert.InDelta(exp.Objective, sol.Objective, 1e-6)
}

func TestSolveStatus(t *testing.T) {
	assert := assert.New(t)

	s, err := New(nil)
	assert.NoError(err)

	// x ≤ -1 and x ≥ 1
	p := boxProblem([]float64{2}, []float64{0}, []float64{1}, []float64{-1})
	sol, err := s.Solve(context.Background(), p)
	assert.NoError(err)
	assert.NotEqual(gpc.Optimal, sol.Status)

	// unconstrained
	p = &gpc.Problem{
		H: mat.NewSymDense(2, []float64{4, 0, 0, 1}),
		Q: mat.NewVecDense(2, []float64{-4, 3}),
	}
	sol, err = s.Solve(context.Background(), p)
	assert.NoError(err)
	assert.Equal(gpc.Optimal, sol.Status)
	assert.InDeltaSlice([]float64{1, -3}, sol.X.RawVector().Data, 1e-12)

	p.H = mat.NewSymDense(2, []float64{1, 0, 0, -1})
	sol, err = s.Solve(context.Background(), p)
	assert.NoError(err)
	assert.Equal(gpc.NumericalFailure, sol.Status)
}

func TestSolveErrors(t *testing.T) {
	assert := assert.New(t)

	s, err := New(nil)
	assert.NoError(err)

	p := boxProblem([]float64{2, 0, 0, 2}, []float64{-2, 4}, []float64{-1, -1}, []float64{1, 1})
	p.B = mat.NewVecDense(3, nil)
	sol, err := s.Solve(context.Background(), p)
	assert.Nil(sol)
	assert.True(errors.Is(err, gpc.ErrDimension))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p = boxProblem([]float64{2, 0, 0, 2}, []float64{-2, 4}, []float64{-1, -1}, []float64{1, 1})
	sol, err = s.Solve(ctx, p)
	assert.Nil(sol)
	assert.True(errors.Is(err, context.Canceled))
}
