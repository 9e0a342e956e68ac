package box

import (
	"context"
	"errors"
	"math"
	"testing"

	gpc "github.com/milosgajdos/go-gpc"
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
	assert.Equal(DefaultTol, s.tol)

	s, err = New(&Config{MaxIter: 10})
	assert.NoError(err)
	assert.Equal(10, s.maxIter)
	assert.Equal(DefaultTol, s.tol)

	s, err = New(&Config{MaxIter: -1})
	assert.Nil(s)
	assert.True(errors.Is(err, gpc.ErrConfiguration))

	s, err = New(&Config{Tol: -1})
	assert.Nil(s)
	assert.True(errors.Is(err, gpc.ErrConfiguration))
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
		// interior optimum
		{h: []float64{2, 0, 0, 2}, q: []float64{-2, 4}, lo: []float64{-5, -5}, hi: []float64{5, 5}, x: []float64{1, -2}},
		// both variables clipped
		{h: []float64{2, 0, 0, 2}, q: []float64{-2, 4}, lo: []float64{-0.5, -0.5}, hi: []float64{0.5, 0.5}, x: []float64{0.5, -0.5}},
		// coupled variables both at upper bound
		{h: []float64{2, 1, 1, 2}, q: []float64{-1, -1}, lo: []float64{-1, -1}, hi: []float64{0.2, 0.2}, x: []float64{0.2, 0.2}},
		// one bound active moves the other variable
		{h: []float64{2, 1, 1, 2}, q: []float64{-4, 0}, lo: []float64{-1, -1}, hi: []float64{1, 1}, x: []float64{1, -0.5}},
		// bounds exclude the origin
		{h: []float64{2, 0, 0, 2}, q: []float64{0, 0}, lo: []float64{1, -3}, hi: []float64{2, -2}, x: []float64{1, -2}},
		// equal bounds pin the variable
		{h: []float64{2, 1, 1, 2}, q: []float64{-4, -4}, lo: []float64{0, -1}, hi: []float64{0, 5}, x: []float64{0, 2}},
	}

	for _, tc := range testCases {
		p := boxProblem(tc.h, tc.q, tc.lo, tc.hi)
		sol, err := s.Solve(context.Background(), p)
		assert.NoError(err)
		assert.Equal(gpc.Optimal, sol.Status)
		assert.InDeltaSlice(tc.x, sol.X.RawVector().Data, 1e-9)
		assert.InDelta(p.Objective(sol.X), sol.Objective, 1e-12)
		assert.True(p.Feasible(sol.X, 1e-12))
		assert.True(sol.Iterations > 0)
	}
}

func TestSolveUnconstrained(t *testing.T) {
	assert := assert.New(t)

	s, err := New(nil)
	assert.NoError(err)

	p := &gpc.Problem{
		H: mat.NewSymDense(2, []float64{4, 0, 0, 1}),
		Q: mat.NewVecDense(2, []float64{-4, 3}),
	}

	sol, err := s.Solve(context.Background(), p)
	assert.NoError(err)
	assert.Equal(gpc.Optimal, sol.Status)
	assert.InDeltaSlice([]float64{1, -3}, sol.X.RawVector().Data, 1e-12)
}

func TestSolveStatus(t *testing.T) {
	assert := assert.New(t)

	s, err := New(nil)
	assert.NoError(err)

	// lower bound above upper bound
	p := boxProblem([]float64{2, 0, 0, 2}, []float64{0, 0}, []float64{1, 0}, []float64{-1, 1})
	sol, err := s.Solve(context.Background(), p)
	assert.NoError(err)
	assert.Equal(gpc.Infeasible, sol.Status)

	// indefinite Hessian
	p = boxProblem([]float64{1, 0, 0, -1}, []float64{0, 0}, []float64{-1, -1}, []float64{1, 1})
	sol, err = s.Solve(context.Background(), p)
	assert.NoError(err)
	assert.Equal(gpc.NumericalFailure, sol.Status)
}

func TestSolveErrors(t *testing.T) {
	assert := assert.New(t)

	s, err := New(nil)
	assert.NoError(err)

	// general linear constraint x0 + x1 ≤ 1
	p := &gpc.Problem{
		H: mat.NewSymDense(2, []float64{2, 0, 0, 2}),
		Q: mat.NewVecDense(2, []float64{-2, -2}),
		A: mat.NewDense(1, 2, []float64{1, 1}),
		B: mat.NewVecDense(1, []float64{1}),
	}
	sol, err := s.Solve(context.Background(), p)
	assert.Nil(sol)
	assert.True(errors.Is(err, gpc.ErrDimension))

	p = &gpc.Problem{
		H: mat.NewSymDense(2, []float64{2, 0, 0, 2}),
		Q: mat.NewVecDense(3, nil),
	}
	sol, err = s.Solve(context.Background(), p)
	assert.Nil(sol)
	assert.True(errors.Is(err, gpc.ErrDimension))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p = boxProblem([]float64{2, 0, 0, 2}, []float64{-2, 4}, []float64{-1, -1}, []float64{1, 1})
	sol, err = s.Solve(ctx, p)
	assert.Nil(sol)
	assert.True(errors.Is(err, context.Canceled))
}

func TestBounds(t *testing.T) {
	assert := assert.New(t)

	A := mat.NewDense(3, 2, []float64{
		2, 0,
		0, -1,
		0, 4,
	})
	b := mat.NewVecDense(3, []float64{1, 2, 8})

	lo, hi, err := Bounds(A, b, 2)
	assert.NoError(err)
	assert.Equal([]float64{math.Inf(-1), -2}, lo)
	assert.Equal([]float64{0.5, 2}, hi)

	lo, hi, err = Bounds(nil, nil, 2)
	assert.NoError(err)
	assert.True(math.IsInf(lo[1], -1))
	assert.True(math.IsInf(hi[0], 1))

	_, _, err = Bounds(mat.NewDense(1, 2, []float64{1, 1}), mat.NewVecDense(1, []float64{1}), 2)
	assert.True(errors.Is(err, gpc.ErrDimension))

	_, _, err = Bounds(mat.NewDense(1, 2, nil), mat.NewVecDense(1, []float64{-1}), 2)
	assert.True(errors.Is(err, gpc.ErrDimension))
}
