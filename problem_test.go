package gpc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestProblemValidate(t *testing.T) {
	assert := assert.New(t)

	H := mat.NewSymDense(2, []float64{2, 0, 0, 2})
	q := mat.NewVecDense(2, []float64{-2, -4})
	A := mat.NewDense(4, 2, []float64{1, 0, 0, 1, -1, 0, 0, -1})
	b := mat.NewVecDense(4, []float64{1, 1, 1, 1})

	p := &Problem{H: H, Q: q, A: A, B: b}
	assert.NoError(p.Validate())

	n, k := p.Dims()
	assert.Equal(2, n)
	assert.Equal(4, k)

	for _, bad := range []*Problem{
		{Q: q, A: A, B: b},
		{H: H, Q: mat.NewVecDense(3, nil), A: A, B: b},
		{H: H, Q: q, A: mat.NewDense(4, 3, nil), B: b},
		{H: H, Q: q, A: A, B: mat.NewVecDense(2, nil)},
		{H: H, Q: q, B: b},
	} {
		err := bad.Validate()
		assert.Error(err)
		assert.True(errors.Is(err, ErrDimension))
	}

	// unconstrained problem
	p = &Problem{H: H, Q: q}
	assert.NoError(p.Validate())
	assert.True(p.Feasible(mat.NewVecDense(2, []float64{100, 100}), 0))
}

func TestProblemObjective(t *testing.T) {
	assert := assert.New(t)

	H := mat.NewSymDense(2, []float64{2, 0, 0, 2})
	q := mat.NewVecDense(2, []float64{-2, -4})
	A := mat.NewDense(4, 2, []float64{1, 0, 0, 1, -1, 0, 0, -1})
	b := mat.NewVecDense(4, []float64{1, 1, 1, 1})
	p := &Problem{H: H, Q: q, A: A, B: b}

	// ½xᵀHx + qᵀx = x1² + x2² - 2x1 - 4x2
	x := mat.NewVecDense(2, []float64{1, 1})
	assert.InDelta(-4.0, p.Objective(x), 1e-12)
	assert.InDelta(0.0, p.Objective(mat.NewVecDense(2, nil)), 1e-12)

	assert.True(p.Feasible(x, 0))
	assert.False(p.Feasible(mat.NewVecDense(2, []float64{1, 2}), 1e-9))
	assert.True(p.Feasible(mat.NewVecDense(2, []float64{1, 1 + 1e-12}), 1e-9))
}

func TestStatusString(t *testing.T) {
	assert := assert.New(t)

	for s, str := range map[Status]string{
		Unknown:          "unknown",
		Optimal:          "optimal",
		Infeasible:       "infeasible",
		NumericalFailure: "numerical failure",
	} {
		assert.Equal(str, s.String())
	}
}
