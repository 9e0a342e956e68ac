package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestToeplitz(t *testing.T) {
	assert := assert.New(t)

	g := []float64{1.0, 2.0, 3.0}
	exp := mat.NewDense(4, 2, []float64{
		1.0, 0.0,
		2.0, 1.0,
		3.0, 2.0,
		3.0, 3.0,
	})

	res := Toeplitz(g, 4, 2)
	assert.True(mat.Equal(exp, res))

	// wide matrix keeps zeros above diagonal
	res = Toeplitz(g, 2, 3)
	assert.Equal(0.0, res.At(0, 1))
	assert.Equal(0.0, res.At(1, 2))
	assert.Equal(1.0, res.At(1, 1))

	assert.Panics(func() { Toeplitz(nil, 2, 2) })
}

func TestBlocks(t *testing.T) {
	assert := assert.New(t)

	a := mat.NewDense(2, 1, []float64{1, 2})
	b := mat.NewDense(2, 2, []float64{3, 4, 5, 6})
	c := mat.NewDense(1, 1, []float64{7})
	d := mat.NewDense(1, 2, []float64{8, 9})

	res, err := Blocks([][]mat.Matrix{{a, b}, {c, d}})
	assert.NoError(err)
	exp := mat.NewDense(3, 3, []float64{
		1, 3, 4,
		2, 5, 6,
		7, 8, 9,
	})
	assert.True(mat.Equal(exp, res))

	// mismatched block heights
	res, err = Blocks([][]mat.Matrix{{a, c}})
	assert.Nil(res)
	assert.Error(err)

	// ragged layout
	res, err = Blocks([][]mat.Matrix{{a, b}, {c}})
	assert.Nil(res)
	assert.Error(err)

	res, err = Blocks(nil)
	assert.Nil(res)
	assert.Error(err)
}

func TestExpandDiag(t *testing.T) {
	assert := assert.New(t)

	d := ExpandDiag([]float64{1.0, 0.5}, 3)
	assert.Equal(6, d.Diag())
	assert.Equal([]float64{1.0, 1.0, 1.0, 0.5, 0.5, 0.5}, DiagValues(d))
}

func TestSymmetric(t *testing.T) {
	assert := assert.New(t)

	m := mat.NewDense(2, 2, []float64{2.0, 1.0, 1.0 + 1e-12, 3.0})
	assert.True(IsSymmetric(m, 1e-9))

	m.Set(0, 1, 5.0)
	assert.False(IsSymmetric(m, 1e-9))
	assert.False(IsSymmetric(mat.NewDense(2, 3, nil), 1e-9))

	s := Symmetrize(m)
	assert.InDelta(3.0, s.At(0, 1), 1e-9)
	assert.InDelta(3.0, s.At(1, 0), 1e-9)
	assert.Panics(func() { Symmetrize(mat.NewDense(2, 3, nil)) })

	assert.True(IsPosDef(mat.NewSymDense(2, []float64{2, 1, 1, 2})))
	assert.False(IsPosDef(mat.NewSymDense(2, []float64{1, 2, 2, 1})))
}

func TestConvolve(t *testing.T) {
	assert := assert.New(t)

	// (1 - 0.5z⁻¹)(1 - z⁻¹)
	res := Convolve([]float64{1.0, -0.5}, []float64{1.0, -1.0})
	assert.InDeltaSlice([]float64{1.0, -1.5, 0.5}, res, 1e-12)

	assert.Nil(Convolve(nil, []float64{1.0}))
}
