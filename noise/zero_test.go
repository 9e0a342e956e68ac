package noise

import (
	"errors"
	"testing"

	gpc "github.com/milosgajdos/go-gpc"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestZero(t *testing.T) {
	assert := assert.New(t)

	e, err := NewZero(2)
	assert.NotNil(e)
	assert.NoError(err)

	assert.Equal([]float64{0, 0}, e.Mean())
	assert.Equal(2, e.Cov().SymmetricDim())
	assert.True(mat.Equal(mat.NewSymDense(2, nil), e.Cov()))

	s := e.Sample()
	assert.Equal(2, s.Len())
	assert.Equal(0.0, mat.Norm(s, 2))
	assert.NoError(e.Reset())

	str := `Zero{
Mean=[0 0]
Cov=⎡0  0⎤
    ⎣0  0⎦
}`
	assert.Equal(str, e.String())

	for _, size := range []int{0, -10} {
		e, err := NewZero(size)
		assert.Nil(e)
		assert.True(errors.Is(err, gpc.ErrConfiguration))
	}
}
