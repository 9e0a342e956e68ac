package sim

import (
	"fmt"

	gpc "github.com/milosgajdos/go-gpc"
	"gonum.org/v1/gonum/mat"
)

// Plant is a state space realization of a multivariable polynomial model.
// Every output-input pair is realized separately in observable canonical form
// and pair states are stacked output-major, so outputs of every sub-model can
// be read directly off the state.
type Plant struct {
	*Discrete
	// offsets[out][in] is the index of the first state of the given pair
	offsets [][]int
}

// Realize returns state space realization of polynomial model p.
// Pair (i, j) with denominator [1, a1, ..., an] and numerator [b0, ..., bk] is realized as
//
//	x[n+1] = [-a | I; 0]*x[n] + [b0, ..., bk]'*u_j[n]
//	y_ij[n] = x_1[n]
//
// padded to order max(n, k+1). Output i is the sum of its pair outputs.
// It returns error if model dimensions are invalid or any denominator is not monic.
func Realize(p gpc.Polynomials) (*Plant, error) {
	nu, ny := p.Dims()
	if nu < 1 || ny < 1 {
		return nil, fmt.Errorf("%w: invalid model dimensions: [%d x %d]", gpc.ErrConfiguration, ny, nu)
	}

	offsets := make([][]int, ny)
	orders := make([][]int, ny)
	nx := 0
	for i := 0; i < ny; i++ {
		offsets[i] = make([]int, nu)
		orders[i] = make([]int, nu)
		for j := 0; j < nu; j++ {
			a, b := p.Denominator(i, j), p.Numerator(i, j)
			if len(a) == 0 || a[0] != 1 || len(b) == 0 {
				return nil, fmt.Errorf("%w: invalid polynomials of pair [%d, %d]", gpc.ErrConfiguration, i, j)
			}
			n := len(a) - 1
			if len(b) > n {
				n = len(b)
			}
			offsets[i][j], orders[i][j] = nx, n
			nx += n
		}
	}

	A := mat.NewDense(nx, nx, nil)
	B := mat.NewDense(nx, nu, nil)
	C := mat.NewDense(ny, nx, nil)

	for i := 0; i < ny; i++ {
		for j := 0; j < nu; j++ {
			a, b := p.Denominator(i, j), p.Numerator(i, j)
			o, n := offsets[i][j], orders[i][j]
			for r := 0; r < n; r++ {
				if r+1 < len(a) {
					A.Set(o+r, o, -a[r+1])
				}
				if r+1 < n {
					A.Set(o+r, o+r+1, 1)
				}
				if r < len(b) {
					B.Set(o+r, j, b[r])
				}
			}
			C.Set(i, o, 1)
		}
	}

	d, err := NewDiscrete(A, B, C, nil)
	if err != nil {
		return nil, err
	}

	return &Plant{
		Discrete: d,
		offsets:  offsets,
	}, nil
}

// PairOutputs returns outputs of every output-input sub-model for state x: y[out][in].
// It returns error if x has invalid length.
func (p *Plant) PairOutputs(x mat.Vector) ([][]float64, error) {
	nx, _, _, _ := p.SystemDims()
	if x.Len() != nx {
		return nil, fmt.Errorf("%w: invalid state vector length: %d", gpc.ErrDimension, x.Len())
	}

	y := make([][]float64, len(p.offsets))
	for i, row := range p.offsets {
		y[i] = make([]float64, len(row))
		for j, o := range row {
			y[i][j] = x.AtVec(o)
		}
	}

	return y, nil
}

// States returns the number of plant states
func (p *Plant) States() int {
	nx, _, _, _ := p.SystemDims()
	return nx
}
