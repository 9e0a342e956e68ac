package model

import (
	"fmt"

	gpc "github.com/milosgajdos/go-gpc"
)

// CARIMA is a multivariable process model: every output-input pair is a difference equation
//
//	A(z⁻¹)y(k) = B(z⁻¹)u(k-1)
//
// with A = [1, a1, ..., an] and B = [b0, b1, ..., bm].
// Output i of the process is the sum of the outputs of its pairs.
type CARIMA struct {
	// a stores denominators: a[out][in]
	a [][][]float64
	// b stores numerators: b[out][in]
	b [][][]float64
	// nu is number of inputs
	nu int
	// ny is number of outputs
	ny int
}

// NewCARIMA creates new CARIMA model from denominators a[out][in] and numerators b[out][in] and returns it.
// It returns error if a and b have different shapes, any denominator is not monic or any numerator is empty.
func NewCARIMA(a, b [][][]float64) (*CARIMA, error) {
	ny := len(a)
	if ny == 0 || len(b) != ny {
		return nil, fmt.Errorf("%w: invalid polynomial outputs: %d, %d", gpc.ErrConfiguration, len(a), len(b))
	}

	nu := len(a[0])
	if nu == 0 {
		return nil, fmt.Errorf("%w: model has no inputs", gpc.ErrConfiguration)
	}

	ca := make([][][]float64, ny)
	cb := make([][][]float64, ny)

	for i := 0; i < ny; i++ {
		if len(a[i]) != nu || len(b[i]) != nu {
			return nil, fmt.Errorf("%w: invalid polynomial inputs of output %d: %d, %d", gpc.ErrConfiguration, i, len(a[i]), len(b[i]))
		}

		ca[i] = make([][]float64, nu)
		cb[i] = make([][]float64, nu)
		for j := 0; j < nu; j++ {
			if len(a[i][j]) == 0 || a[i][j][0] != 1 {
				return nil, fmt.Errorf("%w: denominator [%d, %d] is not monic: %v", gpc.ErrConfiguration, i, j, a[i][j])
			}
			if len(b[i][j]) == 0 {
				return nil, fmt.Errorf("%w: empty numerator [%d, %d]", gpc.ErrConfiguration, i, j)
			}
			ca[i][j] = append([]float64(nil), a[i][j]...)
			cb[i][j] = append([]float64(nil), b[i][j]...)
		}
	}

	return &CARIMA{
		a:  ca,
		b:  cb,
		nu: nu,
		ny: ny,
	}, nil
}

// Dims returns the number of inputs and outputs
func (c *CARIMA) Dims() (nu, ny int) {
	return c.nu, c.ny
}

// Denominator returns a copy of A polynomial of the given pair
func (c *CARIMA) Denominator(out, in int) []float64 {
	return append([]float64(nil), c.a[out][in]...)
}

// Numerator returns a copy of B polynomial of the given pair
func (c *CARIMA) Numerator(out, in int) []float64 {
	return append([]float64(nil), c.b[out][in]...)
}

// StepResponse returns n samples of the response of output out to unit step on input in.
// It recurses the pair difference equation from rest.
// It returns error if n is non-positive or the pair does not exist.
func (c *CARIMA) StepResponse(out, in, n int) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("invalid step response length: %d", n)
	}

	if out < 0 || out >= c.ny || in < 0 || in >= c.nu {
		return nil, fmt.Errorf("invalid pair: [%d, %d]", out, in)
	}

	a, b := c.a[out][in], c.b[out][in]

	// y[k] is output k samples after the step; y[0] = 0
	y := make([]float64, n+1)
	for k := 1; k <= n; k++ {
		var v float64
		for l := 1; l < len(a) && k-l >= 0; l++ {
			v -= a[l] * y[k-l]
		}
		// unit step: u(k-1-l) = 1 for k-1-l >= 0
		for l := 0; l < len(b) && k-1-l >= 0; l++ {
			v += b[l]
		}
		y[k] = v
	}

	return y[1:], nil
}
