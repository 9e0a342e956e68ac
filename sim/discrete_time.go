package sim

import (
	"fmt"

	gpc "github.com/milosgajdos/go-gpc"
	"gonum.org/v1/gonum/mat"
)

// Discrete is a basic model of a linear, discrete-time, dynamical system
type Discrete struct {
	System
}

// NewDiscrete creates a linear discrete-time model based on the control theory equations.
//
//	x[n+1] = A*x[n] + B*u[n] + wd[n]
//	y[n]   = C*x[n] + D*u[n] + wn[n]
//
// It returns error if A is missing or not square, or if B, C or D dimensions do not match it.
func NewDiscrete(A, B, C, D *mat.Dense) (*Discrete, error) {
	if err := checkDims(A, B, C, D); err != nil {
		return nil, err
	}

	return &Discrete{System: System{A: A, B: B, C: C, D: D}}, nil
}

// Propagate returns the next internal state x of a linear, discrete-time system
// given an input vector u and process noise wd. Nil or empty wd means no noise.
func (d *Discrete) Propagate(x, u, wd mat.Vector) (mat.Vector, error) {
	nx, nu, _, _ := d.SystemDims()
	if u != nil && u.Len() != nu {
		return nil, fmt.Errorf("%w: invalid input vector length: %d", gpc.ErrDimension, u.Len())
	}

	if x.Len() != nx {
		return nil, fmt.Errorf("%w: invalid state vector length: %d", gpc.ErrDimension, x.Len())
	}

	out := mat.NewVecDense(nx, nil)
	out.MulVec(d.A, x)

	if u != nil && d.B != nil {
		outU := mat.NewVecDense(nx, nil)
		outU.MulVec(d.B, u)
		out.AddVec(out, outU)
	}

	if wd != nil && wd.Len() > 0 {
		if wd.Len() != nx {
			return nil, fmt.Errorf("%w: invalid state noise length: %d", gpc.ErrDimension, wd.Len())
		}
		out.AddVec(out, wd)
	}

	return out, nil
}

// Dims returns the number of system inputs and outputs
func (d *Discrete) Dims() (nu, ny int) {
	_, nu, ny, _ = d.SystemDims()
	return nu, ny
}

// StepResponse returns n samples of output out when a unit step is applied
// to input in of the system at rest. Sample k is the output k+1 steps after the step.
// It returns error if n is not positive or out or in are out of range.
func (d *Discrete) StepResponse(out, in, n int) ([]float64, error) {
	nx, nu, ny, _ := d.SystemDims()
	if n < 1 || out < 0 || out >= ny || in < 0 || in >= nu {
		return nil, fmt.Errorf("%w: invalid step response request: out=%d in=%d n=%d", gpc.ErrConfiguration, out, in, n)
	}

	u := mat.NewVecDense(nu, nil)
	u.SetVec(in, 1)

	var x mat.Vector = mat.NewVecDense(nx, nil)
	g := make([]float64, n)
	for k := 0; k < n; k++ {
		var err error
		if x, err = d.Propagate(x, u, nil); err != nil {
			return nil, err
		}

		y, err := d.Observe(x, u, nil)
		if err != nil {
			return nil, err
		}
		g[k] = y.AtVec(out)
	}

	return g, nil
}
