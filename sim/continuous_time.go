package sim

import (
	"fmt"
	"time"

	gpc "github.com/milosgajdos/go-gpc"
	"github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// integrationSteps is the number of quadrature points used to discretize singular systems
const integrationSteps = 100

// Continuous is a basic model of a linear, continuous-time, dynamical system
type Continuous struct {
	System
}

// NewContinuous creates a linear continuous-time model based on the control theory equations
//
//	dx/dt = A*x + B*u
//	y     = C*x + D*u
//
// It returns error if A is missing or not square, or if B, C or D dimensions do not match it.
func NewContinuous(A, B, C, D *mat.Dense) (*Continuous, error) {
	if err := checkDims(A, B, C, D); err != nil {
		return nil, err
	}

	return &Continuous{System: newSystem(A, B, C, D)}, nil
}

// ToDiscrete creates a discrete-time model from a continuous time model
// assuming zero-order hold on inputs with sample period ts.
func (ct *Continuous) ToDiscrete(ts time.Duration) (*Discrete, error) {
	if ts <= 0 {
		return nil, fmt.Errorf("%w: invalid sample period: %v", gpc.ErrConfiguration, ts)
	}
	Ts := ts.Seconds()

	nx, _, _, _ := ct.SystemDims()
	dsys := newSystem(ct.A, ct.B, ct.C, ct.D)

	// Ad = exp(A*Ts)
	aTs := &mat.Dense{}
	aTs.Scale(Ts, ct.A)
	dsys.A.Exp(aTs)

	if ct.B == nil {
		return &Discrete{System: dsys}, nil
	}

	eye, err := matrix.NewDenseValIdentity(nx, 1.0)
	if err != nil {
		return nil, err
	}

	// Bd = (exp(A*Ts) - I)*inv(A)*B for non-singular A
	Aaux := mat.NewDense(nx, nx, nil)
	Aaux.Sub(dsys.A, eye)
	Ainv := mat.NewDense(nx, nx, nil)
	if err := Ainv.Inverse(ct.A); err == nil {
		Aaux.Mul(Aaux, Ainv)
		dsys.B.Mul(Aaux, ct.B)
		return &Discrete{System: dsys}, nil
	}

	// Bd = integrate(exp(A*t), 0, Ts)*B for singular A
	Asum := mat.NewDense(nx, nx, nil)
	at := mat.NewDense(nx, nx, nil)
	dt := Ts / float64(integrationSteps)
	for i := 0; i < integrationSteps; i++ {
		// midpoint rule
		at.Scale(dt*(float64(i)+0.5), ct.A)
		Aaux.Exp(at)
		Aaux.Scale(dt, Aaux)
		Asum.Add(Asum, Aaux)
	}
	dsys.B.Mul(Asum, ct.B)

	return &Discrete{System: dsys}, nil
}

// FirstOrderLag returns difference equation polynomials of the first order lag
//
//	G(s) = gain/(tau*s + 1) * exp(-delay*ts*s)
//
// sampled with period ts under zero-order hold. The transport delay is given in whole samples.
// A zero gain yields a pair with no coupling.
// It returns error if tau or ts are not positive or delay is negative.
func FirstOrderLag(gain, tau float64, delay int, ts time.Duration) (a, b []float64, err error) {
	if tau <= 0 || delay < 0 {
		return nil, nil, fmt.Errorf("%w: invalid lag: tau=%f delay=%d", gpc.ErrConfiguration, tau, delay)
	}

	ct, err := NewContinuous(
		mat.NewDense(1, 1, []float64{-1 / tau}),
		mat.NewDense(1, 1, []float64{gain / tau}),
		mat.NewDense(1, 1, []float64{1}),
		nil,
	)
	if err != nil {
		return nil, nil, err
	}

	d, err := ct.ToDiscrete(ts)
	if err != nil {
		return nil, nil, err
	}

	a = []float64{1, -d.A.At(0, 0)}
	b = make([]float64, delay+1)
	b[delay] = d.B.At(0, 0)

	return a, b, nil
}
