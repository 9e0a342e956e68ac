package estimate

import (
	"fmt"

	gpc "github.com/milosgajdos/go-gpc"
	"github.com/milosgajdos/go-gpc/noise"
	"github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// KF is Kalman Filter
type KF struct {
	// m is KF system model
	m System
	// q is state noise a.k.a. process noise
	q noise.Noise
	// r is output noise a.k.a. measurement noise
	r noise.Noise
	// p is the KF covariance matrix
	p *mat.SymDense
	// pNext is the KF predicted covariance matrix
	pNext *mat.SymDense
	// inn is innovation vector
	inn *mat.VecDense
	// k is Kalman gain
	k *mat.Dense
}

// NewKF creates new KF and returns it.
// It accepts the following parameters:
//   - m:      dynamical system model
//   - init:   initial condition of the filter
//   - q:      process noise; nil means no process noise
//   - r:      measurement noise; nil means no measurement noise
//
// It returns error if either of the following conditions is met:
//   - invalid model is given: model dimensions must be positive integers
//   - initial condition does not match the model state dimension
//   - invalid state or output noise is given: noise covariance must either be nil or match the model dimensions
func NewKF(m System, init *InitCond, q, r noise.Noise) (*KF, error) {
	nx, _, ny, _ := m.SystemDims()
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("%w: invalid model dimensions: [%d x %d]", gpc.ErrDimension, nx, ny)
	}

	if init == nil || init.Cov().SymmetricDim() != nx || init.State().Len() != nx {
		return nil, fmt.Errorf("%w: invalid initial condition", gpc.ErrDimension)
	}

	if q != nil {
		if q.Cov().SymmetricDim() != nx {
			return nil, fmt.Errorf("%w: invalid state noise dimension: %d != %d", gpc.ErrDimension, q.Cov().SymmetricDim(), nx)
		}
	} else {
		q = noise.NewNone()
	}

	if r != nil {
		if r.Cov().SymmetricDim() != ny {
			return nil, fmt.Errorf("%w: invalid output noise dimension: %d != %d", gpc.ErrDimension, r.Cov().SymmetricDim(), ny)
		}
	} else {
		r = noise.NewNone()
	}

	rows, cols := m.SystemMatrix().Dims()
	if rows != nx || cols != nx {
		return nil, fmt.Errorf("%w: invalid propagation matrix dimensions: [%d x %d]", gpc.ErrDimension, rows, cols)
	}

	rows, cols = m.OutputMatrix().Dims()
	if rows != ny || cols != nx {
		return nil, fmt.Errorf("%w: invalid observation matrix dimensions: [%d x %d]", gpc.ErrDimension, rows, cols)
	}

	p := mat.NewSymDense(nx, nil)
	p.CopySym(init.Cov())

	return &KF{
		m:     m,
		q:     q,
		r:     r,
		p:     p,
		pNext: mat.NewSymDense(nx, nil),
		inn:   mat.NewVecDense(ny, nil),
		k:     mat.NewDense(nx, ny, nil),
	}, nil
}

// Predict propagates state x driven by input u to the next step and returns its estimate.
// It returns error if the state fails to be propagated.
func (k *KF) Predict(x, u mat.Vector) (*Base, error) {
	xNext, err := k.m.Propagate(x, u, nil)
	if err != nil {
		return nil, fmt.Errorf("system state propagation failed: %w", err)
	}

	// A*P*A' + Q
	cov := &mat.Dense{}
	cov.Mul(k.m.SystemMatrix(), k.p)
	cov.Mul(cov, k.m.SystemMatrix().T())

	if k.q.Cov().SymmetricDim() > 0 {
		cov.Add(cov, k.q.Cov())
	}

	n := k.pNext.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			k.pNext.SetSym(i, j, cov.At(i, j))
		}
	}

	return NewBaseWithCov(xNext, k.pNext)
}

// Update corrects predicted state x using measurement y given input u and returns corrected estimate.
// It returns error if the measurement has invalid dimensions or if the innovation covariance is singular.
func (k *KF) Update(x, u, y mat.Vector) (*Base, error) {
	nx, _, ny, _ := k.m.SystemDims()

	if y.Len() != ny {
		return nil, fmt.Errorf("%w: invalid measurement length: %d", gpc.ErrDimension, y.Len())
	}

	yHat, err := k.m.Observe(x, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to observe system output: %w", err)
	}

	C := k.m.OutputMatrix()

	// P*C'
	pxy := mat.NewDense(nx, ny, nil)
	pxy.Mul(k.pNext, C.T())

	// C*P*C' + R
	pyy := mat.NewDense(ny, ny, nil)
	pyy.Mul(C, pxy)
	if k.r.Cov().SymmetricDim() > 0 {
		pyy.Add(pyy, k.r.Cov())
	}

	pyyInv := &mat.Dense{}
	if err := pyyInv.Inverse(pyy); err != nil {
		return nil, fmt.Errorf("%w: innovation covariance: %w", gpc.ErrNumericalFailure, err)
	}

	gain := &mat.Dense{}
	gain.Mul(pxy, pyyInv)

	inn := mat.NewVecDense(ny, nil)
	inn.SubVec(y, yHat)

	xCorr := mat.NewVecDense(nx, nil)
	xCorr.MulVec(gain, inn)
	xCorr.AddVec(xCorr, x)

	// Joseph form: (I - K*C)*P*(I - K*C)' + K*R*K'
	eye, err := matrix.NewDenseValIdentity(nx, 1.0)
	if err != nil {
		return nil, err
	}

	a := &mat.Dense{}
	a.Mul(gain, C)
	a.Sub(eye, a)

	pCorr := &mat.Dense{}
	pCorr.Mul(a, k.pNext)
	pCorr.Mul(pCorr, a.T())

	if k.r.Cov().SymmetricDim() > 0 {
		kr := &mat.Dense{}
		kr.Mul(gain, k.r.Cov())
		krk := &mat.Dense{}
		krk.Mul(kr, gain.T())
		pCorr.Add(pCorr, krk)
	}

	k.inn.CopyVec(inn)
	k.k.Copy(gain)
	for i := 0; i < nx; i++ {
		for j := i; j < nx; j++ {
			k.p.SetSym(i, j, pCorr.At(i, j))
		}
	}

	return NewBaseWithCov(xCorr, k.p)
}

// Run runs one step of KF for given state x, input u and measurement y.
// It returns error if it either fails to propagate or correct state x.
func (k *KF) Run(x, u, y mat.Vector) (*Base, error) {
	pred, err := k.Predict(x, u)
	if err != nil {
		return nil, err
	}

	return k.Update(pred.Val(), u, y)
}

// Model returns KF model
func (k *KF) Model() System {
	return k.m
}

// StateNoise returns state noise
func (k *KF) StateNoise() noise.Noise {
	return k.q
}

// OutputNoise returns output noise
func (k *KF) OutputNoise() noise.Noise {
	return k.r
}

// Cov returns KF covariance
func (k *KF) Cov() mat.Symmetric {
	cov := mat.NewSymDense(k.p.SymmetricDim(), nil)
	cov.CopySym(k.p)

	return cov
}

// SetCov sets KF covariance matrix to cov.
// It returns error if either cov is nil or its dimensions are not the same as KF covariance dimensions.
func (k *KF) SetCov(cov mat.Symmetric) error {
	if cov == nil {
		return fmt.Errorf("%w: nil covariance matrix", gpc.ErrDimension)
	}

	if cov.SymmetricDim() != k.p.SymmetricDim() {
		return fmt.Errorf("%w: invalid covariance matrix dims: [%d x %d]", gpc.ErrDimension, cov.SymmetricDim(), cov.SymmetricDim())
	}

	k.p.CopySym(cov)

	return nil
}

// Gain returns Kalman gain
func (k *KF) Gain() mat.Matrix {
	gain := &mat.Dense{}
	gain.CloneFrom(k.k)

	return gain
}

// Innovation returns the innovation of the last update
func (k *KF) Innovation() mat.Vector {
	return mat.VecDenseCopyOf(k.inn)
}
