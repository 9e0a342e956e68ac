package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	gpc "github.com/milosgajdos/go-gpc"
	"github.com/milosgajdos/go-gpc/controller"
	"github.com/milosgajdos/go-gpc/estimate"
	"github.com/milosgajdos/go-gpc/noise"
	"github.com/milosgajdos/go-gpc/predict"
	"github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// DefaultProcessCov is the default process noise variance of the output estimator
const DefaultProcessCov = 1e-6

// LoopConfig configures closed loop simulation
type LoopConfig struct {
	// Noise is measurement noise added to plant outputs. Nil means no noise.
	Noise noise.Noise
	// Estimate enables Kalman filter estimation of sub-model outputs from measurements.
	// It requires measurement noise with positive definite covariance.
	Estimate bool
	// ProcessCov is process noise variance of every estimator state.
	// Zero means DefaultProcessCov.
	ProcessCov float64
}

// Result is closed loop simulation result.
// All series are indexed by channel first and control cycle second.
type Result struct {
	// SamplePeriod is controller sample period
	SamplePeriod time.Duration
	// Reference contains target value of every output
	Reference []float64
	// Outputs contains plant outputs at the start of every cycle
	Outputs [][]float64
	// Measured contains measured plant outputs
	Measured [][]float64
	// Inputs contains plant inputs applied in every cycle
	Inputs [][]float64
	// Increments contains input increments applied in every cycle
	Increments [][]float64
	// Status contains QP solver outcome of every cycle
	Status []gpc.Status
	// Failures is the number of cycles in which the controller failed to compute increments
	Failures int
}

// Steps returns the number of simulated cycles
func (r *Result) Steps() int {
	return len(r.Status)
}

// Loop is a closed control loop of a predictive controller and a plant
type Loop struct {
	// c is the controller
	c *controller.Controller
	// poly is the controller model
	poly gpc.Polynomials
	// model is state space realization of the controller model
	model *Plant
	// plant is the controlled plant
	plant estimate.System
	// noise is measurement noise
	noise noise.Noise
	// estimate enables the estimator
	estimate bool
	// processCov is estimator process noise variance
	processCov float64
}

// NewLoop creates new closed loop of controller c and plant and returns it.
// model is the polynomial model c was built for; its state space realization runs
// alongside the plant and provides outputs of every sub-model to the predictor.
// If cfg is nil the loop runs without noise and estimator.
// It returns error if the plant, model and controller dimensions do not match
// or if the estimator is requested without measurement noise.
func NewLoop(c *controller.Controller, model gpc.Polynomials, plant estimate.System, cfg *LoopConfig) (*Loop, error) {
	if c == nil || model == nil || plant == nil {
		return nil, fmt.Errorf("%w: missing loop component", gpc.ErrConfiguration)
	}

	if cfg == nil {
		cfg = &LoopConfig{}
	}

	nu, ny := c.Dims()
	if mnu, mny := model.Dims(); mnu != nu || mny != ny {
		return nil, fmt.Errorf("%w: invalid model dimensions: [%d x %d]", gpc.ErrDimension, mny, mnu)
	}

	if _, pnu, pny, _ := plant.SystemDims(); pnu != nu || pny != ny {
		return nil, fmt.Errorf("%w: invalid plant dimensions: [%d x %d]", gpc.ErrDimension, pny, pnu)
	}

	m, err := Realize(model)
	if err != nil {
		return nil, err
	}

	n := cfg.Noise
	if n == nil {
		n = noise.NewNone()
	}

	if dim := n.Cov().SymmetricDim(); dim != 0 && dim != ny {
		return nil, fmt.Errorf("%w: invalid measurement noise dimension: %d", gpc.ErrDimension, dim)
	}

	l := &Loop{
		c:          c,
		poly:       model,
		model:      m,
		plant:      plant,
		noise:      n,
		estimate:   cfg.Estimate,
		processCov: cfg.ProcessCov,
	}

	if l.estimate {
		if _, err := l.newEstimator(); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// newEstimator creates Kalman filter of the model realization driven by the loop measurement noise
func (l *Loop) newEstimator() (*estimate.KF, error) {
	if l.noise.Cov().SymmetricDim() == 0 {
		return nil, fmt.Errorf("%w: estimator requires measurement noise", gpc.ErrConfiguration)
	}

	processCov := l.processCov
	if processCov < 0 {
		return nil, fmt.Errorf("%w: invalid process covariance: %f", gpc.ErrConfiguration, processCov)
	}

	if processCov == 0 {
		processCov = DefaultProcessCov
	}

	nx := l.model.States()
	eye, err := matrix.NewDenseValIdentity(nx, processCov)
	if err != nil {
		return nil, err
	}

	cov := mat.NewSymDense(nx, eye.RawMatrix().Data)
	q, err := noise.NewGaussian(make([]float64, nx), cov, 0)
	if err != nil {
		return nil, err
	}

	init := estimate.NewInitCond(mat.NewVecDense(nx, nil), cov)

	return estimate.NewKF(l.model, init, q, l.noise)
}

// Estimating returns true if the loop estimates sub-model outputs from measurements
func (l *Loop) Estimating() bool {
	return l.estimate
}

// Run simulates steps control cycles of the loop starting at rest with constant targets of every output.
// Every cycle it measures the plant, updates the process history, computes control increments and
// propagates the plant with the updated inputs. If the controller reports infeasible problem or
// numerical failure the inputs are held for the cycle and the failure is recorded.
// It returns error if the targets do not match the plant outputs, if a cycle fails for any other reason
// or if ctx is done. Result of the cycles simulated so far is returned with ctx errors.
func (l *Loop) Run(ctx context.Context, targets []float64, steps int) (*Result, error) {
	nu, ny := l.c.Dims()
	if len(targets) != ny {
		return nil, fmt.Errorf("%w: invalid targets length: %d", gpc.ErrDimension, len(targets))
	}

	if steps < 1 {
		return nil, fmt.Errorf("%w: invalid number of steps: %d", gpc.ErrConfiguration, steps)
	}

	if err := l.noise.Reset(); err != nil {
		return nil, err
	}

	var kf *estimate.KF
	if l.estimate {
		var err error
		if kf, err = l.newEstimator(); err != nil {
			return nil, err
		}
	}

	p, _ := l.c.Horizons()
	w := controller.Reference(targets, p)
	h := predict.NewHistory(l.poly)

	res := newResult(l.c.Config().SamplePeriod, targets, nu, ny, steps)

	nx, _, _, _ := l.plant.SystemDims()
	var xp mat.Vector = mat.NewVecDense(nx, nil)
	var xm mat.Vector = mat.NewVecDense(l.model.States(), nil)
	u := mat.NewVecDense(nu, nil)
	du := make([]float64, nu)

	for k := 0; k < steps; k++ {
		y, err := l.plant.Observe(xp, u, nil)
		if err != nil {
			return nil, err
		}

		meas, err := l.plant.Observe(xp, u, l.noise.Sample())
		if err != nil {
			return nil, err
		}

		if kf != nil {
			est, err := kf.Update(xm, u, meas)
			if err != nil {
				return nil, fmt.Errorf("cycle %d: estimator update failed: %w", k, err)
			}
			xm = est.Val()
		}

		pairs, err := l.model.PairOutputs(xm)
		if err != nil {
			return nil, err
		}

		// du holds increments applied in the previous cycle
		if err := h.Push(du, pairs); err != nil {
			return nil, err
		}

		status := gpc.Unknown
		ctrl, err := l.c.Compute(ctx, w, h)
		switch {
		case err == nil:
			copy(du, ctrl.Applied)
			status = ctrl.Status
		case errors.Is(err, gpc.ErrInfeasible), errors.Is(err, gpc.ErrNumericalFailure):
			for j := range du {
				du[j] = 0
			}
			status = ctrl.Status
			res.Failures++
		case errors.Is(err, gpc.ErrTimeout):
			res.truncate(k)
			return res, err
		default:
			return nil, fmt.Errorf("cycle %d: %w", k, err)
		}

		for j := range du {
			u.SetVec(j, u.AtVec(j)+du[j])
		}

		res.record(k, y, meas, u, du, status)

		if xp, err = l.plant.Propagate(xp, u, nil); err != nil {
			return nil, err
		}

		if kf != nil {
			est, err := kf.Predict(xm, u)
			if err != nil {
				return nil, fmt.Errorf("cycle %d: estimator prediction failed: %w", k, err)
			}
			xm = est.Val()
			continue
		}

		if xm, err = l.model.Propagate(xm, u, nil); err != nil {
			return nil, err
		}
	}

	return res, nil
}

func newResult(ts time.Duration, targets []float64, nu, ny, steps int) *Result {
	series := func(n int) [][]float64 {
		s := make([][]float64, n)
		for i := range s {
			s[i] = make([]float64, steps)
		}
		return s
	}

	return &Result{
		SamplePeriod: ts,
		Reference:    append([]float64(nil), targets...),
		Outputs:      series(ny),
		Measured:     series(ny),
		Inputs:       series(nu),
		Increments:   series(nu),
		Status:       make([]gpc.Status, steps),
	}
}

func (r *Result) record(k int, y, meas, u mat.Vector, du []float64, status gpc.Status) {
	for i := range r.Outputs {
		r.Outputs[i][k] = y.AtVec(i)
		r.Measured[i][k] = meas.AtVec(i)
	}

	for j := range r.Inputs {
		r.Inputs[j][k] = u.AtVec(j)
		r.Increments[j][k] = du[j]
	}

	r.Status[k] = status
}

// truncate drops every cycle from k on
func (r *Result) truncate(k int) {
	for _, s := range [][][]float64{r.Outputs, r.Measured, r.Inputs, r.Increments} {
		for i := range s {
			s[i] = s[i][:k]
		}
	}
	r.Status = r.Status[:k]
}
