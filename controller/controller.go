// Package controller implements multivariable generalized predictive control law.
//
// Every control cycle the controller predicts the free response of the process from
// its past outputs and increments, builds the tracking QP over the prediction horizon
// and solves it for the control increments. Only the first increment of each input
// is applied; the rest is discarded and recomputed in the next cycle.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gpc "github.com/milosgajdos/go-gpc"
	"github.com/milosgajdos/go-gpc/dynmat"
	"github.com/milosgajdos/go-gpc/predict"
	"github.com/milosgajdos/go-gpc/qp"
	"github.com/milosgajdos/go-gpc/solver/box"
	"gonum.org/v1/gonum/mat"
)

// Control is control law output
type Control struct {
	// Applied contains increments to apply to each process input in this cycle
	Applied []float64
	// Increments contains increments of every input over control horizon, input-major
	Increments *mat.VecDense
	// Objective is QP objective value at the solution
	Objective float64
	// Status is QP solver outcome
	Status gpc.Status
	// Iterations is the number of solver iterations
	Iterations int
	// Free is predicted free response, output-major
	Free *mat.VecDense
}

// Controller is multivariable GPC controller
type Controller struct {
	// mu serializes Compute calls
	mu sync.Mutex
	// c is controller config
	c *Config
	// g is dynamic matrix
	g *mat.Dense
	// pred predicts free response
	pred *predict.Predictor
	// asm assembles QP problems
	asm *qp.Assembler
	// solver solves QP problems
	solver gpc.Solver
	// nu and ny are process input and output counts
	nu, ny int
}

// New creates new controller for model m with config c and returns it.
// If s is nil the controller uses box constrained active-set solver with default configuration.
// It returns error if c is invalid for m, or if the dynamic matrix, the predictor
// or the QP assembler can not be built from it.
func New(m gpc.Model, c *Config, s gpc.Solver) (*Controller, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: missing config", gpc.ErrConfiguration)
	}

	nu, ny := m.Dims()
	if err := c.Validate(nu, ny); err != nil {
		return nil, err
	}

	G, err := dynmat.New(m, c.P, c.M)
	if err != nil {
		return nil, err
	}

	pred, err := predict.New(m, c.P, &predict.Config{ApplySteps: c.ApplySteps})
	if err != nil {
		return nil, err
	}

	asm, err := qp.New(G, c.Q, c.R, c.DuMin, c.DuMax, c.M)
	if err != nil {
		return nil, err
	}

	if s == nil {
		if s, err = box.New(nil); err != nil {
			return nil, err
		}
	}

	return &Controller{
		c:      c.Copy(),
		g:      G,
		pred:   pred,
		asm:    asm,
		solver: s,
		nu:     nu,
		ny:     ny,
	}, nil
}

// Compute computes control increments which drive the process outputs towards
// reference trajectory w given the process history h.
// w is output-major and has P elements per output: see Reference.
// It returns error if w or h have invalid dimensions, if ctx is done before the
// QP is solved, or if the QP solver fails to find the optimum. Failed solves
// return non-nil Control with the solver status and no increments.
func (c *Controller) Compute(ctx context.Context, w mat.Vector, h *predict.History) (*Control, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.pred.Predict(h)
	if err != nil {
		return nil, err
	}

	prob, err := c.asm.Assemble(f, w)
	if err != nil {
		return nil, err
	}

	sol, err := c.solver.Solve(ctx, prob)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, fmt.Errorf("%w: %w", gpc.ErrTimeout, ctxErr)
		}
		return nil, err
	}

	switch sol.Status {
	case gpc.Optimal:
	case gpc.Infeasible:
		return &Control{Status: sol.Status, Iterations: sol.Iterations, Free: f}, gpc.ErrInfeasible
	default:
		return &Control{Status: sol.Status, Iterations: sol.Iterations, Free: f},
			fmt.Errorf("%w: solver status: %s", gpc.ErrNumericalFailure, sol.Status)
	}

	applied := make([]float64, c.nu)
	for j := range applied {
		applied[j] = sol.X.AtVec(j * c.c.M)
	}

	return &Control{
		Applied:    applied,
		Increments: sol.X,
		Objective:  sol.Objective,
		Status:     sol.Status,
		Iterations: sol.Iterations,
		Free:       f,
	}, nil
}

// DynamicMatrix returns a copy of controller dynamic matrix
func (c *Controller) DynamicMatrix() *mat.Dense {
	return mat.DenseCopyOf(c.g)
}

// Horizons returns prediction and control horizons
func (c *Controller) Horizons() (p, m int) {
	return c.c.P, c.c.M
}

// Dims returns the number of process inputs and outputs
func (c *Controller) Dims() (nu, ny int) {
	return c.nu, c.ny
}

// Config returns a copy of controller config
func (c *Controller) Config() *Config {
	return c.c.Copy()
}

// Solver returns QP solver
func (c *Controller) Solver() gpc.Solver {
	return c.solver
}

// Reference returns output-major reference trajectory which holds
// the target value of every output constant over prediction horizon p.
func Reference(values []float64, p int) *mat.VecDense {
	data := make([]float64, len(values)*p)
	for i, v := range values {
		for k := 0; k < p; k++ {
			data[i*p+k] = v
		}
	}

	return mat.NewVecDense(len(data), data)
}
