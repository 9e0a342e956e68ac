package gpc

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// StepResponder provides step response samples of a multivariable process
type StepResponder interface {
	// Dims returns the number of process inputs and outputs
	Dims() (nu int, ny int)
	// StepResponse returns n samples of the response of output out to a unit step on input in.
	// Sample k is the output value k+1 sample periods after the step.
	StepResponse(out, in, n int) ([]float64, error)
}

// Polynomials provides CARIMA difference equation coefficients of a multivariable process.
// Each input-output pair is modelled as A(z⁻¹)y(k) = B(z⁻¹)u(k-1).
type Polynomials interface {
	// Dims returns the number of process inputs and outputs
	Dims() (nu int, ny int)
	// Denominator returns A coefficients [1, a1, ..., an] of the given pair
	Denominator(out, in int) []float64
	// Numerator returns B coefficients [b0, b1, ...] of the given pair
	Numerator(out, in int) []float64
}

// Model is a process model used by the predictive controller
type Model interface {
	StepResponder
	Polynomials
}

// Solver solves quadratic programs
//
//	min ½xᵀHx + qᵀx subject to Ax ≤ b
//
// Implementations report non-optimal outcomes via Solution.Status and
// return error only when the problem is malformed or ctx is done.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (*Solution, error)
}

// Status is QP solver outcome
type Status int

const (
	// Unknown means the solver has not produced a result
	Unknown Status = iota
	// Optimal means the solver found the optimum
	Optimal
	// Infeasible means the constraints can not be satisfied
	Infeasible
	// NumericalFailure means the solver failed to converge
	NumericalFailure
)

// String implements the Stringer interface.
func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case NumericalFailure:
		return "numerical failure"
	default:
		return "unknown"
	}
}

// Solution is QP solver result
type Solution struct {
	// X is the minimizer
	X *mat.VecDense
	// Status is solver outcome
	Status Status
	// Objective is the objective value at X
	Objective float64
	// Iterations is the number of solver iterations
	Iterations int
}
