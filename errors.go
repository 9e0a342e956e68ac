package gpc

import "errors"

var (
	// ErrConfiguration is returned when controller tuning or model is invalid
	ErrConfiguration = errors.New("gpc: invalid configuration")
	// ErrIllConditioned is returned when the QP Hessian is not positive definite
	ErrIllConditioned = errors.New("gpc: ill-conditioned problem")
	// ErrDimension is returned when per-cycle data has wrong dimensions
	ErrDimension = errors.New("gpc: dimension mismatch")
	// ErrInfeasible is returned when the solver reports infeasible constraints
	ErrInfeasible = errors.New("gpc: infeasible problem")
	// ErrNumericalFailure is returned when the solver fails to converge
	ErrNumericalFailure = errors.New("gpc: numerical failure")
	// ErrTimeout is returned when control computation is cancelled
	ErrTimeout = errors.New("gpc: control computation timed out")
)
