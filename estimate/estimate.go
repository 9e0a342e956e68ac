// Package estimate estimates internal state of a linear discrete-time process from noisy output measurements.
//
// Closed-loop simulations use it to recover outputs of every output-input sub-model,
// which the free response predictor needs but which can not be measured directly.
package estimate

import (
	"gonum.org/v1/gonum/mat"
)

// System is a linear discrete-time system
//
//	x[n+1] = A*x[n] + B*u[n] + wd
//	y[n]   = C*x[n] + D*u[n] + wn
type System interface {
	// SystemDims returns state, input, output and disturbance dimensions
	SystemDims() (nx, nu, ny, nz int)
	// SystemMatrix returns state propagation matrix A
	SystemMatrix() mat.Matrix
	// ControlMatrix returns input matrix B
	ControlMatrix() mat.Matrix
	// OutputMatrix returns observation matrix C
	OutputMatrix() mat.Matrix
	// FeedForwardMatrix returns feedthrough matrix D
	FeedForwardMatrix() mat.Matrix
	// Propagate returns next state given state x, input u and process noise wd
	Propagate(x, u, wd mat.Vector) (mat.Vector, error)
	// Observe returns output given state x, input u and measurement noise wn
	Observe(x, u, wn mat.Vector) (mat.Vector, error)
}
