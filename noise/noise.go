// Package noise provides measurement and process noise sources used in closed-loop simulations.
package noise

import "gonum.org/v1/gonum/mat"

// Noise is a source of random vectors
type Noise interface {
	// Sample returns a noise sample
	Sample() mat.Vector
	// Cov returns noise covariance
	Cov() mat.Symmetric
	// Mean returns noise mean
	Mean() []float64
	// Reset restarts the noise sequence
	Reset() error
}
