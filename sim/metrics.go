package sim

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// SettlingBand is the relative band around the target an output has to stay within to be settled
const SettlingBand = 0.02

// Metrics summarizes closed loop performance
type Metrics struct {
	// Overshoot is the peak excursion of every output past its target relative to the step size
	Overshoot []float64
	// IAE is integral of absolute tracking error of every output in output units times seconds
	IAE []float64
	// Settling is the first cycle after which every output stays within SettlingBand of its target.
	// It is -1 if the output never settles.
	Settling []int
	// Effort is the sum of squared increments of every input
	Effort []float64
}

// NewMetrics computes performance metrics of simulation result r
func NewMetrics(r *Result) *Metrics {
	ts := r.SamplePeriod.Seconds()

	m := &Metrics{
		Overshoot: make([]float64, len(r.Outputs)),
		IAE:       make([]float64, len(r.Outputs)),
		Settling:  make([]int, len(r.Outputs)),
		Effort:    make([]float64, len(r.Increments)),
	}

	for i, y := range r.Outputs {
		m.Settling[i] = -1
		if len(y) == 0 {
			continue
		}

		target := r.Reference[i]
		step := target - y[0]

		e := make([]float64, len(y))
		floats.AddConst(-target, floats.AddTo(e, e, y))
		m.IAE[i] = floats.Norm(e, 1) * ts

		if step == 0 {
			m.Settling[i] = settling(e, SettlingBand*math.Max(math.Abs(target), 1))
			continue
		}

		// past the target in the direction of the step
		floats.Scale(1/step, e)
		m.Overshoot[i] = math.Max(0, floats.Max(e))
		m.Settling[i] = settling(e, SettlingBand)
	}

	for j, du := range r.Increments {
		m.Effort[j] = floats.Dot(du, du)
	}

	return m
}

// settling returns the first index after which every element of e is within band
func settling(e []float64, band float64) int {
	k := len(e)
	for k > 0 && math.Abs(e[k-1]) <= band {
		k--
	}

	if k == len(e) {
		return -1
	}

	return k
}
