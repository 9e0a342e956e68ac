// Package predict implements the free response predictor of a CARIMA process model.
//
// Every output-input pair of the process is modelled by the difference equation
//
//	A(z⁻¹)Δy(k) = B(z⁻¹)Δu(k-1)
//
// where Δ = 1 - z⁻¹ is the differencing operator. The predictor recurses the
// equation p steps forward with Ã = A·Δ, applying the current increment over the
// first few predicted steps only. Pair trajectories are summed per output.
package predict

import (
	"fmt"

	gpc "github.com/milosgajdos/go-gpc"
	"github.com/milosgajdos/go-gpc/matrix"
	"gonum.org/v1/gonum/mat"
)

// delta is the differencing operator 1 - z⁻¹
var delta = []float64{1, -1}

// Config is free response predictor configuration
type Config struct {
	// ApplySteps is the number of initial predicted steps over which
	// the current increment is applied. It defaults to 1.
	ApplySteps int
}

// Predictor predicts free response of a process over prediction horizon.
// Predictor is not safe for concurrent use: it owns per-pair scratch buffers.
type Predictor struct {
	// p is prediction horizon
	p int
	// nu and ny are model input and output counts
	nu, ny int
	// apply is the number of steps the current increment is applied over
	apply int
	// atil stores denominator tails [ã1, ..., ãn] of every pair
	atil [][][]float64
	// b stores numerators of every pair
	b [][][]float64
	// y stores past outputs of every pair
	y [][]*ring
	// du stores past increments seen by every pair
	du [][]*ring
	// need stores number of past increments required per input
	need []int
}

// New creates new free response predictor for model m and prediction horizon p and returns it.
// It returns error if p is smaller than 1, model dimensions are invalid, any denominator is
// not monic or any polynomial is empty.
func New(m gpc.Polynomials, p int, c *Config) (*Predictor, error) {
	if p < 1 {
		return nil, fmt.Errorf("%w: invalid prediction horizon: %d", gpc.ErrConfiguration, p)
	}

	nu, ny := m.Dims()
	if nu < 1 || ny < 1 {
		return nil, fmt.Errorf("%w: invalid model dimensions: [%d x %d]", gpc.ErrConfiguration, ny, nu)
	}

	apply := 1
	if c != nil && c.ApplySteps != 0 {
		apply = c.ApplySteps
	}
	if apply < 1 {
		return nil, fmt.Errorf("%w: invalid apply steps: %d", gpc.ErrConfiguration, apply)
	}

	pr := &Predictor{
		p:     p,
		nu:    nu,
		ny:    ny,
		apply: apply,
		atil:  make([][][]float64, ny),
		b:     make([][][]float64, ny),
		y:     make([][]*ring, ny),
		du:    make([][]*ring, ny),
		need:  make([]int, nu),
	}

	for i := 0; i < ny; i++ {
		pr.atil[i] = make([][]float64, nu)
		pr.b[i] = make([][]float64, nu)
		pr.y[i] = make([]*ring, nu)
		pr.du[i] = make([]*ring, nu)

		for j := 0; j < nu; j++ {
			a, b := m.Denominator(i, j), m.Numerator(i, j)
			if len(a) == 0 || a[0] != 1 {
				return nil, fmt.Errorf("%w: denominator [%d, %d] is not monic: %v", gpc.ErrConfiguration, i, j, a)
			}
			if len(b) == 0 {
				return nil, fmt.Errorf("%w: empty numerator [%d, %d]", gpc.ErrConfiguration, i, j)
			}

			at := matrix.Convolve(a, delta)
			pr.atil[i][j] = at[1:]
			pr.b[i][j] = append([]float64(nil), b...)
			pr.y[i][j] = newRing(len(at) - 1)
			pr.du[i][j] = newRing(len(b))

			if len(b)-1 > pr.need[j] {
				pr.need[j] = len(b) - 1
			}
		}
	}

	return pr, nil
}

// Horizon returns prediction horizon
func (pr *Predictor) Horizon() int {
	return pr.p
}

// Dims returns model input and output counts
func (pr *Predictor) Dims() (nu, ny int) {
	return pr.nu, pr.ny
}

// Predict computes free response of the process given its history h.
// The returned vector has p·ny elements laid out output-major: element i·p + j is output i at step j+1.
// It returns error if history dimensions do not match the model.
func (pr *Predictor) Predict(h *History) (*mat.VecDense, error) {
	if err := pr.check(h); err != nil {
		return nil, err
	}

	f := mat.NewVecDense(pr.p*pr.ny, nil)
	data := f.RawVector().Data

	for i := 0; i < pr.ny; i++ {
		out := data[i*pr.p : (i+1)*pr.p]
		for j := 0; j < pr.nu; j++ {
			yr, ur := pr.y[i][j], pr.du[i][j]
			yr.reset(h.Outputs[i][j])
			ur.reset(h.Increments[j])

			a, b := pr.atil[i][j], pr.b[i][j]
			for k := 0; k < pr.p; k++ {
				du := 0.0
				if k < pr.apply {
					du = h.Current[j]
				}
				ur.push(du)

				yk := -yr.dot(a) + ur.dot(b)
				yr.push(yk)
				out[k] += yk
			}
		}
	}

	return f, nil
}

func (pr *Predictor) check(h *History) error {
	if h == nil {
		return fmt.Errorf("%w: nil history", gpc.ErrDimension)
	}

	if len(h.Current) != pr.nu || len(h.Increments) != pr.nu {
		return fmt.Errorf("%w: invalid increment history: %d current, %d past, expected %d",
			gpc.ErrDimension, len(h.Current), len(h.Increments), pr.nu)
	}

	for j, inc := range h.Increments {
		if len(inc) < pr.need[j] {
			return fmt.Errorf("%w: input %d increment history too short: %d < %d", gpc.ErrDimension, j, len(inc), pr.need[j])
		}
	}

	if len(h.Outputs) != pr.ny {
		return fmt.Errorf("%w: invalid output history count: %d", gpc.ErrDimension, len(h.Outputs))
	}

	for i, out := range h.Outputs {
		if len(out) != pr.nu {
			return fmt.Errorf("%w: invalid output %d history input count: %d", gpc.ErrDimension, i, len(out))
		}
		for j, y := range out {
			if len(y) < len(pr.atil[i][j]) {
				return fmt.Errorf("%w: output [%d, %d] history too short: %d < %d", gpc.ErrDimension, i, j, len(y), len(pr.atil[i][j]))
			}
		}
	}

	return nil
}
