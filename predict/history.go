package predict

import (
	"fmt"

	gpc "github.com/milosgajdos/go-gpc"
)

// History stores the recent past of the process which the free response is predicted from.
// All sequences are ordered most recent sample first.
type History struct {
	// Current holds a known increment of every input in the current cycle.
	// It is zero when the current increments are the ones being computed.
	Current []float64
	// Increments holds past increments of every input
	Increments [][]float64
	// Outputs holds past outputs of every output-input sub-model: Outputs[out][in]
	Outputs [][][]float64
}

// NewHistory returns zero history sized for polynomial model m.
func NewHistory(m gpc.Polynomials) *History {
	nu, ny := m.Dims()

	h := &History{
		Current:    make([]float64, nu),
		Increments: make([][]float64, nu),
		Outputs:    make([][][]float64, ny),
	}

	for j := 0; j < nu; j++ {
		h.Increments[j] = make([]float64, incrementLen(m, j))
	}

	for i := 0; i < ny; i++ {
		h.Outputs[i] = make([][]float64, nu)
		for j := 0; j < nu; j++ {
			h.Outputs[i][j] = make([]float64, outputLen(m, i, j))
		}
	}

	return h
}

// Push advances history by one cycle: du, the increments applied in the cycle which produced
// outputs y, become the most recent past increments and y[out][in] becomes the most recent output
// of the given sub-model. Current is left untouched. History lengths are preserved.
// It returns error if du or y dimensions do not match the history.
func (h *History) Push(du []float64, y [][]float64) error {
	if len(du) != len(h.Current) {
		return fmt.Errorf("%w: invalid increment length: %d", gpc.ErrDimension, len(du))
	}

	if len(y) != len(h.Outputs) {
		return fmt.Errorf("%w: invalid output count: %d", gpc.ErrDimension, len(y))
	}

	for i := range y {
		if len(y[i]) != len(h.Outputs[i]) {
			return fmt.Errorf("%w: invalid output %d input count: %d", gpc.ErrDimension, i, len(y[i]))
		}
	}

	for j := range du {
		shift(h.Increments[j], du[j])
	}

	for i := range y {
		for j := range y[i] {
			shift(h.Outputs[i][j], y[i][j])
		}
	}

	return nil
}

// Clone returns a deep copy of h.
func (h *History) Clone() *History {
	c := &History{
		Current:    append([]float64(nil), h.Current...),
		Increments: make([][]float64, len(h.Increments)),
		Outputs:    make([][][]float64, len(h.Outputs)),
	}

	for j, inc := range h.Increments {
		c.Increments[j] = append([]float64(nil), inc...)
	}

	for i, out := range h.Outputs {
		c.Outputs[i] = make([][]float64, len(out))
		for j, y := range out {
			c.Outputs[i][j] = append([]float64(nil), y...)
		}
	}

	return c
}

// shift inserts v at the front of s dropping its last element
func shift(s []float64, v float64) {
	if len(s) == 0 {
		return
	}
	copy(s[1:], s[:len(s)-1])
	s[0] = v
}

// outputLen returns the number of past outputs the free response recursion of the given pair needs:
// the degree of the denominator extended by the differencing operator.
func outputLen(m gpc.Polynomials, out, in int) int {
	return len(m.Denominator(out, in))
}

// incrementLen returns the number of past increments of input in needed by the free response recursion
func incrementLen(m gpc.Polynomials, in int) int {
	_, ny := m.Dims()

	n := 0
	for i := 0; i < ny; i++ {
		if l := len(m.Numerator(i, in)) - 1; l > n {
			n = l
		}
	}

	return n
}
