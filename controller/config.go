package controller

import (
	"fmt"
	"time"

	gpc "github.com/milosgajdos/go-gpc"
	"github.com/milosgajdos/go-gpc/matrix"
	"gonum.org/v1/gonum/mat"
)

// Config is predictive controller tuning
type Config struct {
	// SamplePeriod is controller sample period
	SamplePeriod time.Duration
	// P is prediction horizon
	P int
	// M is control horizon
	M int
	// ApplySteps is the number of initial predicted steps the current increment is applied over.
	// Zero means the current increment affects the first predicted step only.
	ApplySteps int
	// Q is (P·ny) diagonal output weights matrix
	Q *mat.DiagDense
	// R is (M·nu) diagonal increment weights matrix
	R *mat.DiagDense
	// DuMin is lower increment bound per input or a single bound for all inputs
	DuMin []float64
	// DuMax is upper increment bound per input or a single bound for all inputs
	DuMax []float64
}

// Validate validates config against the number of process inputs nu and outputs ny.
func (c *Config) Validate(nu, ny int) error {
	if c.SamplePeriod <= 0 {
		return fmt.Errorf("%w: invalid sample period: %v", gpc.ErrConfiguration, c.SamplePeriod)
	}

	if c.P < 1 || c.M < 1 {
		return fmt.Errorf("%w: invalid horizons: p=%d m=%d", gpc.ErrConfiguration, c.P, c.M)
	}

	if c.ApplySteps < 0 {
		return fmt.Errorf("%w: invalid apply steps: %d", gpc.ErrConfiguration, c.ApplySteps)
	}

	if c.Q == nil || c.Q.Diag() != c.P*ny {
		return fmt.Errorf("%w: output weights must be %d x %d diagonal", gpc.ErrConfiguration, c.P*ny, c.P*ny)
	}

	if c.R == nil || c.R.Diag() != c.M*nu {
		return fmt.Errorf("%w: increment weights must be %d x %d diagonal", gpc.ErrConfiguration, c.M*nu, c.M*nu)
	}

	for _, b := range [][]float64{c.DuMin, c.DuMax} {
		if len(b) != 1 && len(b) != nu {
			return fmt.Errorf("%w: invalid bounds length: %d, expected 1 or %d", gpc.ErrConfiguration, len(b), nu)
		}
	}

	return nil
}

// Copy returns a deep copy of config
func (c *Config) Copy() *Config {
	cp := *c

	if c.Q != nil {
		cp.Q = mat.NewDiagDense(c.Q.Diag(), matrix.DiagValues(c.Q))
	}

	if c.R != nil {
		cp.R = mat.NewDiagDense(c.R.Diag(), matrix.DiagValues(c.R))
	}

	cp.DuMin = append([]float64(nil), c.DuMin...)
	cp.DuMax = append([]float64(nil), c.DuMax...)

	return &cp
}
