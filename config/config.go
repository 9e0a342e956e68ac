// Package config provides YAML configuration of predictive control simulations.
package config

import (
	"fmt"
	"os"
	"time"

	gpc "github.com/milosgajdos/go-gpc"
	"github.com/milosgajdos/go-gpc/controller"
	"github.com/milosgajdos/go-gpc/matrix"
	"github.com/milosgajdos/go-gpc/model"
	"github.com/milosgajdos/go-gpc/noise"
	"github.com/milosgajdos/go-gpc/sim"
	"github.com/milosgajdos/go-gpc/solver/box"
	"github.com/milosgajdos/go-gpc/solver/ipm"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSamplePeriod = time.Second
	DefaultPrediction   = 15
	DefaultControl      = 5
	DefaultOutputWeight = 1.0
	DefaultInputWeight  = 1e-2
	DefaultBound        = 0.2
	DefaultSteps        = 60
	DefaultTarget       = 2.0
)

// Solver names
const (
	BoxSolver = "box"
	IPMSolver = "ipm"
)

// Config is simulation configuration
type Config struct {
	SamplePeriod time.Duration `yaml:"sample_period"`
	Horizons     Horizons      `yaml:"horizons"`
	Weights      Weights       `yaml:"weights"`
	Bounds       Bounds        `yaml:"bounds"`
	Solver       Solver        `yaml:"solver"`
	Plant        Plant         `yaml:"plant"`
	Simulation   Simulation    `yaml:"simulation"`
}

type Horizons struct {
	Prediction int `yaml:"prediction"`
	Control    int `yaml:"control"`
	ApplySteps int `yaml:"apply_steps,omitempty"`
}

// Weights are per channel weights expanded over the horizons.
// A single value applies to every channel.
type Weights struct {
	Output []float64 `yaml:"output"`
	Input  []float64 `yaml:"input"`
}

// Bounds are per input increment bounds. A single value applies to every input.
type Bounds struct {
	Min []float64 `yaml:"min"`
	Max []float64 `yaml:"max"`
}

type Solver struct {
	Name    string  `yaml:"name"`
	MaxIter int     `yaml:"max_iter,omitempty"`
	Tol     float64 `yaml:"tol,omitempty"`
}

// Plant is given either by difference equation polynomials A and B
// or by first order lags of every output-input pair.
type Plant struct {
	A    [][][]float64 `yaml:"a,omitempty"`
	B    [][][]float64 `yaml:"b,omitempty"`
	Lags [][]Lag       `yaml:"lags,omitempty"`
}

// Lag is first order lag with transport delay in samples. Zero gain means no coupling.
type Lag struct {
	Gain  float64 `yaml:"gain"`
	Tau   float64 `yaml:"tau,omitempty"`
	Delay int     `yaml:"delay,omitempty"`
}

type Simulation struct {
	Steps     int       `yaml:"steps"`
	Reference []float64 `yaml:"reference"`
	// Noise contains measurement noise variance of every output
	Noise      []float64 `yaml:"noise,omitempty"`
	Estimator  bool      `yaml:"estimator,omitempty"`
	ProcessCov float64   `yaml:"process_cov,omitempty"`
	Seed       uint64    `yaml:"seed,omitempty"`
}

// DefaultConfig returns configuration of two decoupled first order lags with unit gain
// and unit time constant tracking a constant reference.
func DefaultConfig() *Config {
	return &Config{
		SamplePeriod: DefaultSamplePeriod,
		Horizons: Horizons{
			Prediction: DefaultPrediction,
			Control:    DefaultControl,
		},
		Weights: Weights{
			Output: []float64{DefaultOutputWeight},
			Input:  []float64{DefaultInputWeight},
		},
		Bounds: Bounds{
			Min: []float64{-DefaultBound},
			Max: []float64{DefaultBound},
		},
		Solver: Solver{Name: BoxSolver},
		Plant: Plant{
			Lags: [][]Lag{
				{{Gain: 1, Tau: 1}, {}},
				{{}, {Gain: 1, Tau: 1}},
			},
		},
		Simulation: Simulation{
			Steps:     DefaultSteps,
			Reference: []float64{DefaultTarget, DefaultTarget},
		},
	}
}

// Load reads configuration from YAML file at path. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse parses YAML configuration. Missing values keep their defaults.
// A plant given by polynomials replaces the default lags.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Plant = Plant{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", gpc.ErrConfiguration, err)
	}

	if cfg.Plant.A == nil && cfg.Plant.B == nil && cfg.Plant.Lags == nil {
		cfg.Plant = DefaultConfig().Plant
	}

	return cfg, nil
}

// Save writes cfg to YAML file at path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate validates configuration.
// It returns error if the plant model is invalid or if any setting does not match the plant dimensions.
func (c *Config) Validate() error {
	m, err := c.Model()
	if err != nil {
		return err
	}

	nu, ny := m.Dims()
	if _, err := c.Tuning(nu, ny); err != nil {
		return err
	}

	if _, err := c.NewSolver(); err != nil {
		return err
	}

	s := c.Simulation
	if s.Steps < 1 {
		return fmt.Errorf("%w: invalid simulation steps: %d", gpc.ErrConfiguration, s.Steps)
	}

	if len(s.Reference) != ny {
		return fmt.Errorf("%w: invalid reference length: %d, expected %d", gpc.ErrConfiguration, len(s.Reference), ny)
	}

	if _, err := c.Noise(ny); err != nil {
		return err
	}

	if s.Estimator && len(s.Noise) == 0 {
		return fmt.Errorf("%w: estimator requires measurement noise", gpc.ErrConfiguration)
	}

	if s.ProcessCov < 0 {
		return fmt.Errorf("%w: invalid process covariance: %f", gpc.ErrConfiguration, s.ProcessCov)
	}

	return nil
}

// Tuning returns controller tuning for process with nu inputs and ny outputs.
func (c *Config) Tuning(nu, ny int) (*controller.Config, error) {
	h := c.Horizons
	if h.Prediction < 1 || h.Control < 1 {
		return nil, fmt.Errorf("%w: invalid horizons: prediction=%d control=%d", gpc.ErrConfiguration, h.Prediction, h.Control)
	}

	wy, err := broadcast("output weights", c.Weights.Output, ny)
	if err != nil {
		return nil, err
	}

	wu, err := broadcast("input weights", c.Weights.Input, nu)
	if err != nil {
		return nil, err
	}

	tuning := &controller.Config{
		SamplePeriod: c.SamplePeriod,
		P:            h.Prediction,
		M:            h.Control,
		ApplySteps:   h.ApplySteps,
		Q:            matrix.ExpandDiag(wy, h.Prediction),
		R:            matrix.ExpandDiag(wu, h.Control),
		DuMin:        append([]float64(nil), c.Bounds.Min...),
		DuMax:        append([]float64(nil), c.Bounds.Max...),
	}

	if err := tuning.Validate(nu, ny); err != nil {
		return nil, err
	}

	return tuning, nil
}

// Model returns the plant model.
// Lags are sampled with the configured sample period.
func (c *Config) Model() (*model.CARIMA, error) {
	p := c.Plant

	if p.Lags == nil {
		if p.A == nil || p.B == nil {
			return nil, fmt.Errorf("%w: missing plant model", gpc.ErrConfiguration)
		}
		return model.NewCARIMA(p.A, p.B)
	}

	if p.A != nil || p.B != nil {
		return nil, fmt.Errorf("%w: plant must be given either by polynomials or by lags", gpc.ErrConfiguration)
	}

	a := make([][][]float64, len(p.Lags))
	b := make([][][]float64, len(p.Lags))
	for i, row := range p.Lags {
		a[i] = make([][]float64, len(row))
		b[i] = make([][]float64, len(row))
		for j, lag := range row {
			if lag.Gain == 0 {
				a[i][j], b[i][j] = []float64{1}, []float64{0}
				continue
			}

			var err error
			a[i][j], b[i][j], err = sim.FirstOrderLag(lag.Gain, lag.Tau, lag.Delay, c.SamplePeriod)
			if err != nil {
				return nil, fmt.Errorf("lag [%d, %d]: %w", i, j, err)
			}
		}
	}

	return model.NewCARIMA(a, b)
}

// NewSolver returns the configured QP solver.
func (c *Config) NewSolver() (gpc.Solver, error) {
	switch c.Solver.Name {
	case "", BoxSolver:
		return box.New(&box.Config{MaxIter: c.Solver.MaxIter, Tol: c.Solver.Tol})
	case IPMSolver:
		return ipm.New(&ipm.Config{MaxIter: c.Solver.MaxIter, Tol: c.Solver.Tol})
	default:
		return nil, fmt.Errorf("%w: unknown solver: %q", gpc.ErrConfiguration, c.Solver.Name)
	}
}

// Noise returns measurement noise of ny outputs seeded with the configured seed.
// It returns nil noise if no noise is configured.
func (c *Config) Noise(ny int) (noise.Noise, error) {
	if len(c.Simulation.Noise) == 0 {
		return nil, nil
	}

	vars, err := broadcast("noise", c.Simulation.Noise, ny)
	if err != nil {
		return nil, err
	}

	for _, v := range vars {
		if v <= 0 {
			return nil, fmt.Errorf("%w: invalid noise variance: %f", gpc.ErrConfiguration, v)
		}
	}

	cov := mat.NewSymDense(ny, nil)
	for i, v := range vars {
		cov.SetSym(i, i, v)
	}

	return noise.NewGaussian(make([]float64, ny), cov, c.Simulation.Seed)
}

// LoopConfig returns closed loop configuration for plant with ny outputs.
func (c *Config) LoopConfig(ny int) (*sim.LoopConfig, error) {
	n, err := c.Noise(ny)
	if err != nil {
		return nil, err
	}

	return &sim.LoopConfig{
		Noise:      n,
		Estimate:   c.Simulation.Estimator,
		ProcessCov: c.Simulation.ProcessCov,
	}, nil
}

// broadcast returns vals expanded to n channels
func broadcast(name string, vals []float64, n int) ([]float64, error) {
	switch len(vals) {
	case n:
		return append([]float64(nil), vals...), nil
	case 1:
		out := make([]float64, n)
		for i := range out {
			out[i] = vals[0]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: invalid %s length: %d, expected 1 or %d", gpc.ErrConfiguration, name, len(vals), n)
	}
}
