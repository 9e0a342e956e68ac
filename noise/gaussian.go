package noise

import (
	"fmt"

	gpc "github.com/milosgajdos/go-gpc"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Gaussian is gaussian noise
type Gaussian struct {
	// dist is a multivariate normal distribution
	dist *distmv.Normal
	// mean is Gaussian mean
	mean []float64
	// cov is Gaussian covariance
	cov *mat.SymDense
	// seed seeds the random source
	seed uint64
}

// NewGaussian creates new Gaussian noise with given mean and covariance.
// Samples are drawn from a random source seeded with seed so noise sequences are reproducible.
// It returns error if mean and cov dimensions do not match or if cov is not positive definite.
func NewGaussian(mean []float64, cov mat.Symmetric, seed uint64) (*Gaussian, error) {
	if len(mean) == 0 || cov.SymmetricDim() != len(mean) {
		return nil, fmt.Errorf("%w: invalid Gaussian dimensions: mean %d, cov %d", gpc.ErrConfiguration, len(mean), cov.SymmetricDim())
	}

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	g := &Gaussian{
		mean: append([]float64(nil), mean...),
		cov:  c,
		seed: seed,
	}

	if err := g.Reset(); err != nil {
		return nil, err
	}

	return g, nil
}

// Sample generates a sample from Gaussian noise and returns it.
func (g *Gaussian) Sample() mat.Vector {
	r := g.dist.Rand(nil)
	return mat.NewVecDense(len(r), r)
}

// Cov returns covariance matrix of Gaussian noise.
func (g *Gaussian) Cov() mat.Symmetric {
	cov := mat.NewSymDense(g.cov.SymmetricDim(), nil)
	cov.CopySym(g.cov)

	return cov
}

// Mean returns Gaussian mean.
func (g *Gaussian) Mean() []float64 {
	return append([]float64(nil), g.mean...)
}

// Reset resets Gaussian noise: the noise sequence restarts from its seed.
// It returns error if it fails to reset the noise.
func (g *Gaussian) Reset() error {
	src := rand.NewSource(g.seed)
	dist, ok := distmv.NewNormal(g.mean, g.cov, src)
	if !ok {
		return fmt.Errorf("%w: Gaussian covariance is not positive definite", gpc.ErrConfiguration)
	}
	g.dist = dist

	return nil
}

// String implements the Stringer interface.
func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian{\nMean=%v\nCov=%v\n}", g.mean, mat.Formatted(g.cov, mat.Prefix("    "), mat.Squeeze()))
}
