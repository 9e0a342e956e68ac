// Package dynmat builds the dynamic matrix of a multivariable process.
//
// The dynamic matrix G maps a vector of future control increments to the
// forced response of the process outputs over the prediction horizon.
// For ny outputs, nu inputs, prediction horizon p and control horizon m
// G has (p·ny) rows and (m·nu) columns: block [i, j] is the p x m Toeplitz
// matrix of the step response of output i to input j.
// Increments are laid out input-major: column j·m + c is input j at step c.
package dynmat

import (
	"fmt"

	gpc "github.com/milosgajdos/go-gpc"
	"github.com/milosgajdos/go-gpc/matrix"
	"gonum.org/v1/gonum/mat"
)

// Block returns p x m dynamic matrix block built from step response samples g.
// Block element [r, c] is g[r-c] for r >= c and zero otherwise.
// Step responses are assumed to have settled: samples past the end of g hold the last sample.
// It returns error if either p or m is smaller than 1 or g is empty.
func Block(g []float64, p, m int) (*mat.Dense, error) {
	if p < 1 || m < 1 {
		return nil, fmt.Errorf("%w: invalid horizons: p=%d, m=%d", gpc.ErrConfiguration, p, m)
	}

	if len(g) < 1 {
		return nil, fmt.Errorf("%w: empty step response", gpc.ErrConfiguration)
	}

	return matrix.Toeplitz(g, p, m), nil
}

// New builds dynamic matrix of the process s for prediction horizon p and control horizon m.
// It requests p step response samples for every output-input pair.
// It returns error if the model dimensions or horizons are invalid or if s fails to provide step responses.
func New(s gpc.StepResponder, p, m int) (*mat.Dense, error) {
	nu, ny := s.Dims()
	if nu < 1 || ny < 1 {
		return nil, fmt.Errorf("%w: invalid model dimensions: [%d x %d]", gpc.ErrConfiguration, ny, nu)
	}

	bank := make([][][]float64, ny)
	for i := range bank {
		bank[i] = make([][]float64, nu)
		for j := range bank[i] {
			g, err := s.StepResponse(i, j, p)
			if err != nil {
				return nil, fmt.Errorf("%w: step response [%d, %d]: %v", gpc.ErrConfiguration, i, j, err)
			}
			bank[i][j] = g
		}
	}

	return FromBank(bank, p, m)
}

// FromBank builds dynamic matrix from raw step responses: bank[i][j] is the step response
// of output i to input j. All output rows must have the same number of inputs.
func FromBank(bank [][][]float64, p, m int) (*mat.Dense, error) {
	if len(bank) == 0 || len(bank[0]) == 0 {
		return nil, fmt.Errorf("%w: empty step response bank", gpc.ErrConfiguration)
	}

	nu := len(bank[0])
	blocks := make([][]mat.Matrix, len(bank))

	for i, row := range bank {
		if len(row) != nu {
			return nil, fmt.Errorf("%w: output %d has %d inputs, expected %d", gpc.ErrConfiguration, i, len(row), nu)
		}

		blocks[i] = make([]mat.Matrix, nu)
		for j, g := range row {
			b, err := Block(g, p, m)
			if err != nil {
				return nil, fmt.Errorf("block [%d, %d]: %w", i, j, err)
			}
			blocks[i][j] = b
		}
	}

	G, err := matrix.Blocks(blocks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gpc.ErrConfiguration, err)
	}

	return G, nil
}
