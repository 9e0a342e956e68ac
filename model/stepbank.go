package model

import (
	"fmt"

	gpc "github.com/milosgajdos/go-gpc"
)

// StepBank is a tabulated step response model of a multivariable process
type StepBank struct {
	bank [][][]float64
	nu   int
}

// NewStepBank creates new step response bank from samples bank[out][in] and returns it.
// It returns error if bank is empty, ragged or contains an empty response.
func NewStepBank(bank [][][]float64) (*StepBank, error) {
	if len(bank) == 0 || len(bank[0]) == 0 {
		return nil, fmt.Errorf("%w: empty step response bank", gpc.ErrConfiguration)
	}

	nu := len(bank[0])
	b := make([][][]float64, len(bank))
	for i, row := range bank {
		if len(row) != nu {
			return nil, fmt.Errorf("%w: output %d has %d inputs, expected %d", gpc.ErrConfiguration, i, len(row), nu)
		}
		b[i] = make([][]float64, nu)
		for j, g := range row {
			if len(g) == 0 {
				return nil, fmt.Errorf("%w: empty step response [%d, %d]", gpc.ErrConfiguration, i, j)
			}
			b[i][j] = append([]float64(nil), g...)
		}
	}

	return &StepBank{bank: b, nu: nu}, nil
}

// Dims returns the number of inputs and outputs
func (s *StepBank) Dims() (nu, ny int) {
	return s.nu, len(s.bank)
}

// StepResponse returns the first n tabulated samples of the response of output out to input in.
// It returns error if fewer than n samples are tabulated: the bank never extrapolates.
func (s *StepBank) StepResponse(out, in, n int) ([]float64, error) {
	if out < 0 || out >= len(s.bank) || in < 0 || in >= s.nu {
		return nil, fmt.Errorf("invalid pair: [%d, %d]", out, in)
	}

	g := s.bank[out][in]
	if n < 1 || n > len(g) {
		return nil, fmt.Errorf("%w: requested %d samples, bank [%d, %d] has %d", gpc.ErrConfiguration, n, out, in, len(g))
	}

	return append([]float64(nil), g[:n]...), nil
}

// composite is a model whose step responses and polynomials come from different sources
type composite struct {
	gpc.StepResponder
	p gpc.Polynomials
}

func (c *composite) Denominator(out, in int) []float64 { return c.p.Denominator(out, in) }

func (c *composite) Numerator(out, in int) []float64 { return c.p.Numerator(out, in) }

// Compose returns model which takes step responses from s and CARIMA polynomials from p.
// It returns error if s and p have different dimensions.
func Compose(s gpc.StepResponder, p gpc.Polynomials) (gpc.Model, error) {
	snu, sny := s.Dims()
	pnu, pny := p.Dims()
	if snu != pnu || sny != pny {
		return nil, fmt.Errorf("%w: model dimensions differ: [%d x %d] != [%d x %d]", gpc.ErrConfiguration, sny, snu, pny, pnu)
	}

	return &composite{StepResponder: s, p: p}, nil
}
