package predict

import (
	"errors"
	"math"
	"os"
	"testing"

	gpc "github.com/milosgajdos/go-gpc"
	"github.com/milosgajdos/go-gpc/model"
	"github.com/stretchr/testify/assert"
)

var (
	// lags is two decoupled first order lags with unit steady-state gain
	lags *model.CARIMA
	// plant is a coupled two input two output plant with integrating pairs
	plant *model.CARIMA
)

func setup() {
	e := math.Exp(-1)
	lag, gain, zero := []float64{1, -e}, []float64{1 - e}, []float64{0}

	lags, _ = model.NewCARIMA(
		[][][]float64{{lag, lag}, {lag, lag}},
		[][][]float64{{gain, zero}, {zero, gain}},
	)

	plant, _ = model.NewCARIMA(
		[][][]float64{{{1, -1}, {1, -0.95}}, {{1, -0.969}, {1, -1}}},
		[][][]float64{{{-0.19}, {-0.08498}}, {{-0.02362}, {0.235}}},
	)
}

func TestMain(m *testing.M) {
	// set up tests
	setup()
	// run the tests
	retCode := m.Run()
	// call with result of m.Run()
	os.Exit(retCode)
}

func TestRing(t *testing.T) {
	assert := assert.New(t)

	r := newRing(3)
	r.reset([]float64{3, 2})
	assert.Equal(3.0, r.at(0))
	assert.Equal(2.0, r.at(1))
	assert.Equal(0.0, r.at(2))

	r.push(4)
	assert.Equal(4.0, r.at(0))
	assert.Equal(3.0, r.at(1))
	assert.Equal(2.0, r.at(2))

	r.push(5)
	assert.Equal([]float64{5, 4, 3}, []float64{r.at(0), r.at(1), r.at(2)})
	// 1*5 + 10*4
	assert.Equal(45.0, r.dot([]float64{1, 10}))
	// coefficients longer than the ring are truncated
	assert.Equal(5.0+40+300, r.dot([]float64{1, 10, 100, 1000}))

	r.reset([]float64{1, 2, 3, 4})
	assert.Equal(3.0, r.at(2))

	empty := newRing(0)
	empty.push(1)
	assert.Equal(0.0, empty.dot([]float64{1}))
}

func TestNew(t *testing.T) {
	assert := assert.New(t)

	p, err := New(lags, 15, nil)
	assert.NoError(err)
	assert.NotNil(p)
	assert.Equal(15, p.Horizon())
	nu, ny := p.Dims()
	assert.Equal(2, nu)
	assert.Equal(2, ny)

	p, err = New(lags, 0, nil)
	assert.Nil(p)
	assert.True(errors.Is(err, gpc.ErrConfiguration))

	p, err = New(lags, 15, &Config{ApplySteps: -1})
	assert.Nil(p)
	assert.True(errors.Is(err, gpc.ErrConfiguration))

	p, err = New(&badPoly{a: []float64{2, 1}, b: []float64{1}}, 15, nil)
	assert.Nil(p)
	assert.True(errors.Is(err, gpc.ErrConfiguration))

	p, err = New(&badPoly{a: []float64{1, 1}}, 15, nil)
	assert.Nil(p)
	assert.True(errors.Is(err, gpc.ErrConfiguration))

	p, err = New(&badPoly{}, 15, nil)
	assert.Nil(p)
	assert.True(errors.Is(err, gpc.ErrConfiguration))
}

func TestZeroHistory(t *testing.T) {
	assert := assert.New(t)

	p, err := New(lags, 15, nil)
	assert.NoError(err)

	f, err := p.Predict(NewHistory(lags))
	assert.NoError(err)
	assert.Equal(30, f.Len())
	for i := 0; i < f.Len(); i++ {
		assert.Equal(0.0, f.AtVec(i))
	}
}

func TestSteadyState(t *testing.T) {
	assert := assert.New(t)

	p, err := New(lags, 15, nil)
	assert.NoError(err)

	// process at rest at y = 1 stays there
	h := NewHistory(lags)
	for i := range h.Outputs {
		for j := range h.Outputs[i] {
			for k := range h.Outputs[i][j] {
				h.Outputs[i][j][k] = 0.5
			}
		}
	}

	f, err := p.Predict(h)
	assert.NoError(err)
	for i := 0; i < f.Len(); i++ {
		assert.InDelta(1.0, f.AtVec(i), 1e-12)
	}
}

func TestStepResponse(t *testing.T) {
	assert := assert.New(t)

	horizon := 20
	for _, m := range []*model.CARIMA{lags, plant} {
		p, err := New(m, horizon, nil)
		assert.NoError(err)

		nu, ny := m.Dims()
		for j := 0; j < nu; j++ {
			// unit increment on input j at rest is a unit step
			h := NewHistory(m)
			h.Current[j] = 1

			f, err := p.Predict(h)
			assert.NoError(err)

			for i := 0; i < ny; i++ {
				g, err := m.StepResponse(i, j, horizon)
				assert.NoError(err)
				assert.InDeltaSlice(g, f.RawVector().Data[i*horizon:(i+1)*horizon], 1e-9)
			}
		}
	}
}

func TestIntegratorHistory(t *testing.T) {
	assert := assert.New(t)

	// pure integrator: y(k) = y(k-1) + u(k-1)
	integ, err := model.NewCARIMA([][][]float64{{{1, -1}}}, [][][]float64{{{1}}})
	assert.NoError(err)

	p, err := New(integ, 5, nil)
	assert.NoError(err)

	// ramping output with slope 2 keeps ramping without new increments
	h := NewHistory(integ)
	assert.Len(h.Outputs[0][0], 2)
	h.Outputs[0][0] = []float64{4, 2}

	f, err := p.Predict(h)
	assert.NoError(err)
	assert.InDeltaSlice([]float64{6, 8, 10, 12, 14}, f.RawVector().Data, 1e-12)

	// current increment adds slope from the first step
	h.Current[0] = 1
	f, err = p.Predict(h)
	assert.NoError(err)
	assert.InDeltaSlice([]float64{7, 10, 13, 16, 19}, f.RawVector().Data, 1e-12)
}

func TestApplySteps(t *testing.T) {
	assert := assert.New(t)

	one, err := model.NewCARIMA([][][]float64{{{1}}}, [][][]float64{{{1}}})
	assert.NoError(err)

	// static unit gain: y(k) = u(k-1)
	p, err := New(one, 5, &Config{ApplySteps: 3})
	assert.NoError(err)

	h := NewHistory(one)
	h.Current[0] = 0.5

	f, err := p.Predict(h)
	assert.NoError(err)
	assert.InDeltaSlice([]float64{0.5, 1.0, 1.5, 1.5, 1.5}, f.RawVector().Data, 1e-12)
}

func TestNumeratorHistory(t *testing.T) {
	assert := assert.New(t)

	// y(k) = u(k-1) + 2u(k-2) in a static plant needs one past increment
	m, err := model.NewCARIMA([][][]float64{{{1}}}, [][][]float64{{{1, 2}}})
	assert.NoError(err)

	p, err := New(m, 3, nil)
	assert.NoError(err)

	h := NewHistory(m)
	assert.Len(h.Increments[0], 1)
	h.Increments[0][0] = 1

	f, err := p.Predict(h)
	assert.NoError(err)
	// Δy(k+1) = Δu(k) + 2Δu(k-1) = 2 at the first step, zero after
	assert.InDeltaSlice([]float64{2, 2, 2}, f.RawVector().Data, 1e-12)
}

func TestPredictInvalidHistory(t *testing.T) {
	assert := assert.New(t)

	p, err := New(plant, 10, nil)
	assert.NoError(err)

	valid := NewHistory(plant)
	for _, mutate := range []func(h *History){
		func(h *History) { h.Current = h.Current[:1] },
		func(h *History) { h.Increments = nil },
		func(h *History) { h.Outputs = h.Outputs[:1] },
		func(h *History) { h.Outputs[1] = h.Outputs[1][:1] },
		func(h *History) { h.Outputs[0][1] = h.Outputs[0][1][:1] },
	} {
		h := valid.Clone()
		mutate(h)
		f, err := p.Predict(h)
		assert.Nil(f)
		assert.True(errors.Is(err, gpc.ErrDimension))
	}

	f, err := p.Predict(nil)
	assert.Nil(f)
	assert.True(errors.Is(err, gpc.ErrDimension))

	// longer histories are accepted
	h := valid.Clone()
	h.Outputs[0][0] = append(h.Outputs[0][0], 1, 2, 3)
	f, err = p.Predict(h)
	assert.NoError(err)
	assert.NotNil(f)
}

func TestHistoryPush(t *testing.T) {
	assert := assert.New(t)

	h := NewHistory(plant)
	assert.Len(h.Current, 2)
	assert.Len(h.Increments[0], 0)
	assert.Len(h.Outputs[1][0], 2)

	err := h.Push([]float64{0.1, 0.2}, [][]float64{{1, 2}, {3, 4}})
	assert.NoError(err)
	assert.Equal([]float64{0, 0}, h.Current)
	assert.Equal([]float64{1, 0}, h.Outputs[0][0])

	err = h.Push([]float64{0.3, 0.4}, [][]float64{{5, 6}, {7, 8}})
	assert.NoError(err)
	assert.Equal([]float64{5, 1}, h.Outputs[0][0])
	assert.Equal([]float64{8, 4}, h.Outputs[1][1])

	c := h.Clone()
	c.Outputs[0][0][0] = 100
	assert.Equal(5.0, h.Outputs[0][0][0])

	assert.Error(h.Push([]float64{1}, [][]float64{{1, 2}, {3, 4}}))
	assert.Error(h.Push([]float64{1, 2}, [][]float64{{1, 2}}))
	assert.Error(h.Push([]float64{1, 2}, [][]float64{{1, 2}, {3}}))

	// past increments shift when the numerator needs them
	m, err := model.NewCARIMA([][][]float64{{{1}}}, [][][]float64{{{1, 2, 3}}})
	assert.NoError(err)
	h = NewHistory(m)
	assert.Len(h.Increments[0], 2)
	assert.NoError(h.Push([]float64{1}, [][]float64{{0}}))
	assert.NoError(h.Push([]float64{2}, [][]float64{{0}}))
	assert.Equal([]float64{0}, h.Current)
	assert.Equal([]float64{2, 1}, h.Increments[0])
}

// TestClosedLoopHistory checks that pushing applied increments and resulting outputs
// keeps the free response consistent with the process trajectory.
func TestClosedLoopHistory(t *testing.T) {
	assert := assert.New(t)

	// y(k) = 0.5y(k-1) + u(k-1) + 0.5u(k-2)
	m, err := model.NewCARIMA([][][]float64{{{1, -0.5}}}, [][][]float64{{{1, 0.5}}})
	assert.NoError(err)

	p, err := New(m, 3, nil)
	assert.NoError(err)

	h := NewHistory(m)
	u := []float64{0, 0}
	y := []float64{0, 0}
	for k, du := range []float64{1, 0.5, -0.25} {
		// process step
		u = []float64{u[0] + du, u[0]}
		y = []float64{0.5*y[0] + u[0] + 0.5*u[1], y[0]}
		assert.NoError(h.Push([]float64{du}, [][]float64{{y[0]}}))

		f, err := p.Predict(h)
		assert.NoError(err)

		// inputs held constant from now on
		yk := y[0]
		for j := 0; j < 3; j++ {
			yk = 0.5*yk + 1.5*u[0]
			assert.InDelta(yk, f.AtVec(j), 1e-12, "cycle %d step %d", k, j)
		}
	}
}

// badPoly is a single pair polynomial model with arbitrary coefficients
type badPoly struct {
	a, b []float64
}

func (b *badPoly) Dims() (int, int)                  { return 1, 1 }
func (b *badPoly) Denominator(out, in int) []float64 { return b.a }
func (b *badPoly) Numerator(out, in int) []float64   { return b.b }
