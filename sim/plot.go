package sim

import (
	"fmt"

	gpc "github.com/milosgajdos/go-gpc"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
)

// NewPlot creates new plot of closed loop simulation result r.
// Every output is drawn as a line along with its dashed reference.
// It returns error if r contains no samples or if gonum plot fails to create the lines.
func NewPlot(r *Result) (*plot.Plot, error) {
	if r == nil || r.Steps() == 0 {
		return nil, fmt.Errorf("%w: empty simulation result", gpc.ErrDimension)
	}

	p := plot.New()

	p.Title.Text = "Closed loop"
	p.X.Label.Text = "t [s]"
	p.Y.Label.Text = "y"
	p.Legend.Top = true

	ts := r.SamplePeriod.Seconds()

	for i, y := range r.Outputs {
		line, err := plotter.NewLine(makePoints(y, ts))
		if err != nil {
			return nil, fmt.Errorf("failed to create output line: %w", err)
		}
		line.LineStyle.Color = plotutil.Color(i)
		line.LineStyle.Width = 2

		ref := make([]float64, len(y))
		for k := range ref {
			ref[k] = r.Reference[i]
		}

		refLine, err := plotter.NewLine(makePoints(ref, ts))
		if err != nil {
			return nil, fmt.Errorf("failed to create reference line: %w", err)
		}
		refLine.LineStyle.Color = plotutil.Color(i)
		refLine.LineStyle.Dashes = plotutil.Dashes(1)

		p.Add(line, refLine)
		p.Legend.Add(fmt.Sprintf("y%d", i), line)
		p.Legend.Add(fmt.Sprintf("w%d", i), refLine)
	}

	p.Add(plotter.NewGrid())

	return p, nil
}

// NewInputPlot creates new step plot of plant inputs of simulation result r.
// It returns error if r contains no samples or if gonum plot fails to create the lines.
func NewInputPlot(r *Result) (*plot.Plot, error) {
	if r == nil || r.Steps() == 0 {
		return nil, fmt.Errorf("%w: empty simulation result", gpc.ErrDimension)
	}

	p := plot.New()

	p.Title.Text = "Inputs"
	p.X.Label.Text = "t [s]"
	p.Y.Label.Text = "u"
	p.Legend.Top = true

	ts := r.SamplePeriod.Seconds()

	for j, u := range r.Inputs {
		line, err := plotter.NewLine(makePoints(u, ts))
		if err != nil {
			return nil, fmt.Errorf("failed to create input line: %w", err)
		}
		line.StepStyle = plotter.PostStep
		line.LineStyle.Color = plotutil.Color(j)
		line.LineStyle.Width = 2

		p.Add(line)
		p.Legend.Add(fmt.Sprintf("u%d", j), line)
	}

	p.Add(plotter.NewGrid())

	return p, nil
}

// makePoints returns points of series s sampled with period ts seconds
func makePoints(s []float64, ts float64) plotter.XYs {
	pts := make(plotter.XYs, len(s))
	for k, v := range s {
		pts[k].X = float64(k) * ts
		pts[k].Y = v
	}

	return pts
}
