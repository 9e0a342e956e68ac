package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/milosgajdos/go-gpc/config"
	"github.com/milosgajdos/go-gpc/controller"
	"github.com/milosgajdos/go-gpc/dynmat"
	"github.com/milosgajdos/go-gpc/sim"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"
	"gopkg.in/yaml.v3"
)

var (
	// configFile is YAML configuration path
	configFile string
	// plotFile is closed loop plot path
	plotFile string
	// timeout bounds the whole simulation
	timeout time.Duration
	// samples is the number of printed step response samples
	samples int
	// showMatrix prints the dynamic matrix
	showMatrix bool
	// outFile is default config output path
	outFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gpcsim",
		Short: "multivariable generalized predictive control simulator",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run closed loop simulation",
		Args:  cobra.NoArgs,
		RunE:  runLoop,
	}
	runCmd.Flags().StringVar(&plotFile, "plot", "", "save closed loop plot to file (png, svg, pdf)")
	runCmd.Flags().DurationVar(&timeout, "timeout", 0, "simulation timeout; zero means no timeout")

	stepCmd := &cobra.Command{
		Use:   "step",
		Short: "print plant step responses",
		Args:  cobra.NoArgs,
		RunE:  printStep,
	}
	stepCmd.Flags().IntVar(&samples, "samples", 0, "number of samples; zero means prediction horizon")
	stepCmd.Flags().BoolVar(&showMatrix, "matrix", false, "print dynamic matrix")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print default configuration",
		Args:  cobra.NoArgs,
		RunE:  printConfig,
	}
	configCmd.Flags().StringVar(&outFile, "out", "", "write configuration to file instead of stdout")

	rootCmd.AddCommand(runCmd, stepCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("gpcsim: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func runLoop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	m, err := cfg.Model()
	if err != nil {
		return err
	}
	nu, ny := m.Dims()

	tuning, err := cfg.Tuning(nu, ny)
	if err != nil {
		return err
	}

	s, err := cfg.NewSolver()
	if err != nil {
		return err
	}

	c, err := controller.New(m, tuning, s)
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}

	plant, err := sim.Realize(m)
	if err != nil {
		return fmt.Errorf("failed to realize plant: %w", err)
	}

	lc, err := cfg.LoopConfig(ny)
	if err != nil {
		return err
	}

	loop, err := sim.NewLoop(c, m, plant, lc)
	if err != nil {
		return fmt.Errorf("failed to create control loop: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := loop.Run(ctx, cfg.Simulation.Reference, cfg.Simulation.Steps)
	if err != nil {
		if res == nil {
			return err
		}
		log.Printf("simulation stopped after %d steps: %v", res.Steps(), err)
	}
	log.Printf("simulated %d steps in %v", res.Steps(), time.Since(start))

	if res.Steps() == 0 {
		return nil
	}

	if res.Failures > 0 {
		log.Printf("controller failed in %d steps", res.Failures)
	}

	for i, y := range res.Outputs {
		fmt.Println(asciigraph.Plot(y,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("y%d (target %g)", i, res.Reference[i])),
		))
		fmt.Println()
	}

	printMetrics(sim.NewMetrics(res))

	if plotFile != "" {
		if err := savePlots(res, plotFile); err != nil {
			return err
		}
		log.Printf("plots saved to %s", plotFile)
	}

	return nil
}

func printMetrics(m *sim.Metrics) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OUTPUT\tOVERSHOOT\tIAE\tSETTLING")
	for i := range m.Overshoot {
		settling := "-"
		if m.Settling[i] >= 0 {
			settling = fmt.Sprintf("%d", m.Settling[i])
		}
		fmt.Fprintf(w, "y%d\t%.2f%%\t%.4f\t%s\n", i, 100*m.Overshoot[i], m.IAE[i], settling)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "INPUT\tEFFORT")
	for j, e := range m.Effort {
		fmt.Fprintf(w, "u%d\t%.4f\n", j, e)
	}
	w.Flush()
}

// savePlots saves output plot to path and input plot next to it
func savePlots(res *sim.Result, path string) error {
	p, err := sim.NewPlot(res)
	if err != nil {
		return fmt.Errorf("failed to create plot: %w", err)
	}

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}

	ip, err := sim.NewInputPlot(res)
	if err != nil {
		return fmt.Errorf("failed to create input plot: %w", err)
	}

	ext := filepath.Ext(path)
	inputs := strings.TrimSuffix(path, ext) + "_inputs" + ext

	if err := ip.Save(10*vg.Inch, 5*vg.Inch, inputs); err != nil {
		return fmt.Errorf("failed to save input plot: %w", err)
	}

	return nil
}

func printStep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	m, err := cfg.Model()
	if err != nil {
		return err
	}
	nu, ny := m.Dims()

	n := samples
	if n <= 0 {
		n = cfg.Horizons.Prediction
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PAIR\tSTEP RESPONSE")
	for i := 0; i < ny; i++ {
		for j := 0; j < nu; j++ {
			g, err := m.StepResponse(i, j, n)
			if err != nil {
				return err
			}

			vals := make([]string, len(g))
			for k, v := range g {
				vals[k] = fmt.Sprintf("%.4f", v)
			}
			fmt.Fprintf(w, "y%d/u%d\t%s\n", i, j, strings.Join(vals, " "))
		}
	}
	w.Flush()

	if !showMatrix {
		return nil
	}

	G, err := dynmat.New(m, cfg.Horizons.Prediction, cfg.Horizons.Control)
	if err != nil {
		return err
	}

	fmt.Printf("\nG =\n%.4f\n", mat.Formatted(G, mat.Squeeze()))

	return nil
}

func printConfig(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()

	if outFile != "" {
		return config.Save(outFile, cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(data)
	return err
}
