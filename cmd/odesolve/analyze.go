package main

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/odesolve/internal/analysis"
	"github.com/san-kum/odesolve/internal/solver"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "dynamics analysis (lyapunov, spectrum, bifurcation)",
	}
	cmd.AddCommand(newLyapunovCmd(), newSpectrumCmd(), newBifurcateCmd())
	return cmd
}

func newLyapunovCmd() *cobra.Command {
	var (
		f            runFlags
		interval     float64
		perturbation float64
	)
	cmd := &cobra.Command{
		Use:   "lyapunov [system]",
		Short: "estimate the largest Lyapunov exponent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd, args[0])
			if err != nil {
				return err
			}
			cfg.Log = solver.NoLog.String()

			sys, err := cfg.BuildSystem()
			if err != nil {
				return err
			}
			x0, err := cfg.GetInitState()
			if err != nil {
				return err
			}
			s, err := cfg.NewSolver(solver.WithLogger(logger))
			if err != nil {
				return err
			}

			lambda, err := analysis.LyapunovExponent(cmd.Context(), s, sys, x0, interval, math.Abs(cfg.Duration), perturbation)
			if err != nil {
				return err
			}
			fmt.Printf("largest Lyapunov exponent: %.6f\n", lambda)
			if lambda > 0.01 {
				fmt.Println("trajectory is chaotic")
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().Float64Var(&interval, "interval", 1.0, "renormalization interval")
	cmd.Flags().Float64Var(&perturbation, "perturbation", 1e-8, "initial separation")
	return cmd
}

func newSpectrumCmd() *cobra.Command {
	var component int
	cmd := &cobra.Command{
		Use:   "spectrum [run_id]",
		Short: "power spectrum of a run recorded on a constant grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, sols, err := loadSolutions(args[0])
			if err != nil {
				return err
			}
			if len(sols) < 3 {
				return fmt.Errorf("run %s has too few samples", args[0])
			}
			if meta.Log != solver.LogConstant.String() {
				logger.Warn("run was not recorded on a constant grid, spectrum is approximate", "log", meta.Log)
			}

			// The last interval may be clipped to the end time.
			dt := math.Abs(sols[1].Time - sols[0].Time)
			ps, err := analysis.ComponentSpectrum(sols[:len(sols)-1], component, dt)
			if err != nil {
				return err
			}

			fmt.Printf("dominant frequency of x[%d]: %.6g (period %.6g)\n", component, ps.DominantFrequency(), 1/ps.DominantFrequency())
			fmt.Println(asciigraph.Plot(ps.Power[1:], asciigraph.Height(10), asciigraph.Width(70), asciigraph.Caption("power")))
			return nil
		},
	}
	cmd.Flags().IntVar(&component, "component", 0, "state component to analyze")
	return cmd
}

func newBifurcateCmd() *cobra.Command {
	var (
		f  runFlags
		sw analysis.Sweep
	)
	cmd := &cobra.Command{
		Use:   "bifurcate [system]",
		Short: "sweep a parameter and plot long-run values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd, args[0])
			if err != nil {
				return err
			}
			cfg.Log = solver.NoLog.String()

			sys, err := cfg.BuildSystem()
			if err != nil {
				return err
			}
			x0, err := cfg.GetInitState()
			if err != nil {
				return err
			}
			s, err := cfg.NewSolver(solver.WithLogger(logger))
			if err != nil {
				return err
			}

			points, err := analysis.BifurcationDiagram(cmd.Context(), s, sys, x0, sw)
			if err != nil {
				return err
			}
			fmt.Printf("bifurcation of x[%d] over %s in [%g, %g]\n", sw.StateIndex, sw.Param, sw.Min, sw.Max)
			fmt.Print(analysis.BifurcationToASCII(points, 70, 20))
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&sw.Param, "sweep", "", "parameter to sweep")
	cmd.Flags().Float64Var(&sw.Min, "min", 0, "sweep start")
	cmd.Flags().Float64Var(&sw.Max, "max", 1, "sweep end")
	cmd.Flags().IntVar(&sw.Steps, "steps", 50, "number of parameter values")
	cmd.Flags().IntVar(&sw.StateIndex, "index", 0, "state component to record")
	cmd.Flags().Float64Var(&sw.Transient, "transient", 50, "time discarded before recording")
	cmd.Flags().Float64Var(&sw.Record, "record", 20, "recording window")
	cmd.Flags().IntVar(&sw.Samples, "samples", 100, "samples per parameter value")
	_ = cmd.MarkFlagRequired("sweep")
	return cmd
}
