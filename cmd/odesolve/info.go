package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/odesolve/internal/analysis"
	"github.com/san-kum/odesolve/internal/config"
	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/integrators"
	"github.com/san-kum/odesolve/internal/systems"
)

func init() {
	// First-order baseline for converge.
	integrators.Register("euler", func() integrators.Stepper { return integrators.NewEuler() })
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [system]",
		Short: "list available presets for a system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for system: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, name := range presets {
				p := config.GetPreset(args[0], name)
				fmt.Printf("  %-12s %-11s %-9s dt=%-6g t=%g\n", name, p.Stepper, p.Log, p.TimeStep, p.Duration)
			}
			return nil
		},
	}
}

func newSystemsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "systems",
		Short: "list built-in systems and their parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range systems.Names() {
				sys, err := systems.Lookup(name)
				if err != nil {
					return err
				}

				var params []string
				if c, ok := sys.(dynamo.Configurable); ok {
					p := c.Params()
					for _, k := range sortedKeys(p) {
						params = append(params, fmt.Sprintf("%s=%g", k, p[k]))
					}
				}
				var traits []string
				if _, ok := sys.(dynamo.Hamiltonian); ok {
					traits = append(traits, "energy")
				}
				if _, ok := sys.(dynamo.Solvable); ok {
					traits = append(traits, "exact")
				}

				fmt.Printf("%-11s x0=%-28v %s", name, []float64(systems.DefaultState(sys)), strings.Join(params, " "))
				if len(traits) > 0 {
					fmt.Printf(" [%s]", strings.Join(traits, ","))
				}
				fmt.Println()
			}
			return nil
		},
	}
}

func newConvergeCmd() *cobra.Command {
	var (
		f     runFlags
		steps []float64
	)
	cmd := &cobra.Command{
		Use:   "converge [system] [stepper]",
		Short: "measure the empirical order of a stepper against an exact solution",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd, args[0])
			if err != nil {
				return err
			}
			sys, err := cfg.BuildSystem()
			if err != nil {
				return err
			}
			solvable, ok := sys.(dynamo.Solvable)
			if !ok {
				return fmt.Errorf("system %s has no exact solution", args[0])
			}
			x0, err := cfg.GetInitState()
			if err != nil {
				return err
			}

			stepper, err := integrators.New(args[1])
			if err != nil {
				return fmt.Errorf("%w (available: %v)", err, integrators.Names())
			}

			exact := solvable.Exact(x0, cfg.Duration)
			errs, err := analysis.StepStudy(cmd.Context(), stepper, sys, x0, cfg.Duration, exact, steps)
			if err != nil {
				return err
			}

			fmt.Printf("%-12s %-14s %s\n", "STEP", "ERROR", "RATIO")
			for i, h := range steps {
				ratio := "-"
				if i > 0 && errs[i] > 0 {
					ratio = fmt.Sprintf("%.2f", math.Log(errs[i-1]/errs[i])/math.Log(steps[i-1]/h))
				}
				fmt.Printf("%-12g %-14.4e %s\n", h, errs[i], ratio)
			}

			order, err := analysis.ConvergenceOrder(steps, errs)
			if err != nil {
				return err
			}
			fmt.Printf("\nobserved order %.2f (nominal %d)\n", order, stepper.Order())
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().Float64SliceVar(&steps, "steps", []float64{0.1, 0.05, 0.025, 0.0125}, "fixed step sizes")
	return cmd
}
