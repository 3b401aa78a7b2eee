package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/odesolve/internal/analysis"
	"github.com/san-kum/odesolve/internal/solver"
	"github.com/san-kum/odesolve/internal/storage"
	"github.com/san-kum/odesolve/internal/viz"
)

func newListCmd() *cobra.Command {
	var f storage.Filter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := listRuns(cmd, f)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSYSTEM\tSTEPPER\tSTATUS\tSTEPS\tDURATION\tTIMESTAMP")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%g\t%s\n",
					r.ID, r.System, r.Stepper, r.Status, r.Steps, r.Duration, r.Timestamp.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&f.System, "system", "", "only runs of this system")
	cmd.Flags().StringVar(&f.Stepper, "stepper", "", "only runs with this stepper type")
	cmd.Flags().StringVar(&f.Status, "status", "", "only runs with this status")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "maximum number of runs (0 = all)")
	return cmd
}

// listRuns queries the catalog when it is enabled and falls back to scanning
// the run directories.
func listRuns(cmd *cobra.Command, f storage.Filter) ([]storage.RunMetadata, error) {
	ctx := cmd.Context()
	cat, err := openCatalog(ctx)
	if err != nil {
		logger.Warn("catalog unavailable, scanning run directories", "err", err)
	}
	if cat != nil {
		defer cat.Close()
		return cat.Query(ctx, f)
	}

	runs, err := storage.New(dataDir).List()
	if err != nil {
		return nil, err
	}
	out := runs[:0]
	for _, r := range runs {
		if (f.System == "" || r.System == f.System) &&
			(f.Stepper == "" || r.Stepper == f.Stepper) &&
			(f.Status == "" || r.Status == f.Status) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run metadata and metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := storage.New(dataDir).Load(args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "run\t%s\n", meta.ID)
			fmt.Fprintf(w, "system\t%s\n", meta.System)
			fmt.Fprintf(w, "timestamp\t%s\n", meta.Timestamp.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(w, "stepper\t%s\n", meta.Stepper)
			fmt.Fprintf(w, "log\t%s\n", meta.Log)
			fmt.Fprintf(w, "time step\t%g\n", meta.TimeStep)
			fmt.Fprintf(w, "tolerances\trel %g, abs %g\n", meta.RelTol, meta.AbsTol)
			fmt.Fprintf(w, "interval\t[%g, %g]\n", meta.Start, meta.Start+meta.Duration)
			fmt.Fprintf(w, "status\t%s\n", meta.Status)
			fmt.Fprintf(w, "steps\t%d (rejected %d, evaluations %d)\n", meta.Steps, meta.Rejected, meta.Evaluations)
			for _, k := range sortedKeys(meta.Params) {
				fmt.Fprintf(w, "param %s\t%g\n", k, meta.Params[k])
			}
			if err := w.Flush(); err != nil {
				return err
			}
			printMetrics(meta.Metrics)
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.New(dataDir).Delete(args[0]); err != nil {
				return err
			}
			cat, err := openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			if cat != nil {
				defer cat.Close()
				if err := cat.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}

func loadSolutions(runID string) (*storage.RunMetadata, []solver.Solution, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	states, times, err := st.LoadStates(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(states) == 0 {
		return nil, nil, fmt.Errorf("run %s has no recorded states", runID)
	}
	return meta, storage.Solutions(states, times), nil
}

func newPlotCmd() *cobra.Command {
	var (
		components    []int
		width, height int
	)
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, sols, err := loadSolutions(args[0])
			if err != nil {
				return err
			}
			caption := fmt.Sprintf("%s (%s, %d samples)", meta.System, meta.Stepper, len(sols))
			out, err := viz.PlotComponents(sols, components, viz.PlotOptions{Width: width, Height: height, Caption: caption})
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&components, "components", nil, "state components to plot (default all)")
	cmd.Flags().IntVar(&width, "width", 70, "plot width")
	cmd.Flags().IntVar(&height, "height", 15, "plot height")
	return cmd
}

func newPhaseCmd() *cobra.Command {
	var (
		xAxis, yAxis  int
		crossIdx      int
		level         float64
		poincare      bool
		braille       bool
		width, height int
		svgPath       string
	)
	cmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sols, err := loadSolutions(args[0])
			if err != nil {
				return err
			}

			if poincare {
				section := analysis.PoincareSectionFrom(sols, crossIdx, level, xAxis, yAxis)
				if section == nil {
					return fmt.Errorf("state has fewer components than the requested indices")
				}
				fmt.Printf("Poincaré section x[%d] = %g, %d crossings\n", crossIdx, level, len(section.Points))
				fmt.Print(analysis.PoincareSectionToASCII(section, width, height))
				return nil
			}

			portrait := analysis.PhasePortrait(sols, xAxis, yAxis)
			if portrait == nil {
				return fmt.Errorf("state has fewer components than x[%d], x[%d]", xAxis, yAxis)
			}
			if svgPath != "" {
				pts := make([][2]float64, len(portrait.Points))
				for i, p := range portrait.Points {
					pts[i] = [2]float64{p.X, p.Y}
				}
				return withOutput(svgPath, func(w io.Writer) error {
					return viz.WriteTrajectorySVG(w, pts, 800, 600, "#00ffcc")
				})
			}
			fmt.Printf("phase portrait x[%d] vs x[%d]\n", xAxis, yAxis)
			if braille {
				c, err := viz.TrajectoryCanvas(sols, xAxis, yAxis, width, height/2)
				if err != nil {
					return err
				}
				fmt.Print(c.String())
				return nil
			}
			fmt.Print(analysis.PhasePortraitToASCII(portrait, width, height))
			return nil
		},
	}
	cmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	cmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis")
	cmd.Flags().BoolVar(&poincare, "poincare", false, "plot a Poincaré section instead")
	cmd.Flags().IntVar(&crossIdx, "cross", 0, "state index whose upward crossing defines the section")
	cmd.Flags().Float64Var(&level, "level", 0, "crossing level of the section")
	cmd.Flags().IntVar(&width, "width", 60, "plot width")
	cmd.Flags().IntVar(&height, "height", 25, "plot height")
	cmd.Flags().BoolVar(&braille, "braille", false, "draw the portrait as a connected Braille trace")
	cmd.Flags().StringVar(&svgPath, "svg", "", "write the portrait as SVG to this file instead")
	return cmd
}

func newExportCSVCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sols, err := loadSolutions(args[0])
			if err != nil {
				return err
			}
			return withOutput(output, func(w io.Writer) error {
				return storage.WriteCSV(w, sols)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newExportJSONCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			states, times, err := st.LoadStates(args[0])
			if err != nil {
				return err
			}
			return withOutput(output, func(w io.Writer) error {
				return storage.ExportJSON(w, *meta, states, times)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func withOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "exported to %s\n", path)
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
