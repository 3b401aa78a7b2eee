package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/solver"
)

// PlotOptions controls the size of an ASCII chart.
type PlotOptions struct {
	Width, Height int
	Caption       string
}

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Cyan, asciigraph.Magenta, asciigraph.Yellow, asciigraph.Green, asciigraph.Red, asciigraph.Blue,
}

// Series extracts one state component from recorded solutions.
func Series(solutions []solver.Solution, idx int) ([]float64, error) {
	out := make([]float64, len(solutions))
	for i, sol := range solutions {
		if idx < 0 || idx >= len(sol.State) {
			return nil, fmt.Errorf("%w: component %d of %d", dynamo.ErrDimensionMismatch, idx, len(sol.State))
		}
		out[i] = sol.State[idx]
	}
	return out, nil
}

// PlotComponents draws the given state components of a trajectory against
// sample index. An empty idx plots every component.
func PlotComponents(solutions []solver.Solution, idx []int, opts PlotOptions) (string, error) {
	if len(solutions) == 0 {
		return "", fmt.Errorf("%w: nothing to plot", dynamo.ErrConfiguration)
	}
	if len(idx) == 0 {
		for i := range solutions[0].State {
			idx = append(idx, i)
		}
	}

	data := make([][]float64, 0, len(idx))
	colors := make([]asciigraph.AnsiColor, 0, len(idx))
	for n, i := range idx {
		series, err := Series(solutions, i)
		if err != nil {
			return "", err
		}
		data = append(data, series)
		colors = append(colors, seriesColors[n%len(seriesColors)])
	}

	graphOpts := []asciigraph.Option{asciigraph.SeriesColors(colors...)}
	if opts.Width > 0 {
		graphOpts = append(graphOpts, asciigraph.Width(opts.Width))
	}
	if opts.Height > 0 {
		graphOpts = append(graphOpts, asciigraph.Height(opts.Height))
	}
	if opts.Caption != "" {
		graphOpts = append(graphOpts, asciigraph.Caption(opts.Caption))
	}
	return asciigraph.PlotMany(data, graphOpts...), nil
}
