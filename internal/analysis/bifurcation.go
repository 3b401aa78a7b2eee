package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/solver"
)

// BifurcationPoint represents a stable state for a given parameter value
type BifurcationPoint struct {
	Param  float64
	Values []float64 // Stable/periodic values found
}

// Sweep describes the parameter range of a bifurcation diagram.
type Sweep struct {
	Param      string
	Min, Max   float64
	Steps      int
	StateIndex int
	Transient  float64
	Record     float64
	Samples    int
}

// BifurcationDiagram sweeps a parameter and records the distinct values of
// one state component after a transient. The original parameter value is
// restored afterwards.
func BifurcationDiagram(ctx context.Context, s *solver.NumericalSolver, sys dynamo.System, x0 dynamo.State, sw Sweep) ([]BifurcationPoint, error) {
	tunable, ok := sys.(dynamo.Configurable)
	if !ok {
		return nil, fmt.Errorf("%w: system has no parameters", dynamo.ErrConfiguration)
	}
	original, ok := tunable.Params()[sw.Param]
	if !ok {
		return nil, fmt.Errorf("%w: unknown parameter %q", dynamo.ErrConfiguration, sw.Param)
	}
	if sw.StateIndex < 0 || sw.StateIndex >= len(x0) {
		return nil, fmt.Errorf("%w: state index %d", dynamo.ErrConfiguration, sw.StateIndex)
	}
	defer func() { _ = tunable.SetParam(sw.Param, original) }()

	paramSteps := max(sw.Steps, 2)
	samples := max(sw.Samples, 1)
	paramStep := (sw.Max - sw.Min) / float64(paramSteps-1)

	times := make([]float64, samples)
	for i := range times {
		times[i] = sw.Transient + sw.Record*float64(i+1)/float64(samples)
	}

	results := make([]BifurcationPoint, 0, paramSteps)
	for i := 0; i < paramSteps; i++ {
		param := sw.Min + float64(i)*paramStep
		if err := tunable.SetParam(sw.Param, param); err != nil {
			return nil, err
		}

		sols, err := s.IntegrateTimes(ctx, x0, 0, times, sys)
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sw.Param, param, err)
		}

		// Quantize to find distinct values
		values := make([]float64, 0, len(sols))
		seen := make(map[int]bool)
		for _, sol := range sols {
			val := sol.State[sw.StateIndex]
			key := int(val * 1000)
			if !seen[key] {
				seen[key] = true
				values = append(values, val)
			}
		}

		results = append(results, BifurcationPoint{
			Param:  param,
			Values: values,
		})
	}

	return results, nil
}
// BifurcationToASCII converts bifurcation data to ASCII art
func BifurcationToASCII(data []BifurcationPoint, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	// Find value range - need at least one valid value
	var minVal, maxVal float64
	foundFirst := false
	for _, p := range data {
		for _, v := range p.Values {
			if !foundFirst {
				minVal, maxVal = v, v
				foundFirst = true
			} else {
				if v < minVal {
					minVal = v
				}
				if v > maxVal {
					maxVal = v
				}
			}
		}
	}
	if !foundFirst {
		return "" // No values to plot
	}

	if maxVal == minVal {
		maxVal = minVal + 1
	}

	// Create canvas
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	// Plot points
	for i, p := range data {
		col := i * width / len(data)
		if col >= width {
			col = width - 1
		}

		for _, v := range p.Values {
			row := height - 1 - int((v-minVal)/(maxVal-minVal)*float64(height-1))
			if row >= 0 && row < height && col >= 0 && col < width {
				canvas[row][col] = '•'
			}
		}
	}

	// Convert to string
	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
