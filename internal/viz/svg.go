package viz

import (
	"bufio"
	"fmt"
	"io"

	"github.com/san-kum/odesolve/internal/dynamo"
)

// WriteTrajectorySVG draws points as a single polyline scaled into a
// width x height SVG with 10% padding on each axis.
func WriteTrajectorySVG(w io.Writer, points [][2]float64, width, height int, stroke string) error {
	if len(points) < 2 {
		return fmt.Errorf("%w: need at least two points", dynamo.ErrConfiguration)
	}

	lo, hi := points[0], points[0]
	for _, p := range points {
		lo = [2]float64{min(lo[0], p[0]), min(lo[1], p[1])}
		hi = [2]float64{max(hi[0], p[0]), max(hi[1], p[1])}
	}
	for i := range 2 {
		span := hi[i] - lo[i]
		if span == 0 {
			span = 1
		}
		lo[i] -= span * 0.1
		hi[i] += span * 0.1
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="`, width, height, width, height, stroke)

	for i, p := range points {
		x := (p[0] - lo[0]) / (hi[0] - lo[0]) * float64(width)
		y := float64(height) - (p[1]-lo[1])/(hi[1]-lo[1])*float64(height)
		cmd := " L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(bw, "%s%.1f,%.1f", cmd, x, y)
	}

	bw.WriteString("\"/>\n</svg>\n")
	return bw.Flush()
}
