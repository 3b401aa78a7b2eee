package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/solver"
)

const brailleBlank = 0x2800

// brailleDots maps a sub-pixel (column, row) inside one 2x4 cell to its
// Braille dot bit.
var brailleDots = [2][4]rune{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// Canvas is a Braille raster. Each cell holds 2x4 sub-pixels, so the
// addressable area is (Width*2) x (Height*4) with the origin top left.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: max(w, 1), Height: max(h, 1)}
	c.Grid = make([][]rune, c.Height)
	for i := range c.Grid {
		c.Grid[i] = make([]rune, c.Width)
	}
	c.Clear()
	return c
}

// Set lights the sub-pixel (x, y). Points off the canvas are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 || x >= c.Width*2 || y >= c.Height*4 {
		return
	}
	c.Grid[y/4][x/2] |= brailleDots[x%2][y%4]
}

func (c *Canvas) Clear() {
	for _, row := range c.Grid {
		for j := range row {
			row[j] = brailleBlank
		}
	}
}

// DrawLine draws a segment with Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, sx := x1-x0, 1
	if dx < 0 {
		dx, sx = -dx, -1
	}
	dy, sy := y1-y0, 1
	if dy < 0 {
		dy, sy = -dy, -1
	}

	e := dx - dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 > -dy {
			e -= dy
			x0 += sx
		}
		if e2 < dx {
			e += dx
			y0 += sy
		}
	}
}

// Project maps a point inside the box [lo, hi] onto sub-pixel coordinates,
// with y growing upwards.
func (c *Canvas) Project(x, y float64, lo, hi [2]float64) (int, int) {
	w, h := float64(c.Width*2-1), float64(c.Height*4-1)
	dx, dy := hi[0]-lo[0], hi[1]-lo[1]
	if dx == 0 {
		dx = 1
	}
	if dy == 0 {
		dy = 1
	}
	px := (x - lo[0]) / dx * w
	py := h - (y-lo[1])/dy*h
	return int(px), int(py)
}

// Polyline scales pts to fill the canvas and joins consecutive points.
// Non-finite points break the line.
func (c *Canvas) Polyline(pts [][2]float64) {
	lo, hi, ok := bounds(pts)
	if !ok {
		return
	}

	havePrev := false
	var px, py int
	for _, p := range pts {
		if !finitePoint(p) {
			havePrev = false
			continue
		}
		x, y := c.Project(p[0], p[1], lo, hi)
		if havePrev {
			c.DrawLine(px, py, x, y)
		} else {
			c.Set(x, y)
		}
		px, py, havePrev = x, y, true
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// TrajectoryCanvas draws the observed states x[xIdx] against x[yIdx] as a
// connected Braille trace of w x h cells.
func TrajectoryCanvas(solutions []solver.Solution, xIdx, yIdx, w, h int) (*Canvas, error) {
	if len(solutions) == 0 {
		return nil, fmt.Errorf("%w: no observed states", dynamo.ErrConfiguration)
	}
	pts := make([][2]float64, len(solutions))
	for i, sol := range solutions {
		if xIdx < 0 || yIdx < 0 || xIdx >= len(sol.State) || yIdx >= len(sol.State) {
			return nil, &dynamo.DimensionError{Want: max(xIdx, yIdx) + 1, Got: len(sol.State)}
		}
		pts[i] = [2]float64{sol.State[xIdx], sol.State[yIdx]}
	}

	c := NewCanvas(w, h)
	c.Polyline(pts)
	return c, nil
}

func bounds(pts [][2]float64) (lo, hi [2]float64, ok bool) {
	lo = [2]float64{math.Inf(1), math.Inf(1)}
	hi = [2]float64{math.Inf(-1), math.Inf(-1)}
	for _, p := range pts {
		if !finitePoint(p) {
			continue
		}
		lo = [2]float64{min(lo[0], p[0]), min(lo[1], p[1])}
		hi = [2]float64{max(hi[0], p[0]), max(hi[1], p[1])}
		ok = true
	}
	return lo, hi, ok
}

func finitePoint(p [2]float64) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
