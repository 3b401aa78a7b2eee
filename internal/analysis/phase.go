package analysis

import (
	"strings"

	"github.com/san-kum/odesolve/internal/solver"
)

type Point struct{ X, Y float64 }

// PhasePortrait2D holds data for a 2D phase space plot
type PhasePortrait2D struct {
	XIndex, YIndex int
	Points         []Point
}

// PhasePortrait projects recorded solutions onto two state components.
func PhasePortrait(solutions []solver.Solution, xIdx, yIdx int) *PhasePortrait2D {
	portrait := &PhasePortrait2D{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: make([]Point, 0, len(solutions)),
	}

	for _, sol := range solutions {
		if xIdx >= len(sol.State) || yIdx >= len(sol.State) || xIdx < 0 || yIdx < 0 {
			return nil
		}
		portrait.Points = append(portrait.Points, Point{X: sol.State[xIdx], Y: sol.State[yIdx]})
	}

	return portrait
}

// PhasePortraitToASCII converts phase portrait to ASCII art
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	// Find bounds
	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y

	for _, p := range portrait.Points {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))

		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// Draw axes if they cross the visible area
	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// PoincareSection records points when a trajectory crosses a plane
type PoincareSection struct {
	Points []Point
}

// PoincareSectionFrom records the (recordX, recordY) components, linearly
// interpolated, wherever component crossIdx crosses threshold upwards.
func PoincareSectionFrom(solutions []solver.Solution, crossIdx int, threshold float64, recordX, recordY int) *PoincareSection {
	section := &PoincareSection{Points: make([]Point, 0)}
	for i := 1; i < len(solutions); i++ {
		prev, cur := solutions[i-1].State, solutions[i].State
		if crossIdx >= len(cur) || recordX >= len(cur) || recordY >= len(cur) {
			return nil
		}
		a, b := prev[crossIdx], cur[crossIdx]
		if !(a < threshold && b >= threshold) {
			continue
		}
		frac := (threshold - a) / (b - a)
		section.Points = append(section.Points, Point{
			X: prev[recordX] + frac*(cur[recordX]-prev[recordX]),
			Y: prev[recordY] + frac*(cur[recordY]-prev[recordY]),
		})
	}
	return section
}

// PoincareSectionToASCII converts section data to ASCII plot
func PoincareSectionToASCII(section *PoincareSection, width, height int) string {
	if section == nil || len(section.Points) == 0 {
		return "No crossings detected"
	}

	portrait := &PhasePortrait2D{Points: section.Points}
	return PhasePortraitToASCII(portrait, width, height)
}
