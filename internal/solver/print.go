package solver

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/odesolve/internal/dynamo"
)

const printTitle = "Numerical Solver"

type printField struct {
	label string
	value string
}

func fields(s *NumericalSolver) []printField {
	if !s.IsDefined() {
		return []printField{{"Defined", "false"}}
	}
	return []printField{
		{"Integration logging type", s.settings.LogType.String()},
		{"Integration stepper type", s.settings.StepperType.String()},
		{"Integration time step", fmt.Sprintf("%g", s.settings.TimeStep)},
		{"Integration relative tolerance", fmt.Sprintf("%g", s.settings.RelativeTolerance)},
		{"Integration absolute tolerance", fmt.Sprintf("%g", s.settings.AbsoluteTolerance)},
		{"Observed states", fmt.Sprintf("%d", len(s.history))},
	}
}

// printSolver renders with a renderer bound to w so that colors are only
// emitted for terminals.
func printSolver(w io.Writer, s *NumericalSolver, decorated bool) error {
	if w == nil {
		return fmt.Errorf("%w: nil writer", dynamo.ErrConfiguration)
	}

	r := lipgloss.NewRenderer(w)
	label := r.NewStyle().Foreground(lipgloss.Color("#888899")).Width(34)
	value := r.NewStyle().Foreground(lipgloss.Color("#00ccff")).Bold(true)

	var b strings.Builder
	if decorated {
		header := r.NewStyle().
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#444466"))
		b.WriteString(header.Render(printTitle))
		b.WriteByte('\n')
	}

	for _, f := range fields(s) {
		b.WriteString(label.Render(f.label + ":"))
		b.WriteString(value.Render(f.value))
		b.WriteByte('\n')
	}

	if decorated {
		footer := r.NewStyle().Foreground(lipgloss.Color("#444466"))
		b.WriteString(footer.Render(strings.Repeat("─", 48)))
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderString(s *NumericalSolver) string {
	var b strings.Builder
	_ = printSolver(&b, s, true)
	return b.String()
}
