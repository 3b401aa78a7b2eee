package viz

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/solver"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	trailCapacity   = 400
)

type TickMsg time.Time

// Model advances a system one frame at a time with a solver and draws its
// trajectory. The solver should use NoLog so its history stays empty.
type Model struct {
	ctx    context.Context
	solver *solver.NumericalSolver
	sys    dynamo.System
	name   string

	state, initialState dynamo.State
	t, frame            float64
	stats               solver.Stats
	err                 error

	canvas *Canvas
	trail  []dynamo.State
	angle  float64

	energyHistory []float64
	stepHistory   []float64

	params        map[string]float64
	initialParams map[string]float64
	paramKeys     []string
	selected      int

	running  bool
	showHelp bool
	theme    int
	styles   styles
}

// NewModel sets up a live view of sys starting at x0. Each frame advances the
// simulation by frame time units.
func NewModel(ctx context.Context, s *solver.NumericalSolver, sys dynamo.System, x0 dynamo.State, frame float64, name string) Model {
	params := make(map[string]float64)
	if c, ok := sys.(dynamo.Configurable); ok {
		for k, v := range c.Params() {
			params[k] = v
		}
	}
	keys := make([]string, 0, len(params))
	initialParams := make(map[string]float64, len(params))
	for k, v := range params {
		keys = append(keys, k)
		initialParams[k] = v
	}
	sort.Strings(keys)

	return Model{
		ctx:           ctx,
		solver:        s,
		sys:           sys,
		name:          name,
		state:         x0.Clone(),
		initialState:  x0.Clone(),
		frame:         frame,
		canvas:        NewCanvas(width/2, height-4),
		trail:         make([]dynamo.State, 0, trailCapacity),
		energyHistory: make([]float64, 0, historyCapacity),
		stepHistory:   make([]float64, 0, historyCapacity),
		params:        params,
		initialParams: initialParams,
		paramKeys:     keys,
		running:       true,
		styles:        newStyles(Themes[0]),
	}
}

// RunLive runs the model full screen until the user quits.
func RunLive(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if m.err == nil {
				m.running = !m.running
			}
		case "r":
			m.reset()
		case "tab":
			m.cycleParam()
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
			m.styles = newStyles(Themes[m.theme])
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.paramKeys)
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	val := m.params[key]
	if val == 0 {
		val = 1e-3
	}
	if err := m.setParam(key, val*factor); err != nil {
		m.err = err
	}
}

func (m *Model) setParam(key string, v float64) error {
	c, ok := m.sys.(dynamo.Configurable)
	if !ok {
		return nil
	}
	if err := c.SetParam(key, v); err != nil {
		return err
	}
	m.params[key] = v
	return nil
}

// step advances the simulation by one frame.
func (m *Model) step() {
	sol, err := m.solver.IntegrateTime(m.ctx, m.state, m.t, m.t+m.frame, m.sys)
	m.stats.Steps += sol.Stats.Steps
	m.stats.Rejected += sol.Stats.Rejected
	m.stats.Evaluations += sol.Stats.Evaluations
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	m.state, m.t = sol.State, sol.Time
	m.stats.LastStep = sol.Stats.LastStep

	m.trail = appendCapped(m.trail, m.state.Clone(), trailCapacity)
	m.stepHistory = appendCapped(m.stepHistory, math.Abs(sol.Stats.LastStep), historyCapacity)
	if e, ok := m.sys.(dynamo.Hamiltonian); ok {
		m.energyHistory = appendCapped(m.energyHistory, e.Energy(m.state), historyCapacity)
	}
	if len(m.state) >= 3 {
		m.angle += 0.01
	}
}

func appendCapped[T any](s []T, v T, capacity int) []T {
	s = append(s, v)
	if len(s) > capacity {
		s = s[1:]
	}
	return s
}

// reset restores the initial state and parameters.
func (m *Model) reset() {
	m.t = 0
	m.state = m.initialState.Clone()
	m.trail = m.trail[:0]
	m.energyHistory = m.energyHistory[:0]
	m.stepHistory = m.stepHistory[:0]
	m.stats = solver.Stats{}
	m.err = nil
	m.running = true
	for k, v := range m.initialParams {
		_ = m.setParam(k, v)
	}
}

// View renders the TUI interface.
func (m Model) View() string {
	m.draw()
	st := m.styles
	canvasView := st.canvas.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.name)) + "\n")
	switch {
	case m.err != nil:
		s.WriteString(st.failed.Render("STOPPED") + "\n" + st.value.Render(m.err.Error()) + "\n\n")
	case m.running:
		s.WriteString(st.running.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(st.paused.Render("PAUSED") + "\n\n")
	}

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy"))
		s.WriteString(st.graph.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.3f", m.t))
	row("Steps", fmt.Sprintf("%d", m.stats.Steps))
	row("Rejected", fmt.Sprintf("%d", m.stats.Rejected))
	row("Evals", fmt.Sprintf("%d", m.stats.Evaluations))
	row("Step", fmt.Sprintf("%.3g", m.stats.LastStep))
	row("", SparklineChart(m.stepHistory, 28))

	s.WriteString("\nPARAMETERS\n")
	if len(m.paramKeys) == 0 {
		s.WriteString(st.label.Render("  (none)") + "\n")
	}
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-10s %.4g", k, m.params[k])
		if i == m.selected {
			s.WriteString(st.active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.label.Render(line) + "\n")
		}
	}
	s.WriteString(st.help.Render("SP:Pause R:Reset Q:Quit\nT:Theme  ?:Help ↑↓:Tune"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.stats.Render(s.String()))
	if m.showHelp {
		return st.header.Render("KEYS") + "\n" +
			"  space     pause/resume\n" +
			"  r         reset state and parameters\n" +
			"  tab       next parameter\n" +
			"  up/down   scale parameter by ±5%\n" +
			"  t         next theme (" + strings.Join(ThemeNames(), ", ") + ")\n" +
			"  q         quit\n\n" + mainView
	}
	return mainView
}

// draw renders the trail projected onto the canvas.
func (m *Model) draw() {
	m.canvas.Clear()
	if len(m.trail) == 0 {
		return
	}

	if m.name == "pendulum" {
		m.drawPendulum()
		return
	}

	pts := make([][2]float64, len(m.trail))
	for i, x := range m.trail {
		pts[i] = m.projectState(x)
	}
	m.canvas.Polyline(pts)
}

// projectState picks the 2D view of a state. Three or more components are
// rotated slowly about the vertical axis.
func (m *Model) projectState(x dynamo.State) [2]float64 {
	switch len(x) {
	case 1:
		return [2]float64{m.t, x[0]}
	case 2:
		return [2]float64{x[0], x[1]}
	default:
		c, s := math.Cos(m.angle), math.Sin(m.angle)
		return [2]float64{c*x[0] + s*x[1], x[2]}
	}
}

func (m *Model) drawPendulum() {
	theta := m.state[0]
	// Pivot sits a quarter of the way down in sub-pixel space.
	cx, cy := m.canvas.Width, m.canvas.Height
	r := math.Min(float64(m.canvas.Width)*0.9, float64(m.canvas.Height)*2.5)
	bx := cx + int(r*math.Sin(theta))
	by := cy + int(r*math.Cos(theta))
	m.canvas.DrawLine(cx, cy, bx, by)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			m.canvas.Set(bx+dx, by+dy)
		}
	}
}
