package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naviserver-project/nsloopctl/internal/control"
)

// refreshInterval is how often the monitor polls the registry.
const refreshInterval = 250 * time.Millisecond

// Model is the bubbletea model for the loop monitor.
type Model struct {
	reg     *control.Registry
	timeout time.Duration

	// Display state
	rows    []control.Info
	workers []string
	cursor  int
	width   int
	height  int

	// Eval prompt
	input     textinput.Model
	prompting bool
	promptID  string

	// Last action/result line
	status    string
	statusErr bool

	headerStyle lipgloss.Style
}

// tickMsg drives the periodic registry poll.
type tickMsg time.Time

// evalResultMsg carries the outcome of an eval rendezvous back to the UI.
type evalResultMsg struct {
	id     string
	result string
	err    error
}

// New creates a monitor over the given registry. evalTimeout is the
// rendezvous deadline used by the eval prompt; accent is a hex color for
// the header bar.
func New(reg *control.Registry, evalTimeout time.Duration, accent string) Model {
	input := textinput.New()
	input.Placeholder = "script, e.g. 2+2"
	input.CharLimit = 256

	m := Model{
		reg:     reg,
		timeout: evalTimeout,
		input:   input,
		width:   80,
		height:  24,
		headerStyle: lipgloss.NewStyle().
			Foreground(colorWhite).
			Background(lipgloss.Color(accent)).
			Bold(true),
	}
	m.snapshot()
	return m
}

// Init starts the poll ticker.
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// snapshot pulls the current loop and worker state from the registry.
func (m *Model) snapshot() {
	ids := m.reg.Loops()
	rows := make([]control.Info, 0, len(ids))
	for _, id := range ids {
		// A loop can deregister between the snapshot and the lookup.
		if info, err := m.reg.Info(id); err == nil {
			rows = append(rows, info)
		}
	}
	m.rows = rows
	m.workers = m.reg.Workers()
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// selected returns the loop under the cursor, if any.
func (m Model) selected() (control.Info, bool) {
	if len(m.rows) == 0 || m.cursor >= len(m.rows) {
		return control.Info{}, false
	}
	return m.rows[m.cursor], true
}
