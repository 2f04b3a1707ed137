package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Update handles incoming messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.snapshot()
		return m, tick()

	case evalResultMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("eval %s: %v", msg.id, msg.err)
			m.statusErr = true
		} else {
			m.status = fmt.Sprintf("eval %s = %s", msg.id, msg.result)
			m.statusErr = false
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompting {
		return m.handlePromptKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "p":
		m.act("pause", m.reg.Pause)
	case "r":
		m.act("resume", m.reg.Resume)
	case "c":
		m.act("cancel", m.reg.Cancel)
	case "a":
		if row, ok := m.selected(); ok {
			err := m.reg.Abort(row.Worker)
			m.setActionStatus(fmt.Sprintf("abort %s", row.Worker), err)
		}
	case "e":
		if row, ok := m.selected(); ok {
			m.prompting = true
			m.promptID = row.ID
			m.input.SetValue("")
			return m, m.input.Focus()
		}
	}
	return m, nil
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.prompting = false
		m.input.Blur()
		return m, nil
	case "enter":
		id := m.promptID
		script := m.input.Value()
		m.prompting = false
		m.input.Blur()
		m.status = fmt.Sprintf("eval %s: waiting...", id)
		m.statusErr = false
		return m, m.evalCmd(id, script)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// act applies a signal operation to the selected loop.
func (m *Model) act(name string, op func(string) error) {
	row, ok := m.selected()
	if !ok {
		return
	}
	m.setActionStatus(fmt.Sprintf("%s %s", name, row.ID), op(row.ID))
}

func (m *Model) setActionStatus(what string, err error) {
	if err != nil {
		m.status = fmt.Sprintf("%s: %v", what, err)
		m.statusErr = true
		return
	}
	m.status = what
	m.statusErr = false
}

// evalCmd issues the rendezvous off the UI goroutine; the result comes
// back as an evalResultMsg.
func (m Model) evalCmd(id, script string) tea.Cmd {
	reg, timeout := m.reg, m.timeout
	return func() tea.Msg {
		result, err := reg.Eval(id, script, timeout)
		return evalResultMsg{id: id, result: result, err: err}
	}
}
