package tui

import (
	"fmt"
	"strings"
	"time"
)

// View renders the monitor: header bar, loop table, status line, footer.
func (m Model) View() string {
	header := m.renderHeader()
	table := m.renderTable()
	status := m.renderStatus()
	footer := m.renderFooter()

	return header + "\n" + table + "\n" + status + "\n" + footer
}

func (m Model) renderHeader() string {
	content := fmt.Sprintf("loopctl  │  loops: %d  │  workers: %d", len(m.rows), len(m.workers))
	return m.headerStyle.Width(m.width).Render(content)
}

func (m Model) renderTable() string {
	var b strings.Builder
	b.WriteString(footerStyle.Render(fmt.Sprintf("  %-6s %-6s %-10s %10s %8s  %s",
		"ID", "WORKER", "STATUS", "ITER", "AGE", "COMMAND")))

	if len(m.rows) == 0 {
		b.WriteString("\n  (no loops registered)")
	}

	for i, row := range m.rows {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		age := time.Since(row.Started).Round(time.Second)
		line := fmt.Sprintf("%s%-6s %-6s %-10s %10d %8s  %s",
			marker, row.ID, row.Worker,
			statusStyle(row.Status).Render(fmt.Sprintf("%-10s", row.Status)),
			row.Iterations, age, truncate(row.Command, m.width-50))
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString("\n" + line)
	}

	// Pad to a stable height so the status and footer do not jump around.
	lines := len(m.rows)
	if lines == 0 {
		lines = 1
	}
	for i := lines; i < m.tableHeight(); i++ {
		b.WriteByte('\n')
	}

	return b.String()
}

func (m Model) tableHeight() int {
	h := m.height - 4 // header, table heading, status, footer
	if h < 3 {
		h = 3
	}
	return h
}

func (m Model) renderStatus() string {
	if m.prompting {
		return statusLineStyle.Render(fmt.Sprintf("eval %s > %s", m.promptID, m.input.View()))
	}
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return errorStyle.Render(m.status)
	}
	return statusLineStyle.Render(m.status)
}

func (m Model) renderFooter() string {
	help := "[j/k] move  [p]ause  [r]esume  [c]ancel  [a]bort worker  [e]val  [q]uit"
	if m.prompting {
		help = "[enter] run  [esc] cancel"
	}
	return footerStyle.Width(m.width).Render(help)
}

func truncate(s string, max int) string {
	if max < 8 {
		max = 8
	}
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
