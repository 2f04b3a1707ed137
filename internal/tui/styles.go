// Package tui provides a bubbletea + lipgloss monitor for the loop
// control plane: a live table of registered loops with key bindings for
// pause, resume, cancel, abort, and the eval prompt.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	colorWhite  = lipgloss.Color("#FAFAFA")
	colorGray   = lipgloss.Color("#888888")
	colorGreen  = lipgloss.Color("#6BCB77")
	colorYellow = lipgloss.Color("#FFD93D")
	colorRed    = lipgloss.Color("#FF6B6B")
)

// Styles used across the monitor. The accent-dependent header style lives
// on the Model and is computed from the configured accent color.
var (
	footerStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	selectedStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Bold(true)

	runningStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	pausedStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	canceledStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	statusLineStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)
)

// statusStyle returns the style for a loop status word.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "paused":
		return pausedStyle
	case "canceled":
		return canceledStyle
	default:
		return runningStyle
	}
}
