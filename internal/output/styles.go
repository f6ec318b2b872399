package output

import "github.com/charmbracelet/lipgloss"

// Colors used by the formatter.
var (
	colorRed    = lipgloss.Color("#FF5555")
	colorGreen  = lipgloss.Color("#50FA7B")
	colorYellow = lipgloss.Color("#F1FA8C")
	colorCyan   = lipgloss.Color("#8BE9FD")
	colorGray   = lipgloss.Color("#6272A4")
)

// styles are bound to the formatter's renderer so that color is dropped
// when the writer is not a terminal.
type styles struct {
	title     lipgloss.Style
	recording lipgloss.Style
	idle      lipgloss.Style
	success   lipgloss.Style
	warning   lipgloss.Style
	err       lipgloss.Style
	dim       lipgloss.Style
	label     lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title: r.NewStyle().
			Bold(true).
			Foreground(colorCyan),

		recording: r.NewStyle().
			Foreground(colorRed).
			Bold(true),

		idle: r.NewStyle().
			Foreground(colorGray),

		success: r.NewStyle().
			Foreground(colorGreen),

		warning: r.NewStyle().
			Foreground(colorYellow),

		err: r.NewStyle().
			Foreground(colorRed).
			Bold(true),

		dim: r.NewStyle().
			Foreground(colorGray),

		label: r.NewStyle().
			Foreground(colorCyan).
			Width(12),
	}
}
