// Package styles provides shared lipgloss styles for CLI output.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	Bold    = lipgloss.NewStyle().Bold(true)
	Muted   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	Success = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	Error   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Changed renders a per-step changed flag.
func Changed(changed bool) string {
	if changed {
		return Success.Render("changed")
	}
	return Muted.Render("ok")
}
