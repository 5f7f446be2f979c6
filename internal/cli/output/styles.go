package output

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles used by command output.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	StatusSuccess lipgloss.Style
	StatusWarning lipgloss.Style
	StatusError   lipgloss.Style
}

// newStyles builds the style set. Plain modes get zero styles so output
// stays clean when piped or rendered as markdown.
func newStyles(styled bool) *Styles {
	if !styled {
		return &Styles{}
	}
	return &Styles{
		Header1: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Bold:    lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),

		StatusSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("10")).SetString("✓"),
		StatusWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")).SetString("!"),
		StatusError:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).SetString("✗"),
	}
}
