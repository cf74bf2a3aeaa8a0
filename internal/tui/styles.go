package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by the form screen.
type Styles struct {
	Title    lipgloss.Style
	Endpoint lipgloss.Style
	Label    lipgloss.Style
	Focused  lipgloss.Style
	Input    lipgloss.Style
	Loading  lipgloss.Style
	Error    lipgloss.Style
	Result   lipgloss.Style
	Help     lipgloss.Style
}

// DefaultStyles returns the default colour scheme.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E5C07B")),
		Endpoint: lipgloss.NewStyle().Foreground(lipgloss.Color("#7F848E")),
		Label:    lipgloss.NewStyle().Width(10).Foreground(lipgloss.Color("#ABB2BF")),
		Focused:  lipgloss.NewStyle().Width(10).Bold(true).Foreground(lipgloss.Color("#61AFEF")),
		Input:    lipgloss.NewStyle().PaddingLeft(1),
		Loading:  lipgloss.NewStyle().Foreground(lipgloss.Color("#C678DD")),
		Error: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#E06C75")).
			Foreground(lipgloss.Color("#E06C75")).
			Padding(0, 1),
		Result: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#98C379")).
			Padding(0, 1),
		Help: lipgloss.NewStyle().Foreground(lipgloss.Color("#5C6370")),
	}
}
