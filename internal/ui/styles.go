package ui

import "github.com/charmbracelet/lipgloss"

var (
	accent      = lipgloss.Color("#8BC34A")
	muted       = lipgloss.Color("#6B7280")
	destructive = lipgloss.Color("#E53935")
	info        = lipgloss.Color("#2196F3")
	warning     = lipgloss.Color("#FFC107")
)

// Styles groups the lipgloss styles used by the bidding view.
type Styles struct {
	Title        lipgloss.Style
	Section      lipgloss.Style
	Item         lipgloss.Style
	Selected     lipgloss.Style
	Cursor       lipgloss.Style
	Muted        lipgloss.Style
	Notification lipgloss.Style
	Status       lipgloss.Style
	Help         lipgloss.Style
	AlertInfo    lipgloss.Style
	AlertWarning lipgloss.Style
	AlertError   lipgloss.Style
}

func DefaultStyles() Styles {
	alert := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(1, 3).
		Width(56)

	return Styles{
		Title:        lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1),
		Section:      lipgloss.NewStyle().Bold(true).Underline(true),
		Item:         lipgloss.NewStyle(),
		Selected:     lipgloss.NewStyle().Bold(true).Foreground(accent),
		Cursor:       lipgloss.NewStyle().Foreground(accent),
		Muted:        lipgloss.NewStyle().Foreground(muted),
		Notification: lipgloss.NewStyle().Foreground(info),
		Status:       lipgloss.NewStyle().Foreground(muted).Italic(true),
		Help:         lipgloss.NewStyle().Foreground(muted),
		AlertInfo:    alert.BorderForeground(accent),
		AlertWarning: alert.BorderForeground(warning),
		AlertError:   alert.BorderForeground(destructive),
	}
}
