package ui

import "github.com/charmbracelet/lipgloss"

// Accent colors with light and dark terminal variants.
var (
	accent = lipgloss.AdaptiveColor{Light: "#0F6E8C", Dark: "#33FFEE"}
	good   = lipgloss.AdaptiveColor{Light: "#1B7F3B", Dark: "#04B575"}
	bad    = lipgloss.AdaptiveColor{Light: "#B00020", Dark: "#FF5F5F"}
	notice = lipgloss.AdaptiveColor{Light: "#8A5A00", Dark: "#FFA500"}
	muted  = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#626262"}
)

var styles = newTheme()

// theme holds the login screen's [lipgloss.Style] set.
type theme struct {
	title   lipgloss.Style
	link    lipgloss.Style
	code    lipgloss.Style
	spinner lipgloss.Style
	ok      lipgloss.Style
	err     lipgloss.Style
	warn    lipgloss.Style
	help    lipgloss.Style
}

func newTheme() theme {
	fg := func(c lipgloss.TerminalColor) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}

	return theme{
		title:   fg(accent).Bold(true).MarginBottom(1),
		link:    fg(accent).Bold(true),
		code:    fg(accent).Bold(true).Padding(0, 2).Border(lipgloss.RoundedBorder()).BorderForeground(accent),
		spinner: fg(accent),
		ok:      fg(good).Bold(true),
		err:     fg(bad).Bold(true),
		warn:    fg(notice),
		help:    fg(muted).Italic(true),
	}
}
