package styles

import "github.com/charmbracelet/lipgloss"

// Styles contains lipgloss styles derived from theme tokens.
type Styles struct {
	Theme   Theme
	Title   lipgloss.Style
	Text    lipgloss.Style
	Muted   lipgloss.Style
	Accent  lipgloss.Style
	Panel   lipgloss.Style
	Border  lipgloss.Style
	Focus   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	StatusIdle      lipgloss.Style
	StatusRunning   lipgloss.Style
	StatusPaused    lipgloss.Style
	StatusCompleted lipgloss.Style

	// Fresh marks items revealed by the latest change.
	Fresh         lipgloss.Style
	ProgressFill  lipgloss.Style
	ProgressEmpty lipgloss.Style
}

// DefaultStyles builds styles from the default theme.
func DefaultStyles() Styles {
	return BuildStyles(DefaultTheme)
}

// BuildStyles converts theme tokens into lipgloss styles.
func BuildStyles(theme Theme) Styles {
	tokens := theme.Tokens
	fg := func(color string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
	}

	return Styles{
		Theme:   theme,
		Title:   fg(tokens.Text).Bold(true),
		Text:    fg(tokens.Text),
		Muted:   fg(tokens.TextMuted),
		Accent:  fg(tokens.Accent),
		Panel:   fg(tokens.Text).Background(lipgloss.Color(tokens.Panel)).BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color(tokens.Border)),
		Border:  fg(tokens.Border),
		Focus:   fg(tokens.Focus).Bold(true),
		Success: fg(tokens.Success),
		Warning: fg(tokens.Warning),
		Error:   fg(tokens.Error),
		Info:    fg(tokens.Info),

		StatusIdle:      fg(tokens.TextMuted),
		StatusRunning:   fg(tokens.Info),
		StatusPaused:    fg(tokens.Warning),
		StatusCompleted: fg(tokens.Success),

		Fresh:         fg(tokens.Highlight).Bold(true),
		ProgressFill:  fg(tokens.Accent),
		ProgressEmpty: fg(tokens.Border),
	}
}
