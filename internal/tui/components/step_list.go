package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/opencode-ai/reel/internal/player"
	"github.com/opencode-ai/reel/internal/timeline"
	"github.com/opencode-ai/reel/internal/tui/styles"
)

// StepList renders a timeline's steps with the current one marked.
type StepList struct {
	Steps []timeline.Step
	State player.State
	// BarWidth is the width of the current step's progress bar. Zero hides it.
	BarWidth int
}

// Lines returns one rendered line per step.
func (l StepList) Lines(styleSet styles.Styles) []string {
	lines := make([]string, 0, len(l.Steps))
	for i, step := range l.Steps {
		marker, style := l.marker(styleSet, i)
		line := style.Render(fmt.Sprintf("%s %-24s %6s", marker, step.ID, formatSeconds(step.Duration)))
		if i == l.State.StepIndex && l.active() && l.BarWidth > 0 {
			line += "  " + RenderProgressBar(styleSet, l.State.ElapsedInStep, step.Duration, l.BarWidth)
		}
		lines = append(lines, line)
	}
	return lines
}

func (l StepList) active() bool {
	return l.State.Status == player.StatusRunning || l.State.Status == player.StatusPaused
}

func (l StepList) marker(styleSet styles.Styles, index int) (string, lipgloss.Style) {
	switch {
	case l.State.Status == player.StatusIdle:
		return "·", styleSet.Muted
	case l.State.Status == player.StatusCompleted || index < l.State.StepIndex:
		return "✓", styleSet.Success
	case index == l.State.StepIndex:
		return "▶", styleSet.Focus
	default:
		return "·", styleSet.Muted
	}
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
