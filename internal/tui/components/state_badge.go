// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/opencode-ai/reel/internal/player"
	"github.com/opencode-ai/reel/internal/tui/styles"
)

// RenderStatusBadge renders a player status with icon and color.
func RenderStatusBadge(styleSet styles.Styles, status player.Status) string {
	icon, label, style := statusDescriptor(styleSet, status)
	return style.Render(fmt.Sprintf("%s %s", icon, label))
}

func statusDescriptor(styleSet styles.Styles, status player.Status) (string, string, lipgloss.Style) {
	switch status {
	case player.StatusRunning:
		return ">", "Running", styleSet.StatusRunning
	case player.StatusPaused:
		return "P", "Paused", styleSet.StatusPaused
	case player.StatusCompleted:
		return "OK", "Completed", styleSet.StatusCompleted
	case player.StatusIdle:
		return "-", "Idle", styleSet.StatusIdle
	default:
		return "-", normalizeStatusLabel(status), styleSet.Muted
	}
}

func normalizeStatusLabel(status player.Status) string {
	value := strings.TrimSpace(strings.ReplaceAll(string(status), "_", " "))
	if value == "" {
		return "Unknown"
	}
	return strings.ToUpper(value[:1]) + value[1:]
}
