package cli

import (
	"fmt"
	"strings"

	"github.com/opencode-ai/reel/internal/player"
)

func formatPlayerStatus(status player.Status) string {
	label, color := statusLabelForPlayer(status)
	return colorize(formatStatusLabel(label, string(status)), color)
}

func statusLabelForPlayer(status player.Status) (string, string) {
	switch status {
	case player.StatusRunning:
		return "RUN", colorCyan
	case player.StatusPaused:
		return "WAIT", colorYellow
	case player.StatusCompleted:
		return "OK", colorGreen
	case player.StatusIdle:
		return "IDLE", colorGray
	default:
		return "WARN", colorMagenta
	}
}

func formatStatusLabel(label, status string) string {
	normalized := strings.TrimSpace(status)
	if normalized != "" {
		normalized = strings.ReplaceAll(normalized, "_", " ")
	}
	if normalized == "" {
		return label
	}
	return fmt.Sprintf("%s %s", label, normalized)
}
