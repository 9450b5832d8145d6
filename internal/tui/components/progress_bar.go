package components

import (
	"strings"
	"time"

	"github.com/opencode-ai/reel/internal/tui/styles"
)

// RenderProgressBar renders elapsed out of total as a bar width cells wide.
func RenderProgressBar(styleSet styles.Styles, elapsed, total time.Duration, width int) string {
	if width <= 0 {
		return ""
	}
	filled := width
	if total > 0 {
		filled = int(int64(width) * int64(min(max(elapsed, 0), total)) / int64(total))
	}
	return styleSet.ProgressFill.Render(strings.Repeat("█", filled)) +
		styleSet.ProgressEmpty.Render(strings.Repeat("░", width-filled))
}
