package components

import (
	"strconv"
	"strings"

	"github.com/opencode-ai/reel/internal/timeline"
	"github.com/opencode-ai/reel/internal/tui/styles"
)

// RevealList renders the most recent revealed items, newest last. Typed
// items (id#n) collapse into one line showing the text typed so far.
type RevealList struct {
	Items []timeline.RevealItem
	// Fresh holds ids revealed by the latest change.
	Fresh map[string]bool
	Limit int
}

// Lines returns the rendered tail of the list.
func (l RevealList) Lines(styleSet styles.Styles) []string {
	items := collapseTyped(l.Items)
	if l.Limit > 0 && len(items) > l.Limit {
		items = items[len(items)-l.Limit:]
	}

	lines := make([]string, 0, len(items))
	for _, item := range items {
		style := styleSet.Text
		if l.Fresh[item.ID] {
			style = styleSet.Fresh
		}
		lines = append(lines, style.Render("+ "+item.Content))
	}
	return lines
}

func collapseTyped(items []timeline.RevealItem) []timeline.RevealItem {
	out := make([]timeline.RevealItem, 0, len(items))
	slot := make(map[string]int)
	for _, item := range items {
		prefix, ok := typedPrefix(item.ID)
		if !ok {
			out = append(out, item)
			continue
		}
		if i, seen := slot[prefix]; seen {
			out[i] = item
			continue
		}
		slot[prefix] = len(out)
		out = append(out, item)
	}
	return out
}

func typedPrefix(id string) (string, bool) {
	i := strings.LastIndexByte(id, '#')
	if i <= 0 {
		return "", false
	}
	if _, err := strconv.Atoi(id[i+1:]); err != nil {
		return "", false
	}
	return id[:i], true
}
