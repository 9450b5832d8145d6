package components

import (
	"fmt"
	"strings"

	"github.com/opencode-ai/reel/internal/tui/styles"
)

// EmptyState represents an empty state message with optional suggestions.
type EmptyState struct {
	// Icon is an optional icon to display (e.g., "⏳", "🎬").
	Icon string
	// Title is the main empty state message.
	Title string
	// Subtitle is an optional secondary message.
	Subtitle string
	// Suggestions are keys or commands the user can try.
	Suggestions []Suggestion
}

// Suggestion represents a suggested key or command with description.
type Suggestion struct {
	Command     string
	Description string
}

// Render renders the empty state with the given styles.
func (e EmptyState) Render(styleSet styles.Styles) string {
	var lines []string

	titleLine := e.Title
	if e.Icon != "" {
		titleLine = e.Icon + "  " + titleLine
	}
	lines = append(lines, styleSet.Muted.Render(titleLine))

	if e.Subtitle != "" {
		lines = append(lines, styleSet.Muted.Render(e.Subtitle))
	}

	if len(e.Suggestions) > 0 {
		lines = append(lines, "")
		for _, s := range e.Suggestions {
			line := fmt.Sprintf("  %s", styleSet.Accent.Render(s.Command))
			if s.Description != "" {
				line += styleSet.Muted.Render(fmt.Sprintf("  %s", s.Description))
			}
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n")
}

// RenderCompact renders a compact single-line empty state.
func (e EmptyState) RenderCompact(styleSet styles.Styles) string {
	line := e.Title
	if e.Icon != "" {
		line = e.Icon + " " + line
	}
	if len(e.Suggestions) > 0 {
		line += fmt.Sprintf(" Try: %s", e.Suggestions[0].Command)
	}
	return styleSet.Muted.Render(line)
}

// NothingRevealed is shown before the first item of a play appears.
func NothingRevealed() EmptyState {
	return EmptyState{
		Icon:     "⏳",
		Title:    "Nothing revealed yet",
		Subtitle: "Items appear here as the timeline reaches them.",
	}
}

// Stopped is shown after playback was stopped.
func Stopped() EmptyState {
	return EmptyState{
		Icon:  "⏹",
		Title: "Playback stopped",
		Suggestions: []Suggestion{
			{Command: "space", Description: "start again"},
			{Command: "q", Description: "quit"},
		},
	}
}
