package scripts

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"text/template"
	"time"

	"github.com/opencode-ai/reel/internal/reveal"
	"github.com/opencode-ai/reel/internal/timeline"
)

// jitterStream is the PCG stream paired with a script's jitter seed.
const jitterStream = 0x5eed_0f_2ee1

// Build compiles script into a timeline. Reveal contents and typed text are
// rendered as templates with vars; missing optional variables fall back to
// their defaults.
func Build(script *Script, vars map[string]string) (*timeline.Timeline, error) {
	if script == nil {
		return nil, fmt.Errorf("script is required")
	}

	data, err := resolveVars(script, vars)
	if err != nil {
		return nil, err
	}

	var rng *rand.Rand
	var spread time.Duration
	if script.Jitter != nil {
		spread, err = parseDuration(script.Jitter.Max)
		if err != nil {
			return nil, fmt.Errorf("build script %q: invalid jitter max: %w", script.Name, err)
		}
		rng = rand.New(rand.NewPCG(script.Jitter.Seed, jitterStream))
	}

	steps := make([]timeline.Step, 0, len(script.Steps))
	for _, in := range script.Steps {
		duration, err := parseDuration(in.Duration)
		if err != nil {
			return nil, fmt.Errorf("build script %q step %q: invalid duration: %w", script.Name, in.ID, err)
		}

		step := timeline.Step{ID: in.ID, Duration: duration}
		for _, item := range in.Reveals {
			offset, err := parseDuration(item.Offset)
			if err != nil {
				return nil, fmt.Errorf("build script %q step %q: invalid offset: %w", script.Name, in.ID, err)
			}
			if rng != nil && spread > 0 && offset <= duration {
				offset = min(offset+time.Duration(rng.Int64N(int64(spread))), duration)
			}

			content, err := renderText(script.Name, item.Content, data)
			if err != nil {
				return nil, fmt.Errorf("build script %q step %q: %w", script.Name, in.ID, err)
			}
			step.Reveals = append(step.Reveals, timeline.RevealItem{
				ID:      item.ID,
				Content: content,
				Offset:  offset,
			})
		}

		if in.Type != nil {
			typed, err := buildTyping(script.Name, in, duration, data)
			if err != nil {
				return nil, fmt.Errorf("build script %q step %q: %w", script.Name, in.ID, err)
			}
			step.Reveals = append(step.Reveals, typed...)
		}

		steps = append(steps, step)
	}

	tl, err := timeline.New(steps...)
	if err != nil {
		return nil, fmt.Errorf("build script %q: %w", script.Name, err)
	}
	return tl, nil
}

// HoldDuration returns the script's hold, or fallback when it sets none.
func (s *Script) HoldDuration(fallback time.Duration) time.Duration {
	if s.Hold == "" {
		return fallback
	}
	hold, err := parseDuration(s.Hold)
	if err != nil || hold < 0 {
		return fallback
	}
	return hold
}

func buildTyping(name string, step ScriptStep, duration time.Duration, data map[string]string) ([]timeline.RevealItem, error) {
	typing := step.Type

	start, err := parseDuration(typing.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid typing start: %w", err)
	}
	end := duration
	if typing.End != "" {
		end, err = parseDuration(typing.End)
		if err != nil {
			return nil, fmt.Errorf("invalid typing end: %w", err)
		}
	}

	text, err := renderText(name, typing.Text, data)
	if err != nil {
		return nil, err
	}

	prefix := typing.ID
	if prefix == "" {
		prefix = step.ID
	}
	return reveal.Type(prefix, text, reveal.Unit(typing.Unit), start, end)
}

func resolveVars(script *Script, vars map[string]string) (map[string]string, error) {
	data := make(map[string]string, len(vars))
	for key, value := range vars {
		data[key] = value
	}

	for _, variable := range script.Variables {
		if strings.TrimSpace(data[variable.Name]) != "" {
			continue
		}
		if variable.Default != "" {
			data[variable.Name] = variable.Default
			continue
		}
		if variable.Required {
			return nil, fmt.Errorf("script %q: missing required variable %q", script.Name, variable.Name)
		}
	}
	return data, nil
}

func renderText(name, content string, data map[string]string) (string, error) {
	if !strings.Contains(content, "{{") {
		return content, nil
	}

	parsed, err := template.New(name).
		Funcs(template.FuncMap{"default": defaultValue}).
		Option("missingkey=zero").
		Parse(content)
	if err != nil {
		return "", fmt.Errorf("parse template %q: %w", name, err)
	}

	var out strings.Builder
	if err := parsed.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render template %q: %w", name, err)
	}
	return out.String(), nil
}

func defaultValue(def string, value any) string {
	if value == nil {
		return def
	}
	text := strings.TrimSpace(fmt.Sprint(value))
	if text == "" {
		return def
	}
	return text
}

// Duration returns the sum of the script's step durations.
func (s *Script) Duration() time.Duration {
	var total time.Duration
	for _, step := range s.Steps {
		d, err := parseDuration(step.Duration)
		if err == nil && d > 0 {
			total += d
		}
	}
	return total
}
