package scripts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opencode-ai/reel/internal/reveal"
)

// LoadScript reads a single script from disk.
func LoadScript(path string) (*Script, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("script path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}

	script, err := ParseScript(data)
	if err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	script.Source = path
	return script, nil
}

// LoadScriptsFromDir loads every .yaml and .yml script in dir. A missing
// directory yields no scripts.
func LoadScriptsFromDir(dir string) ([]*Script, error) {
	if strings.TrimSpace(dir) == "" {
		return []*Script{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Script{}, nil
		}
		return nil, fmt.Errorf("read scripts dir %s: %w", dir, err)
	}

	scripts := make([]*Script, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		script, err := LoadScript(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, script)
	}

	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].Name < scripts[j].Name
	})

	return scripts, nil
}

// ParseScript decodes and normalizes a YAML script. Durations are checked
// here; timing rules that need the whole timeline are checked by Build.
func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, err
	}

	script.Name = strings.TrimSpace(script.Name)
	if script.Name == "" {
		return nil, fmt.Errorf("script name is required")
	}
	script.Description = strings.TrimSpace(script.Description)
	script.Hold = strings.TrimSpace(script.Hold)

	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("script steps are required")
	}

	if hold, err := parseDuration(script.Hold); err != nil {
		return nil, fmt.Errorf("invalid hold: %w", err)
	} else if hold < 0 {
		return nil, fmt.Errorf("hold must not be negative, got %s", script.Hold)
	}

	if script.Jitter != nil {
		script.Jitter.Max = strings.TrimSpace(script.Jitter.Max)
		spread, err := parseDuration(script.Jitter.Max)
		if err != nil {
			return nil, fmt.Errorf("invalid jitter max: %w", err)
		}
		if spread < 0 {
			return nil, fmt.Errorf("jitter max must not be negative, got %s", script.Jitter.Max)
		}
	}

	seen := make(map[string]struct{})
	for i := range script.Variables {
		name := strings.TrimSpace(script.Variables[i].Name)
		if name == "" {
			return nil, fmt.Errorf("script variable name is required")
		}
		if _, exists := seen[name]; exists {
			return nil, fmt.Errorf("duplicate script variable %q", name)
		}
		seen[name] = struct{}{}
		script.Variables[i].Name = name
	}

	for i := range script.Steps {
		if err := normalizeStep(&script.Steps[i]); err != nil {
			return nil, fmt.Errorf("script step %d: %w", i+1, err)
		}
	}

	return &script, nil
}

func normalizeStep(step *ScriptStep) error {
	step.ID = strings.TrimSpace(step.ID)
	step.Duration = strings.TrimSpace(step.Duration)

	if step.ID == "" {
		return fmt.Errorf("step id is required")
	}
	if step.Duration == "" {
		return fmt.Errorf("step %q: duration is required", step.ID)
	}
	if _, err := parseDuration(step.Duration); err != nil {
		return fmt.Errorf("step %q: invalid duration: %w", step.ID, err)
	}

	for i := range step.Reveals {
		item := &step.Reveals[i]
		item.ID = strings.TrimSpace(item.ID)
		item.Offset = strings.TrimSpace(item.Offset)
		if strings.TrimSpace(item.Content) == "" && item.ID == "" {
			return fmt.Errorf("step %q: reveal %d needs an id or content", step.ID, i+1)
		}
		if item.Offset != "" {
			if _, err := parseDuration(item.Offset); err != nil {
				return fmt.Errorf("step %q: reveal %d: invalid offset: %w", step.ID, i+1, err)
			}
		}
	}

	if step.Type != nil {
		typing := step.Type
		typing.ID = strings.TrimSpace(typing.ID)
		typing.Unit = strings.ToLower(strings.TrimSpace(typing.Unit))
		typing.Start = strings.TrimSpace(typing.Start)
		typing.End = strings.TrimSpace(typing.End)

		if strings.TrimSpace(typing.Text) == "" {
			return fmt.Errorf("step %q: typing text is required", step.ID)
		}
		if typing.Unit == "" {
			typing.Unit = string(reveal.UnitChar)
		}
		switch reveal.Unit(typing.Unit) {
		case reveal.UnitChar, reveal.UnitWord:
		default:
			return fmt.Errorf("step %q: unknown typing unit %q", step.ID, typing.Unit)
		}
		for _, value := range []string{typing.Start, typing.End} {
			if value == "" {
				continue
			}
			if _, err := parseDuration(value); err != nil {
				return fmt.Errorf("step %q: invalid typing window: %w", step.ID, err)
			}
		}
	}

	return nil
}

// parseDuration accepts Go duration strings. Empty means zero. Range checks
// on step timing are left to the timeline.
func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	return time.ParseDuration(value)
}
