// Package scripts loads declarative timeline scripts and compiles them into
// playable timelines.
package scripts

// Script is a named, declarative timeline.
type Script struct {
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description" json:"description,omitempty"`
	Tags        []string     `yaml:"tags,omitempty" json:"tags,omitempty"`
	Hold        string       `yaml:"hold,omitempty" json:"hold,omitempty"`
	Variables   []Variable   `yaml:"variables,omitempty" json:"variables,omitempty"`
	Jitter      *Jitter      `yaml:"jitter,omitempty" json:"jitter,omitempty"`
	Steps       []ScriptStep `yaml:"steps" json:"steps"`
	Source      string       `yaml:"-" json:"source"` // file path or "builtin"
}

// Variable is a template value referenced by reveal contents.
type Variable struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
	Default     string `yaml:"default,omitempty" json:"default,omitempty"`
	Required    bool   `yaml:"required" json:"required"`
}

// Jitter shifts reveal offsets by a seeded random amount in [0, Max).
type Jitter struct {
	Seed uint64 `yaml:"seed" json:"seed"`
	Max  string `yaml:"max" json:"max"`
}

// ScriptStep is one phase of a script.
type ScriptStep struct {
	ID       string         `yaml:"id" json:"id"`
	Duration string         `yaml:"duration" json:"duration"`
	Reveals  []ScriptReveal `yaml:"reveals,omitempty" json:"reveals,omitempty"`
	Type     *Typing        `yaml:"type,omitempty" json:"type,omitempty"`
}

// ScriptReveal is an item shown at Offset within its step.
type ScriptReveal struct {
	ID      string `yaml:"id,omitempty" json:"id,omitempty"`
	Content string `yaml:"content" json:"content"`
	Offset  string `yaml:"offset,omitempty" json:"offset,omitempty"`
}

// Typing types Text out over [Start, End] of its step.
type Typing struct {
	ID    string `yaml:"id,omitempty" json:"id,omitempty"`
	Text  string `yaml:"text" json:"text"`
	Unit  string `yaml:"unit,omitempty" json:"unit,omitempty"`
	Start string `yaml:"start,omitempty" json:"start,omitempty"`
	End   string `yaml:"end,omitempty" json:"end,omitempty"`
}

// HasTag reports whether the script carries tag.
func (s *Script) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
