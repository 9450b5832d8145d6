// Package timeline describes immutable scripts of timed steps and reveal items.
package timeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrInvalidTimeline is returned when steps violate duration or offset rules.
var ErrInvalidTimeline = errors.New("invalid timeline")

// RevealItem is content that becomes visible at Offset within its step.
type RevealItem struct {
	ID      string        `json:"id"`
	Content string        `json:"content"`
	Offset  time.Duration `json:"offset"`
}

// Step is one phase of a timeline.
type Step struct {
	ID       string        `json:"id"`
	Duration time.Duration `json:"duration"`
	Reveals  []RevealItem  `json:"reveals,omitempty"`
}

// IsMarker reports whether the step only marks a phase change.
func (s Step) IsMarker() bool {
	return len(s.Reveals) == 0
}

// Timeline is an ordered, validated list of steps. It is never mutated
// after New returns.
type Timeline struct {
	steps  []Step
	starts []time.Duration
	total  time.Duration
}

// New validates steps and builds a timeline. Reveal items are ordered by
// offset; items with equal offsets keep their input order. An empty reveal
// ID defaults to the item's content.
func New(steps ...Step) (*Timeline, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: at least one step is required", ErrInvalidTimeline)
	}

	tl := &Timeline{
		steps:  make([]Step, len(steps)),
		starts: make([]time.Duration, len(steps)),
	}

	stepIDs := make(map[string]struct{}, len(steps))
	itemIDs := make(map[string]struct{})

	for i, in := range steps {
		step := Step{
			ID:       strings.TrimSpace(in.ID),
			Duration: in.Duration,
			Reveals:  make([]RevealItem, len(in.Reveals)),
		}
		copy(step.Reveals, in.Reveals)

		if step.ID == "" {
			return nil, fmt.Errorf("%w: step %d: id is required", ErrInvalidTimeline, i+1)
		}
		if _, dup := stepIDs[step.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate step id %q", ErrInvalidTimeline, step.ID)
		}
		stepIDs[step.ID] = struct{}{}

		if step.Duration < 0 {
			return nil, fmt.Errorf("%w: step %q: negative duration %s", ErrInvalidTimeline, step.ID, step.Duration)
		}

		for j := range step.Reveals {
			item := &step.Reveals[j]
			if item.ID == "" {
				item.ID = item.Content
			}
			if item.ID == "" {
				return nil, fmt.Errorf("%w: step %q reveal %d: id or content is required", ErrInvalidTimeline, step.ID, j+1)
			}
			if _, dup := itemIDs[item.ID]; dup {
				return nil, fmt.Errorf("%w: duplicate reveal id %q", ErrInvalidTimeline, item.ID)
			}
			itemIDs[item.ID] = struct{}{}

			if item.Offset < 0 {
				return nil, fmt.Errorf("%w: step %q reveal %q: negative offset %s", ErrInvalidTimeline, step.ID, item.ID, item.Offset)
			}
			if item.Offset > step.Duration {
				return nil, fmt.Errorf("%w: step %q reveal %q: offset %s exceeds step duration %s",
					ErrInvalidTimeline, step.ID, item.ID, item.Offset, step.Duration)
			}
		}

		sort.SliceStable(step.Reveals, func(a, b int) bool {
			return step.Reveals[a].Offset < step.Reveals[b].Offset
		})

		tl.steps[i] = step
		tl.starts[i] = tl.total
		tl.total += step.Duration
	}

	return tl, nil
}

// MustNew is New for package-level fixtures; it panics on invalid input.
func MustNew(steps ...Step) *Timeline {
	tl, err := New(steps...)
	if err != nil {
		panic(err)
	}
	return tl
}

// Len returns the number of steps.
func (t *Timeline) Len() int {
	return len(t.steps)
}

// TotalDuration returns the sum of step durations.
func (t *Timeline) TotalDuration() time.Duration {
	return t.total
}

// Step returns a copy of step i.
func (t *Timeline) Step(i int) Step {
	return cloneStep(t.steps[i])
}

// Steps returns a copy of every step.
func (t *Timeline) Steps() []Step {
	out := make([]Step, len(t.steps))
	for i, s := range t.steps {
		out[i] = cloneStep(s)
	}
	return out
}

// StepStart returns the cursor at which step i begins.
func (t *Timeline) StepStart(i int) time.Duration {
	return t.starts[i]
}

// IndexOf returns the index of the step with id, or -1.
func (t *Timeline) IndexOf(id string) int {
	for i, s := range t.steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// RevealCount returns the number of reveal items across all steps.
func (t *Timeline) RevealCount() int {
	n := 0
	for _, s := range t.steps {
		n += len(s.Reveals)
	}
	return n
}

// StepAt resolves a timeline cursor to a step and the offset within it.
// The cursor is clamped to [0, TotalDuration]. A boundary belongs to the
// following step; zero-length steps are only returned when last.
func (t *Timeline) StepAt(cursor time.Duration) (int, Step, time.Duration) {
	if cursor < 0 {
		cursor = 0
	}
	for i, s := range t.steps {
		if cursor < t.starts[i]+s.Duration {
			return i, cloneStep(s), cursor - t.starts[i]
		}
	}
	last := len(t.steps) - 1
	return last, cloneStep(t.steps[last]), t.steps[last].Duration
}

// RevealDue returns the items of step whose offset has been reached, in
// reveal order.
func RevealDue(step Step, offset time.Duration) []RevealItem {
	n := sort.Search(len(step.Reveals), func(i int) bool {
		return step.Reveals[i].Offset > offset
	})
	out := make([]RevealItem, n)
	copy(out, step.Reveals[:n])
	return out
}

func cloneStep(s Step) Step {
	out := s
	if s.Reveals != nil {
		out.Reveals = make([]RevealItem, len(s.Reveals))
		copy(out.Reveals, s.Reveals)
	}
	return out
}
