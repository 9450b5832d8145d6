package player

import (
	"errors"
	"fmt"
	"time"

	"github.com/opencode-ai/reel/internal/timeline"
)

// Player errors.
var (
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrClockScheduling        = errors.New("clock scheduling failed")
)

// Status is the player's lifecycle state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// TransitionError reports a control call made from a state that forbids it.
type TransitionError struct {
	Op   string
	From Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s a %s player", ErrInvalidStateTransition, e.Op, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

// State is a snapshot of playback progress.
type State struct {
	Status        Status        `json:"status"`
	StepIndex     int           `json:"step_index"`
	StepID        string        `json:"step_id"`
	ElapsedInStep time.Duration `json:"elapsed_in_step"`
	Elapsed       time.Duration `json:"elapsed"`

	// Revealed lists revealed item ids in the order they appeared.
	Revealed []string `json:"revealed,omitempty"`
}

// IsRevealed reports whether the item with id is visible.
func (s State) IsRevealed(id string) bool {
	for _, r := range s.Revealed {
		if r == id {
			return true
		}
	}
	return false
}

func (s State) clone() State {
	out := s
	if len(s.Revealed) > 0 {
		out.Revealed = make([]string, len(s.Revealed))
		copy(out.Revealed, s.Revealed)
	} else {
		out.Revealed = nil
	}
	return out
}

// Change is delivered to listeners after each committed state change.
type Change struct {
	Previous State `json:"previous"`
	Current  State `json:"current"`

	// Entered lists the step ids entered by this change, in order.
	Entered []string `json:"entered,omitempty"`

	// Revealed lists items that became visible with this change.
	Revealed []timeline.RevealItem `json:"revealed,omitempty"`
}

// Completed reports whether this change finished the timeline.
func (c Change) Completed() bool {
	return c.Current.Status == StatusCompleted && c.Previous.Status != StatusCompleted
}

// StatusChanged reports whether the lifecycle status moved.
func (c Change) StatusChanged() bool {
	return c.Current.Status != c.Previous.Status
}

// Listener receives committed changes.
type Listener func(Change)
