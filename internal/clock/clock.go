// Package clock schedules cancelable one-shot and repeating callbacks.
package clock

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Clock errors.
var (
	ErrSchedulingFailed = errors.New("clock cannot schedule callbacks")
	ErrInvalidDelay     = errors.New("invalid clock delay")
)

// Handle is a scheduled callback that can be cancelled.
type Handle interface {
	// Cancel prevents any future invocation. Repeated calls and calls after
	// the callback fired are no-ops.
	Cancel()

	// Cancelled reports whether the handle was cancelled or has already fired.
	Cancelled() bool
}

// Clock schedules callbacks against a time source.
type Clock interface {
	// After runs fn once after d.
	After(d time.Duration, fn func()) (Handle, error)

	// Every runs fn repeatedly every d until cancelled.
	Every(d time.Duration, fn func()) (Handle, error)

	// Now returns the clock's current time.
	Now() time.Time
}

// Cancel cancels h if it is non-nil.
func Cancel(h Handle) {
	if h != nil {
		h.Cancel()
	}
}

type handle struct {
	cancelled atomic.Bool
	release   func()
}

func (h *handle) Cancel() {
	if !h.cancelled.CompareAndSwap(false, true) {
		return
	}
	if h.release != nil {
		h.release()
	}
}

func (h *handle) Cancelled() bool {
	return h.cancelled.Load()
}

func checkAfter(d time.Duration, fn func()) error {
	if fn == nil {
		return fmt.Errorf("%w: callback is required", ErrInvalidDelay)
	}
	if d < 0 {
		return fmt.Errorf("%w: negative delay %s", ErrInvalidDelay, d)
	}
	return nil
}

func checkEvery(d time.Duration, fn func()) error {
	if fn == nil {
		return fmt.Errorf("%w: callback is required", ErrInvalidDelay)
	}
	if d <= 0 {
		return fmt.Errorf("%w: interval must be greater than 0, got %s", ErrInvalidDelay, d)
	}
	return nil
}
