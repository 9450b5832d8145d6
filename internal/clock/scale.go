package clock

import (
	"fmt"
	"time"
)

// Scaled runs a Clock faster or slower than its base.
type Scaled struct {
	base   Clock
	factor float64
	origin time.Time
}

// Scale wraps c so that its time passes factor times as fast. Now is
// anchored at c's current time.
func Scale(c Clock, factor float64) (*Scaled, error) {
	if c == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if factor <= 0 {
		return nil, fmt.Errorf("%w: speed must be greater than 0, got %g", ErrInvalidDelay, factor)
	}
	return &Scaled{base: c, factor: factor, origin: c.Now()}, nil
}

// Factor returns the speed multiplier.
func (s *Scaled) Factor() float64 {
	return s.factor
}

// Now returns the scaled time.
func (s *Scaled) Now() time.Time {
	passed := s.base.Now().Sub(s.origin)
	return s.origin.Add(time.Duration(float64(passed) * s.factor))
}

// After runs fn once after d of scaled time.
func (s *Scaled) After(d time.Duration, fn func()) (Handle, error) {
	if err := checkAfter(d, fn); err != nil {
		return nil, err
	}
	return s.base.After(s.toBase(d), fn)
}

// Every runs fn every d of scaled time.
func (s *Scaled) Every(d time.Duration, fn func()) (Handle, error) {
	if err := checkEvery(d, fn); err != nil {
		return nil, err
	}
	return s.base.Every(max(s.toBase(d), time.Nanosecond), fn)
}

func (s *Scaled) toBase(d time.Duration) time.Duration {
	return time.Duration(float64(d) / s.factor)
}
