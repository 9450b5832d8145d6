package clock

import (
	"sync"
	"time"
)

// Manual is a Clock whose time only moves when Advance is called.
// Callbacks run synchronously on the goroutine calling Advance.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*manualTimer
	fail   error
}

type manualTimer struct {
	h     *handle
	at    time.Time
	every time.Duration
	seq   uint64
	fn    func()
}

// NewManual returns a manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the manual clock's current time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// After schedules fn once, d after the current manual time.
func (m *Manual) After(d time.Duration, fn func()) (Handle, error) {
	if err := checkAfter(d, fn); err != nil {
		return nil, err
	}
	return m.schedule(d, 0, fn)
}

// Every schedules fn every d of manual time.
func (m *Manual) Every(d time.Duration, fn func()) (Handle, error) {
	if err := checkEvery(d, fn); err != nil {
		return nil, err
	}
	return m.schedule(d, d, fn)
}

// Fail makes subsequent schedule calls return err. Pass nil to recover.
func (m *Manual) Fail(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

// Pending returns the number of live scheduled callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Advance moves time forward by d, firing due callbacks in deadline order.
// Callbacks sharing a deadline fire in scheduling order. It returns the
// number of callbacks fired.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	fired := 0
	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			if target.After(m.now) {
				m.now = target
			}
			m.mu.Unlock()
			return fired
		}

		m.now = next.at
		if next.every > 0 {
			m.seq++
			next.at = next.at.Add(next.every)
			next.seq = m.seq
		} else {
			m.removeLocked(next)
			next.h.cancelled.Store(true)
		}
		m.mu.Unlock()

		next.fn()
		fired++
	}
}

func (m *Manual) schedule(d, every time.Duration, fn func()) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return nil, m.fail
	}

	m.seq++
	t := &manualTimer{
		h:     &handle{},
		at:    m.now.Add(d),
		every: every,
		seq:   m.seq,
		fn:    fn,
	}
	t.h.release = func() {
		m.mu.Lock()
		m.removeLocked(t)
		m.mu.Unlock()
	}
	m.timers = append(m.timers, t)
	return t.h, nil
}

func (m *Manual) nextDue(target time.Time) *manualTimer {
	var next *manualTimer
	for _, t := range m.timers {
		if t.at.After(target) {
			continue
		}
		if next == nil || t.at.Before(next.at) || (t.at.Equal(next.at) && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

func (m *Manual) removeLocked(target *manualTimer) {
	for i, t := range m.timers {
		if t == target {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}
