// Package player drives a timeline forward on a clock and publishes the
// resulting state changes.
package player

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opencode-ai/reel/internal/clock"
	"github.com/opencode-ai/reel/internal/logging"
	"github.com/opencode-ai/reel/internal/reveal"
	"github.com/opencode-ai/reel/internal/timeline"
)

// DefaultTick is the tick granularity used when none is given.
const DefaultTick = 100 * time.Millisecond

// Player advances one timeline. State is guarded by a mutex so State may be
// read from any goroutine; control calls are expected on the clock's
// dispatch goroutine, matching a single-threaded host loop.
type Player struct {
	id     string
	tl     *timeline.Timeline
	clk    clock.Clock
	tick   time.Duration
	logger zerolog.Logger

	mu       sync.Mutex
	state    State
	step     timeline.Step
	driver   *reveal.Driver
	ticker   clock.Handle
	gen      uint64 // invalidates tick callbacks of a released ticker
	lastTick time.Time

	subs       []*subscription
	queue      []queuedChange
	delivering bool
	stops      uint64 // changes committed before the latest Stop are dropped
}

type queuedChange struct {
	change Change
	stops  uint64
}

type subscription struct {
	fn     Listener
	active bool
}

// New binds a player to tl. A non-positive tick uses DefaultTick.
func New(tl *timeline.Timeline, clk clock.Clock, tick time.Duration) (*Player, error) {
	if tl == nil {
		return nil, errors.New("timeline is required")
	}
	if clk == nil {
		return nil, errors.New("clock is required")
	}
	if tick <= 0 {
		tick = DefaultTick
	}

	id := uuid.New().String()
	p := &Player{
		id:     id,
		tl:     tl,
		clk:    clk,
		tick:   tick,
		logger: logging.Component("player").With().Str("player_id", id).Logger(),
	}
	p.resetLocked()
	return p, nil
}

// ID returns the player's session id.
func (p *Player) ID() string {
	return p.id
}

// Timeline returns the timeline being played.
func (p *Player) Timeline() *timeline.Timeline {
	return p.tl
}

// Tick returns the tick granularity.
func (p *Player) Tick() time.Duration {
	return p.tick
}

// State returns a snapshot of the current state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.clone()
}

// Subscribe registers fn for every committed change and returns a function
// that removes it. Both are safe to call from inside a listener.
func (p *Player) Subscribe(fn Listener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	sub := &subscription{fn: fn, active: true}
	p.mu.Lock()
	p.subs = append(p.subs, sub)
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			sub.active = false
			for i, s := range p.subs {
				if s == sub {
					p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Start begins playback from the first step. It is only valid from Idle.
func (p *Player) Start() error {
	p.mu.Lock()
	if p.state.Status != StatusIdle {
		from := p.state.Status
		p.mu.Unlock()
		return &TransitionError{Op: "start", From: from}
	}
	prev := p.state.clone()
	err := p.startLocked(prev)
	p.mu.Unlock()

	p.flush()
	return err
}

// Pause freezes playback. Time elapsed since the last tick is committed
// first, so nothing is lost on Resume. If that time finishes the timeline
// the player completes instead of pausing.
func (p *Player) Pause() error {
	p.mu.Lock()
	if p.state.Status != StatusRunning {
		from := p.state.Status
		p.mu.Unlock()
		return &TransitionError{Op: "pause", From: from}
	}

	prev := p.state.clone()
	entered, revealed := p.commitLocked()
	if p.state.Status == StatusRunning {
		p.releaseTickerLocked()
		p.state.Status = StatusPaused
		p.logger.Debug().Str("step", p.state.StepID).Dur("elapsed", p.state.Elapsed).Msg("paused")
	}
	p.emitLocked(prev, entered, revealed)
	p.mu.Unlock()

	p.flush()
	return nil
}

// Resume continues a paused player from exactly where it stopped.
func (p *Player) Resume() error {
	p.mu.Lock()
	if p.state.Status != StatusPaused {
		from := p.state.Status
		p.mu.Unlock()
		return &TransitionError{Op: "resume", From: from}
	}

	if err := p.scheduleLocked(); err != nil {
		p.mu.Unlock()
		return err
	}
	prev := p.state.clone()
	p.state.Status = StatusRunning
	p.logger.Debug().Str("step", p.state.StepID).Dur("elapsed", p.state.Elapsed).Msg("resumed")
	p.emitLocked(prev, nil, nil)
	p.mu.Unlock()

	p.flush()
	return nil
}

// Restart resets progress and starts again. It is valid from any state and
// produces the same notifications as Start on a fresh player.
func (p *Player) Restart() error {
	p.mu.Lock()
	wasIdle := p.state.Status == StatusIdle
	before := p.state.clone()

	p.releaseTickerLocked()
	p.resetLocked()
	idle := p.state.clone()

	err := p.startLocked(idle)
	if err != nil && !wasIdle {
		// The previous session is gone; tell listeners the player is idle.
		p.emitLocked(before, nil, nil)
	}
	p.mu.Unlock()

	p.flush()
	return err
}

// Finish jumps straight to the final frame. Every remaining step is entered
// and every remaining item revealed in a single change.
func (p *Player) Finish() error {
	p.mu.Lock()
	if p.state.Status == StatusCompleted {
		p.mu.Unlock()
		return &TransitionError{Op: "finish", From: StatusCompleted}
	}

	prev := p.state.clone()
	var entered []string
	var revealed []timeline.RevealItem
	switch p.state.Status {
	case StatusIdle:
		entered = append(entered, p.step.ID)
	case StatusRunning:
		entered, revealed = p.commitLocked()
	}

	if p.state.Status != StatusCompleted {
		e, r := p.advanceLocked(p.tl.TotalDuration() - p.state.Elapsed)
		entered = append(entered, e...)
		revealed = append(revealed, r...)
	}
	p.releaseTickerLocked()
	p.emitLocked(prev, entered, revealed)
	p.mu.Unlock()

	p.flush()
	return nil
}

// FinishOnStart subscribes a listener that jumps every run to its final
// frame as soon as it starts. A failed Finish is logged to logger.
func (p *Player) FinishOnStart(logger zerolog.Logger) (unsubscribe func()) {
	return p.Subscribe(func(change Change) {
		if change.Previous.Status != StatusIdle || change.Current.Status != StatusRunning {
			return
		}
		if err := p.Finish(); err != nil {
			logger.Warn().Err(err).Msg("reduced motion finish failed")
		}
	})
}

// Stop releases every scheduled callback and returns the player to Idle.
// It is idempotent; once it returns no further change is committed until
// the player is started again. Changes committed before the stop that have
// not reached every listener yet, as when a listener calls Stop, are dropped
// for the listeners still waiting; they see the Idle change next.
func (p *Player) Stop() {
	p.mu.Lock()
	if p.state.Status == StatusIdle {
		p.mu.Unlock()
		return
	}

	prev := p.state.clone()
	p.releaseTickerLocked()
	p.resetLocked()
	p.stops++
	p.logger.Debug().Str("from", string(prev.Status)).Msg("stopped")
	p.emitLocked(prev, nil, nil)
	p.mu.Unlock()

	p.flush()
}

func (p *Player) startLocked(prev State) error {
	if err := p.scheduleLocked(); err != nil {
		return err
	}

	p.state.Status = StatusRunning
	entered, revealed := p.advanceLocked(0)
	entered = append([]string{p.tl.Step(0).ID}, entered...)

	p.logger.Debug().
		Str("step", p.state.StepID).
		Dur("tick", p.tick).
		Dur("total", p.tl.TotalDuration()).
		Msg("started")

	p.emitLocked(prev, entered, revealed)
	return nil
}

// scheduleLocked installs a fresh ticker anchored at the clock's now.
func (p *Player) scheduleLocked() error {
	p.releaseTickerLocked()

	gen := p.gen
	h, err := p.clk.Every(p.tick, func() { p.onTick(gen) })
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to schedule ticks")
		return fmt.Errorf("%w: %w", ErrClockScheduling, err)
	}
	p.ticker = h
	p.lastTick = p.clk.Now()
	return nil
}

// releaseTickerLocked cancels the ticker and invalidates callbacks that
// were already queued for it.
func (p *Player) releaseTickerLocked() {
	clock.Cancel(p.ticker)
	p.ticker = nil
	p.gen++
}

func (p *Player) resetLocked() {
	p.step = p.tl.Step(0)
	p.driver = reveal.NewDriver(p.step)
	p.state = State{
		Status: StatusIdle,
		StepID: p.step.ID,
	}
}

func (p *Player) onTick(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.state.Status != StatusRunning {
		p.mu.Unlock()
		return
	}

	prev := p.state.clone()
	entered, revealed := p.commitLocked()
	if p.state.Elapsed != prev.Elapsed || p.state.Status != prev.Status || len(entered) > 0 || len(revealed) > 0 {
		p.emitLocked(prev, entered, revealed)
	}
	p.mu.Unlock()

	p.flush()
}

// commitLocked folds the time since the last tick into the state.
func (p *Player) commitLocked() ([]string, []timeline.RevealItem) {
	now := p.clk.Now()
	delta := now.Sub(p.lastTick)
	if delta < 0 {
		delta = 0
	}
	p.lastTick = now
	return p.advanceLocked(delta)
}

// advanceLocked moves the cursor by delta, carrying the remainder across as
// many step boundaries as it spans. Every passed step's reveals are
// surfaced in order; none are skipped.
func (p *Player) advanceLocked(delta time.Duration) (entered []string, revealed []timeline.RevealItem) {
	p.state.ElapsedInStep += delta
	last := p.tl.Len() - 1

	for {
		due := p.state.ElapsedInStep
		if due > p.step.Duration {
			due = p.step.Duration
		}
		for _, item := range p.driver.Advance(due) {
			p.state.Revealed = append(p.state.Revealed, item.ID)
			revealed = append(revealed, item)
		}

		if p.state.ElapsedInStep < p.step.Duration {
			break
		}

		if p.state.StepIndex == last {
			p.state.ElapsedInStep = p.step.Duration
			p.state.Status = StatusCompleted
			p.releaseTickerLocked()
			p.logger.Debug().Int("revealed", len(p.state.Revealed)).Msg("completed")
			break
		}

		carry := p.state.ElapsedInStep - p.step.Duration
		p.state.StepIndex++
		p.step = p.tl.Step(p.state.StepIndex)
		p.driver = reveal.NewDriver(p.step)
		p.state.StepID = p.step.ID
		p.state.ElapsedInStep = carry
		entered = append(entered, p.step.ID)
		p.logger.Debug().Str("step", p.step.ID).Int("index", p.state.StepIndex).Msg("entered step")
	}

	p.state.Elapsed = p.tl.StepStart(p.state.StepIndex) + p.state.ElapsedInStep
	return entered, revealed
}

func (p *Player) emitLocked(prev State, entered []string, revealed []timeline.RevealItem) {
	p.queue = append(p.queue, queuedChange{
		change: Change{
			Previous: prev,
			Current:  p.state.clone(),
			Entered:  entered,
			Revealed: revealed,
		},
		stops: p.stops,
	})
}

// flush delivers queued changes in order. Only one goroutine delivers at a
// time; changes committed by a listener are delivered after the current
// change has reached every listener.
func (p *Player) flush() {
	p.mu.Lock()
	if p.delivering {
		p.mu.Unlock()
		return
	}
	p.delivering = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.delivering = false
		p.mu.Unlock()
	}()

	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		next := p.queue[0]
		p.queue = p.queue[1:]
		subs := make([]*subscription, len(p.subs))
		copy(subs, p.subs)
		p.mu.Unlock()

		for _, sub := range subs {
			p.mu.Lock()
			deliver := sub.active && next.stops == p.stops
			p.mu.Unlock()
			if deliver {
				sub.fn(next.change)
			}
		}
	}
}
