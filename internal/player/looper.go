package player

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/opencode-ai/reel/internal/clock"
	"github.com/opencode-ai/reel/internal/logging"
)

// ErrLooperClosed is returned by control calls on a closed Looper.
var ErrLooperClosed = errors.New("looper closed")

// LoopConfig controls a Looper.
type LoopConfig struct {
	// Hold is how long a completed timeline stays on screen before it
	// restarts.
	Hold time.Duration

	// Cycles caps the number of full plays. Zero loops forever.
	Cycles int
}

// Looper replays a player's timeline after every completion, waiting Hold
// in between. It owns the player for its lifetime.
type Looper struct {
	player *Player
	clk    clock.Clock
	config LoopConfig
	logger zerolog.Logger

	mu          sync.Mutex
	hold        clock.Handle
	unsubscribe func()
	completed   int
	closed      bool
	done        chan struct{}
	doneOnce    sync.Once
	err         error
}

// NewLooper wraps p. Call Start to begin playing.
func NewLooper(p *Player, clk clock.Clock, config LoopConfig) *Looper {
	if config.Hold < 0 {
		config.Hold = 0
	}
	return &Looper{
		player: p,
		clk:    clk,
		config: config,
		logger: logging.Component("looper").With().Str("player_id", p.ID()).Logger(),
		done:   make(chan struct{}),
	}
}

// Start subscribes to the player and starts it.
func (l *Looper) Start() error {
	l.mu.Lock()
	if l.unsubscribe == nil {
		l.unsubscribe = l.player.Subscribe(l.onChange)
	}
	l.mu.Unlock()

	if err := l.player.Start(); err != nil {
		l.finish(err)
		return err
	}
	return nil
}

// Completed returns how many plays have finished.
func (l *Looper) Completed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.completed
}

// Done is closed once the cycle limit is reached, a restart fails, or the
// looper is closed.
func (l *Looper) Done() <-chan struct{} {
	return l.done
}

// Err returns the error that ended the looper, if any.
func (l *Looper) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Restart cancels a pending hold and plays again from the start right away.
func (l *Looper) Restart() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLooperClosed
	}
	clock.Cancel(l.hold)
	l.hold = nil
	l.mu.Unlock()

	if err := l.player.Restart(); err != nil {
		l.finish(err)
		return err
	}
	return nil
}

// Close cancels a pending restart, detaches from the player and stops it.
// It is idempotent.
func (l *Looper) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	clock.Cancel(l.hold)
	l.hold = nil
	unsubscribe := l.unsubscribe
	l.unsubscribe = nil
	l.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	l.player.Stop()
	l.finish(nil)
}

func (l *Looper) onChange(change Change) {
	if !change.Completed() {
		return
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}

	l.completed++
	if l.config.Cycles > 0 && l.completed >= l.config.Cycles {
		l.mu.Unlock()
		l.logger.Debug().Int("cycles", l.config.Cycles).Msg("cycle limit reached")
		l.finish(nil)
		return
	}

	h, err := l.clk.After(l.config.Hold, l.restart)
	if err != nil {
		l.mu.Unlock()
		l.logger.Warn().Err(err).Msg("failed to schedule restart")
		l.finish(err)
		return
	}
	l.hold = h
	l.mu.Unlock()
}

func (l *Looper) restart() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.hold = nil
	l.mu.Unlock()

	if err := l.player.Restart(); err != nil {
		l.logger.Warn().Err(err).Msg("restart failed")
		l.finish(err)
	}
}

func (l *Looper) finish(err error) {
	l.doneOnce.Do(func() {
		if err != nil {
			l.mu.Lock()
			l.err = err
			l.mu.Unlock()
		}
		close(l.done)
	})
}
