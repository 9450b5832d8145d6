package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/opencode-ai/reel/internal/clock"
	"github.com/opencode-ai/reel/internal/player"
)

// session owns the dispatch loop, the player and its looper. Every player
// call runs on the loop goroutine through Do.
type session struct {
	loop    *clock.Loop
	clk     clock.Clock
	player  *player.Player
	loopCfg player.LoopConfig
	logger  zerolog.Logger

	notify      func(tea.Msg)
	unsubscribe []func()

	// owned by the loop goroutine
	looper *player.Looper
}

// Do runs op on the loop goroutine and waits for it.
func (s *session) Do(op controlOp) error {
	var opErr error
	if err := s.loop.Do(context.Background(), func() { opErr = s.apply(op) }); err != nil {
		return err
	}
	return opErr
}

func (s *session) apply(op controlOp) error {
	switch op {
	case opStart:
		return s.startLooper()
	case opToggle:
		switch s.player.State().Status {
		case player.StatusRunning:
			return s.player.Pause()
		case player.StatusPaused:
			return s.player.Resume()
		default:
			return s.restart()
		}
	case opRestart:
		return s.restart()
	case opFinish:
		return s.player.Finish()
	case opStop:
		s.closeLooper()
		s.player.Stop()
		return nil
	}
	return fmt.Errorf("unknown control %q", op)
}

func (s *session) restart() error {
	if s.looper == nil {
		return s.startLooper()
	}
	return s.looper.Restart()
}

func (s *session) startLooper() error {
	s.closeLooper()
	l := player.NewLooper(s.player, s.clk, s.loopCfg)
	s.looper = l
	if err := l.Start(); err != nil {
		return err
	}
	go s.watch(l)
	return nil
}

func (s *session) closeLooper() {
	if s.looper != nil {
		s.looper.Close()
		s.looper = nil
	}
}

func (s *session) watch(l *player.Looper) {
	<-l.Done()
	if err := l.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("looper stopped")
		if s.notify != nil {
			s.notify(LoopErrorMsg{Err: err})
		}
	}
}

// Close detaches the UI, stops playback and releases the loop.
func (s *session) Close() error {
	_ = s.loop.Do(context.Background(), func() {
		for _, unsubscribe := range s.unsubscribe {
			unsubscribe()
		}
		s.closeLooper()
	})
	return s.loop.Close()
}
