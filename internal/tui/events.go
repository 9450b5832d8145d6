package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/opencode-ai/reel/internal/player"
)

// ChangeMsg wraps a player change for the TUI.
type ChangeMsg struct {
	Change player.Change
	At     time.Time
}

// ControlMsg reports the outcome of a control key.
type ControlMsg struct {
	Op  controlOp
	Err error
}

// LoopErrorMsg reports a looper that ended with an error.
type LoopErrorMsg struct {
	Err error
}

type controlOp string

const (
	opStart   controlOp = "start"
	opToggle  controlOp = "toggle"
	opRestart controlOp = "restart"
	opFinish  controlOp = "finish"
	opStop    controlOp = "stop"
)

// controller applies control ops to a running session. Implementations
// may block, so the model only calls Do from a tea.Cmd.
type controller interface {
	Do(op controlOp) error
}

// changeSubscriber bridges player changes into the program.
type changeSubscriber struct {
	send func(tea.Msg)
	now  func() time.Time
}

func (s changeSubscriber) OnChange(change player.Change) {
	s.send(ChangeMsg{Change: change, At: s.now()})
}

func controlCmd(ctl controller, op controlOp) tea.Cmd {
	return func() tea.Msg {
		return ControlMsg{Op: op, Err: ctl.Do(op)}
	}
}
