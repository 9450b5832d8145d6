// Package tui implements the reel terminal player.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/opencode-ai/reel/internal/clock"
	"github.com/opencode-ai/reel/internal/logging"
	"github.com/opencode-ai/reel/internal/player"
	"github.com/opencode-ai/reel/internal/timeline"
	"github.com/opencode-ai/reel/internal/tui/components"
	"github.com/opencode-ai/reel/internal/tui/styles"
)

// Config describes one interactive playback.
type Config struct {
	Title       string
	Description string
	Timeline    *timeline.Timeline

	Tick time.Duration
	Hold time.Duration
	// Cycles caps the number of plays. Zero loops until quit.
	Cycles int
	Speed  float64

	Theme         string
	ReducedMotion bool
}

// Run plays cfg.Timeline in the terminal until the user quits.
func Run(cfg Config) error {
	if cfg.Timeline == nil {
		return errors.New("timeline is required")
	}

	loop := clock.NewLoop()
	var clk clock.Clock = loop
	if cfg.Speed > 0 && cfg.Speed != 1 {
		scaled, err := clock.Scale(loop, cfg.Speed)
		if err != nil {
			_ = loop.Close()
			return err
		}
		clk = scaled
	}

	p, err := player.New(cfg.Timeline, clk, cfg.Tick)
	if err != nil {
		_ = loop.Close()
		return err
	}

	sess := &session{
		loop:    loop,
		clk:     clk,
		player:  p,
		loopCfg: player.LoopConfig{Hold: cfg.Hold, Cycles: cfg.Cycles},
		logger:  logging.Component("tui").With().Str("player_id", p.ID()).Logger(),
	}

	program := tea.NewProgram(newModel(cfg, sess), tea.WithAltScreen())
	sess.notify = program.Send
	sub := changeSubscriber{send: program.Send, now: time.Now}
	sess.unsubscribe = append(sess.unsubscribe, p.Subscribe(sub.OnChange))
	if cfg.ReducedMotion {
		sess.unsubscribe = append(sess.unsubscribe, p.FinishOnStart(sess.logger))
	}
	defer sess.Close()

	sess.logger.Debug().Str("title", cfg.Title).Msg("starting tui")
	_, err = program.Run()
	return err
}

type model struct {
	title       string
	description string
	steps       []timeline.Step
	total       time.Duration
	ctl         controller
	styles      styles.Styles

	width  int
	height int

	state       player.State
	revealed    []timeline.RevealItem
	fresh       map[string]bool
	activity    *lineRing
	plays       int
	stopped     bool
	err         error
	lastUpdated time.Time
}

const (
	minWidth     = 60
	minHeight    = 15
	activitySize = 6
	barWidth     = 20
	revealLimit  = 8
)

func newModel(cfg Config, ctl controller) model {
	return model{
		title:       cfg.Title,
		description: cfg.Description,
		steps:       cfg.Timeline.Steps(),
		total:       cfg.Timeline.TotalDuration(),
		ctl:         ctl,
		styles:      styles.BuildStyles(styles.ThemeByName(cfg.Theme)),
		state: player.State{
			Status: player.StatusIdle,
			StepID: cfg.Timeline.Step(0).ID,
		},
		activity: newLineRing(activitySize),
	}
}

func (m model) Init() tea.Cmd {
	return controlCmd(m.ctl, opStart)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case " ", "space", "p":
			return m, controlCmd(m.ctl, opToggle)
		case "r":
			return m, controlCmd(m.ctl, opRestart)
		case "f":
			return m, controlCmd(m.ctl, opFinish)
		case "s":
			return m, controlCmd(m.ctl, opStop)
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case ChangeMsg:
		m = m.applyChange(msg)
	case ControlMsg:
		if msg.Err != nil {
			if errors.Is(msg.Err, player.ErrInvalidStateTransition) {
				m.activity.Add(m.styles.Muted.Render(msg.Err.Error()))
			} else {
				m.err = fmt.Errorf("%s: %w", msg.Op, msg.Err)
			}
		}
	case LoopErrorMsg:
		m.err = msg.Err
	}
	return m, nil
}

func (m model) applyChange(msg ChangeMsg) model {
	c := msg.Change
	m.state = c.Current
	m.lastUpdated = msg.At
	stamp := fmt.Sprintf("%6.1fs", c.Current.Elapsed.Seconds())

	started := c.Previous.Status == player.StatusIdle && c.Current.Status != player.StatusIdle
	if started || c.Current.Status == player.StatusIdle {
		m.revealed = nil
		m.fresh = nil
	}
	if started {
		m.plays++
		m.stopped = false
		m.activity.Add(m.styles.Accent.Render(fmt.Sprintf("%s  play %d", stamp, m.plays)))
	}

	for _, id := range c.Entered {
		m.activity.Add(fmt.Sprintf("%s  ▶ %s", stamp, id))
	}

	if len(c.Revealed) > 0 {
		m.revealed = append(m.revealed[:len(m.revealed):len(m.revealed)], c.Revealed...)
		m.fresh = make(map[string]bool, len(c.Revealed))
		for _, item := range c.Revealed {
			m.fresh[item.ID] = true
		}
	}

	if c.StatusChanged() && !started {
		switch c.Current.Status {
		case player.StatusPaused:
			m.activity.Add(m.styles.Warning.Render(stamp + "  paused"))
		case player.StatusRunning:
			m.activity.Add(stamp + "  resumed")
		case player.StatusIdle:
			m.stopped = true
			m.activity.Add(m.styles.Muted.Render(stamp + "  stopped"))
		}
	}
	if c.Completed() {
		m.activity.Add(m.styles.Success.Render(fmt.Sprintf("%s  completed play %d", stamp, m.plays)))
	}
	return m
}

func (m model) View() string {
	if m.width > 0 && m.height > 0 {
		if m.width < minWidth || m.height < minHeight {
			return fmt.Sprintf("%s\n", strings.Join(m.smallViewLines(), "\n"))
		}
	}

	lines := []string{m.styles.Title.Render(m.title)}
	if m.description != "" {
		lines = append(lines, m.styles.Muted.Render(m.description))
	}
	lines = append(lines, "", m.headerLine(), "")

	lines = append(lines, m.styles.Accent.Render("Steps"))
	stepList := components.StepList{Steps: m.steps, State: m.state, BarWidth: barWidth}
	lines = append(lines, stepList.Lines(m.styles)...)

	lines = append(lines, "", m.styles.Accent.Render("Revealed"))
	lines = append(lines, m.revealLines()...)

	if activity := m.activity.Snapshot(); len(activity) > 0 {
		lines = append(lines, "", m.styles.Accent.Render("Activity"))
		lines = append(lines, activity...)
	}

	if m.err != nil {
		lines = append(lines, "", m.styles.Error.Render("Error: "+m.err.Error()))
	}

	lines = append(lines, "", m.styles.Muted.Render(m.lastUpdatedLine()))
	lines = append(lines, m.styles.Muted.Render("Keys: space pause/resume | r restart | f finish | s stop | q quit"))

	return fmt.Sprintf("%s\n", strings.Join(lines, "\n"))
}

func (m model) headerLine() string {
	progress := fmt.Sprintf("%.1fs / %.1fs", m.state.Elapsed.Seconds(), m.total.Seconds())
	return fmt.Sprintf("%s  %s  %s  %s",
		components.RenderStatusBadge(m.styles, m.state.Status),
		components.RenderProgressBar(m.styles, m.state.Elapsed, m.total, barWidth*2),
		m.styles.Text.Render(progress),
		m.styles.Muted.Render(fmt.Sprintf("play %d", m.plays)),
	)
}

func (m model) revealLines() []string {
	if len(m.revealed) == 0 {
		if m.stopped {
			return []string{components.Stopped().Render(m.styles)}
		}
		return []string{components.NothingRevealed().RenderCompact(m.styles)}
	}

	limit := revealLimit
	if m.height > 0 {
		limit = max(3, m.height-len(m.steps)-activitySize-14)
	}
	list := components.RevealList{Items: m.revealed, Fresh: m.fresh, Limit: limit}
	return list.Lines(m.styles)
}

func (m model) smallViewLines() []string {
	message := fmt.Sprintf("Terminal too small (%dx%d).", m.width, m.height)
	hint := fmt.Sprintf("Resize to at least %dx%d.", minWidth, minHeight)

	return []string{
		m.styles.Warning.Render(message),
		m.styles.Muted.Render(hint),
		m.styles.Muted.Render("Press q to quit."),
	}
}

func (m model) lastUpdatedLine() string {
	if m.lastUpdated.IsZero() {
		return "Last change: --"
	}
	return fmt.Sprintf("Last change: %s", m.lastUpdated.Format("15:04:05"))
}
