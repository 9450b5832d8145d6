package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/reel/internal/clock"
	"github.com/opencode-ai/reel/internal/config"
	"github.com/opencode-ai/reel/internal/logging"
	"github.com/opencode-ai/reel/internal/player"
	"github.com/opencode-ai/reel/internal/scripts"
	"github.com/opencode-ai/reel/internal/timeline"
)

var (
	playTick          time.Duration
	playHold          time.Duration
	playLoop          int
	playSpeed         float64
	playVars          []string
	playReducedMotion bool
)

func init() {
	rootCmd.AddCommand(playCmd)
	addPlaybackFlags(playCmd)
}

// addPlaybackFlags registers the flags shared by play and ui.
func addPlaybackFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.DurationVar(&playTick, "tick", 0, "tick granularity (default player.tick)")
	flags.DurationVar(&playHold, "hold", 0, "pause between plays (default from the script, then player.hold)")
	flags.IntVar(&playLoop, "loop", 1, "number of plays, 0 to loop until interrupted (player.loop sets 0)")
	flags.Float64Var(&playSpeed, "speed", 0, "playback speed multiplier (default player.speed)")
	flags.StringSliceVar(&playVars, "var", nil, "template variable key=value (repeatable)")
	flags.BoolVar(&playReducedMotion, "reduced-motion", false, "jump each play straight to its final frame")
}

var playCmd = &cobra.Command{
	Use:   "play NAME|FILE",
	Short: "Play a script headless and print each step and reveal",
	Long: `Play a script on the system clock, printing entered steps, revealed
items and status changes as they happen. Use --jsonl for one JSON event per
line. Ctrl-C stops playback.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		script, err := resolveScript(args[0])
		if err != nil {
			return err
		}
		vars, err := parseScriptVars(playVars)
		if err != nil {
			return err
		}
		tl, err := scripts.Build(script, vars)
		if err != nil {
			return err
		}
		opts, err := resolvePlayOptions(cmd, script)
		if err != nil {
			return err
		}

		logger := logging.Component("play")
		logger.Debug().
			Str("script", script.Name).
			Strs("vars", sortedVarNames(vars)).
			Dur("tick", opts.Tick).
			Dur("hold", opts.Hold).
			Int("cycles", opts.Cycles).
			Float64("speed", opts.Speed).
			Msg("resolved playback options")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runPlay(ctx, cmd.OutOrStdout(), script.Name, tl, opts, IsJSONOutput() || IsJSONLOutput())
	},
}

type playOptions struct {
	Tick          time.Duration
	Hold          time.Duration
	Cycles        int
	Speed         float64
	ReducedMotion bool
}

func defaultHold() time.Duration {
	if cfg := GetConfig(); cfg != nil {
		return cfg.Player.Hold
	}
	return config.DefaultConfig().Player.Hold
}

func resolvePlayOptions(cmd *cobra.Command, script *scripts.Script) (playOptions, error) {
	cfg := GetConfig()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	opts := playOptions{
		Tick:          cfg.Player.Tick,
		Hold:          script.HoldDuration(cfg.Player.Hold),
		Cycles:        1,
		Speed:         cfg.Player.Speed,
		ReducedMotion: playReducedMotion,
	}
	if cfg.Player.Loop {
		opts.Cycles = 0
	}

	flags := cmd.Flags()
	if flags.Changed("tick") {
		opts.Tick = playTick
	}
	if flags.Changed("hold") {
		opts.Hold = playHold
	}
	if flags.Changed("loop") {
		opts.Cycles = playLoop
	}
	if flags.Changed("speed") {
		opts.Speed = playSpeed
	}

	switch {
	case opts.Tick <= 0:
		return opts, fmt.Errorf("--tick must be greater than 0")
	case opts.Hold < 0:
		return opts, fmt.Errorf("--hold must not be negative")
	case opts.Cycles < 0:
		return opts, fmt.Errorf("--loop must not be negative")
	case opts.Speed <= 0:
		return opts, fmt.Errorf("--speed must be greater than 0")
	}
	return opts, nil
}

// runPlay plays tl on a dispatch loop until its cycles finish or ctx ends.
func runPlay(ctx context.Context, out io.Writer, name string, tl *timeline.Timeline, opts playOptions, jsonl bool) error {
	logger := logging.Component("play")

	loop := clock.NewLoop()
	defer loop.Close()

	var clk clock.Clock = loop
	if opts.Speed != 1 {
		scaled, err := clock.Scale(loop, opts.Speed)
		if err != nil {
			return err
		}
		clk = scaled
	}

	p, err := player.New(tl, clk, opts.Tick)
	if err != nil {
		return err
	}

	printer := newChangePrinter(out, name, tl, jsonl)
	unsubscribe := p.Subscribe(printer.onChange)
	if opts.ReducedMotion {
		p.FinishOnStart(logger)
	}

	looper := player.NewLooper(p, clk, player.LoopConfig{Hold: opts.Hold, Cycles: opts.Cycles})

	var startErr error
	if err := loop.Do(ctx, func() { startErr = looper.Start() }); err != nil {
		return err
	}
	if startErr != nil {
		return startErr
	}
	logger.Info().Str("script", name).Str("player_id", p.ID()).Msg("playback started")

	interrupted := false
	select {
	case <-looper.Done():
	case <-ctx.Done():
		interrupted = true
	}

	_ = loop.Do(context.Background(), func() {
		unsubscribe()
		looper.Close()
	})
	if err := loop.Close(); err != nil {
		return err
	}

	logger.Info().
		Str("script", name).
		Int("plays", looper.Completed()).
		Bool("interrupted", interrupted).
		Msg("playback finished")

	if printer.err != nil {
		return printer.err
	}
	return looper.Err()
}

type playEvent struct {
	Script    string         `json:"script"`
	Play      int            `json:"play"`
	Status    player.Status  `json:"status"`
	Step      string         `json:"step"`
	StepIndex int            `json:"step_index"`
	ElapsedMS int64          `json:"elapsed_ms"`
	Entered   []string       `json:"entered,omitempty"`
	Revealed  []revealDetail `json:"revealed,omitempty"`
	Completed bool           `json:"completed,omitempty"`
}

// changePrinter writes the notable parts of each change. Pure progress
// changes are skipped.
type changePrinter struct {
	out      io.Writer
	script   string
	tl       *timeline.Timeline
	jsonl    bool
	revealAt map[string]time.Duration
	play     int
	err      error
}

func newChangePrinter(out io.Writer, script string, tl *timeline.Timeline, jsonl bool) *changePrinter {
	revealAt := make(map[string]time.Duration, tl.RevealCount())
	for i, step := range tl.Steps() {
		for _, item := range step.Reveals {
			revealAt[item.ID] = tl.StepStart(i) + item.Offset
		}
	}
	return &changePrinter{
		out:      out,
		script:   script,
		tl:       tl,
		jsonl:    jsonl,
		revealAt: revealAt,
	}
}

func (c *changePrinter) onChange(change player.Change) {
	if c.err != nil {
		return
	}
	if len(change.Entered) == 0 && len(change.Revealed) == 0 && !change.StatusChanged() {
		return
	}
	if change.Previous.Status == player.StatusIdle && change.Current.Status != player.StatusIdle {
		c.play++
	}

	if c.jsonl {
		c.err = json.NewEncoder(c.out).Encode(c.event(change))
		return
	}
	c.err = c.writeText(change)
}

func (c *changePrinter) event(change player.Change) playEvent {
	ev := playEvent{
		Script:    c.script,
		Play:      c.play,
		Status:    change.Current.Status,
		Step:      change.Current.StepID,
		StepIndex: change.Current.StepIndex,
		ElapsedMS: change.Current.Elapsed.Milliseconds(),
		Entered:   change.Entered,
		Completed: change.Completed(),
	}
	for _, item := range change.Revealed {
		ev.Revealed = append(ev.Revealed, revealDetail{
			ID:       item.ID,
			Content:  item.Content,
			OffsetMS: item.Offset.Milliseconds(),
		})
	}
	return ev
}

func (c *changePrinter) writeText(change player.Change) error {
	if change.Previous.Status == player.StatusIdle && change.Current.Status != player.StatusIdle {
		if _, err := fmt.Fprintf(c.out, "%s play %d\n", colorize(c.script, colorBlue), c.play); err != nil {
			return err
		}
	}

	// items from steps passed within this change come before the next header
	revealed := change.Revealed
	for _, id := range change.Entered {
		start := c.tl.StepStart(c.tl.IndexOf(id))
		for len(revealed) > 0 && c.revealAt[revealed[0].ID] < start {
			if err := c.writeReveal(revealed[0]); err != nil {
				return err
			}
			revealed = revealed[1:]
		}
		if _, err := fmt.Fprintf(c.out, "  %s  step %s\n", formatOffset(start), id); err != nil {
			return err
		}
	}
	for _, item := range revealed {
		if err := c.writeReveal(item); err != nil {
			return err
		}
	}

	if change.StatusChanged() {
		_, err := fmt.Fprintf(c.out, "  %s  %s\n", formatOffset(change.Current.Elapsed), formatPlayerStatus(change.Current.Status))
		return err
	}
	return nil
}

func (c *changePrinter) writeReveal(item timeline.RevealItem) error {
	_, err := fmt.Fprintf(c.out, "  %s    + %s\n", formatOffset(c.revealAt[item.ID]), item.Content)
	return err
}
