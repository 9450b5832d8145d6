package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/reel/internal/clock"
	"github.com/opencode-ai/reel/internal/player"
	"github.com/opencode-ai/reel/internal/scripts"
	"github.com/opencode-ai/reel/internal/timeline"
)

const ms = time.Millisecond

var epoch = time.Date(2024, 6, 11, 9, 0, 0, 0, time.UTC)

func demoTimeline(t *testing.T) *timeline.Timeline {
	t.Helper()
	tl, err := timeline.New(
		timeline.Step{ID: "A", Duration: 1000 * ms, Reveals: []timeline.RevealItem{{ID: "x", Content: "X", Offset: 500 * ms}}},
		timeline.Step{ID: "B", Duration: 500 * ms},
	)
	require.NoError(t, err)
	return tl
}

func playManual(t *testing.T, tl *timeline.Timeline, tick time.Duration, jsonl bool) *bytes.Buffer {
	t.Helper()
	var out bytes.Buffer
	clk := clock.NewManual(epoch)
	p, err := player.New(tl, clk, tick)
	require.NoError(t, err)

	printer := newChangePrinter(&out, "demo", tl, jsonl)
	p.Subscribe(printer.onChange)

	require.NoError(t, p.Start())
	clk.Advance(5 * time.Second)
	require.NoError(t, printer.err)
	return &out
}

func TestChangePrinterText(t *testing.T) {
	out := playManual(t, demoTimeline(t), 100*ms, false)

	want := strings.Join([]string{
		"demo play 1",
		"  0.000s  step A",
		"  0.000s  RUN running",
		"  0.500s    + X",
		"  1.000s  step B",
		"  1.500s  OK completed",
		"",
	}, "\n")
	require.Equal(t, want, out.String())
}

func TestChangePrinterOrdersCarriedReveals(t *testing.T) {
	// one tick spans the reveal and the boundary into B
	out := playManual(t, demoTimeline(t), time.Second, false)

	want := strings.Join([]string{
		"demo play 1",
		"  0.000s  step A",
		"  0.000s  RUN running",
		"  0.500s    + X",
		"  1.000s  step B",
		"  1.500s  OK completed",
		"",
	}, "\n")
	require.Equal(t, want, out.String())
}

func TestChangePrinterJSONL(t *testing.T) {
	out := playManual(t, demoTimeline(t), 100*ms, true)

	var events []playEvent
	dec := json.NewDecoder(out)
	for dec.More() {
		var ev playEvent
		require.NoError(t, dec.Decode(&ev))
		events = append(events, ev)
	}

	require.Len(t, events, 4)
	require.Equal(t, 1, events[0].Play)
	require.Equal(t, []string{"A"}, events[0].Entered)
	require.Equal(t, player.StatusRunning, events[0].Status)

	require.Len(t, events[1].Revealed, 1)
	require.Equal(t, "X", events[1].Revealed[0].Content)
	require.EqualValues(t, 500, events[1].Revealed[0].OffsetMS)

	last := events[len(events)-1]
	require.True(t, last.Completed)
	require.Equal(t, "B", last.Step)
	require.EqualValues(t, 1500, last.ElapsedMS)
}

func TestRunPlayCycles(t *testing.T) {
	tl, err := timeline.New(
		timeline.Step{ID: "intro", Duration: 20 * ms, Reveals: []timeline.RevealItem{{ID: "hi", Content: "hello", Offset: 10 * ms}}},
		timeline.Step{ID: "outro", Duration: 10 * ms},
	)
	require.NoError(t, err)

	var out bytes.Buffer
	opts := playOptions{Tick: 5 * ms, Hold: 5 * ms, Cycles: 2, Speed: 1}
	require.NoError(t, runPlay(t.Context(), &out, "demo", tl, opts, false))

	text := out.String()
	require.Equal(t, 2, strings.Count(text, "OK completed"))
	require.Contains(t, text, "demo play 2")
	require.Equal(t, 2, strings.Count(text, "+ hello"))
}

func TestRunPlayReducedMotion(t *testing.T) {
	tl, err := timeline.New(
		timeline.Step{ID: "intro", Duration: time.Hour, Reveals: []timeline.RevealItem{{ID: "hi", Content: "hello", Offset: time.Minute}}},
	)
	require.NoError(t, err)

	var out bytes.Buffer
	opts := playOptions{Tick: 10 * ms, Cycles: 1, Speed: 1, ReducedMotion: true}
	require.NoError(t, runPlay(t.Context(), &out, "demo", tl, opts, false))

	text := out.String()
	require.Contains(t, text, "+ hello")
	require.Contains(t, text, "3600.000s  OK completed")
}

func TestRunPlayInterrupted(t *testing.T) {
	tl, err := timeline.New(timeline.Step{ID: "forever", Duration: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 50*ms)
	defer cancel()

	var out bytes.Buffer
	opts := playOptions{Tick: 10 * ms, Cycles: 1, Speed: 1}
	require.NoError(t, runPlay(ctx, &out, "demo", tl, opts, false))
	require.Contains(t, out.String(), "step forever")
	require.NotContains(t, out.String(), "completed")
}

func TestRunPlaySpeed(t *testing.T) {
	tl, err := timeline.New(timeline.Step{ID: "long", Duration: 2 * time.Second})
	require.NoError(t, err)

	var out bytes.Buffer
	opts := playOptions{Tick: 10 * ms, Cycles: 1, Speed: 100}
	start := time.Now()
	require.NoError(t, runPlay(t.Context(), &out, "demo", tl, opts, false))
	require.Less(t, time.Since(start), time.Second)
	require.Contains(t, out.String(), "OK completed")
}

func newPlaybackCmd(t *testing.T) *cobra.Command {
	t.Helper()
	saved := []any{playTick, playHold, playLoop, playSpeed, playVars, playReducedMotion}
	t.Cleanup(func() {
		playTick = saved[0].(time.Duration)
		playHold = saved[1].(time.Duration)
		playLoop = saved[2].(int)
		playSpeed = saved[3].(float64)
		playVars = saved[4].([]string)
		playReducedMotion = saved[5].(bool)
	})

	cmd := &cobra.Command{Use: "test"}
	addPlaybackFlags(cmd)
	return cmd
}

func TestResolvePlayOptionsDefaults(t *testing.T) {
	cmd := newPlaybackCmd(t)

	opts, err := resolvePlayOptions(cmd, &scripts.Script{Name: "demo", Hold: "3s"})
	require.NoError(t, err)
	require.Equal(t, playOptions{Tick: 100 * ms, Hold: 3 * time.Second, Cycles: 1, Speed: 1}, opts)

	opts, err = resolvePlayOptions(cmd, &scripts.Script{Name: "demo"})
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, opts.Hold)
}

func TestResolvePlayOptionsFlags(t *testing.T) {
	cmd := newPlaybackCmd(t)
	flags := cmd.Flags()
	require.NoError(t, flags.Set("tick", "50ms"))
	require.NoError(t, flags.Set("hold", "0s"))
	require.NoError(t, flags.Set("loop", "0"))
	require.NoError(t, flags.Set("speed", "2.5"))
	require.NoError(t, flags.Set("reduced-motion", "true"))

	opts, err := resolvePlayOptions(cmd, &scripts.Script{Name: "demo", Hold: "3s"})
	require.NoError(t, err)
	require.Equal(t, playOptions{Tick: 50 * ms, Hold: 0, Cycles: 0, Speed: 2.5, ReducedMotion: true}, opts)
}

func TestResolvePlayOptionsErrors(t *testing.T) {
	tests := []struct {
		flag  string
		value string
		want  string
	}{
		{"tick", "0s", "--tick"},
		{"hold", "-1s", "--hold"},
		{"loop", "-1", "--loop"},
		{"speed", "0", "--speed"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			cmd := newPlaybackCmd(t)
			require.NoError(t, cmd.Flags().Set(tt.flag, tt.value))
			_, err := resolvePlayOptions(cmd, &scripts.Script{Name: "demo"})
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestUIConfigLoopsByDefault(t *testing.T) {
	cmd := newPlaybackCmd(t)
	cmd.Flags().StringVar(&uiTheme, "theme", "", "")
	t.Cleanup(func() { uiTheme = "" })

	script := &scripts.Script{Name: "research", Description: "Research a lead"}
	opts := playOptions{Tick: 100 * ms, Hold: time.Second, Cycles: 1, Speed: 1}

	cfg := uiConfig(cmd, script, opts)
	require.Equal(t, 0, cfg.Cycles)
	require.Equal(t, "research", cfg.Title)
	require.Equal(t, "default", cfg.Theme)

	require.NoError(t, cmd.Flags().Set("loop", "3"))
	require.NoError(t, cmd.Flags().Set("theme", "high-contrast"))
	cfg = uiConfig(cmd, script, playOptions{Cycles: 3})
	require.Equal(t, 3, cfg.Cycles)
	require.Equal(t, "high-contrast", cfg.Theme)
}

func TestWriteOutputJSONLines(t *testing.T) {
	saved := jsonlOutput
	jsonlOutput = true
	t.Cleanup(func() { jsonlOutput = saved })

	var out bytes.Buffer
	require.NoError(t, WriteOutput(&out, []scriptSummary{{Name: "a"}, {Name: "b"}}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[1], `"name":"b"`)
}
