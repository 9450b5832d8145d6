package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/reel/internal/clock"
)

func TestLooperHoldsThenRestarts(t *testing.T) {
	p, clk, rec := newPlayer(t, exampleTimeline(t), 100*ms)
	l := NewLooper(p, clk, LoopConfig{Hold: 2 * time.Second})
	defer l.Close()

	require.NoError(t, l.Start())
	clk.Advance(1500 * ms)
	require.Equal(t, 1, l.Completed())
	require.Equal(t, StatusCompleted, p.State().Status)

	// still holding the finished frame
	clk.Advance(1900 * ms)
	require.Equal(t, StatusCompleted, p.State().Status)

	rec.changes = nil
	clk.Advance(100 * ms)
	require.Equal(t, StatusRunning, p.State().Status)
	require.Len(t, rec.changes, 1)
	require.Equal(t, StatusIdle, rec.changes[0].Previous.Status)
	require.Equal(t, []string{"A"}, rec.changes[0].Entered)
}

func TestLooperStopsAtCycleLimit(t *testing.T) {
	p, clk, _ := newPlayer(t, exampleTimeline(t), 100*ms)
	l := NewLooper(p, clk, LoopConfig{Hold: 500 * ms, Cycles: 3})
	defer l.Close()

	require.NoError(t, l.Start())
	clk.Advance(time.Minute)

	require.Equal(t, 3, l.Completed())
	select {
	case <-l.Done():
	default:
		t.Fatal("looper should be done after its last cycle")
	}
	require.NoError(t, l.Err())
	require.Equal(t, StatusCompleted, p.State().Status)
	require.Zero(t, clk.Pending())
}

func TestLooperCloseCancelsHold(t *testing.T) {
	p, clk, _ := newPlayer(t, exampleTimeline(t), 100*ms)
	l := NewLooper(p, clk, LoopConfig{Hold: time.Second})

	require.NoError(t, l.Start())
	clk.Advance(1500 * ms)
	require.Equal(t, 1, clk.Pending(), "hold timer should be pending")

	l.Close()
	l.Close()
	require.Zero(t, clk.Pending())
	require.Equal(t, StatusIdle, p.State().Status)

	clk.Advance(time.Minute)
	require.Equal(t, 1, l.Completed())
	<-l.Done()
}

func TestLooperReportsRestartFailure(t *testing.T) {
	p, clk, _ := newPlayer(t, exampleTimeline(t), 100*ms)
	l := NewLooper(p, clk, LoopConfig{Hold: 100 * ms})
	defer l.Close()

	require.NoError(t, l.Start())
	clk.Advance(1500 * ms)

	clk.Fail(clock.ErrSchedulingFailed)
	clk.Advance(100 * ms)

	<-l.Done()
	require.ErrorIs(t, l.Err(), ErrClockScheduling)
	require.Equal(t, StatusIdle, p.State().Status)
}

func TestLooperStartFailure(t *testing.T) {
	p, clk, _ := newPlayer(t, exampleTimeline(t), 100*ms)
	clk.Fail(clock.ErrSchedulingFailed)

	l := NewLooper(p, clk, LoopConfig{})
	require.ErrorIs(t, l.Start(), ErrClockScheduling)
	<-l.Done()
	l.Close()
}

func TestLooperRestartCancelsHold(t *testing.T) {
	p, clk, rec := newPlayer(t, exampleTimeline(t), 100*ms)
	l := NewLooper(p, clk, LoopConfig{Hold: time.Second})
	defer l.Close()

	require.NoError(t, l.Start())
	clk.Advance(1500 * ms)
	require.Equal(t, 1, clk.Pending(), "hold timer should be pending")

	rec.changes = nil
	require.NoError(t, l.Restart())
	require.Len(t, rec.changes, 1)
	require.Equal(t, StatusRunning, p.State().Status)

	// the cancelled hold must not restart the new play halfway through
	clk.Advance(1200 * ms)
	require.Equal(t, "B", p.State().StepID)
	require.Equal(t, 1200*ms, p.State().Elapsed)
}

func TestLooperRestartAfterClose(t *testing.T) {
	p, clk, _ := newPlayer(t, exampleTimeline(t), 100*ms)
	l := NewLooper(p, clk, LoopConfig{})
	require.NoError(t, l.Start())
	l.Close()

	require.ErrorIs(t, l.Restart(), ErrLooperClosed)
}
