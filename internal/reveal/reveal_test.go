package reveal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/reel/internal/timeline"
)

const ms = time.Millisecond

func ids(items []timeline.RevealItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func thinkingStep() timeline.Step {
	return timeline.Step{
		ID:       "thinking",
		Duration: time.Second,
		Reveals: []timeline.RevealItem{
			{ID: "scan", Offset: 0},
			{ID: "match", Offset: 200 * ms},
			{ID: "score", Offset: 200 * ms},
			{ID: "rank", Offset: 800 * ms},
		},
	}
}

func TestDriverAdvanceIsOrderedAndMonotonic(t *testing.T) {
	d := NewDriver(thinkingStep())

	require.Equal(t, []string{"scan"}, ids(d.Advance(0)))
	require.Empty(t, d.Advance(150*ms))
	require.Equal(t, []string{"match", "score"}, ids(d.Advance(500*ms)))
	require.Empty(t, d.Advance(100*ms), "earlier offset must not reveal or hide anything")
	require.Equal(t, 3, len(d.Revealed()))
	require.False(t, d.Done())
	require.Equal(t, 1, d.Remaining())

	require.Equal(t, []string{"rank"}, ids(d.Advance(time.Second)))
	require.True(t, d.Done())
	require.Empty(t, d.Advance(time.Hour))
}

func TestDriverFlushAndReset(t *testing.T) {
	d := NewDriver(thinkingStep())
	d.Advance(200 * ms)

	require.Equal(t, []string{"rank"}, ids(d.Flush()))
	require.Empty(t, d.Flush())

	d.Reset()
	require.Empty(t, d.Revealed())
	require.Equal(t, []string{"scan", "match", "score", "rank"}, ids(d.Advance(time.Second)))
}

func TestDriverMarkerStep(t *testing.T) {
	d := NewDriver(timeline.Step{ID: "searching", Duration: time.Second})
	require.True(t, d.Done())
	require.Empty(t, d.Advance(time.Second))
}

func TestTypeCharacters(t *testing.T) {
	items, err := Type("email", "Hey", UnitChar, 100*ms, 300*ms)
	require.NoError(t, err)

	require.Equal(t, []timeline.RevealItem{
		{ID: "email#1", Content: "H", Offset: 100 * ms},
		{ID: "email#2", Content: "He", Offset: 200 * ms},
		{ID: "email#3", Content: "Hey", Offset: 300 * ms},
	}, items)
}

func TestTypeWords(t *testing.T) {
	items, err := Type("line", "Worth a quick chat?", UnitWord, 0, 300*ms)
	require.NoError(t, err)

	var contents []string
	for _, item := range items {
		contents = append(contents, item.Content)
	}
	require.Equal(t, []string{"Worth", "Worth a", "Worth a quick", "Worth a quick chat?"}, contents)
	require.Equal(t, 300*ms, items[len(items)-1].Offset)
}

func TestTypeMultibyte(t *testing.T) {
	items, err := Type("icon", "🔥ok", UnitChar, 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "🔥", items[0].Content)
}

func TestTypeSingleUnitUsesStart(t *testing.T) {
	items, err := Type("w", "Hi", UnitWord, 40*ms, 90*ms)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 40*ms, items[0].Offset)
}

func TestTypeRejectsBadInput(t *testing.T) {
	_, err := Type("", "x", UnitChar, 0, 0)
	require.ErrorIs(t, err, ErrInvalidTyping)
	_, err = Type("p", "", UnitChar, 0, 0)
	require.ErrorIs(t, err, ErrInvalidTyping)
	_, err = Type("p", "x", UnitChar, 10*ms, 5*ms)
	require.ErrorIs(t, err, ErrInvalidTyping)
	_, err = Type("p", "x", Unit("line"), 0, 0)
	require.ErrorIs(t, err, ErrInvalidTyping)
	_, err = Type("p", "   ", UnitWord, 0, 0)
	require.ErrorIs(t, err, ErrInvalidTyping)
}
