package reveal

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/opencode-ai/reel/internal/timeline"
)

// Unit is the granularity of a typing effect.
type Unit string

const (
	UnitChar Unit = "char"
	UnitWord Unit = "word"
)

// ErrInvalidTyping is returned for unusable typing parameters.
var ErrInvalidTyping = errors.New("invalid typing effect")

// Type expands text into reveal items that grow one unit at a time, evenly
// spaced from start to end. Each item's content is the text typed so far
// and its id is prefix#n.
func Type(prefix, text string, unit Unit, start, end time.Duration) ([]timeline.RevealItem, error) {
	if strings.TrimSpace(prefix) == "" {
		return nil, fmt.Errorf("%w: id prefix is required", ErrInvalidTyping)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidTyping)
	}
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: window [%s, %s]", ErrInvalidTyping, start, end)
	}

	var cuts []int
	switch unit {
	case "", UnitChar:
		cuts = charCuts(text)
	case UnitWord:
		cuts = wordCuts(text)
	default:
		return nil, fmt.Errorf("%w: unknown unit %q", ErrInvalidTyping, unit)
	}
	if len(cuts) == 0 {
		return nil, fmt.Errorf("%w: text has nothing to type", ErrInvalidTyping)
	}

	items := make([]timeline.RevealItem, len(cuts))
	span := end - start
	for i, cut := range cuts {
		offset := start
		if len(cuts) > 1 {
			offset = start + span*time.Duration(i)/time.Duration(len(cuts)-1)
		}
		items[i] = timeline.RevealItem{
			ID:      fmt.Sprintf("%s#%d", prefix, i+1),
			Content: text[:cut],
			Offset:  offset,
		}
	}
	return items, nil
}

// charCuts returns the byte index after each rune.
func charCuts(text string) []int {
	cuts := make([]int, 0, len(text))
	for i := range text {
		if i > 0 {
			cuts = append(cuts, i)
		}
	}
	return append(cuts, len(text))
}

// wordCuts returns the byte index after each word, so trailing whitespace
// arrives with the next word.
func wordCuts(text string) []int {
	var cuts []int
	inWord := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if inWord && space {
			cuts = append(cuts, i)
		}
		inWord = !space
	}
	if inWord {
		cuts = append(cuts, len(text))
	}
	return cuts
}
