// Package reveal progressively surfaces a step's reveal items as time
// within the step advances.
package reveal

import (
	"time"

	"github.com/opencode-ai/reel/internal/timeline"
)

// Driver walks one step's reveal items in offset order. It never moves
// backwards; only Reset clears what it has revealed.
type Driver struct {
	items []timeline.RevealItem
	next  int
}

// NewDriver returns a driver over step's reveal items.
func NewDriver(step timeline.Step) *Driver {
	items := make([]timeline.RevealItem, len(step.Reveals))
	copy(items, step.Reveals)
	return &Driver{items: items}
}

// Advance returns the items that became due at offset and were not
// returned before, in reveal order. An offset earlier than a previous call
// returns nothing.
func (d *Driver) Advance(offset time.Duration) []timeline.RevealItem {
	start := d.next
	for d.next < len(d.items) && d.items[d.next].Offset <= offset {
		d.next++
	}
	if d.next == start {
		return nil
	}
	out := make([]timeline.RevealItem, d.next-start)
	copy(out, d.items[start:d.next])
	return out
}

// Flush reveals every remaining item.
func (d *Driver) Flush() []timeline.RevealItem {
	if d.next == len(d.items) {
		return nil
	}
	out := make([]timeline.RevealItem, len(d.items)-d.next)
	copy(out, d.items[d.next:])
	d.next = len(d.items)
	return out
}

// Revealed returns every item revealed so far.
func (d *Driver) Revealed() []timeline.RevealItem {
	out := make([]timeline.RevealItem, d.next)
	copy(out, d.items[:d.next])
	return out
}

// Remaining returns how many items are still hidden.
func (d *Driver) Remaining() int {
	return len(d.items) - d.next
}

// Done reports whether every item has been revealed.
func (d *Driver) Done() bool {
	return d.next == len(d.items)
}

// Reset hides every item again.
func (d *Driver) Reset() {
	d.next = 0
}
