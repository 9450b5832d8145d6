package tui

// lineRing stores the last N activity lines. It is only touched from the
// bubbletea update goroutine, so it carries no lock.
type lineRing struct {
	size  int
	lines []string
	next  int
	full  bool
}

func newLineRing(size int) *lineRing {
	if size <= 0 {
		size = 1
	}
	return &lineRing{
		size:  size,
		lines: make([]string, size),
	}
}

func (r *lineRing) Add(line string) {
	r.lines[r.next] = line
	r.next++
	if r.next >= r.size {
		r.next = 0
		r.full = true
	}
}

// Snapshot returns the buffered lines in chronological order.
func (r *lineRing) Snapshot() []string {
	if !r.full {
		out := make([]string, r.next)
		copy(out, r.lines[:r.next])
		return out
	}

	out := make([]string, r.size)
	copy(out, r.lines[r.next:])
	copy(out[r.size-r.next:], r.lines[:r.next])
	return out
}
