package clock

import (
	"context"
	"sync"
	"time"

	"github.com/opencode-ai/reel/internal/logging"
	"github.com/rs/zerolog"
)

const loopQueueSize = 64

// Loop is a wall-clock Clock that runs every callback on a single dispatch
// goroutine. A handle cancelled on that goroutine is never dispatched, even
// if its timer already fired and the callback is queued.
type Loop struct {
	logger zerolog.Logger

	queue chan func()
	quit  chan struct{}
	done  chan struct{}

	mu      sync.Mutex
	closed  bool
	handles map[*handle]struct{}
	workers sync.WaitGroup
}

// NewLoop starts a dispatch goroutine. Call Close to release it.
func NewLoop() *Loop {
	l := &Loop{
		logger:  logging.Component("clock"),
		queue:   make(chan func(), loopQueueSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		handles: make(map[*handle]struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case fn := <-l.queue:
			fn()
		}
	}
}

// Now returns the wall-clock time.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// After schedules fn once on the dispatch goroutine.
func (l *Loop) After(d time.Duration, fn func()) (Handle, error) {
	if err := checkAfter(d, fn); err != nil {
		return nil, err
	}

	// release must be in place before track: Close may cancel the handle
	// as soon as it is tracked.
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	h := &handle{}
	h.release = func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		l.untrack(h)
	}
	if err := l.track(h, false); err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	if h.Cancelled() {
		return h, nil
	}
	timer = time.AfterFunc(d, func() {
		l.enqueue(func() {
			if h.Cancelled() {
				return
			}
			l.untrack(h)
			h.cancelled.Store(true)
			fn()
		})
	})
	return h, nil
}

// Every schedules fn repeatedly on the dispatch goroutine. Ticks that arrive
// while a previous one is still queued are coalesced.
func (l *Loop) Every(d time.Duration, fn func()) (Handle, error) {
	if err := checkEvery(d, fn); err != nil {
		return nil, err
	}

	stop := make(chan struct{})
	h := &handle{}
	h.release = func() {
		close(stop)
		l.untrack(h)
	}
	if err := l.track(h, true); err != nil {
		return nil, err
	}

	go func() {
		defer l.workers.Done()

		ticker := time.NewTicker(d)
		defer ticker.Stop()

		pending := make(chan struct{}, 1)
		for {
			select {
			case <-stop:
				return
			case <-l.quit:
				return
			case <-ticker.C:
				select {
				case pending <- struct{}{}:
				default:
					continue
				}
				l.enqueue(func() {
					<-pending
					if h.Cancelled() {
						return
					}
					fn()
				})
			}
		}
	}()

	return h, nil
}

// Post queues fn on the dispatch goroutine without waiting.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return ErrSchedulingFailed
	}
	l.enqueue(fn)
	return nil
}

// Do runs fn on the dispatch goroutine and waits for it to return.
// It must not be called from a callback running on the loop.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrSchedulingFailed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels every outstanding handle and stops the dispatch goroutine.
// It must not be called from a callback running on the loop.
func (l *Loop) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	pending := make([]*handle, 0, len(l.handles))
	for h := range l.handles {
		pending = append(pending, h)
	}
	l.mu.Unlock()

	for _, h := range pending {
		h.Cancel()
	}

	close(l.quit)
	<-l.done
	l.workers.Wait()

	l.logger.Debug().Int("cancelled", len(pending)).Msg("clock loop closed")
	return nil
}

func (l *Loop) enqueue(fn func()) {
	select {
	case l.queue <- fn:
	case <-l.quit:
	}
}

// track registers h with the loop. With worker set it also counts a worker
// goroutine, under the same lock that Close takes before waiting on workers.
func (l *Loop) track(h *handle, worker bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrSchedulingFailed
	}
	l.handles[h] = struct{}{}
	if worker {
		l.workers.Add(1)
	}
	return nil
}

func (l *Loop) untrack(h *handle) {
	l.mu.Lock()
	delete(l.handles, h)
	l.mu.Unlock()
}
