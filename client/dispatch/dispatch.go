// Package dispatch provides a serial execution queue used as the single
// callback context for completions and event notifications.
package dispatch

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrQueueClosed is returned by Dispatch once the Queue has been closed.
var ErrQueueClosed = errors.New("dispatch queue closed")

// Queue runs submitted funcs one at a time, in submission order.
// Dispatch never blocks the caller. The worker goroutine only exists
// while work is pending, so an idle Queue costs nothing and need not be
// closed.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	running bool
	closed  bool
	done    chan struct{}
	logger  *slog.Logger
}

var mainQueue = sync.OnceValue(func() *Queue { return New(nil) })

// Main returns the process-wide Queue used when no other Queue is
// configured. It is never closed.
func Main() *Queue { return mainQueue() }

// New returns a Queue. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}

	return &Queue{
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Dispatch enqueues fn. Funcs submitted before Close still run.
func (q *Queue) Dispatch(fn func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.pending = append(q.pending, fn)
	if !q.running {
		q.running = true
		go q.run()
	}

	return nil
}

// Close stops accepting work. Funcs already queued still run; use Done
// to wait for the drain.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true

	if !q.running {
		close(q.done)
	}
}

// Done is closed once the queue is closed and drained.
func (q *Queue) Done() <-chan struct{} { return q.done }

func (q *Queue) run() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			if q.closed {
				close(q.done)
			}
			q.mu.Unlock()
			return
		}
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		for _, fn := range batch {
			q.exec(fn)
		}
	}
}

// exec runs fn, keeping the queue alive if it panics.
func (q *Queue) exec(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			q.logger.Error("dispatched func panicked", "panic", rec)
		}
	}()

	fn()
}
