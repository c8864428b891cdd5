package client

import (
	"context"
	"sync"
)

type taskState int

const (
	taskPending taskState = iota
	taskDelivered
	taskCancelled
)

// Task is the handle of an in-flight load.
type Task struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu    sync.Mutex
	state taskState
}

func newTask(id string, cancel context.CancelFunc) *Task {
	return &Task{
		id:     id,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// ID returns the request id sent in the X-Request-ID header.
func (t *Task) ID() string {
	if t == nil {
		return ""
	}
	return t.id
}

// Cancel aborts the request and reports whether the completion was
// prevented. Once Cancel returns true the completion never runs; false
// means it already started.
func (t *Task) Cancel() bool {
	if t == nil {
		return false
	}

	t.mu.Lock()
	if t.state != taskPending {
		t.mu.Unlock()
		return false
	}
	t.state = taskCancelled
	t.mu.Unlock()

	t.finish()

	return true
}

// Done returns a channel that is closed once the completion ran or the
// task was cancelled. A nil Task is always done.
func (t *Task) Done() <-chan struct{} {
	if t == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return t.done
}

// deliver runs fn unless the task was cancelled.
func (t *Task) deliver(fn func()) {
	t.mu.Lock()
	if t.state != taskPending {
		t.mu.Unlock()
		return
	}
	t.state = taskDelivered
	t.mu.Unlock()

	defer t.finish()
	fn()
}

func (t *Task) finish() {
	t.once.Do(func() {
		t.cancel()
		close(t.done)
	})
}
