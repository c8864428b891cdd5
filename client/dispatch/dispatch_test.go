package dispatch

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestQueue_Order(t *testing.T) {
	q := New(nil)
	defer q.Close()

	const total = 100

	var (
		mu  sync.Mutex
		got []int
		wg  sync.WaitGroup
	)

	wg.Add(total)
	for i := range total {
		if err := q.Dispatch(func() {
			defer wg.Done()
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}); err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
	}
	wg.Wait()

	exp := make([]int, total)
	for i := range exp {
		exp[i] = i
	}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Errorf("execution order mismatch (-want +got):\n%s", diff)
	}
}

func TestQueue_NeverConcurrent(t *testing.T) {
	q := New(nil)
	defer q.Close()

	var running, maxRunning atomic.Int32
	var wg sync.WaitGroup

	for range 20 {
		wg.Add(1)
		go func() {
			_ = q.Dispatch(func() {
				defer wg.Done()
				cur := running.Add(1)
				for {
					old := maxRunning.Load()
					if cur <= old || maxRunning.CompareAndSwap(old, cur) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				running.Add(-1)
			})
		}()
	}
	wg.Wait()

	if got := maxRunning.Load(); got != 1 {
		t.Errorf("expected at most 1 concurrent func, got %d", got)
	}
}

func TestQueue_CloseDrains(t *testing.T) {
	q := New(nil)

	var ran atomic.Int32
	for range 10 {
		_ = q.Dispatch(func() {
			time.Sleep(time.Millisecond)
			ran.Add(1)
		})
	}
	q.Close()

	select {
	case <-q.Done():
	case <-time.After(time.Second):
		t.Fatal("queue did not drain in time")
	}

	if got := ran.Load(); got != 10 {
		t.Errorf("expected 10 funcs to run before shutdown, got %d", got)
	}

	if err := q.Dispatch(func() {}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}

	q.Close() // second close is a no-op
}

func TestQueue_SurvivesPanic(t *testing.T) {
	q := New(nil)
	defer q.Close()

	_ = q.Dispatch(func() { panic("boom") })

	done := make(chan struct{})
	_ = q.Dispatch(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queue stopped after a panicking func")
	}
}

func TestQueue_IdleRestart(t *testing.T) {
	q := New(nil)
	defer q.Close()

	for i := range 3 {
		done := make(chan struct{})
		if err := q.Dispatch(func() { close(done) }); err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("dispatch %d never ran", i)
		}

		time.Sleep(5 * time.Millisecond) // let the worker go idle
	}
}

func TestQueue_CloseIdle(t *testing.T) {
	q := New(nil)
	q.Close()

	select {
	case <-q.Done():
	default:
		t.Error("closing an idle queue must finish immediately")
	}
}
