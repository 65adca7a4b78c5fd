package prioq

import "context"

// Future delivers a task's terminal outcome to the caller. Every admitted
// task resolves its future exactly once: with the work's result, or with
// the terminal error (retries are invisible until exhausted).
type Future struct {
	done  chan struct{}
	value any
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// resolve is called at most once; the manager guarantees this via the
// record's resolved flag under its mutex.
func (f *Future) resolve(v any, err error) {
	f.value = v
	f.err = err
	close(f.done)
}

// Done returns a channel closed once the task reaches its terminal outcome.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the task resolves or ctx is done.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Resolved reports whether the terminal outcome has been delivered.
func (f *Future) Resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
