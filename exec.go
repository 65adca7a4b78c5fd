package prioq

import (
	"context"
	"fmt"
	"time"

	"github.com/prioq/prioq-go/internal/backoff"
	"github.com/prioq/prioq-go/internal/taskctx"
)

// startAttempt moves a popped task into the running set and launches one
// execution attempt. Called with the manager mutex held.
func (m *Manager) startAttempt(t *task) {
	t.executionID++
	attempt := t.executionID

	now := time.Now()
	t.startedAt = now
	m.running[t.id] = t
	m.clients.start(t.client)

	wait := now.Sub(t.queuedAt)
	m.stats.waitSum += wait
	m.stats.waitN++

	ctx, cancel := context.WithCancel(context.Background())
	t.cancelAttempt = cancel
	ctx = taskctx.WithInfo(ctx, taskctx.Info{
		TaskID:   t.id,
		Client:   t.client,
		Priority: t.priority,
		Attempt:  int(attempt),
	})

	t.timer = time.AfterFunc(t.timeout, func() { m.onTimeout(t, attempt) })
	m.publishTask(EventTaskStarted, t, wait, 0, "")
	m.log.Debugf("task started: id=%s client=%s attempt=%d wait=%s", t.id, t.client, attempt, wait)

	go m.runAttempt(ctx, t, attempt)
}

// runAttempt executes the work callback and routes its outcome. Panics are
// converted to errors so one bad task cannot take the scheduler down.
func (m *Manager) runAttempt(ctx context.Context, t *task, attempt uint64) {
	var (
		v   any
		err error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				m.log.Errorf("task panicked: id=%s attempt=%d panic=%v", t.id, attempt, r)
			}
		}()
		v, err = t.work(ctx, t.payload)
	}()
	if err != nil {
		m.onError(t, attempt, err)
		return
	}
	m.onSuccess(t, attempt, v)
}

// currentAttempt reports whether the (task, attempt) pair still owns the
// running slot. A mismatch means the attempt already completed, timed out,
// or was superseded by a retry, and the caller must no-op. Called with the
// manager mutex held.
func (m *Manager) currentAttempt(t *task, attempt uint64) bool {
	cur, ok := m.running[t.id]
	return ok && cur == t && t.executionID == attempt
}

func (m *Manager) onSuccess(t *task, attempt uint64, v any) {
	m.mu.Lock()
	if !m.currentAttempt(t, attempt) {
		m.mu.Unlock()
		m.log.Debugf("stale completion discarded: id=%s attempt=%d", t.id, attempt)
		return
	}
	t.timer.Stop()
	t.cancelAttempt()
	delete(m.running, t.id)
	m.clients.stop(t.client)

	dur := time.Since(t.startedAt)
	m.stats.execSum += dur
	m.stats.execN++
	m.stats.succeeded++
	m.publishTask(EventTaskCompleted, t, 0, dur, "")
	m.terminalLocked(t, v, nil, true)
	m.mu.Unlock()

	m.log.Debugf("task completed: id=%s attempt=%d dur=%s", t.id, attempt, dur)
	m.dispatch()
}

func (m *Manager) onError(t *task, attempt uint64, cause error) {
	m.mu.Lock()
	if !m.currentAttempt(t, attempt) {
		m.mu.Unlock()
		m.log.Debugf("stale failure discarded: id=%s attempt=%d err=%v", t.id, attempt, cause)
		return
	}
	t.timer.Stop()
	t.cancelAttempt()
	delete(m.running, t.id)
	m.clients.stop(t.client)

	dur := time.Since(t.startedAt)
	m.stats.execSum += dur
	m.stats.execN++
	m.failLocked(t, cause)
	m.mu.Unlock()
	m.dispatch()
}

// onTimeout fires from the attempt timer. If the attempt already resolved
// or a retry bumped the executionID, it is a no-op; otherwise the
// scheduler stops waiting on the attempt (the callback itself is not
// aborted, only its context is cancelled) and routes to failure handling.
func (m *Manager) onTimeout(t *task, attempt uint64) {
	m.mu.Lock()
	if !m.currentAttempt(t, attempt) {
		m.mu.Unlock()
		return
	}
	t.cancelAttempt()
	delete(m.running, t.id)
	m.clients.stop(t.client)

	m.publishTask(EventTaskTimeout, t, 0, t.timeout, ErrTaskTimeout.Error())
	m.log.Warnf("task timed out: id=%s client=%s attempt=%d budget=%s", t.id, t.client, attempt, t.timeout)
	m.failLocked(t, ErrTaskTimeout)
	m.mu.Unlock()
	m.dispatch()
}

// failLocked decides between another attempt and terminal failure. Called
// with the manager mutex held, after the task left the running set.
func (m *Manager) failLocked(t *task, cause error) {
	if t.retryCount < t.maxRetries {
		t.retryCount++
		m.stats.retried++
		delay := backoff.Delay(t.retryCount, m.cfg.RetryBaseDelay, m.cfg.RetryMaxDelay, m.cfg.RetryJitter, m.rng)
		m.publishTask(EventTaskRetry, t, 0, 0, cause.Error())
		m.log.Debugf("task retry scheduled: id=%s retry=%d/%d delay=%s err=%v", t.id, t.retryCount, t.maxRetries, delay, cause)

		timer := time.AfterFunc(delay, func() { m.readmit(t) })
		m.pending[t.id] = &pendingRetry{t: t, timer: timer}
		return
	}

	m.publishTask(EventTaskFailed, t, 0, 0, cause.Error())
	m.log.Warnf("task failed: id=%s client=%s attempts=%d err=%v", t.id, t.client, t.executionID, cause)
	m.terminalLocked(t, nil, cause, false)
}

// readmit fires when a retry delay elapses: the task goes back to the
// front of its priority bucket so it runs before freshly queued work at
// the same level. If the manager closed meanwhile, the task is rejected
// instead.
func (m *Manager) readmit(t *task) {
	m.mu.Lock()
	if _, ok := m.pending[t.id]; !ok {
		// Shutdown already swept this retry.
		m.mu.Unlock()
		return
	}
	delete(m.pending, t.id)
	if m.closed {
		m.terminalLocked(t, nil, ErrShuttingDown, false)
		m.mu.Unlock()
		return
	}
	m.store.PushFront(t)
	m.mu.Unlock()
	m.dispatch()
}

// terminalLocked delivers a task's single terminal resolution and releases
// its per-client accounting. Called with the manager mutex held.
func (m *Manager) terminalLocked(t *task, v any, err error, succeeded bool) {
	m.clients.resolve(t.client)
	delete(m.live, t.id)
	m.stats.processed++
	if !succeeded && err != nil {
		m.stats.failed++
	}
	m.resolveLocked(t, v, err)
}

func (m *Manager) resolveLocked(t *task, v any, err error) {
	if t.resolved {
		return
	}
	t.resolved = true
	t.future.resolve(v, err)
}
