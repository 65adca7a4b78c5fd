package prioq

import (
	"context"
	"time"
)

// Work is the callback a task runs. The payload is the opaque value given
// to Enqueue; the scheduler never inspects it. The context carries attempt
// metadata (see internal/taskctx) and is cancelled when the scheduler
// stops waiting on the attempt — honoring it is optional but lets a
// callback stop early instead of running to completion unobserved.
type Work func(ctx context.Context, payload any) (any, error)

// task is the scheduler's record for one admitted unit of work. Identity
// fields are immutable after admission; scheduling state is mutated only
// under the manager mutex.
type task struct {
	id       string
	priority int
	client   string
	payload  any
	work     Work

	queuedAt   time.Time
	timeout    time.Duration
	retryCount int
	maxRetries int

	// executionID is bumped exactly once per attempt. A stale timeout or a
	// late completion from an earlier attempt sees a mismatch and no-ops
	// instead of corrupting the current attempt's bookkeeping.
	executionID uint64

	startedAt     time.Time
	timer         *time.Timer
	cancelAttempt context.CancelFunc

	future   *Future
	resolved bool
}

func (t *task) ID() string     { return t.id }
func (t *task) Client() string { return t.client }
func (t *task) Priority() int  { return t.priority }

// TaskInfo is the event payload describing one task lifecycle transition.
type TaskInfo struct {
	ID       string        `json:"id"`
	Client   string        `json:"client,omitempty"`
	Priority int           `json:"priority,omitempty"`
	Attempt  int           `json:"attempt,omitempty"`
	Wait     time.Duration `json:"wait,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`
}
