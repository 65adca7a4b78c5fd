package prioq

import "errors"

// ErrQueueClosed is returned by Enqueue once shutdown has begun. A new
// Manager is required to accept work again.
var ErrQueueClosed = errors.New("prioq: queue closed")

// ErrQueueFull is the backpressure signal: the queued total reached
// MaxQueueSize. The caller should back off or reject upstream; nothing is
// buffered or silently dropped.
var ErrQueueFull = errors.New("prioq: queue full")

// ErrTaskTimeout rejects an attempt that exceeded its timeout budget. It
// goes through the same retry policy as any other failure.
var ErrTaskTimeout = errors.New("prioq: task timed out")

// ErrTaskCancelled rejects a queued task removed by Cancel or Clear.
var ErrTaskCancelled = errors.New("prioq: task cancelled")

// ErrShuttingDown rejects tasks still running or pending retry when the
// manager shuts down.
var ErrShuttingDown = errors.New("prioq: manager shutting down")

// ErrDuplicateTask is returned when Enqueue is called with an ID already
// held by a live (queued, running, or pending-retry) task.
var ErrDuplicateTask = errors.New("prioq: duplicate task id")

// ErrUnknownStrategy is returned when a strategy string cannot be parsed.
var ErrUnknownStrategy = errors.New("prioq: unknown strategy")
