package prioq

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prioq/prioq-go/internal/pstore"
)

// Config controls a Manager. Zero values fall back to the documented
// defaults in New.
type Config struct {
	// MaxConcurrent is the number of tasks that may run at once. Default 4.
	MaxConcurrent int
	// MaxQueueSize bounds the queued total across all priority buckets.
	// Enqueue past the bound fails with ErrQueueFull. Default 1024.
	MaxQueueSize int
	// Strategy selects strict-priority or fair-by-client dispatch.
	// Default StrategyFair.
	Strategy Strategy

	// DefaultTimeout is the per-attempt budget when a task sets none.
	// Default 30s.
	DefaultTimeout time.Duration
	// DefaultMaxRetries applies when a task sets none. Default 3.
	DefaultMaxRetries int

	// Retry backoff policy: delay = min(RetryMaxDelay,
	// RetryBaseDelay*2^(n-1) + uniform jitter). Defaults 500ms / 30s / 0.3.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	RetryJitter    float64

	// GracePeriod bounds how long a graceful Shutdown waits for running
	// tasks; PollInterval is the wait's polling step. Defaults 10s / 20ms.
	GracePeriod  time.Duration
	PollInterval time.Duration

	// Logger receives scheduler diagnostics. Default is FmtLogger.
	Logger Logger
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 1024
	}
	if c.Strategy != StrategyStrict && c.Strategy != StrategyFair {
		c.Strategy = StrategyFair
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 30 * time.Second
	}
	if c.DefaultMaxRetries < 0 {
		c.DefaultMaxRetries = 0
	} else if c.DefaultMaxRetries == 0 {
		c.DefaultMaxRetries = 3
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 500 * time.Millisecond
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = 30 * time.Second
	}
	if c.RetryJitter < 0 {
		c.RetryJitter = 0
	} else if c.RetryJitter == 0 {
		c.RetryJitter = 0.3
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = 10 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 20 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = NewFmtLogger()
	}
	return c
}

// Manager admits, prioritizes, executes, retries, and bounds independent
// units of work. All mutable scheduling state (buckets, running set,
// client counts, stats) is owned by one mutex and must never be mutated
// from outside.
//
// Managers are independent: construct one per queue and pass it by
// reference to whatever creates work.
type Manager struct {
	cfg Config
	log Logger
	bus *bus

	mu        sync.Mutex
	store     *pstore.Store[*task]
	running   map[string]*task
	clients   *clientCounts
	pending   map[string]*pendingRetry
	live      map[string]bool
	stats     counters
	rng       *rand.Rand
	closed    bool
	clientCap int

	// dispatching collapses overlapping dispatch passes into one: a pass
	// triggered while another runs marks redispatch and returns; the
	// active pass re-checks before exiting.
	dispatching bool
	redispatch  bool

	middlewares []Middleware
}

type pendingRetry struct {
	t     *task
	timer *time.Timer
}

// New creates a Manager. It is ready immediately; there is no Start.
func New(cfg Config) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:       cfg,
		log:       cfg.Logger,
		bus:       newBus(),
		store:     pstore.New[*task](),
		running:   make(map[string]*task),
		clients:   newClientCounts(),
		pending:   make(map[string]*pendingRetry),
		live:      make(map[string]bool),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		clientCap: (cfg.MaxConcurrent + 3) / 4, // ceil(MaxConcurrent/4)
	}
}

// Enqueue admits a unit of work and returns a Future resolving with the
// work's result or rejecting with the terminal error. It never blocks:
// admission failures (ErrQueueClosed, ErrQueueFull, ErrDuplicateTask) are
// returned synchronously; everything later arrives through the Future.
func (m *Manager) Enqueue(work Work, payload any, opts ...Option) (*Future, error) {
	if work == nil {
		return nil, fmt.Errorf("prioq: work is nil")
	}

	cfg := &options{priority: 5}
	for _, opt := range opts {
		opt(cfg)
	}
	id := cfg.id
	if id == "" {
		id = uuid.NewString()
	}
	timeout := cfg.timeout
	if timeout <= 0 {
		timeout = m.cfg.DefaultTimeout
	}
	maxRetry := m.cfg.DefaultMaxRetries
	if cfg.maxRetrySet && cfg.maxRetry >= 0 {
		maxRetry = cfg.maxRetry
	}

	t := &task{
		id:         id,
		priority:   pstore.Clamp(cfg.priority),
		client:     cfg.client,
		payload:    payload,
		work:       m.wrapWork(work),
		queuedAt:   time.Now(),
		timeout:    timeout,
		maxRetries: maxRetry,
		future:     newFuture(),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrQueueClosed
	}
	if m.store.Len() >= m.cfg.MaxQueueSize {
		queued := m.store.Len()
		m.bus.publish(Event{Type: EventQueueFull, Task: TaskInfo{ID: t.id, Client: t.client, Priority: t.priority}})
		m.mu.Unlock()
		m.log.Warnf("enqueue rejected: queue full id=%s client=%s queued=%d", t.id, t.client, queued)
		return nil, ErrQueueFull
	}
	if m.live[t.id] {
		m.mu.Unlock()
		return nil, ErrDuplicateTask
	}
	m.live[t.id] = true
	m.store.Push(t)
	m.clients.admit(t.client)
	m.publishTask(EventTaskQueued, t, 0, 0, "")
	m.mu.Unlock()

	m.log.Debugf("task queued: id=%s client=%s priority=%d", t.id, t.client, t.priority)
	m.dispatch()
	return t.future, nil
}

// Cancel removes a queued task, rejecting its future with ErrTaskCancelled.
// It returns false if the id is not queued; running tasks cannot be
// cancelled.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	t, ok := m.store.Remove(id)
	if !ok {
		m.mu.Unlock()
		return false
	}
	m.clients.resolve(t.client)
	delete(m.live, t.id)
	m.resolveLocked(t, nil, ErrTaskCancelled)
	m.mu.Unlock()
	m.log.Debugf("task cancelled: id=%s", id)
	return true
}

// Clear rejects and removes every queued (not running) task, publishes
// queue:empty, and returns the count removed.
func (m *Manager) Clear() int {
	m.mu.Lock()
	items := m.store.Drain()
	for _, t := range items {
		m.clients.resolve(t.client)
		delete(m.live, t.id)
		m.resolveLocked(t, nil, ErrTaskCancelled)
	}
	m.bus.publish(Event{Type: EventQueueEmpty})
	m.mu.Unlock()
	if len(items) > 0 {
		m.log.Infof("queue cleared: removed=%d", len(items))
	}
	return len(items)
}

// Shutdown blocks further admission. If graceful, it waits for running
// tasks up to GracePeriod, polling at PollInterval. It then clears the
// queue and rejects still-running and pending-retry tasks with
// ErrShuttingDown. Calling Shutdown twice is a no-op the second time.
func (m *Manager) Shutdown(graceful bool) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()
	m.log.Infof("shutting down: graceful=%v", graceful)

	if graceful {
		deadline := time.Now().Add(m.cfg.GracePeriod)
		for {
			m.mu.Lock()
			n := len(m.running)
			m.mu.Unlock()
			if n == 0 || !time.Now().Before(deadline) {
				break
			}
			time.Sleep(m.cfg.PollInterval)
		}
	}

	m.Clear()

	m.mu.Lock()
	for id, pr := range m.pending {
		pr.timer.Stop()
		delete(m.pending, id)
		m.terminalLocked(pr.t, nil, ErrShuttingDown, false)
	}
	for id, t := range m.running {
		t.timer.Stop()
		t.cancelAttempt()
		delete(m.running, id)
		m.clients.stop(t.client)
		m.terminalLocked(t, nil, ErrShuttingDown, false)
	}
	m.mu.Unlock()
	m.log.Infof("shutdown complete")
}

// Stats returns a snapshot of queue state and lifetime counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Stats{
		Queued:     m.store.Len(),
		Running:    len(m.running),
		Processed:  m.stats.processed,
		Succeeded:  m.stats.succeeded,
		Failed:     m.stats.failed,
		Retried:    m.stats.retried,
		ByPriority: m.store.LenByPriority(),
		ByClient:   m.clients.snapshotTotals(),
	}
	if m.stats.waitN > 0 {
		st.AvgWaitMs = float64(m.stats.waitSum) / float64(m.stats.waitN) / float64(time.Millisecond)
	}
	if m.stats.execN > 0 {
		st.AvgExecMs = float64(m.stats.execSum) / float64(m.stats.execN) / float64(time.Millisecond)
	}
	return st
}

// Subscribe attaches an observer to the manager's lifecycle events. The
// returned function detaches it. Delivery is non-blocking: a subscriber
// that falls behind its buffer misses events.
func (m *Manager) Subscribe(buffer int) (<-chan Event, func()) {
	return m.bus.subscribe(buffer)
}

// dispatch runs scheduling passes until capacity or the queue is
// exhausted. Passes triggered while one is active fold into it.
func (m *Manager) dispatch() {
	m.mu.Lock()
	if m.dispatching {
		m.redispatch = true
		m.mu.Unlock()
		return
	}
	m.dispatching = true
	for {
		m.redispatch = false
		for !m.closed && len(m.running) < m.cfg.MaxConcurrent {
			t, ok := m.next()
			if !ok {
				break
			}
			m.startAttempt(t)
		}
		if !m.redispatch {
			break
		}
	}
	m.dispatching = false
	m.mu.Unlock()
}

// next picks the next task under the configured strategy. Called with the
// manager mutex held.
func (m *Manager) next() (*task, bool) {
	if m.cfg.Strategy == StrategyStrict {
		return m.store.Pop()
	}
	t, ok := m.store.PopFair(func(client string) bool {
		return m.clients.runningCount(client) < m.clientCap
	})
	if ok {
		return t, true
	}
	// Every queued client is at its cap: fall back to strict priority so
	// the queue never stalls against idle capacity.
	return m.store.Pop()
}

func (m *Manager) publishTask(typ string, t *task, wait, dur time.Duration, errMsg string) {
	m.bus.publish(Event{Type: typ, Task: TaskInfo{
		ID:       t.id,
		Client:   t.client,
		Priority: t.priority,
		Attempt:  int(t.executionID),
		Wait:     wait,
		Duration: dur,
		Error:    errMsg,
	}})
}
