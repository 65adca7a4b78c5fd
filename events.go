package prioq

import (
	"sync"
	"sync/atomic"
	"time"
)

// Lifecycle event names published by the manager.
const (
	EventTaskQueued    = "task:queued"
	EventTaskStarted   = "task:started"
	EventTaskCompleted = "task:completed"
	EventTaskFailed    = "task:failed"
	EventTaskRetry     = "task:retry"
	EventTaskTimeout   = "task:timeout"
	EventQueueEmpty    = "queue:empty"
	EventQueueFull     = "queue:full"
)

// Event is a lightweight, in-memory signal describing one lifecycle
// transition.
//
// Contract:
//   - Publish never blocks.
//   - Subscribers use buffered channels.
//   - Slow subscribers may drop events (bounded backpressure).
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Task TaskInfo  `json:"task"`
}

// bus is a simple in-memory fanout. It owns no background goroutines.
type bus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func newBus() *bus {
	return &bus{subs: map[uint64]chan Event{}}
}

func (b *bus) publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Snapshot subscribers so publish doesn't hold the lock while sending.
	b.mu.RLock()
	chs := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// Non-blocking delivery. If a subscriber unsubscribes concurrently
		// and the channel closes, recover from the send panic.
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
			}
		}()
	}
}

func (b *bus) subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			// Closing is safe because publish recovers from send panics.
			close(ch)
		})
	}
	return ch, unsub
}
