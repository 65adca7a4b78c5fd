package prioq

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// BridgeConfig configures a RedisBridge.
type BridgeConfig struct {
	// Channel is the pub/sub channel events are published to.
	// Default "prioq:events".
	Channel string
	// Buffer is the event subscription buffer; events beyond it are
	// dropped rather than blocking the scheduler. Default 256.
	Buffer int
	// Encoder serializes events. Default JSONEncoder.
	Encoder Encoder
	// Logger receives bridge diagnostics. Default is the noop logger.
	Logger Logger
}

// RedisBridge forwards a Manager's lifecycle events to a Redis pub/sub
// channel so monitors outside the process can observe the queue. The
// bridge is an observer at the boundary: the queue itself stays
// in-memory, and a slow or absent Redis never blocks scheduling.
type RedisBridge struct {
	rdb redis.UniversalClient
	mgr *Manager
	cfg BridgeConfig
	log Logger

	mu      sync.Mutex
	started bool
	unsub   func()
	done    chan struct{}
}

// NewRedisBridge creates a bridge for the given manager. Call Start to
// begin forwarding.
func NewRedisBridge(rdb redis.UniversalClient, mgr *Manager, cfg BridgeConfig) *RedisBridge {
	if cfg.Channel == "" {
		cfg.Channel = "prioq:events"
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.Encoder == nil {
		cfg.Encoder = &JSONEncoder{}
	}
	if cfg.Logger == nil {
		cfg.Logger = NopLogger()
	}
	return &RedisBridge{rdb: rdb, mgr: mgr, cfg: cfg, log: cfg.Logger}
}

// Start subscribes to the manager's events and forwards them until Stop.
// It is idempotent and non-blocking.
func (b *RedisBridge) Start() {
	b.mu.Lock()
	if b.started {
		b.log.Warnf("bridge already started; ignoring Start()")
		b.mu.Unlock()
		return
	}
	b.started = true
	ch, unsub := b.mgr.Subscribe(b.cfg.Buffer)
	b.unsub = unsub
	b.done = make(chan struct{})
	done := b.done
	b.mu.Unlock()

	b.log.Infof("bridge started: channel=%s", b.cfg.Channel)
	go func() {
		defer close(done)
		ctx := context.Background()
		for e := range ch {
			data, err := b.cfg.Encoder.Encode(e)
			if err != nil {
				b.log.Errorf("bridge encode failed: type=%s err=%v", e.Type, err)
				continue
			}
			if err := b.rdb.Publish(ctx, b.cfg.Channel, data).Err(); err != nil {
				b.log.Warnf("bridge publish failed: type=%s err=%v", e.Type, err)
			}
		}
	}()
}

// Stop detaches from the manager and waits for in-flight publishes to
// finish. It is idempotent.
func (b *RedisBridge) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	unsub := b.unsub
	done := b.done
	b.unsub = nil
	b.done = nil
	b.mu.Unlock()

	unsub() // closes the subscription channel, ending the forward loop
	<-done
	b.log.Infof("bridge stopped")
}
