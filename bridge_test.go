package prioq

import (
	"context"
	"testing"
	"time"

	mrd "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// newRedisClient spins up a miniredis instance and returns a connected
// client and a cleanup.
func newRedisClient(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	s := mrd.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	cleanup := func() {
		_ = rdb.Close()
		s.Close()
	}
	return rdb, cleanup
}

func TestRedisBridge_ForwardsEvents(t *testing.T) {
	rdb, done := newRedisClient(t)
	defer done()
	m := newTestManager(t, nil)

	b := NewRedisBridge(rdb, m, BridgeConfig{Channel: "test:events"})
	b.Start()
	defer b.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub := rdb.Subscribe(ctx, "test:events")
	defer sub.Close()
	_, err := sub.Receive(ctx) // wait for the subscription ack
	require.NoError(t, err)

	f, err := m.Enqueue(noopWork, nil, TaskID("bridged"), Client("acme"))
	require.NoError(t, err)
	_, werr := waitResolved(t, f)
	require.NoError(t, werr)

	enc := &JSONEncoder{}
	seen := map[string]bool{}
	deadline := time.After(5 * time.Second)
	for len(seen) < 3 {
		select {
		case msg := <-sub.Channel():
			var e Event
			require.NoError(t, enc.Decode([]byte(msg.Payload), &e))
			require.Equal(t, "bridged", e.Task.ID)
			require.Equal(t, "acme", e.Task.Client)
			seen[e.Type] = true
		case <-deadline:
			t.Fatalf("bridge forwarded only %v", seen)
		}
	}
	require.True(t, seen[EventTaskQueued])
	require.True(t, seen[EventTaskStarted])
	require.True(t, seen[EventTaskCompleted])
}

func TestRedisBridge_StartStopIdempotent(t *testing.T) {
	rdb, done := newRedisClient(t)
	defer done()
	m := newTestManager(t, nil)

	b := NewRedisBridge(rdb, m, BridgeConfig{})
	b.Start()
	b.Start() // second start is a no-op
	b.Stop()
	b.Stop() // second stop is a no-op

	// The manager keeps working after the bridge detaches.
	f, err := m.Enqueue(noopWork, "still alive")
	require.NoError(t, err)
	v, werr := waitResolved(t, f)
	require.NoError(t, werr)
	require.Equal(t, "still alive", v)
}

func TestRedisBridge_DefaultsApplied(t *testing.T) {
	rdb, done := newRedisClient(t)
	defer done()
	m := newTestManager(t, nil)

	b := NewRedisBridge(rdb, m, BridgeConfig{})
	require.Equal(t, "prioq:events", b.cfg.Channel)
	require.Equal(t, 256, b.cfg.Buffer)
	require.NotNil(t, b.cfg.Encoder)
	require.NotNil(t, b.cfg.Logger)
}
