package prioq

import "time"

// Stats is a point-in-time snapshot of queue state and lifetime counters.
type Stats struct {
	Queued    int    `json:"queued"`
	Running   int    `json:"running"`
	Processed uint64 `json:"processed"`
	Succeeded uint64 `json:"succeeded"`
	Failed    uint64 `json:"failed"`
	Retried   uint64 `json:"retried"`

	// AvgWaitMs averages queued-to-start wait over attempts started;
	// AvgExecMs averages attempt duration over attempts that completed.
	AvgWaitMs float64 `json:"avg_wait_ms"`
	AvgExecMs float64 `json:"avg_exec_ms"`

	// ByPriority counts queued tasks per non-empty priority level.
	ByPriority map[int]int `json:"by_priority"`
	// ByClient counts queued-or-running (incl. pending-retry) tasks per client.
	ByClient map[string]int `json:"by_client"`
}

// counters accumulates lifetime totals. Owned by the manager mutex.
type counters struct {
	processed uint64
	succeeded uint64
	failed    uint64
	retried   uint64

	waitSum time.Duration
	waitN   uint64
	execSum time.Duration
	execN   uint64
}

// clientCounts tracks per-client totals (queued-or-running, held from
// admission to terminal resolution) and the running-only counts the
// fairness cap consults.
type clientCounts struct {
	totals  map[string]int
	running map[string]int
}

func newClientCounts() *clientCounts {
	return &clientCounts{
		totals:  make(map[string]int),
		running: make(map[string]int),
	}
}

func (c *clientCounts) admit(client string) { c.totals[client]++ }

func (c *clientCounts) resolve(client string) {
	if c.totals[client] <= 1 {
		delete(c.totals, client)
		return
	}
	c.totals[client]--
}

func (c *clientCounts) start(client string) { c.running[client]++ }

func (c *clientCounts) stop(client string) {
	if c.running[client] <= 1 {
		delete(c.running, client)
		return
	}
	c.running[client]--
}

func (c *clientCounts) runningCount(client string) int { return c.running[client] }

func (c *clientCounts) snapshotTotals() map[string]int {
	out := make(map[string]int, len(c.totals))
	for k, v := range c.totals {
		out[k] = v
	}
	return out
}
