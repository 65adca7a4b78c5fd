package backoff

import (
	"math/rand"
	"time"
)

// DefaultJitter is the fraction of the exponential part added as random
// jitter. Jitter exists to de-synchronize retry storms when many tasks
// fail at once from a shared upstream outage.
const DefaultJitter = 0.3

// Delay computes the wait before retry attempt n (1-based):
//
//	min(max, base*2^(n-1) + uniform[0, jitter*base*2^(n-1)))
//
// A nil rng disables jitter, which keeps tests deterministic.
func Delay(attempt int, base, max time.Duration, jitter float64, rng *rand.Rand) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if max <= 0 {
		max = 30 * time.Second
	}
	if jitter < 0 {
		jitter = DefaultJitter
	}

	exp := base
	for i := 1; i < attempt; i++ {
		exp *= 2
		if exp >= max || exp < 0 { // doubling overflowed
			exp = max
			break
		}
	}

	d := exp
	if jitter > 0 && rng != nil {
		d += time.Duration(rng.Float64() * jitter * float64(exp))
	}
	if d > max {
		d = max
	}
	return d
}
