package prioq

// Strategy selects how the dispatch loop picks the next queued task.
// Use the exported constants (StrategyFair, StrategyStrict) instead of
// raw strings to avoid typos.
type Strategy string

const (
	// StrategyFair caps each client at ceil(MaxConcurrent/4) running tasks
	// and favors the busiest eligible client at the highest priority level.
	// This is the default.
	StrategyFair Strategy = "fair"
	// StrategyStrict always takes the head of the highest non-empty
	// priority bucket. Simple and deterministic, but one high-volume
	// client can starve others at the same priority.
	StrategyStrict Strategy = "strict"
)

// AllStrategies lists every valid strategy in a stable order.
var AllStrategies = []Strategy{StrategyFair, StrategyStrict}

// String returns the raw string value of the strategy.
func (s Strategy) String() string { return string(s) }

// ParseStrategy converts a string into a Strategy, returning an error for
// unknown values.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case string(StrategyFair):
		return StrategyFair, nil
	case string(StrategyStrict):
		return StrategyStrict, nil
	default:
		return "", ErrUnknownStrategy
	}
}
