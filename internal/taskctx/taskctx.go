package taskctx

import "context"

// Info carries per-attempt metadata the scheduler attaches to the work
// callback's context. Callbacks may read it to tag their own logs or
// telemetry; the scheduler never reads it back.
type Info struct {
	TaskID   string
	Client   string
	Priority int
	Attempt  int
}

type ctxKey struct{}

// WithInfo returns a child context carrying the attempt metadata.
func WithInfo(parent context.Context, info Info) context.Context {
	return context.WithValue(parent, ctxKey{}, info)
}

// From extracts the attempt metadata from ctx if present.
func From(ctx context.Context) (Info, bool) {
	v := ctx.Value(ctxKey{})
	if v == nil {
		return Info{}, false
	}
	info, ok := v.(Info)
	return info, ok
}
