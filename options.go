package prioq

import "time"

type options struct {
	id       string
	priority int
	client   string
	timeout  time.Duration
	maxRetry int

	// internal flags to tell "unset" apart from an explicit zero
	prioritySet bool
	maxRetrySet bool
}

// Option is a function that configures task behavior during Enqueue.
type Option func(*options)

// TaskID sets a custom ID for the task. If not provided, a random UUID
// will be generated. IDs must be unique among live tasks.
func TaskID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// Priority sets the task's urgency in [1,10] (10 = most urgent). Values
// outside the range are clamped, not rejected. Default is 5.
func Priority(p int) Option {
	return func(o *options) {
		o.priority = p
		o.prioritySet = true
	}
}

// Client tags the task with its submitter identity, used only by the
// fair-by-client selection and for per-client accounting.
func Client(id string) Option {
	return func(o *options) {
		o.client = id
	}
}

// Timeout sets the wall-clock budget for one execution attempt. Zero or
// negative falls back to the manager's DefaultTimeout.
func Timeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// MaxRetry sets the maximum number of retry attempts for the task.
// MaxRetry(0) explicitly disables retries; omitting the option uses the
// manager's DefaultMaxRetries.
func MaxRetry(n int) Option {
	return func(o *options) {
		o.maxRetry = n
		o.maxRetrySet = true
	}
}
