package prioq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOptions_Setters(t *testing.T) {
	var o options

	TaskID("id-1")(&o)
	require.Equal(t, "id-1", o.id, "TaskID not set")

	Client("acme")(&o)
	require.Equal(t, "acme", o.client, "Client not set")

	Timeout(3 * time.Second)(&o)
	require.Equal(t, 3*time.Second, o.timeout, "Timeout not set")
}

func TestOption_Priority(t *testing.T) {
	var o options
	// default: not set
	require.False(t, o.prioritySet)

	Priority(9)(&o)
	require.True(t, o.prioritySet)
	require.Equal(t, 9, o.priority)
}

func TestOption_MaxRetry(t *testing.T) {
	var o options
	// default: not set
	require.False(t, o.maxRetrySet)
	require.Zero(t, o.maxRetry)

	// MaxRetry(0) is an explicit "no retries", distinct from unset.
	MaxRetry(0)(&o)
	require.True(t, o.maxRetrySet)
	require.Zero(t, o.maxRetry)

	MaxRetry(7)(&o)
	require.Equal(t, 7, o.maxRetry)
}
