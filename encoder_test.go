package prioq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONEncoder_EventRoundtrip(t *testing.T) {
	enc := &JSONEncoder{}
	in := Event{
		Type: EventTaskCompleted,
		Time: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Task: TaskInfo{ID: "t1", Client: "acme", Priority: 7, Attempt: 2},
	}
	data, err := enc.Encode(in)
	require.NoError(t, err, "encode should not error")

	var out Event
	require.NoError(t, enc.Decode(data, &out), "decode should not error")
	assert.Equal(t, in.Type, out.Type)
	assert.Equal(t, in.Task, out.Task)
	assert.True(t, in.Time.Equal(out.Time), "time mismatch")
}

func TestJSONEncoder_DecodeError(t *testing.T) {
	enc := &JSONEncoder{}
	var out Event
	err := enc.Decode([]byte("{"), &out)
	require.Error(t, err, "expected error for invalid JSON")
}
