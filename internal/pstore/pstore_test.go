package pstore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type item struct {
	id     string
	client string
	prio   int
}

func (i item) ID() string     { return i.id }
func (i item) Client() string { return i.client }
func (i item) Priority() int  { return i.prio }

func TestClamp(t *testing.T) {
	require.Equal(t, 1, Clamp(0))
	require.Equal(t, 1, Clamp(-3))
	require.Equal(t, 10, Clamp(99))
	require.Equal(t, 5, Clamp(5))
}

func TestStore_PopOrder(t *testing.T) {
	s := New[item]()
	s.Push(item{id: "a", client: "c1", prio: 5})
	s.Push(item{id: "b", client: "c1", prio: 9})
	s.Push(item{id: "c", client: "c1", prio: 5})
	require.Equal(t, 3, s.Len())

	// Highest priority first, then FIFO within the level.
	var got []string
	for {
		it, ok := s.Pop()
		if !ok {
			break
		}
		got = append(got, it.ID())
	}
	require.Equal(t, []string{"b", "a", "c"}, got)
	require.Equal(t, 0, s.Len())
}

func TestStore_PushFront(t *testing.T) {
	s := New[item]()
	s.Push(item{id: "a", client: "c1", prio: 5})
	s.PushFront(item{id: "retry", client: "c1", prio: 5})

	it, ok := s.Pop()
	require.True(t, ok)
	require.Equal(t, "retry", it.ID())
}

func TestStore_Remove(t *testing.T) {
	s := New[item]()
	s.Push(item{id: "a", client: "c1", prio: 5})
	s.Push(item{id: "b", client: "c1", prio: 5})

	it, ok := s.Remove("a")
	require.True(t, ok)
	require.Equal(t, "a", it.ID())
	require.Equal(t, 1, s.Len())

	_, ok = s.Remove("nope")
	require.False(t, ok)

	// Order of the survivors is untouched.
	next, _ := s.Pop()
	require.Equal(t, "b", next.ID())
}

func TestStore_PopFair_SkipsCappedClient(t *testing.T) {
	s := New[item]()
	s.Push(item{id: "h1", client: "hog", prio: 9})
	s.Push(item{id: "h2", client: "hog", prio: 9})
	s.Push(item{id: "q1", client: "quiet", prio: 5})

	// "hog" is at its cap: the lower-priority task of the quiet client wins.
	it, ok := s.PopFair(func(c string) bool { return c != "hog" })
	require.True(t, ok)
	require.Equal(t, "q1", it.ID())

	// Nothing eligible left: caller falls back to strict Pop.
	_, ok = s.PopFair(func(c string) bool { return c != "hog" })
	require.False(t, ok)
	require.Equal(t, 2, s.Len())
}

func TestStore_PopFair_TieBreakByEligibleCount(t *testing.T) {
	s := New[item]()
	// Same priority level: "b" has more eligible queued tasks than "a".
	s.Push(item{id: "a1", client: "a", prio: 7})
	s.Push(item{id: "b1", client: "b", prio: 7})
	s.Push(item{id: "b2", client: "b", prio: 7})

	it, ok := s.PopFair(func(string) bool { return true })
	require.True(t, ok)
	require.Equal(t, "b1", it.ID(), "busiest eligible client wins, FIFO within the client")
}

func TestStore_PopFair_EqualCountsKeepBucketOrder(t *testing.T) {
	s := New[item]()
	s.Push(item{id: "a1", client: "a", prio: 7})
	s.Push(item{id: "b1", client: "b", prio: 7})

	it, ok := s.PopFair(func(string) bool { return true })
	require.True(t, ok)
	require.Equal(t, "a1", it.ID(), "count tie resolves to first-seen client")
}

func TestStore_PopFair_HigherPriorityDominates(t *testing.T) {
	s := New[item]()
	s.Push(item{id: "low1", client: "a", prio: 3})
	s.Push(item{id: "low2", client: "a", prio: 3})
	s.Push(item{id: "low3", client: "a", prio: 3})
	s.Push(item{id: "high", client: "b", prio: 8})

	// Eligible count never outweighs a higher priority level.
	it, ok := s.PopFair(func(string) bool { return true })
	require.True(t, ok)
	require.Equal(t, "high", it.ID())
}

func TestStore_Drain(t *testing.T) {
	s := New[item]()
	s.Push(item{id: "a", client: "c", prio: 2})
	s.Push(item{id: "b", client: "c", prio: 9})
	s.Push(item{id: "c", client: "c", prio: 2})

	out := s.Drain()
	require.Len(t, out, 3)
	require.Equal(t, "b", out[0].ID())
	require.Equal(t, "a", out[1].ID())
	require.Equal(t, "c", out[2].ID())
	require.Equal(t, 0, s.Len())
}

func TestStore_LenByPriority(t *testing.T) {
	s := New[item]()
	s.Push(item{id: "a", client: "c", prio: 2})
	s.Push(item{id: "b", client: "c", prio: 2})
	s.Push(item{id: "c", client: "c", prio: 10})

	require.Equal(t, map[int]int{2: 2, 10: 1}, s.LenByPriority())
}

func BenchmarkStore_PushPop(b *testing.B) {
	s := New[item]()
	for i := 0; i < b.N; i++ {
		s.Push(item{id: fmt.Sprintf("t%d", i), client: "c", prio: i%10 + 1})
		if s.Len() > 1024 {
			for s.Len() > 0 {
				s.Pop()
			}
		}
	}
}
