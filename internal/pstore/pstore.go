package pstore

// Priority bounds for queued items. Values outside the range are clamped,
// not rejected.
const (
	MinPriority = 1
	MaxPriority = 10
)

// Clamp forces p into [MinPriority, MaxPriority].
func Clamp(p int) int {
	if p < MinPriority {
		return MinPriority
	}
	if p > MaxPriority {
		return MaxPriority
	}
	return p
}

// Item is the view of a queued task the store needs for ordering and
// fairness decisions.
type Item interface {
	ID() string
	Client() string
	Priority() int
}

// Store holds queued items in one FIFO bucket per priority level.
// Insertion order within a bucket is preserved; the store never re-sorts.
//
// The store is not goroutine-safe; the owning scheduler serializes access.
type Store[T Item] struct {
	buckets [MaxPriority + 1][]T
	size    int
}

// New creates an empty store.
func New[T Item]() *Store[T] {
	return &Store[T]{}
}

// Len returns the total number of queued items across all buckets.
func (s *Store[T]) Len() int { return s.size }

// Push appends an item to the tail of its priority bucket.
func (s *Store[T]) Push(it T) {
	p := Clamp(it.Priority())
	s.buckets[p] = append(s.buckets[p], it)
	s.size++
}

// PushFront inserts an item at the head of its priority bucket, ahead of
// items already waiting at the same level. Used for retry re-admission.
func (s *Store[T]) PushFront(it T) {
	p := Clamp(it.Priority())
	s.buckets[p] = append([]T{it}, s.buckets[p]...)
	s.size++
}

// Pop removes and returns the head of the highest non-empty bucket.
func (s *Store[T]) Pop() (T, bool) {
	for p := MaxPriority; p >= MinPriority; p-- {
		if len(s.buckets[p]) == 0 {
			continue
		}
		return s.removeAt(p, 0), true
	}
	var zero T
	return zero, false
}

// PopFair removes and returns the next item under the fair-by-client rule:
// at the highest priority level holding at least one item whose client is
// still eligible, the client with the most eligible items at that level
// wins (first-seen bucket order breaks count ties), and its first item at
// that level is returned. Items of ineligible clients are skipped.
//
// Returns false if every queued item belongs to an ineligible client; the
// caller is expected to fall back to Pop so capacity never idles.
func (s *Store[T]) PopFair(eligible func(client string) bool) (T, bool) {
	for p := MaxPriority; p >= MinPriority; p-- {
		b := s.buckets[p]
		if len(b) == 0 {
			continue
		}

		counts := make(map[string]int)
		first := make(map[string]int)
		for i, it := range b {
			c := it.Client()
			if _, seen := counts[c]; !seen {
				if !eligible(c) {
					counts[c] = -1 // remembered as ineligible
					continue
				}
				first[c] = i
			}
			if counts[c] >= 0 {
				counts[c]++
			}
		}

		best := ""
		bestN := 0
		for _, it := range b {
			c := it.Client()
			if n := counts[c]; n > bestN {
				best, bestN = c, n
			}
		}
		if bestN == 0 {
			continue // whole level capped, try lower priorities
		}
		return s.removeAt(p, first[best]), true
	}
	var zero T
	return zero, false
}

// Remove deletes the item with the given id from whichever bucket holds it.
func (s *Store[T]) Remove(id string) (T, bool) {
	for p := MaxPriority; p >= MinPriority; p-- {
		for i, it := range s.buckets[p] {
			if it.ID() == id {
				return s.removeAt(p, i), true
			}
		}
	}
	var zero T
	return zero, false
}

// Drain removes and returns every queued item, highest priority first,
// FIFO within each level.
func (s *Store[T]) Drain() []T {
	out := make([]T, 0, s.size)
	for p := MaxPriority; p >= MinPriority; p-- {
		out = append(out, s.buckets[p]...)
		s.buckets[p] = nil
	}
	s.size = 0
	return out
}

// LenByPriority returns the queued count per non-empty priority level.
func (s *Store[T]) LenByPriority() map[int]int {
	out := make(map[int]int)
	for p := MinPriority; p <= MaxPriority; p++ {
		if n := len(s.buckets[p]); n > 0 {
			out[p] = n
		}
	}
	return out
}

func (s *Store[T]) removeAt(p, i int) T {
	b := s.buckets[p]
	it := b[i]
	copy(b[i:], b[i+1:])
	var zero T
	b[len(b)-1] = zero // release the reference
	s.buckets[p] = b[:len(b)-1]
	s.size--
	return it
}
