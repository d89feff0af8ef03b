package kernel

import "github.com/contexthub/seoshub/internal/constants"

// subList is a task's duplicate-free, ordered list of subscribed event
// types. It starts backed by a fixed embedded array; once that capacity
// is exceeded it grows onto a heap-allocated slice sized
// ceil((old*3+1)/2), copying existing entries across. The embedded array
// is never freed; the heap slice is released on shrink-to-empty.
//
// Grounded on internal/queue/pool.go's size-bucketed growth idiom,
// adapted to the spec's explicit growth formula rather than fixed buckets.
type subList struct {
	embedded [constants.MaxEmbeddedEvtSubs]uint32
	heap     []uint32
	n        int
}

func (s *subList) capacity() int {
	if s.heap != nil {
		return cap(s.heap)
	}
	return len(s.embedded)
}

func (s *subList) at(i int) uint32 {
	if s.heap != nil {
		return s.heap[i]
	}
	return s.embedded[i]
}

func (s *subList) set(i int, v uint32) {
	if s.heap != nil {
		s.heap[i] = v
		return
	}
	s.embedded[i] = v
}

// Len returns the number of subscribed event types.
func (s *subList) Len() int { return s.n }

// Contains reports whether evt is currently subscribed.
func (s *subList) Contains(evt uint32) bool {
	for i := 0; i < s.n; i++ {
		if s.at(i) == evt {
			return true
		}
	}
	return false
}

// Subscribe adds evt if not already present. No-op if already subscribed.
func (s *subList) Subscribe(evt uint32) {
	if s.Contains(evt) {
		return
	}
	if s.n == s.capacity() {
		s.grow()
	}
	s.set(s.n, evt)
	s.n++
}

// grow reallocates onto a heap slice of size ceil((old*3+1)/2), copying
// existing entries across. The embedded array is left untouched.
func (s *subList) grow() {
	old := s.capacity()
	newCap := (old*3 + 2) / 2 // ceil((old*3+1)/2)
	next := make([]uint32, newCap)
	for i := 0; i < s.n; i++ {
		next[i] = s.at(i)
	}
	s.heap = next
}

// Unsubscribe removes evt if present, via swap-with-last (order not
// preserved). Returns false if evt was not subscribed. Releases the heap
// slice when the list shrinks to empty.
func (s *subList) Unsubscribe(evt uint32) bool {
	for i := 0; i < s.n; i++ {
		if s.at(i) == evt {
			last := s.n - 1
			s.set(i, s.at(last))
			s.n--
			if s.n == 0 {
				s.heap = nil
			}
			return true
		}
	}
	return false
}
