package kernel

import (
	"sync"

	"github.com/contexthub/seoshub/internal/constants"
)

// Event is the triple delivered through the queue: a type, an opaque
// data payload, and the free action that owns releasing it.
type Event struct {
	Type uint32
	Data interface{}
	Free FreeInfo
}

func (e Event) isDiscardable() bool {
	return e.Type&constants.EventTypeBitDiscardable != 0
}

// Queue is the bounded FIFO event queue (C3). Capacity is fixed at
// constants.QueueCapacity. Producers may be concurrent goroutines
// standing in for interrupt-context producers in the reference firmware;
// the consumer is always the single dispatch-loop goroutine.
//
// The ring-buffer index arithmetic (a head index plus live count, both
// taken modulo the fixed capacity; the head steps back one slot for an
// urgent enqueue) follows internal/uring/minimal.go's submission/completion
// ring bookkeeping; a sync.Mutex+sync.Cond replaces
// the interrupt-masked critical section the reference firmware uses,
// since userspace Go has no interrupt mask to hold.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []Event
	head   int
	n      int
	closed bool
}

// NewQueue returns an empty queue of capacity constants.QueueCapacity.
func NewQueue() *Queue {
	q := &Queue{buf: make([]Event, constants.QueueCapacity)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue admits ev at the back of the queue, or the front if urgent is
// set. Returns false if the queue is full and either the event is
// non-discardable or no discardable entry could be dropped to make room.
func (q *Queue) Enqueue(evtType uint32, data interface{}, free FreeInfo, urgent bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	ev := Event{Type: evtType, Data: data, Free: free}

	if q.n == len(q.buf) {
		if !ev.isDiscardable() {
			return false
		}
		if !q.dropOldestDiscardableLocked() {
			return false
		}
	}

	if urgent {
		q.head = (q.head - 1 + len(q.buf)) % len(q.buf)
		q.buf[q.head] = ev
	} else {
		q.buf[(q.head+q.n)%len(q.buf)] = ev
	}
	q.n++
	q.cond.Signal()
	return true
}

// dropOldestDiscardableLocked scans from the head for the oldest
// discardable entry and removes it, shifting later entries forward by
// one slot to close the gap. Returns false if no discardable entry
// exists. Caller holds q.mu.
func (q *Queue) dropOldestDiscardableLocked() bool {
	for i := 0; i < q.n; i++ {
		idx := (q.head + i) % len(q.buf)
		if !q.buf[idx].isDiscardable() {
			continue
		}
		for j := i; j < q.n-1; j++ {
			cur := (q.head + j) % len(q.buf)
			next := (q.head + j + 1) % len(q.buf)
			q.buf[cur] = q.buf[next]
		}
		last := (q.head + q.n - 1) % len(q.buf)
		q.buf[last] = Event{}
		q.n--
		return true
	}
	return false
}

// Dequeue removes and returns the oldest event. If blocking is true and
// the queue is empty, it idles until a producer enqueues an event or the
// queue is closed.
func (q *Queue) Dequeue(blocking bool) (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.n == 0 {
		if !blocking || q.closed {
			return Event{}, false
		}
		q.cond.Wait()
	}

	ev := q.buf[q.head]
	q.buf[q.head] = Event{}
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return ev, true
}

// Close unblocks any pending blocking Dequeue. It does not stop Enqueue:
// events queued before or after Close remain dequeuable, and a blocking
// Dequeue on a closed queue returns false only once the queue is empty.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Len returns the current number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}
