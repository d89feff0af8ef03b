package kernel

import (
	"testing"
	"time"

	"github.com/contexthub/seoshub/internal/constants"
)

func TestEnqueueDequeueFIFOOrder(t *testing.T) {
	q := NewQueue()

	q.Enqueue(1, "a", FreeInfo{}, false)
	q.Enqueue(2, "b", FreeInfo{}, false)
	q.Enqueue(3, "c", FreeInfo{}, false)

	for _, want := range []uint32{1, 2, 3} {
		ev, ok := q.Dequeue(false)
		if !ok {
			t.Fatalf("Dequeue() ok = false, want true")
		}
		if ev.Type != want {
			t.Errorf("Dequeue() Type = %d, want %d", ev.Type, want)
		}
	}
}

func TestDequeueNonBlockingEmpty(t *testing.T) {
	q := NewQueue()

	if _, ok := q.Dequeue(false); ok {
		t.Error("Dequeue(false) on an empty queue should report ok = false")
	}
}

func TestEnqueueUrgentInsertsAtFront(t *testing.T) {
	q := NewQueue()

	q.Enqueue(1, nil, FreeInfo{}, false)
	q.Enqueue(2, nil, FreeInfo{}, false)
	q.Enqueue(999, nil, FreeInfo{}, true)

	ev, ok := q.Dequeue(false)
	if !ok || ev.Type != 999 {
		t.Fatalf("Dequeue() = (%+v, %v), want the urgent event first", ev, ok)
	}

	ev, ok = q.Dequeue(false)
	if !ok || ev.Type != 1 {
		t.Errorf("Dequeue() = (%+v, %v), want event 1 next", ev, ok)
	}
}

func discardableType(t uint32) uint32 {
	return t | constants.EventTypeBitDiscardable
}

func TestEnqueueFullRejectsNonDiscardable(t *testing.T) {
	q := NewQueue()

	for i := 0; i < constants.QueueCapacity; i++ {
		if !q.Enqueue(uint32(i+1), nil, FreeInfo{}, false) {
			t.Fatalf("Enqueue %d should succeed below capacity", i)
		}
	}

	if q.Enqueue(1, nil, FreeInfo{}, false) {
		t.Error("Enqueue of a non-discardable event into a full queue should fail")
	}
	if q.Len() != constants.QueueCapacity {
		t.Errorf("Len() = %d, want %d (rejected enqueue must not alter the queue)", q.Len(), constants.QueueCapacity)
	}
}

// TestEnqueueFullDropsOldestDiscardable is the discard-oldest-policy test:
// filling the queue with one discardable entry at the head and the rest
// non-discardable, a further enqueue must drop that oldest discardable
// entry to make room rather than rejecting the new event.
func TestEnqueueFullDropsOldestDiscardable(t *testing.T) {
	q := NewQueue()

	q.Enqueue(discardableType(1), "oldest", FreeInfo{}, false)
	for i := 1; i < constants.QueueCapacity; i++ {
		q.Enqueue(uint32(i+1), nil, FreeInfo{}, false)
	}

	if !q.Enqueue(discardableType(999), "newest", FreeInfo{}, false) {
		t.Fatal("Enqueue should succeed by dropping the oldest discardable entry")
	}
	if q.Len() != constants.QueueCapacity {
		t.Errorf("Len() = %d, want %d after drop-and-admit", q.Len(), constants.QueueCapacity)
	}

	ev, ok := q.Dequeue(false)
	if !ok {
		t.Fatal("expected a dequeuable event")
	}
	if ev.Data == "oldest" {
		t.Error("the oldest discardable entry should have been dropped, not delivered")
	}
	if ev.Type != 2 {
		t.Errorf("Dequeue() Type = %d, want 2 (the event originally behind the dropped one)", ev.Type)
	}
}

func TestEnqueueFullNoDiscardableRejects(t *testing.T) {
	q := NewQueue()

	for i := 0; i < constants.QueueCapacity; i++ {
		q.Enqueue(uint32(i+1), nil, FreeInfo{}, false)
	}

	if q.Enqueue(discardableType(999), nil, FreeInfo{}, false) {
		t.Error("Enqueue should fail when the full queue has no discardable entry to drop")
	}
}

func TestDequeueBlockingUnblocksOnEnqueue(t *testing.T) {
	q := NewQueue()
	done := make(chan Event, 1)

	go func() {
		ev, ok := q.Dequeue(true)
		if ok {
			done <- ev
		} else {
			close(done)
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Enqueue(42, nil, FreeInfo{}, false)

	select {
	case ev, ok := <-done:
		if !ok {
			t.Fatal("blocking Dequeue returned ok = false after an enqueue")
		}
		if ev.Type != 42 {
			t.Errorf("Dequeue() Type = %d, want 42", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("blocking Dequeue did not unblock after Enqueue")
	}
}

func TestDequeueBlockingUnblocksOnClose(t *testing.T) {
	q := NewQueue()
	done := make(chan bool, 1)

	go func() {
		_, ok := q.Dequeue(true)
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("blocking Dequeue on a closed, empty queue should report ok = false")
		}
	case <-time.After(time.Second):
		t.Fatal("blocking Dequeue did not unblock after Close")
	}
}

func TestLenTracksEnqueueDequeue(t *testing.T) {
	q := NewQueue()

	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0 for a fresh queue", q.Len())
	}
	q.Enqueue(1, nil, FreeInfo{}, false)
	q.Enqueue(2, nil, FreeInfo{}, false)
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}
	q.Dequeue(false)
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}
}
