package kernel

import (
	"testing"

	"github.com/contexthub/seoshub/internal/constants"
)

func TestSubscribeDuplicateFree(t *testing.T) {
	var s subList

	s.Subscribe(5)
	s.Subscribe(5)
	s.Subscribe(5)

	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after duplicate subscribes", s.Len())
	}
	if !s.Contains(5) {
		t.Error("expected 5 to be subscribed")
	}
}

// TestSubscribeGrowsPastEmbeddedCapacity exercises the 9th Subscribe on a
// task (MaxEmbeddedEvtSubs == 8), which forces subList onto its
// heap-allocated backing array. Previously grow() allocated the heap
// slice with len == old capacity, one short of where Subscribe's
// subsequent s.set(s.n, evt) writes, causing an index-out-of-range panic.
func TestSubscribeGrowsPastEmbeddedCapacity(t *testing.T) {
	var s subList

	for i := 0; i < constants.MaxEmbeddedEvtSubs; i++ {
		s.Subscribe(uint32(100 + i))
	}
	if s.Len() != constants.MaxEmbeddedEvtSubs {
		t.Fatalf("Len() = %d, want %d after filling the embedded array", s.Len(), constants.MaxEmbeddedEvtSubs)
	}

	// This Subscribe call must grow onto the heap without panicking.
	s.Subscribe(999)

	if s.Len() != constants.MaxEmbeddedEvtSubs+1 {
		t.Errorf("Len() = %d, want %d after growth", s.Len(), constants.MaxEmbeddedEvtSubs+1)
	}
	if !s.Contains(999) {
		t.Error("expected the triggering subscription to be present after growth")
	}
	for i := 0; i < constants.MaxEmbeddedEvtSubs; i++ {
		if !s.Contains(uint32(100 + i)) {
			t.Errorf("expected pre-growth subscription %d to survive growth", 100+i)
		}
	}
}

func TestSubscribeGrowthFormula(t *testing.T) {
	var s subList

	for i := 0; i < constants.MaxEmbeddedEvtSubs+1; i++ {
		s.Subscribe(uint32(i))
	}

	wantCap := (constants.MaxEmbeddedEvtSubs*3 + 2) / 2
	if s.capacity() != wantCap {
		t.Errorf("capacity() = %d, want %d (ceil((old*3+1)/2))", s.capacity(), wantCap)
	}

	// Filling to the new capacity and one past it must grow again without
	// panicking, repeating the regression check at a second growth tier.
	for s.Len() < s.capacity() {
		s.Subscribe(uint32(10_000 + s.Len()))
	}
	s.Subscribe(20_000)
	if !s.Contains(20_000) {
		t.Error("expected a second growth to succeed and retain the triggering subscription")
	}
}

func TestUnsubscribe(t *testing.T) {
	var s subList

	s.Subscribe(1)
	s.Subscribe(2)
	s.Subscribe(3)

	if !s.Unsubscribe(2) {
		t.Fatal("Unsubscribe(2) should succeed")
	}
	if s.Contains(2) {
		t.Error("2 should no longer be subscribed")
	}
	if !s.Contains(1) || !s.Contains(3) {
		t.Error("unrelated subscriptions should survive an unsubscribe")
	}

	if s.Unsubscribe(2) {
		t.Error("Unsubscribe should return false for an already-removed event")
	}
}

func TestUnsubscribeToEmptyReleasesHeap(t *testing.T) {
	var s subList

	for i := 0; i < constants.MaxEmbeddedEvtSubs+1; i++ {
		s.Subscribe(uint32(i))
	}
	if s.heap == nil {
		t.Fatal("expected the list to have grown onto the heap")
	}

	for s.Len() > 0 {
		s.Unsubscribe(s.at(0))
	}

	if s.heap != nil {
		t.Error("expected the heap slice to be released once the list is empty")
	}
}
