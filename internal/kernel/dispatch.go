package kernel

import (
	"time"

	"github.com/contexthub/seoshub/internal/constants"
)

// Internal action payloads. The reference firmware carries these in a
// tagged union inside a fixed-size slab allocator; the slab itself is a
// heap-allocator concern this spec treats as an external collaborator
// (assumed available), so here they are plain Go values carried as an
// Event's Data field for event types below EvtNoFirstUserEvent.
type subUnsubAction struct {
	tid uint32
	evt uint32
}

type deferredAction struct {
	fn     func(cookie interface{})
	cookie interface{}
}

type privateAction struct {
	evtType uint32
	data    interface{}
	free    FreeInfo
	toTid   uint32
}

// Dispatcher is the single, non-reentrant dispatch loop (C5) plus the
// internal-action handlers it drives (C4.6). It is driven by one
// goroutine only; RunOnce must never be called concurrently with itself.
type Dispatcher struct {
	registry *Registry
	queue    *Queue

	// current tracks the free-info of the event presently being
	// delivered, and whether a handler has retained it. Non-nil only
	// for the duration of one dispatchEvent call.
	current  *FreeInfo
	retained *bool

	onDispatch func(evtType uint32, latencyNs uint64, subscriberCount int)
	onDrop     func(evtType uint32)
}

// NewDispatcher wires a dispatch loop over the given registry and queue.
func NewDispatcher(registry *Registry, queue *Queue) *Dispatcher {
	return &Dispatcher{registry: registry, queue: queue}
}

// SetHooks installs observability callbacks invoked after each dispatch
// and after each dropped enqueue. Either may be nil.
func (d *Dispatcher) SetHooks(onDispatch func(evtType uint32, latencyNs uint64, subscriberCount int), onDrop func(evtType uint32)) {
	d.onDispatch = onDispatch
	d.onDrop = onDrop
}

// Enqueue admits an event directly (bypassing the internal-action
// encoding used by Subscribe/Unsubscribe/Defer/EnqueuePrivate).
func (d *Dispatcher) Enqueue(evtType uint32, data interface{}, free FreeInfo, urgent bool) bool {
	ok := d.queue.Enqueue(evtType, data, free, urgent)
	if !ok && d.onDrop != nil {
		d.onDrop(evtType)
	}
	return ok
}

// EnqueueOrFree enqueues ev, applying its free action immediately if the
// queue rejects it.
func (d *Dispatcher) EnqueueOrFree(evtType uint32, data interface{}, free FreeInfo, urgent bool) bool {
	if d.Enqueue(evtType, data, free, urgent) {
		return true
	}
	d.applyFree(evtType, data, free)
	return false
}

// Subscribe enqueues a subscribe action for later processing by the
// dispatch loop, so the subscription table is only ever mutated from a
// single context even when the request originates concurrently.
func (d *Dispatcher) Subscribe(tid, evt uint32) bool {
	return d.Enqueue(constants.EvtSubscribeToEvt, subUnsubAction{tid: tid, evt: evt}, FreeInfo{}, false)
}

// Unsubscribe enqueues an unsubscribe action.
func (d *Dispatcher) Unsubscribe(tid, evt uint32) bool {
	return d.Enqueue(constants.EvtUnsubscribeToEvt, subUnsubAction{tid: tid, evt: evt}, FreeInfo{}, false)
}

// Defer enqueues fn(cookie) to run synchronously within the dispatch
// loop. urgent requests front-of-queue insertion.
func (d *Dispatcher) Defer(fn func(cookie interface{}), cookie interface{}, urgent bool) bool {
	return d.Enqueue(constants.EvtDeferredCallback, deferredAction{fn: fn, cookie: cookie}, FreeInfo{}, urgent)
}

// EnqueuePrivate enqueues an event directed at a single task by tid. The
// attached free action is applied exactly once whether or not toTid
// resolves to a live task.
func (d *Dispatcher) EnqueuePrivate(toTid, evtType uint32, data interface{}, free FreeInfo) bool {
	act := privateAction{evtType: evtType, data: data, free: free, toTid: toTid}
	return d.Enqueue(constants.EvtPrivateEvt, act, FreeInfo{}, false)
}

// RunOnce dequeues and dispatches one event, blocking if the queue is
// empty. Returns false only when the queue is closed and empty.
func (d *Dispatcher) RunOnce() bool {
	ev, ok := d.queue.Dequeue(true)
	if !ok {
		return false
	}
	d.dispatchEvent(ev)
	return true
}

// RunOnceNonBlocking dispatches one event if already queued, without
// idling. Returns false if the queue was empty.
func (d *Dispatcher) RunOnceNonBlocking() bool {
	ev, ok := d.queue.Dequeue(false)
	if !ok {
		return false
	}
	d.dispatchEvent(ev)
	return true
}

func (d *Dispatcher) dispatchEvent(ev Event) {
	start := time.Now()

	free := ev.Free
	retained := false
	d.current = &free
	d.retained = &retained

	subscriberCount := 0
	if ev.Type < constants.EvtNoFirstUserEvent {
		d.handleInternal(ev)
	} else {
		subscriberCount = d.broadcast(ev)
	}

	if !retained {
		d.applyFree(ev.Type, ev.Data, free)
	}

	d.current = nil
	d.retained = nil

	if d.onDispatch != nil {
		d.onDispatch(ev.Type, uint64(time.Since(start).Nanoseconds()), subscriberCount)
	}
}

// RetainCurrentEvent transfers ownership of the event presently being
// dispatched to the caller. On success the free action is copied into
// out and the dispatch loop will no longer apply it; the caller must
// later release it with FreeRetainedEvent. Returns false outside of
// event delivery, or if already retained, or during private-event
// delivery (private events are never retainable).
func (d *Dispatcher) RetainCurrentEvent(out *FreeInfo) bool {
	if d.current == nil || *d.retained {
		return false
	}
	*out = *d.current
	*d.retained = true
	return true
}

// FreeRetainedEvent applies the free policy for an event previously
// retained via RetainCurrentEvent.
func (d *Dispatcher) FreeRetainedEvent(evtType uint32, data interface{}, free FreeInfo) {
	d.applyFree(evtType, data, free)
}

func (d *Dispatcher) applyFree(evtType uint32, data interface{}, free FreeInfo) {
	if fn, ok := free.Func(); ok {
		fn(data)
		return
	}
	if tid, ok := free.Tid(); ok {
		if t := d.registry.FindByTid(tid); t != nil && t.App != nil {
			t.App.Handle(constants.AppFreeEvtData, data)
		}
	}
}

func (d *Dispatcher) handleInternal(ev Event) {
	switch ev.Type {
	case constants.EvtSubscribeToEvt:
		act := ev.Data.(subUnsubAction)
		if t := d.registry.FindByTid(act.tid); t != nil {
			t.subs.Subscribe(act.evt)
		}

	case constants.EvtUnsubscribeToEvt:
		act := ev.Data.(subUnsubAction)
		if t := d.registry.FindByTid(act.tid); t != nil {
			t.subs.Unsubscribe(act.evt)
		}

	case constants.EvtDeferredCallback:
		act := ev.Data.(deferredAction)
		act.fn(act.cookie)

	case constants.EvtPrivateEvt:
		act := ev.Data.(privateAction)

		// Private events are never retainable: clear the current-event
		// slot for the duration of delivery and restore it afterwards.
		savedCurrent, savedRetained := d.current, d.retained
		d.current, d.retained = nil, nil

		if t := d.registry.FindByTid(act.toTid); t != nil && t.App != nil {
			t.App.Handle(act.evtType&^constants.EventTypeBitDiscardable, act.data)
		}

		d.current, d.retained = savedCurrent, savedRetained
		d.applyFree(act.evtType, act.data, act.free)
	}
}

// broadcast delivers a user event to every live task subscribed to it.
// Delivery order across tasks follows registry order; each task is
// delivered to at most once per event.
func (d *Dispatcher) broadcast(ev Event) int {
	evtType := ev.Type &^ constants.EventTypeBitDiscardable
	count := 0
	for _, t := range d.registry.Tasks() {
		if t.App != nil && t.subs.Contains(evtType) {
			t.App.Handle(evtType, ev.Data)
			count++
		}
	}
	return count
}
