// Package constants carries the fixed-capacity limits and reserved
// numeric ranges of the event dispatch kernel and flash app format.
package constants

// Task registry limits.
const (
	// MaxTasks is the fixed capacity of the task registry.
	MaxTasks = 16

	// FirstValidTid and LastValidTid bound the tid allocation counter.
	// Tid 0 is reserved to mean "empty slot".
	FirstValidTid = 1
	LastValidTid  = 0x7fffffff
)

// Subscription table limits.
const (
	// MaxEmbeddedEvtSubs is the capacity of a task's embedded (non-heap)
	// subscription array before it grows onto the heap.
	MaxEmbeddedEvtSubs = 8
)

// Event queue limits.
const (
	// QueueCapacity is the bounded FIFO capacity of the event queue.
	QueueCapacity = 512
)

// Reserved event-type space. Types below EvtNoFirstUserEvent are internal
// actions handled by the dispatch loop itself rather than routed to
// subscribers.
const (
	EvtSubscribeToEvt   = 0
	EvtUnsubscribeToEvt = 1
	EvtDeferredCallback = 2
	EvtPrivateEvt       = 3

	EvtNoFirstUserEvent = 4

	// AppFreeEvtData is the event type delivered to an owning task when
	// its event data must be freed via a task-directed free action.
	AppFreeEvtData = EvtNoFirstUserEvent
)

// EventTypeBitDiscardable is the top bit of a user event type; when set,
// the queue may drop the event (rather than fail enqueue) when full.
const EventTypeBitDiscardable = 1 << 31

// Shared flash-region app format.
const (
	// AppHdrMagic is the expected magic prefix of a valid AppHdr payload.
	AppHdrMagic = "Nanohub App"

	// AppHdrVerCur is the only format_version this implementation accepts.
	AppHdrVerCur = 1

	// Marker values for an app header.
	AppHdrMarkerValid   = 0xC3
	AppHdrMarkerDeleted = 0x8E
	AppHdrMarkerInvalid = 0xFF

	// BLFlashAppID is the marker-byte id pair accepted regardless of
	// whether its two nibbles agree (bootloader-owned entries).
	BLFlashAppID = 0xF
)

// MaxGyroBias is the maximum magnitude, in rad/sec, of any axis of an
// accepted gyroscope bias calibration.
const MaxGyroBias = 0.1

// RadToMilliDegreesPerSec converts rad/sec to millidegrees/sec for debug
// output, matching the reference firmware's debug scaling.
const RadToMilliDegreesPerSec = 1e3 * 180.0 / 3.14159265358979323846
