// Package interfaces provides internal interface definitions for seoshub.
// These are separate from the public interfaces to avoid circular imports
// between the root package and the internal kernel/flash packages.
package interfaces

// App is the contract a loaded task must satisfy. Analogous to the
// reference firmware's per-app function table (app_init/app_end/app_handle).
type App interface {
	// Init is called once after a tid has been assigned. A non-nil error
	// means the caller must Unload and release the task slot.
	Init(tid uint32) error

	// End is called once before the task is removed from the registry.
	End()

	// Handle delivers one event to the app. evtType has the discardable
	// bit already stripped.
	Handle(evtType uint32, data interface{})
}

// Logger interface for optional logging.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Observer interface for metrics collection.
// Implementations must be thread-safe as methods are called from the
// dispatch loop and from producer goroutines enqueuing events.
type Observer interface {
	ObserveDispatch(evtType uint32, latencyNs uint64, subscriberCount int)
	ObserveDrop(evtType uint32)
	ObserveCalibration(accepted bool)
	ObserveWatchdogTimeout()
	ObserveQueueDepth(depth int)
}
