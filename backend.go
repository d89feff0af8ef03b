// Package seoshub is the public API for booting a sensor-hub event
// kernel: task registry, event queue, dispatch loop, flash app
// lifecycle, and the gyroscope bias-calibration pipeline, wired together
// as one composition object constructed at boot time.
package seoshub

import (
	"fmt"

	"github.com/contexthub/seoshub/gyrocal"
	"github.com/contexthub/seoshub/internal/flash"
	"github.com/contexthub/seoshub/internal/interfaces"
	"github.com/contexthub/seoshub/internal/kernel"
	"github.com/contexthub/seoshub/internal/logging"
)

// KernelConfig configures a Kernel at boot time. Unlike the reference
// firmware's ambient globals, every collaborator the dispatch loop and
// calibration pipeline need is constructed once here and threaded
// through explicitly.
type KernelConfig struct {
	GyroCal gyrocal.Config

	// Variance thresholds for the default VarianceStillnessDetector
	// wired to each sensor. Ignored if the corresponding *Detector field
	// below is set.
	AccelVarianceThreshold float64
	GyroVarianceThreshold  float64
	MagVarianceThreshold   float64

	AccelDetector gyrocal.StillnessDetector
	GyroDetector  gyrocal.StillnessDetector
	MagDetector   gyrocal.StillnessDetector

	// FlashRegion backs the shared app region for StartApps/StopApps/
	// EraseApps. Loader and Writer are the platform collaborators those
	// passes need; both are interfaces so tests can substitute fakes.
	FlashRegion []byte
	Loader      flash.Loader
	Writer      flash.FlashWriter
}

// DefaultParams returns default kernel configuration. The name mirrors
// the teacher's DefaultParams(backend) constructor shape: a sensible
// baseline plus one required collaborator (here, the calibration
// config), with everything else left at zero for the caller to fill in.
func DefaultParams() KernelConfig {
	return KernelConfig{
		GyroCal:                gyrocal.DefaultConfig(),
		AccelVarianceThreshold: 0.01,
		GyroVarianceThreshold:  1e-5,
		MagVarianceThreshold:   0.05,
	}
}

// Options carries cross-cutting collaborators that aren't part of the
// functional configuration: logging and metrics observation.
type Options struct {
	Logger   interfaces.Logger
	Observer interfaces.Observer
}

// Kernel is the booted runtime: a task registry, event queue, and
// dispatch loop, plus the flash app-lifecycle passes and the gyro
// calibration pipeline that ride on top of it.
type Kernel struct {
	registry   *kernel.Registry
	queue      *kernel.Queue
	dispatcher *kernel.Dispatcher

	gyroCal *gyrocal.GyroCal

	flashRegion []byte
	loader      flash.Loader
	writer      flash.FlashWriter

	metrics  *Metrics
	observer interfaces.Observer
	logger   interfaces.Logger

	state KernelState
}

// KernelState mirrors the lifecycle states a booted Kernel passes
// through.
type KernelState string

const (
	KernelStateBooted  KernelState = "booted"
	KernelStateRunning KernelState = "running"
	KernelStateStopped KernelState = "stopped"
)

// Boot constructs a Kernel: the task registry, event queue and dispatch
// loop (C2-C5), and the gyro calibration pipeline (C7-C9) wired to
// either the injected detectors or a default VarianceStillnessDetector
// per sensor.
func Boot(cfg KernelConfig, opts *Options) (*Kernel, error) {
	if opts == nil {
		opts = &Options{}
	}

	metrics := NewMetrics()
	var observer interfaces.Observer = NoOpObserver{}
	if opts.Observer != nil {
		observer = opts.Observer
	} else {
		observer = NewMetricsObserver(metrics)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	reg := kernel.NewRegistry()
	q := kernel.NewQueue()
	disp := kernel.NewDispatcher(reg, q)
	disp.SetHooks(observer.ObserveDispatch, observer.ObserveDrop)

	accel := cfg.AccelDetector
	if accel == nil {
		accel = gyrocal.NewVarianceStillnessDetector(cfg.AccelVarianceThreshold)
	}
	gyro := cfg.GyroDetector
	if gyro == nil {
		gyro = gyrocal.NewVarianceStillnessDetector(cfg.GyroVarianceThreshold)
	}
	mag := cfg.MagDetector
	if mag == nil {
		mag = gyrocal.NewVarianceStillnessDetector(cfg.MagVarianceThreshold)
	}
	cal := gyrocal.New(accel, gyro, mag, cfg.GyroCal)

	k := &Kernel{
		registry:    reg,
		queue:       q,
		dispatcher:  disp,
		gyroCal:     cal,
		flashRegion: cfg.FlashRegion,
		loader:      cfg.Loader,
		writer:      cfg.Writer,
		metrics:     metrics,
		observer:    observer,
		logger:      logger,
		state:       KernelStateBooted,
	}

	logger.Printf("seoshub kernel booted")
	return k, nil
}

// Enqueue admits a user event. urgent requests front-of-queue insertion
// (matching a high-priority or interrupt-context producer).
func (k *Kernel) Enqueue(evtType uint32, data interface{}, free kernel.FreeInfo, urgent bool) bool {
	return k.dispatcher.Enqueue(evtType, data, free, urgent)
}

// EnqueueOrFree admits a user event, applying its free action
// immediately if the queue is full.
func (k *Kernel) EnqueueOrFree(evtType uint32, data interface{}, free kernel.FreeInfo, urgent bool) bool {
	return k.dispatcher.EnqueueOrFree(evtType, data, free, urgent)
}

// Subscribe queues a subscribe action for tid against evt.
func (k *Kernel) Subscribe(tid, evt uint32) bool {
	return k.dispatcher.Subscribe(tid, evt)
}

// Unsubscribe queues an unsubscribe action for tid against evt.
func (k *Kernel) Unsubscribe(tid, evt uint32) bool {
	return k.dispatcher.Unsubscribe(tid, evt)
}

// Defer queues fn(cookie) to run synchronously within the dispatch loop.
func (k *Kernel) Defer(fn func(cookie interface{}), cookie interface{}, urgent bool) bool {
	return k.dispatcher.Defer(fn, cookie, urgent)
}

// EnqueuePrivate queues an event directed at a single task by tid.
func (k *Kernel) EnqueuePrivate(toTid, evtType uint32, data interface{}, free kernel.FreeInfo) bool {
	return k.dispatcher.EnqueuePrivate(toTid, evtType, data, free)
}

// RetainCurrentEvent transfers ownership of the event presently being
// dispatched to the caller. Must be called from within an App.Handle
// callback invoked by this Kernel's dispatch loop.
func (k *Kernel) RetainCurrentEvent(out *kernel.FreeInfo) bool {
	return k.dispatcher.RetainCurrentEvent(out)
}

// FreeRetainedEvent releases an event previously retained via
// RetainCurrentEvent.
func (k *Kernel) FreeRetainedEvent(evtType uint32, data interface{}, free kernel.FreeInfo) {
	k.dispatcher.FreeRetainedEvent(evtType, data, free)
}

// Run drives the dispatch loop until the queue is closed and drained.
// Intended to run on its own goroutine.
func (k *Kernel) Run() {
	k.state = KernelStateRunning
	for k.dispatcher.RunOnce() {
		k.observer.ObserveQueueDepth(k.queue.Len())
	}
	k.state = KernelStateStopped
}

// RunOnce dispatches a single queued event, blocking until one arrives.
// Returns false only once the kernel has been shut down and drained.
func (k *Kernel) RunOnce() bool {
	k.state = KernelStateRunning
	ok := k.dispatcher.RunOnce()
	k.observer.ObserveQueueDepth(k.queue.Len())
	return ok
}

// GyroCal returns the wired calibration pipeline, for apps that consume
// sensor samples and feed them to it directly.
func (k *Kernel) GyroCal() *gyrocal.GyroCal {
	return k.gyroCal
}

// StartApps resolves flash entries matching query against the flash
// region configured at Boot, loading any not already represented in the
// task registry.
func (k *Kernel) StartApps(query flash.Query) (flash.ManagementStatus, error) {
	if k.loader == nil {
		return flash.ManagementStatus{}, fmt.Errorf("seoshub: no app loader configured")
	}
	return flash.StartApps(k.registry, k.loader, k.writer, k.flashRegion, query), nil
}

// StopApps tears down live tasks matching query, optionally erasing
// their backing flash entry.
func (k *Kernel) StopApps(query flash.Query, doErase bool) (flash.ManagementStatus, error) {
	if k.loader == nil {
		return flash.ManagementStatus{}, fmt.Errorf("seoshub: no app loader configured")
	}
	return flash.StopApps(k.registry, k.loader, k.writer, k.flashRegion, query, doErase), nil
}

// EraseApps erases every flash entry matching query, independent of
// whether a task is currently running for it.
func (k *Kernel) EraseApps(query flash.Query) flash.ManagementStatus {
	return flash.EraseApps(k.writer, k.flashRegion, query)
}

// TaskCount returns the number of live tasks.
func (k *Kernel) TaskCount() int {
	return k.registry.Count()
}

// QueueDepth returns the number of events currently queued.
func (k *Kernel) QueueDepth() int {
	return k.queue.Len()
}

// State returns the kernel's current lifecycle state.
func (k *Kernel) State() KernelState {
	return k.state
}

// Metrics returns the kernel's metrics collector.
func (k *Kernel) Metrics() *Metrics {
	return k.metrics
}

// MetricsSnapshot returns a point-in-time snapshot of kernel metrics.
func (k *Kernel) MetricsSnapshot() MetricsSnapshot {
	if k.metrics == nil {
		return MetricsSnapshot{}
	}
	return k.metrics.Snapshot()
}

// Shutdown closes the event queue, unblocking any in-progress Run, and
// marks metrics as stopped.
func (k *Kernel) Shutdown() {
	k.queue.Close()
	k.metrics.Stop()
	k.state = KernelStateStopped
}
