package seoshub

import (
	"sync/atomic"
	"time"

	"github.com/contexthub/seoshub/internal/interfaces"
)

// LatencyBuckets defines the dispatch-latency histogram buckets in
// nanoseconds, from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks operational statistics for one Kernel instance.
type Metrics struct {
	EventsDispatched atomic.Uint64
	EventsDropped    atomic.Uint64

	SubscribeOps   atomic.Uint64
	UnsubscribeOps atomic.Uint64
	DeferredOps    atomic.Uint64
	PrivateEvtOps  atomic.Uint64

	CalibrationsEmitted atomic.Uint64
	CalibrationsRejected atomic.Uint64
	WatchdogTimeouts    atomic.Uint64

	QueueDepthTotal atomic.Uint64
	QueueDepthCount atomic.Uint64
	MaxQueueDepth   atomic.Uint32

	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	// LatencyBuckets[i] is the cumulative count of dispatches with
	// latency <= LatencyBuckets[i] (the package-level histogram bounds).
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordDispatch records one event delivery's latency. subscriberCount
// is accepted to match the Observer signature and is not recorded.
func (m *Metrics) RecordDispatch(latencyNs uint64, subscriberCount int) {
	m.EventsDispatched.Add(1)
	_ = subscriberCount
	m.recordLatency(latencyNs)
}

// RecordDrop records one enqueue rejected for lack of queue capacity.
func (m *Metrics) RecordDrop() {
	m.EventsDropped.Add(1)
}

// RecordCalibration records one calibration pass's outcome.
func (m *Metrics) RecordCalibration(accepted bool) {
	if accepted {
		m.CalibrationsEmitted.Add(1)
	} else {
		m.CalibrationsRejected.Add(1)
	}
}

// RecordWatchdogTimeout records one gyro-cal watchdog recovery.
func (m *Metrics) RecordWatchdogTimeout() {
	m.WatchdogTimeouts.Add(1)
}

// RecordQueueDepth records current queue depth for statistics.
func (m *Metrics) RecordQueueDepth(depth uint32) {
	m.QueueDepthTotal.Add(uint64(depth))
	m.QueueDepthCount.Add(1)

	for {
		current := m.MaxQueueDepth.Load()
		if depth <= current {
			break
		}
		if m.MaxQueueDepth.CompareAndSwap(current, depth) {
			break
		}
	}
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the kernel as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time snapshot of Metrics.
type MetricsSnapshot struct {
	EventsDispatched uint64
	EventsDropped    uint64

	SubscribeOps   uint64
	UnsubscribeOps uint64
	DeferredOps    uint64
	PrivateEvtOps  uint64

	CalibrationsEmitted  uint64
	CalibrationsRejected uint64
	WatchdogTimeouts     uint64

	AvgQueueDepth float64
	MaxQueueDepth uint32

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	DispatchRate float64 // events dispatched per second
	TotalOps     uint64
	DropRate     float64 // percentage of enqueues that were dropped
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		EventsDispatched:     m.EventsDispatched.Load(),
		EventsDropped:        m.EventsDropped.Load(),
		SubscribeOps:         m.SubscribeOps.Load(),
		UnsubscribeOps:       m.UnsubscribeOps.Load(),
		DeferredOps:          m.DeferredOps.Load(),
		PrivateEvtOps:        m.PrivateEvtOps.Load(),
		CalibrationsEmitted:  m.CalibrationsEmitted.Load(),
		CalibrationsRejected: m.CalibrationsRejected.Load(),
		WatchdogTimeouts:     m.WatchdogTimeouts.Load(),
		MaxQueueDepth:        m.MaxQueueDepth.Load(),
	}

	snap.TotalOps = snap.EventsDispatched + snap.EventsDropped

	queueDepthTotal := m.QueueDepthTotal.Load()
	queueDepthCount := m.QueueDepthCount.Load()
	if queueDepthCount > 0 {
		snap.AvgQueueDepth = float64(queueDepthTotal) / float64(queueDepthCount)
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.DispatchRate = float64(snap.EventsDispatched) / uptimeSeconds
	}

	if snap.TotalOps > 0 {
		snap.DropRate = float64(snap.EventsDropped) / float64(snap.TotalOps) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile
// (0.0-1.0) using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset resets all metrics counters (useful for testing).
func (m *Metrics) Reset() {
	m.EventsDispatched.Store(0)
	m.EventsDropped.Store(0)
	m.SubscribeOps.Store(0)
	m.UnsubscribeOps.Store(0)
	m.DeferredOps.Store(0)
	m.PrivateEvtOps.Store(0)
	m.CalibrationsEmitted.Store(0)
	m.CalibrationsRejected.Store(0)
	m.WatchdogTimeouts.Store(0)
	m.QueueDepthTotal.Store(0)
	m.QueueDepthCount.Store(0)
	m.MaxQueueDepth.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// NoOpObserver is a no-op implementation of interfaces.Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveDispatch(evtType uint32, latencyNs uint64, subscriberCount int) {}
func (NoOpObserver) ObserveDrop(evtType uint32)                                            {}
func (NoOpObserver) ObserveCalibration(accepted bool)                                      {}
func (NoOpObserver) ObserveWatchdogTimeout()                                               {}
func (NoOpObserver) ObserveQueueDepth(depth int)                                           {}

// MetricsObserver implements interfaces.Observer using the built-in
// Metrics type.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given
// metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveDispatch(evtType uint32, latencyNs uint64, subscriberCount int) {
	o.metrics.RecordDispatch(latencyNs, subscriberCount)
}

func (o *MetricsObserver) ObserveDrop(evtType uint32) {
	o.metrics.RecordDrop()
}

func (o *MetricsObserver) ObserveCalibration(accepted bool) {
	o.metrics.RecordCalibration(accepted)
}

func (o *MetricsObserver) ObserveWatchdogTimeout() {
	o.metrics.RecordWatchdogTimeout()
}

func (o *MetricsObserver) ObserveQueueDepth(depth int) {
	o.metrics.RecordQueueDepth(uint32(depth))
}

var _ interfaces.Observer = (*MetricsObserver)(nil)
var _ interfaces.Observer = NoOpObserver{}
