package seoshub

import (
	"testing"
	"time"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.TotalOps != 0 {
		t.Errorf("Expected 0 initial ops, got %d", snap.TotalOps)
	}

	m.RecordDispatch(1_000_000, 3)
	m.RecordDispatch(2_000_000, 1)
	m.RecordDrop()

	snap = m.Snapshot()

	if snap.EventsDispatched != 2 {
		t.Errorf("Expected 2 dispatched events, got %d", snap.EventsDispatched)
	}
	if snap.EventsDropped != 1 {
		t.Errorf("Expected 1 dropped event, got %d", snap.EventsDropped)
	}

	expectedDropRate := float64(1) / float64(3) * 100.0
	if snap.DropRate < expectedDropRate-0.1 || snap.DropRate > expectedDropRate+0.1 {
		t.Errorf("Expected drop rate ~%.1f%%, got %.1f%%", expectedDropRate, snap.DropRate)
	}
}

func TestMetricsCalibration(t *testing.T) {
	m := NewMetrics()

	m.RecordCalibration(true)
	m.RecordCalibration(true)
	m.RecordCalibration(false)
	m.RecordWatchdogTimeout()

	snap := m.Snapshot()

	if snap.CalibrationsEmitted != 2 {
		t.Errorf("Expected 2 calibrations emitted, got %d", snap.CalibrationsEmitted)
	}
	if snap.CalibrationsRejected != 1 {
		t.Errorf("Expected 1 calibration rejected, got %d", snap.CalibrationsRejected)
	}
	if snap.WatchdogTimeouts != 1 {
		t.Errorf("Expected 1 watchdog timeout, got %d", snap.WatchdogTimeouts)
	}
}

func TestMetricsQueueDepth(t *testing.T) {
	m := NewMetrics()

	m.RecordQueueDepth(10)
	m.RecordQueueDepth(20)
	m.RecordQueueDepth(15)

	snap := m.Snapshot()

	if snap.MaxQueueDepth != 20 {
		t.Errorf("Expected max queue depth 20, got %d", snap.MaxQueueDepth)
	}

	expectedAvg := float64(10+20+15) / 3.0
	if snap.AvgQueueDepth < expectedAvg-0.1 || snap.AvgQueueDepth > expectedAvg+0.1 {
		t.Errorf("Expected avg queue depth %.1f, got %.1f", expectedAvg, snap.AvgQueueDepth)
	}
}

func TestMetricsLatency(t *testing.T) {
	m := NewMetrics()

	m.RecordDispatch(1_000_000, 1) // 1ms
	m.RecordDispatch(2_000_000, 1) // 2ms

	snap := m.Snapshot()

	expectedAvgNs := uint64(1_500_000)
	if snap.AvgLatencyNs != expectedAvgNs {
		t.Errorf("Expected avg latency %d ns, got %d ns", expectedAvgNs, snap.AvgLatencyNs)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()

	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()

	if snap.UptimeNs < 10*1_000_000 {
		t.Errorf("Expected uptime >= 10ms, got %d ns", snap.UptimeNs)
	}

	m.Stop()
	time.Sleep(5 * time.Millisecond)

	snap2 := m.Snapshot()

	if snap2.UptimeNs > snap.UptimeNs+2*1_000_000 {
		t.Errorf("Uptime increased too much after stop: %d -> %d", snap.UptimeNs, snap2.UptimeNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()

	m.RecordDispatch(1_000_000, 1)
	m.RecordDrop()
	m.RecordQueueDepth(10)

	snap := m.Snapshot()
	if snap.TotalOps == 0 {
		t.Error("Expected some operations before reset")
	}

	m.Reset()

	snap = m.Snapshot()
	if snap.TotalOps != 0 {
		t.Errorf("Expected 0 ops after reset, got %d", snap.TotalOps)
	}
	if snap.MaxQueueDepth != 0 {
		t.Errorf("Expected 0 max queue depth after reset, got %d", snap.MaxQueueDepth)
	}
}

func TestObserver(t *testing.T) {
	observer := NoOpObserver{}
	observer.ObserveDispatch(1, 1000, 2)
	observer.ObserveDrop(1)
	observer.ObserveCalibration(true)
	observer.ObserveWatchdogTimeout()
	observer.ObserveQueueDepth(10)

	m := NewMetrics()
	metricsObserver := NewMetricsObserver(m)

	metricsObserver.ObserveDispatch(1, 1_000_000, 2)
	metricsObserver.ObserveDrop(1)

	snap := m.Snapshot()
	if snap.EventsDispatched != 1 {
		t.Errorf("Expected 1 dispatch from observer, got %d", snap.EventsDispatched)
	}
	if snap.EventsDropped != 1 {
		t.Errorf("Expected 1 drop from observer, got %d", snap.EventsDropped)
	}
}

func TestMetricsRates(t *testing.T) {
	m := NewMetrics()

	startTime := time.Now()
	m.StartTime.Store(startTime.UnixNano())

	m.RecordDispatch(1_000_000, 1)
	m.RecordDispatch(2_000_000, 1)

	stopTime := startTime.Add(1 * time.Second)
	m.StopTime.Store(stopTime.UnixNano())

	snap := m.Snapshot()

	if snap.DispatchRate < 1.9 || snap.DispatchRate > 2.1 {
		t.Errorf("Expected DispatchRate ~2.0, got %.2f", snap.DispatchRate)
	}
}

func TestMetricsHistogram(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 50; i++ {
		m.RecordDispatch(500_000, 1) // 500us
	}
	for i := 0; i < 49; i++ {
		m.RecordDispatch(5_000_000, 1) // 5ms
	}
	m.RecordDispatch(50_000_000, 1) // 50ms, the single slowest sample

	snap := m.Snapshot()

	if snap.TotalOps != 100 {
		t.Errorf("Expected 100 total ops, got %d", snap.TotalOps)
	}

	if snap.LatencyP50Ns < 100_000 || snap.LatencyP50Ns > 1_000_000 {
		t.Errorf("Expected P50 in 100us-1ms range, got %d ns", snap.LatencyP50Ns)
	}

	if snap.LatencyP99Ns < 5_000_000 || snap.LatencyP99Ns > 100_000_000 {
		t.Errorf("Expected P99 in 5ms-100ms range, got %d ns", snap.LatencyP99Ns)
	}

	totalInBuckets := uint64(0)
	for i := 0; i < len(snap.LatencyHistogram); i++ {
		totalInBuckets += snap.LatencyHistogram[i]
	}
	if totalInBuckets == 0 {
		t.Error("Expected histogram buckets to be populated")
	}
}
