// Package gyrocal implements the multi-sensor stillness-gated gyroscope
// bias calibration pipeline (C7-C9).
package gyrocal

import (
	"math"
	"sync"
)

// StillnessResult is a per-sensor detector's output for the current
// window: a confidence in [0,1], the window's sample means and
// variances, and readiness/timing markers.
type StillnessResult struct {
	Confidence      float64
	MeanX, MeanY, MeanZ float64
	VarX, VarY, VarZ    float64
	LastSampleTime  int64
	WindowStartTime int64
	WindowReady     bool
}

// StillnessDetector is the per-sensor stillness contract consumed by
// GyroCal. This repository treats its internal statistics as a black box
// the calibration state machine does not need to understand: it only
// feeds samples, reads the computed result, and resets between windows.
type StillnessDetector interface {
	// Update feeds one sample. winEnd is the currently armed window end
	// time (0 before the first window is armed); the detector uses it to
	// decide when enough of the window has elapsed to call itself ready.
	Update(winEnd, sampleTime int64, x, y, z float64)

	// Compute returns the detector's current-window result. Safe to call
	// repeatedly without side effects.
	Compute() StillnessResult

	// Reset starts a new window. If resetStats is false, accumulated
	// statistics carry over (the window is extended rather than
	// restarted); if true, all accumulators are cleared.
	Reset(resetStats bool)
}

// VarianceStillnessDetector is a reference implementation of
// StillnessDetector, grounded on the variance-gate idiom used throughout
// the calibration algorithm: per-axis running mean/variance (Welford's
// online algorithm) against a fixed variance threshold. Confidence is 1
// while the window's peak per-axis variance stays at or under the
// threshold, decaying as 1/variance beyond it.
type VarianceStillnessDetector struct {
	varianceThreshold float64

	n                     int
	meanX, meanY, meanZ   float64
	m2X, m2Y, m2Z         float64
	windowStartTime       int64
	lastSampleTime        int64
	ready                 bool
}

// NewVarianceStillnessDetector returns a detector gating on
// varianceThreshold (units squared-per-axis, e.g. (rad/s)^2 for gyro).
func NewVarianceStillnessDetector(varianceThreshold float64) *VarianceStillnessDetector {
	return &VarianceStillnessDetector{varianceThreshold: varianceThreshold}
}

var _ StillnessDetector = (*VarianceStillnessDetector)(nil)

func (d *VarianceStillnessDetector) Update(winEnd, sampleTime int64, x, y, z float64) {
	if d.n == 0 {
		d.windowStartTime = sampleTime
	}
	d.n++
	welfordUpdate(&d.meanX, &d.m2X, x, d.n)
	welfordUpdate(&d.meanY, &d.m2Y, y, d.n)
	welfordUpdate(&d.meanZ, &d.m2Z, z, d.n)
	d.lastSampleTime = sampleTime

	if winEnd > 0 && sampleTime >= winEnd {
		d.ready = true
	}
}

func welfordUpdate(mean, m2 *float64, x float64, n int) {
	delta := x - *mean
	*mean += delta / float64(n)
	*m2 += delta * (x - *mean)
}

func (d *VarianceStillnessDetector) variance(m2 float64) float64 {
	if d.n < 2 {
		return 0
	}
	return m2 / float64(d.n-1)
}

func (d *VarianceStillnessDetector) Compute() StillnessResult {
	varX := d.variance(d.m2X)
	varY := d.variance(d.m2Y)
	varZ := d.variance(d.m2Z)

	maxVar := math.Max(varX, math.Max(varY, varZ))
	confidence := 1.0
	if maxVar > d.varianceThreshold && maxVar > 0 {
		confidence = d.varianceThreshold / maxVar
	}

	return StillnessResult{
		Confidence:      confidence,
		MeanX:           d.meanX,
		MeanY:           d.meanY,
		MeanZ:           d.meanZ,
		VarX:            varX,
		VarY:            varY,
		VarZ:            varZ,
		LastSampleTime:  d.lastSampleTime,
		WindowStartTime: d.windowStartTime,
		WindowReady:     d.ready,
	}
}

func (d *VarianceStillnessDetector) Reset(resetStats bool) {
	d.n = 0
	d.ready = false
	d.windowStartTime = 0
	if resetStats {
		d.meanX, d.meanY, d.meanZ = 0, 0, 0
		d.m2X, d.m2Y, d.m2Z = 0, 0, 0
	}
}

// MockStillnessDetector is a caller-controlled fake for driving GyroCal
// in tests without needing real variance accumulation: set Result
// directly and Compute returns it verbatim. Grounded on testing.go's
// MockBackend idiom (mutex-guarded call counters, a Reset).
type MockStillnessDetector struct {
	mu sync.Mutex

	Result StillnessResult

	UpdateCalls    int
	ComputeCalls   int
	ResetCalls     int
	LastResetStats bool
}

var _ StillnessDetector = (*MockStillnessDetector)(nil)

func (m *MockStillnessDetector) Update(winEnd, sampleTime int64, x, y, z float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
}

func (m *MockStillnessDetector) Compute() StillnessResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ComputeCalls++
	return m.Result
}

func (m *MockStillnessDetector) Reset(resetStats bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResetCalls++
	m.LastResetStats = resetStats
}

// ResetCounters zeroes call counters without touching Result.
func (m *MockStillnessDetector) ResetCounters() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls, m.ComputeCalls, m.ResetCalls = 0, 0, 0
}
