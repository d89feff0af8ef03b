package gyrocal

import (
	"math"

	"github.com/contexthub/seoshub/internal/constants"
)

// temperatureDeltaEpsilon approximates FLT_MIN, the reference firmware's
// threshold below which a temperature change is treated as noise rather
// than a real delta worth feeding into the stats tracker.
const temperatureDeltaEpsilon = 1.1754944e-38

// Config holds the tunable thresholds for one GyroCal instance.
type Config struct {
	StillnessThreshold           float64
	StillnessMeanDeltaLimit      float64
	TemperatureDeltaLimitCelsius float64
	MinStillDurationNanos        int64
	MaxStillDurationNanos        int64
	WindowTimeDurationNanos      int64
	UsingMagSensor               bool
}

// DefaultConfig returns thresholds modeled on the reference firmware's
// tuning defaults for a consumer-grade MEMS gyroscope.
func DefaultConfig() Config {
	return Config{
		StillnessThreshold:           0.95,
		StillnessMeanDeltaLimit:      1e-3,
		TemperatureDeltaLimitCelsius: 2.0,
		MinStillDurationNanos:        int64(5 * 1e9),
		MaxStillDurationNanos:        int64(60 * 1e9),
		WindowTimeDurationNanos:      int64(1.5 * 1e9),
		UsingMagSensor:               true,
	}
}

// DebugInfo is a point-in-time copy of calibration internals, restored
// from gyro_cal.c's debug-print plumbing (debug_gyro_cal) and exposed
// here for telemetry rather than a firmware debug UART.
type DebugInfo struct {
	AccelConfidence, GyroConfidence, MagConfidence float64
	StillnessConfidence                            float64

	StartStillTimeNanos int64
	EndStillTimeNanos   int64
	StillDurationNanos  int64

	BiasX, BiasY, BiasZ    float64
	BiasTemperatureCelsius float64

	TempMinCelsius, TempMaxCelsius, TempMeanCelsius float64

	MeanMinX, MeanMaxX float64
	MeanMinY, MeanMaxY float64
	MeanMinZ, MeanMaxZ float64
}

// GyroCal is the multi-sensor stillness-gated bias calibration state
// machine (C8), driving three injected StillnessDetectors (C7) and
// owning its own temperature/mean stability trackers (C9).
type GyroCal struct {
	cfg Config

	accel StillnessDetector
	gyro  StillnessDetector
	mag   StillnessDetector

	usingMagSensor bool

	bx, by, bz             float64
	biasTemperatureCelsius float64
	calibrationTimeNanos   int64
	stillnessConfidence    float64
	newBiasAvailable       bool

	prevStill                bool
	startStillTimeNanos      int64
	stillnessWinEndtimeNanos int64
	gyroWatchdogStartNanos   int64

	tempTracker TemperatureTracker
	meanTracker StillMeanTracker

	prevAccelConf, prevGyroConf, prevMagConf float64
	prevMeanX, prevMeanY, prevMeanZ           float64
	prevTempMeanCelsius                      float64

	haveTemperature        bool
	lastTemperatureCelsius float64

	enabled bool

	debugBusy bool
	debug     DebugInfo
}

// New wires a GyroCal over the three injected detectors. Production
// callers typically supply VarianceStillnessDetector instances; tests
// substitute MockStillnessDetector.
func New(accel, gyro, mag StillnessDetector, cfg Config) *GyroCal {
	return &GyroCal{
		cfg:            cfg,
		accel:          accel,
		gyro:           gyro,
		mag:            mag,
		usingMagSensor: cfg.UsingMagSensor,
		enabled:        true,
	}
}

// SetEnabled gates whether Update* calls have any effect.
func (g *GyroCal) SetEnabled(enabled bool) { g.enabled = enabled }

// Enabled reports the current enable state.
func (g *GyroCal) Enabled() bool { return g.enabled }

func (g *GyroCal) watchdogTimeoutDurationNanos() int64 {
	return 2 * g.cfg.WindowTimeDurationNanos
}

// UpdateAccel feeds one accelerometer sample.
func (g *GyroCal) UpdateAccel(sampleTime int64, x, y, z float64) {
	if !g.enabled {
		return
	}
	g.accel.Update(g.stillnessWinEndtimeNanos, sampleTime, x, y, z)
}

// UpdateMag feeds one magnetometer sample. No-op if the magnetometer has
// been disabled (by configuration or by watchdog recovery).
func (g *GyroCal) UpdateMag(sampleTime int64, x, y, z float64) {
	if !g.enabled || !g.usingMagSensor {
		return
	}
	g.mag.Update(g.stillnessWinEndtimeNanos, sampleTime, x, y, z)
}

// UpdateGyro feeds one gyroscope sample and drives the full stillness
// check / watchdog / calibration pipeline for this tick.
func (g *GyroCal) UpdateGyro(sampleTime int64, x, y, z, temperatureCelsius float64) {
	if !g.enabled {
		return
	}

	if g.stillnessWinEndtimeNanos == 0 {
		g.stillnessWinEndtimeNanos = sampleTime + g.cfg.WindowTimeDurationNanos
	}

	if !g.haveTemperature || math.Abs(temperatureCelsius-g.lastTemperatureCelsius) > temperatureDeltaEpsilon {
		g.tempTracker.Update(temperatureCelsius)
	}
	g.lastTemperatureCelsius = temperatureCelsius
	g.haveTemperature = true

	g.gyro.Update(g.stillnessWinEndtimeNanos, sampleTime, x, y, z)

	g.checkWatchdog(sampleTime)
	g.deviceStillnessCheck(sampleTime)

	g.gyroWatchdogStartNanos = sampleTime
}

// checkWatchdog resets all calibration state if no progress has been
// observed for two full window durations, recovering from a stalled
// sensor stream.
func (g *GyroCal) checkWatchdog(sampleTime int64) {
	if g.gyroWatchdogStartNanos <= 0 {
		return
	}
	if sampleTime-g.gyroWatchdogStartNanos <= g.watchdogTimeoutDurationNanos() {
		return
	}

	magWasReady := g.usingMagSensor && g.mag.Compute().WindowReady

	g.resetDetectors(true)
	g.tempTracker.Reset()
	g.meanTracker.Reset()
	g.stillnessWinEndtimeNanos = 0
	g.prevAccelConf, g.prevGyroConf, g.prevMagConf = 0, 0, 0
	g.prevStill = false

	if g.usingMagSensor && !magWasReady {
		g.usingMagSensor = false
	}
}

// deviceStillnessCheck evaluates the combined stillness gate once every
// required detector has a ready window, and drives the still/not-still
// transition logic that emits calibrations.
func (g *GyroCal) deviceStillnessCheck(sampleTime int64) {
	if !g.gyro.Compute().WindowReady {
		return
	}
	if g.usingMagSensor && !g.mag.Compute().WindowReady {
		return
	}
	if !g.accel.Compute().WindowReady {
		return
	}

	g.stillnessWinEndtimeNanos += g.cfg.WindowTimeDurationNanos

	accelResult := g.accel.Compute()
	gyroResult := g.gyro.Compute()
	magResult := StillnessResult{Confidence: 1}
	if g.usingMagSensor {
		magResult = g.mag.Compute()
	}

	g.meanTracker.Update(gyroResult.MeanX, gyroResult.MeanY, gyroResult.MeanZ)

	confNotRot := gyroResult.Confidence * magResult.Confidence
	confNotAccel := accelResult.Confidence
	confStill := confNotRot * confNotAccel

	rx, ry, rz := g.meanTracker.Range()
	meanNotStable := rx > g.cfg.StillnessMeanDeltaLimit ||
		ry > g.cfg.StillnessMeanDeltaLimit ||
		rz > g.cfg.StillnessMeanDeltaLimit

	tempExceeded := g.tempTracker.Range() > g.cfg.TemperatureDeltaLimitCelsius

	deviceIsStill := confStill > g.cfg.StillnessThreshold && !meanNotStable && !tempExceeded

	switch {
	case !g.prevStill && deviceIsStill:
		g.startStillTimeNanos = gyroResult.WindowStartTime
		g.recordStillSnapshotAndMaybeEmit(accelResult, gyroResult, magResult)

	case g.prevStill && !deviceIsStill:
		if gyroResult.WindowStartTime-g.startStillTimeNanos >= g.cfg.MinStillDurationNanos {
			g.emitCalibration(gyroResult.WindowStartTime)
		}
		g.resetDetectors(true)
		g.tempTracker.Reset()
		g.meanTracker.Reset()
		g.prevStill = false

	case !g.prevStill && !deviceIsStill:
		g.resetDetectors(true)
		g.tempTracker.Reset()
		g.meanTracker.Reset()
		g.prevStill = false

	default:
		// still -> still: same as the became-still branch, minus
		// re-recording startStillTimeNanos (it stays pinned to when the
		// period began). Refreshes the pending mean/temperature snapshot
		// each window and still emits on a max-duration period.
		g.recordStillSnapshotAndMaybeEmit(accelResult, gyroResult, magResult)
	}
}

// recordStillSnapshotAndMaybeEmit refreshes the pending calibration
// snapshot (mean/confidence/temperature) for the current still period and
// emits a calibration if the period has run past MaxStillDurationNanos,
// matching gyro_cal.c's DO_STORE_DATA-then-stillness_duration_exceeded
// sequence run on every still window, not just the one where stillness
// began.
func (g *GyroCal) recordStillSnapshotAndMaybeEmit(accelResult, gyroResult, magResult StillnessResult) {
	g.prevAccelConf, g.prevGyroConf, g.prevMagConf = accelResult.Confidence, gyroResult.Confidence, magResult.Confidence
	g.prevMeanX, g.prevMeanY, g.prevMeanZ = gyroResult.MeanX, gyroResult.MeanY, gyroResult.MeanZ
	g.prevTempMeanCelsius = g.tempTracker.Mean()

	if gyroResult.LastSampleTime-g.startStillTimeNanos > g.cfg.MaxStillDurationNanos {
		g.emitCalibration(gyroResult.LastSampleTime)
		g.resetDetectors(true)
		g.tempTracker.Reset()
		g.meanTracker.Reset()
		g.prevStill = false
	} else {
		g.resetDetectors(false)
		g.prevStill = true
	}
}

func (g *GyroCal) resetDetectors(withStats bool) {
	g.accel.Reset(withStats)
	g.gyro.Reset(withStats)
	if g.usingMagSensor {
		g.mag.Reset(withStats)
	}
}

// emitCalibration commits the pending still-period means as the new bias
// estimate, subject to the bounded sanity check. Rejections are silent:
// the caller observes no effect and the next window begins normally.
func (g *GyroCal) emitCalibration(atTime int64) {
	if math.Abs(g.prevMeanX) >= constants.MaxGyroBias ||
		math.Abs(g.prevMeanY) >= constants.MaxGyroBias ||
		math.Abs(g.prevMeanZ) >= constants.MaxGyroBias {
		return
	}

	g.bx, g.by, g.bz = g.prevMeanX, g.prevMeanY, g.prevMeanZ
	g.biasTemperatureCelsius = g.prevTempMeanCelsius
	g.calibrationTimeNanos = atTime
	g.stillnessConfidence = g.prevAccelConf * g.prevGyroConf * g.prevMagConf
	g.newBiasAvailable = true

	g.refreshDebugSnapshot(atTime)
}

// GetBias returns the current bias estimate in rad/s.
func (g *GyroCal) GetBias() (x, y, z float64) { return g.bx, g.by, g.bz }

// BiasTemperatureCelsius returns the temperature at which the current
// bias was captured.
func (g *GyroCal) BiasTemperatureCelsius() float64 { return g.biasTemperatureCelsius }

// CalibrationTimeNanos returns the timestamp of the current bias.
func (g *GyroCal) CalibrationTimeNanos() int64 { return g.calibrationTimeNanos }

// StillnessConfidence returns the combined confidence of the stillness
// period that produced the current bias.
func (g *GyroCal) StillnessConfidence() float64 { return g.stillnessConfidence }

// SetBias overwrites the bias estimate, e.g. restoring a value persisted
// across a power cycle.
func (g *GyroCal) SetBias(x, y, z, temperatureCelsius float64, timeNanos int64) {
	g.bx, g.by, g.bz = x, y, z
	g.biasTemperatureCelsius = temperatureCelsius
	g.calibrationTimeNanos = timeNanos
}

// RemoveBias subtracts the current bias estimate from one sample, if
// calibration is enabled. Matches gyro_cal.c's gyroCalRemoveBias: with
// calibration disabled, the input passes through unchanged.
func (g *GyroCal) RemoveBias(xi, yi, zi float64) (xo, yo, zo float64) {
	if !g.enabled {
		return xi, yi, zi
	}
	return xi - g.bx, yi - g.by, zi - g.bz
}

// NewBiasAvailable reports and clears the pending-calibration flag: true
// at most once per accepted calibration, and only while calibration is
// enabled (mirrors gyro_cal.c's gyro_calibration_enable &&
// new_gyro_cal_available gate).
func (g *GyroCal) NewBiasAvailable() bool {
	if !g.enabled {
		return false
	}
	if g.newBiasAvailable {
		g.newBiasAvailable = false
		return true
	}
	return false
}

func (g *GyroCal) refreshDebugSnapshot(atTime int64) {
	if g.debugBusy {
		return
	}
	g.debugBusy = true
	defer func() { g.debugBusy = false }()

	minX, maxX := g.meanTracker.minX, g.meanTracker.maxX
	minY, maxY := g.meanTracker.minY, g.meanTracker.maxY
	minZ, maxZ := g.meanTracker.minZ, g.meanTracker.maxZ

	g.debug = DebugInfo{
		AccelConfidence:        g.prevAccelConf,
		GyroConfidence:         g.prevGyroConf,
		MagConfidence:          g.prevMagConf,
		StillnessConfidence:    g.stillnessConfidence,
		StartStillTimeNanos:    g.startStillTimeNanos,
		EndStillTimeNanos:      atTime,
		StillDurationNanos:     atTime - g.startStillTimeNanos,
		BiasX:                  g.bx,
		BiasY:                  g.by,
		BiasZ:                  g.bz,
		BiasTemperatureCelsius: g.biasTemperatureCelsius,
		TempMinCelsius:         g.tempTracker.min,
		TempMaxCelsius:         g.tempTracker.max,
		TempMeanCelsius:        g.tempTracker.Mean(),
		MeanMinX:               minX,
		MeanMaxX:               maxX,
		MeanMinY:               minY,
		MeanMaxY:               maxY,
		MeanMinZ:               minZ,
		MeanMaxZ:               maxZ,
	}
}

// DebugSnapshot returns a read-only copy of calibration internals as of
// the most recently accepted calibration, for telemetry sinks that want
// more detail than GetBias alone provides.
func (g *GyroCal) DebugSnapshot() DebugInfo { return g.debug }
