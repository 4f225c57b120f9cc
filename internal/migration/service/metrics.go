package service

import (
	"sync/atomic"
	"time"
)

// Metrics tracks pipeline run metrics
type Metrics struct {
	runsStarted   int64
	runsCompleted int64
	runsFailed    int64
	runsCancelled int64
	runsResumed   int64
	stageLatency  int64 // Total stage latency in nanoseconds
	stagesRun     int64
}

var globalMetrics = &Metrics{}

// GetMetrics returns the current metrics snapshot
func GetMetrics() Metrics {
	return Metrics{
		runsStarted:   atomic.LoadInt64(&globalMetrics.runsStarted),
		runsCompleted: atomic.LoadInt64(&globalMetrics.runsCompleted),
		runsFailed:    atomic.LoadInt64(&globalMetrics.runsFailed),
		runsCancelled: atomic.LoadInt64(&globalMetrics.runsCancelled),
		runsResumed:   atomic.LoadInt64(&globalMetrics.runsResumed),
		stageLatency:  atomic.LoadInt64(&globalMetrics.stageLatency),
		stagesRun:     atomic.LoadInt64(&globalMetrics.stagesRun),
	}
}

// ResetMetrics resets all metrics (useful for testing)
func ResetMetrics() {
	atomic.StoreInt64(&globalMetrics.runsStarted, 0)
	atomic.StoreInt64(&globalMetrics.runsCompleted, 0)
	atomic.StoreInt64(&globalMetrics.runsFailed, 0)
	atomic.StoreInt64(&globalMetrics.runsCancelled, 0)
	atomic.StoreInt64(&globalMetrics.runsResumed, 0)
	atomic.StoreInt64(&globalMetrics.stageLatency, 0)
	atomic.StoreInt64(&globalMetrics.stagesRun, 0)
}

func recordRunStarted(resumed bool) {
	atomic.AddInt64(&globalMetrics.runsStarted, 1)
	if resumed {
		atomic.AddInt64(&globalMetrics.runsResumed, 1)
	}
}

func recordRunCompleted() {
	atomic.AddInt64(&globalMetrics.runsCompleted, 1)
}

func recordRunFailed(cancelled bool) {
	atomic.AddInt64(&globalMetrics.runsFailed, 1)
	if cancelled {
		atomic.AddInt64(&globalMetrics.runsCancelled, 1)
	}
}

func recordStage(duration time.Duration) {
	atomic.AddInt64(&globalMetrics.stagesRun, 1)
	atomic.AddInt64(&globalMetrics.stageLatency, duration.Nanoseconds())
}

// RunsStarted returns how many pipeline runs began
func (m Metrics) RunsStarted() int64 { return m.runsStarted }

// RunsCompleted returns how many runs finished successfully
func (m Metrics) RunsCompleted() int64 { return m.runsCompleted }

// RunsFailed returns how many runs ended in failure
func (m Metrics) RunsFailed() int64 { return m.runsFailed }

// RunsCancelled returns how many failed runs were user cancellations
func (m Metrics) RunsCancelled() int64 { return m.runsCancelled }

// AverageStageLatency returns the average stage latency in milliseconds
func (m Metrics) AverageStageLatency() float64 {
	if m.stagesRun == 0 {
		return 0
	}
	return float64(m.stageLatency) / float64(m.stagesRun) / 1e6
}
