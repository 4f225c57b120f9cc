package analyzer

import (
	"sync/atomic"
	"time"
)

// Metrics tracks analyzer boundary call counters.
type Metrics struct {
	calls      int64
	errors     int64
	giveUps    int64
	latency    int64 // total latency in nanoseconds
	cacheHits  int64
	cacheMiss  int64
}

var globalMetrics = &Metrics{}

// GetMetrics returns a snapshot of the current counters.
func GetMetrics() Metrics {
	return Metrics{
		calls:     atomic.LoadInt64(&globalMetrics.calls),
		errors:    atomic.LoadInt64(&globalMetrics.errors),
		giveUps:   atomic.LoadInt64(&globalMetrics.giveUps),
		latency:   atomic.LoadInt64(&globalMetrics.latency),
		cacheHits: atomic.LoadInt64(&globalMetrics.cacheHits),
		cacheMiss: atomic.LoadInt64(&globalMetrics.cacheMiss),
	}
}

// Calls returns the number of boundary calls recorded.
func (m Metrics) Calls() int64 { return m.calls }

// GiveUps returns the number of times retries were exhausted.
func (m Metrics) GiveUps() int64 { return m.giveUps }

// CacheHits returns the number of cache hits recorded.
func (m Metrics) CacheHits() int64 { return m.cacheHits }

// ResetMetrics resets all counters (useful for testing).
func ResetMetrics() {
	atomic.StoreInt64(&globalMetrics.calls, 0)
	atomic.StoreInt64(&globalMetrics.errors, 0)
	atomic.StoreInt64(&globalMetrics.giveUps, 0)
	atomic.StoreInt64(&globalMetrics.latency, 0)
	atomic.StoreInt64(&globalMetrics.cacheHits, 0)
	atomic.StoreInt64(&globalMetrics.cacheMiss, 0)
}

func recordAnalyzerCall(duration time.Duration, err error) {
	atomic.AddInt64(&globalMetrics.calls, 1)
	atomic.AddInt64(&globalMetrics.latency, duration.Nanoseconds())
	if err != nil {
		atomic.AddInt64(&globalMetrics.errors, 1)
	}
}

func recordAnalyzerGiveUp() {
	atomic.AddInt64(&globalMetrics.giveUps, 1)
}

func recordCacheHit() {
	atomic.AddInt64(&globalMetrics.cacheHits, 1)
}

func recordCacheMiss() {
	atomic.AddInt64(&globalMetrics.cacheMiss, 1)
}
