package authform

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one form counter.
type MetricID uint16

const (
	// MetricSubmitStarted counts submissions that passed validation and took the in-flight flag.
	MetricSubmitStarted MetricID = iota
	// MetricSubmitInFlightRejected counts submits refused because another was outstanding.
	MetricSubmitInFlightRejected
	// MetricValidationFailure counts submits rejected by the schema.
	MetricValidationFailure
	// MetricRegistrationSuccess counts accounts created through the form.
	MetricRegistrationSuccess
	// MetricRegistrationFailure counts failed CreateAccount calls.
	MetricRegistrationFailure
	// MetricRegistrationConflict counts registrations for an existing account.
	MetricRegistrationConflict
	// MetricLoginSuccess counts truthy sign-ins.
	MetricLoginSuccess
	// MetricLoginFailure counts sign-ins that errored.
	MetricLoginFailure
	// MetricLoginRejected counts falsy sign-ins and invalid credentials.
	MetricLoginRejected
	// MetricNavigation counts navigator calls.
	MetricNavigation
	// MetricRateLimitHit counts submits denied by the throttle.
	MetricRateLimitHit
	// MetricLinkTokenIssued counts link tokens attached to a linking view.
	MetricLinkTokenIssued
	// MetricFormCreated counts forms handed out by the engine.
	MetricFormCreated
	// MetricFormRestored counts forms rebuilt from a stored snapshot.
	MetricFormRestored
	// MetricStatePersistFailure counts snapshot writes that failed after a submission.
	MetricStatePersistFailure
	// MetricSubmitLatency is the histogram of remote call durations.
	MetricSubmitLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics defines a public type used by authform APIs.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a counter set. Disabled metrics accept calls and record nothing.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the submit latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id. Safe for concurrent use.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of id. Only [MetricSubmitLatency] has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricSubmitLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current count of id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. Histograms are included only when latency is enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricSubmitLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricSubmitLatency].buckets[i])
		}
		s.Histograms[MetricSubmitLatency] = buckets
	}

	return s
}

// Bucket upper bounds are 25ms, 50ms, 100ms, 250ms, 500ms, 1s, 2.5s and +Inf.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 25:
		return 0
	case ms <= 50:
		return 1
	case ms <= 100:
		return 2
	case ms <= 250:
		return 3
	case ms <= 500:
		return 4
	case ms <= 1000:
		return 5
	case ms <= 2500:
		return 6
	default:
		return 7
	}
}
