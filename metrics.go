package authgate

import "sync/atomic"

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	// MetricRegisterSuccess counts successful registrations.
	MetricRegisterSuccess MetricID = iota
	// MetricRegisterDuplicate counts registrations rejected for a taken email.
	MetricRegisterDuplicate
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess
	// MetricLoginFailure counts logins rejected for bad credentials or status.
	MetricLoginFailure
	// MetricLoginRateLimited counts logins pre-empted by the IP guard.
	MetricLoginRateLimited
	// MetricLogout counts logout calls.
	MetricLogout
	// MetricTOTPSetup counts two-factor enrollment starts.
	MetricTOTPSetup
	// MetricTOTPSuccess counts successful code verifications.
	MetricTOTPSuccess
	// MetricTOTPFailure counts failed code verifications.
	MetricTOTPFailure
	// MetricRecoveryCodesRegenerated counts recovery-code set replacements.
	MetricRecoveryCodesRegenerated
	// MetricTokenRejected counts Authenticate rejections.
	MetricTokenRejected

	metricIDCount
)

// Metrics holds lock-free counters. All operations are no-ops when the
// metrics config is disabled.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

func newMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Get returns the current value of one counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || !m.enabled || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot deep-copies every counter.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricIDCount)}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
