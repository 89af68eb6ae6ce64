// Package perf is the Performance Monitor (C4): a bounded in-memory
// history of LLM call outcomes plus a rolling health rollup, exported
// to Prometheus for scraping.
package perf

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flipsync/fabric/types"
)

// DefaultMaxHistory is the ring buffer capacity used when Monitor is
// constructed with maxHistory <= 0.
const DefaultMaxHistory = 1000

// healthWindow is how many of the most recent samples health() rolls up.
const healthWindow = 20

// Summary is a point-in-time rollup over the requested sample count.
type Summary struct {
	SampleCount        int
	SuccessCount       int
	ErrorCount         int
	AvgResponseTimeSec float64
	P95ResponseTimeSec float64
	ErrorsByKind       map[types.ErrorCode]int
}

// HealthStatus is the closed tri-state rollup status.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// Thresholds configures when Health degrades from healthy to warning to
// critical. Response-time thresholds are seconds; error-rate thresholds
// are fractions in [0,1].
type Thresholds struct {
	ResponseTimeWarningSec  float64
	ResponseTimeCriticalSec float64
	ErrorRateWarning        float64
	ErrorRateCritical       float64
}

// DefaultThresholds are used when Monitor is constructed with a nil
// Thresholds pointer.
var DefaultThresholds = Thresholds{
	ResponseTimeWarningSec:  3.0,
	ResponseTimeCriticalSec: 10.0,
	ErrorRateWarning:        0.1,
	ErrorRateCritical:       0.3,
}

// Health is the rollup over the most recent healthWindow samples, used
// for liveness/readiness-style checks.
type Health struct {
	Status        HealthStatus
	Issues        []string
	SuccessRate   float64
	SampleCount   int
	AvgLatencySec float64
}

// Monitor implements C4. The zero value is not usable; construct with
// NewMonitor.
type Monitor struct {
	mu       sync.Mutex
	samples  []types.PerfSample
	next     int
	filled   bool
	capacity int

	thresholds Thresholds

	callsTotal  *prometheus.CounterVec
	latencyHist *prometheus.HistogramVec
}

// NewMonitor builds a Monitor with the given ring buffer capacity and
// registers its Prometheus collectors against reg. reg may be nil to
// skip registration (e.g. in tests that don't scrape metrics). thresholds
// nil uses DefaultThresholds.
func NewMonitor(capacity int, thresholds *Thresholds, reg prometheus.Registerer) *Monitor {
	if capacity <= 0 {
		capacity = DefaultMaxHistory
	}
	th := DefaultThresholds
	if thresholds != nil {
		th = *thresholds
	}
	m := &Monitor{
		samples:    make([]types.PerfSample, capacity),
		capacity:   capacity,
		thresholds: th,
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flipsync",
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Total LLM provider calls by model and outcome.",
		}, []string{"model", "outcome"}),
		latencyHist: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flipsync",
			Subsystem: "llm",
			Name:      "response_time_seconds",
			Help:      "LLM provider call latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"model"}),
	}
	if reg != nil {
		reg.MustRegister(m.callsTotal, m.latencyHist)
	}
	return m
}

// Record appends sample to the ring buffer and updates the Prometheus
// collectors. O(1), safe for concurrent use.
func (m *Monitor) Record(sample types.PerfSample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples[m.next] = sample
	m.next = (m.next + 1) % m.capacity
	if m.next == 0 {
		m.filled = true
	}

	outcome := "success"
	if !sample.Success {
		outcome = "error"
	}
	m.callsTotal.WithLabelValues(sample.Model, outcome).Inc()
	m.latencyHist.WithLabelValues(sample.Model).Observe(sample.ResponseTimeSec)
}

// ordered returns the retained samples oldest-first.
func (m *Monitor) ordered() []types.PerfSample {
	if !m.filled {
		out := make([]types.PerfSample, m.next)
		copy(out, m.samples[:m.next])
		return out
	}
	out := make([]types.PerfSample, m.capacity)
	copy(out, m.samples[m.next:])
	copy(out[m.capacity-m.next:], m.samples[:m.next])
	return out
}

// Summary rolls up the last n retained samples (n<=0 or n beyond the
// retained count uses everything retained).
func (m *Monitor) Summary(n int) Summary {
	m.mu.Lock()
	all := m.ordered()
	m.mu.Unlock()

	if n <= 0 || n > len(all) {
		n = len(all)
	}
	window := all[len(all)-n:]

	sum := Summary{ErrorsByKind: make(map[types.ErrorCode]int)}
	var totalLatency float64
	latencies := make([]float64, 0, len(window))
	for _, s := range window {
		sum.SampleCount++
		if s.Success {
			sum.SuccessCount++
		} else {
			sum.ErrorCount++
			sum.ErrorsByKind[s.ErrorKind]++
		}
		totalLatency += s.ResponseTimeSec
		latencies = append(latencies, s.ResponseTimeSec)
	}
	if sum.SampleCount > 0 {
		sum.AvgResponseTimeSec = totalLatency / float64(sum.SampleCount)
		sum.P95ResponseTimeSec = percentile(latencies, 0.95)
	}
	return sum
}

// Health rolls up the most recent healthWindow samples against the
// configured Thresholds. A monitor with fewer than healthWindow samples
// still reports based on what it has; an empty monitor reports healthy
// (no evidence of failure yet).
func (m *Monitor) Health() Health {
	s := m.Summary(healthWindow)
	if s.SampleCount == 0 {
		return Health{Status: HealthHealthy}
	}

	errorRate := float64(s.ErrorCount) / float64(s.SampleCount)
	status := HealthHealthy
	var issues []string

	th := m.thresholds
	if errorRate >= th.ErrorRateCritical {
		status = HealthCritical
		issues = append(issues, "error rate critical")
	} else if errorRate >= th.ErrorRateWarning {
		status = HealthWarning
		issues = append(issues, "error rate elevated")
	}
	if s.AvgResponseTimeSec >= th.ResponseTimeCriticalSec {
		status = HealthCritical
		issues = append(issues, "response time critical")
	} else if s.AvgResponseTimeSec >= th.ResponseTimeWarningSec && status != HealthCritical {
		status = HealthWarning
		issues = append(issues, "response time elevated")
	}

	return Health{
		Status:        status,
		Issues:        issues,
		SuccessRate:   1 - errorRate,
		SampleCount:   s.SampleCount,
		AvgLatencySec: s.AvgResponseTimeSec,
	}
}

// percentile computes a simple sorted-index percentile. values is
// copied before sorting; the caller's slice is left unchanged.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	insertionSort(sorted)
	idx := int(p * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func insertionSort(v []float64) {
	for i := 1; i < len(v); i++ {
		key := v[i]
		j := i - 1
		for j >= 0 && v[j] > key {
			v[j+1] = v[j]
			j--
		}
		v[j+1] = key
	}
}
