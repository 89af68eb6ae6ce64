package perf

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipsync/fabric/types"
)

func TestMonitor_SummaryCountsSuccessAndError(t *testing.T) {
	m := NewMonitor(10, nil, prometheus.NewRegistry())
	m.Record(types.PerfSample{Model: "gpt-4o-mini", ResponseTimeSec: 0.5, Success: true})
	m.Record(types.PerfSample{Model: "gpt-4o-mini", ResponseTimeSec: 1.5, Success: false, ErrorKind: types.ErrTimeout})

	s := m.Summary(0)
	assert.Equal(t, 2, s.SampleCount)
	assert.Equal(t, 1, s.SuccessCount)
	assert.Equal(t, 1, s.ErrorCount)
	assert.Equal(t, 1, s.ErrorsByKind[types.ErrTimeout])
	assert.InDelta(t, 1.0, s.AvgResponseTimeSec, 0.001)
}

func TestMonitor_RingBufferEvictsOldestBeyondCapacity(t *testing.T) {
	m := NewMonitor(3, nil, prometheus.NewRegistry())
	for i := 0; i < 5; i++ {
		m.Record(types.PerfSample{Model: "m", ResponseTimeSec: float64(i), Success: true})
	}
	s := m.Summary(0)
	require.Equal(t, 3, s.SampleCount)
}

func TestMonitor_HealthHealthyWithNoSamples(t *testing.T) {
	m := NewMonitor(10, nil, prometheus.NewRegistry())
	h := m.Health()
	assert.Equal(t, HealthHealthy, h.Status)
	assert.Equal(t, 0, h.SampleCount)
}

func TestMonitor_HealthCriticalAboveErrorRateCritical(t *testing.T) {
	m := NewMonitor(50, nil, prometheus.NewRegistry())
	for i := 0; i < 10; i++ {
		m.Record(types.PerfSample{Model: "m", ResponseTimeSec: 0.1, Success: i < 3})
	}
	h := m.Health()
	assert.Equal(t, HealthCritical, h.Status)
	assert.NotEmpty(t, h.Issues)
	assert.InDelta(t, 0.3, h.SuccessRate, 0.001)
}

func TestMonitor_HealthWarningOnElevatedLatency(t *testing.T) {
	th := Thresholds{ResponseTimeWarningSec: 1.0, ResponseTimeCriticalSec: 5.0, ErrorRateWarning: 0.5, ErrorRateCritical: 0.9}
	m := NewMonitor(50, &th, prometheus.NewRegistry())
	for i := 0; i < 5; i++ {
		m.Record(types.PerfSample{Model: "m", ResponseTimeSec: 2.0, Success: true})
	}
	h := m.Health()
	assert.Equal(t, HealthWarning, h.Status)
}

func TestMonitor_SummaryWindowedToLastN(t *testing.T) {
	m := NewMonitor(100, nil, prometheus.NewRegistry())
	for i := 0; i < 10; i++ {
		m.Record(types.PerfSample{Model: "m", ResponseTimeSec: 1, Success: i >= 5})
	}
	s := m.Summary(5)
	require.Equal(t, 5, s.SampleCount)
	assert.Equal(t, 5, s.SuccessCount)
}
