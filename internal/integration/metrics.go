package integration

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ToolMetrics counts tool calls by outcome and records their latency.
type ToolMetrics struct {
	Calls    *prometheus.CounterVec   // boxflow_tool_calls_total{tool,outcome}
	Duration *prometheus.HistogramVec // boxflow_tool_duration_seconds{tool}
}

// NewToolMetrics creates and registers the tool metrics with reg.
func NewToolMetrics(reg prometheus.Registerer) *ToolMetrics {
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boxflow_tool_calls_total",
		Help: "Total number of tool calls by outcome",
	}, []string{"tool", "outcome"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "boxflow_tool_duration_seconds",
		Help:    "Latency of the outbound API call behind each tool",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})

	reg.MustRegister(calls)
	reg.MustRegister(duration)

	return &ToolMetrics{Calls: calls, Duration: duration}
}

var (
	sharedMetrics     *ToolMetrics
	sharedMetricsOnce sync.Once
)

// SharedToolMetrics returns tool metrics registered once with the default
// Prometheus registry.
func SharedToolMetrics() *ToolMetrics {
	sharedMetricsOnce.Do(func() {
		sharedMetrics = NewToolMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// Observe records one call. A nil receiver records nothing.
func (m *ToolMetrics) Observe(tool string, started time.Time, res Result) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(tool, res.Kind.String()).Inc()
	m.Duration.WithLabelValues(tool).Observe(time.Since(started).Seconds())
}
