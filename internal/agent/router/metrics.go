package router

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts routing decisions.
type Metrics struct {
	Decisions *prometheus.CounterVec // boxflow_routing_decisions_total{route,fallback}
}

// NewMetrics creates and registers the routing metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boxflow_routing_decisions_total",
		Help: "Total number of routing decisions by route and whether the default was used",
	}, []string{"route", "fallback"})

	reg.MustRegister(decisions)

	return &Metrics{Decisions: decisions}
}

var (
	sharedMetrics     *Metrics
	sharedMetricsOnce sync.Once
)

// SharedMetrics returns routing metrics registered once with the default
// Prometheus registry.
func SharedMetrics() *Metrics {
	sharedMetricsOnce.Do(func() {
		sharedMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

func (m *Metrics) observe(d Decision) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(string(d.Route), strconv.FormatBool(d.Fallback)).Inc()
}
