package exchange

import (
	"time"

	"github.com/banky/hyperliquid-exchange/internal/promutil"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	actions *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// newMetrics registers the dispatcher metrics on reg. A nil reg yields nil
// metrics, which observe as no-ops.
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}

	m := &metrics{
		actions: promutil.Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_actions_total",
			Help: "Actions dispatched, by type and outcome.",
		}, []string{"type", "outcome"})),
		latency: promutil.Register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exchange_dispatch_seconds",
			Help:    "Time from admission to decoded response.",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"})),
	}
	return m
}

func (m *metrics) observe(actionType string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(actionType, outcome(err)).Inc()
	m.latency.WithLabelValues(actionType).Observe(time.Since(start).Seconds())
}
