package tracker

import (
	"github.com/banky/hyperliquid-exchange/internal/promutil"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	batchSize prometheus.Histogram
	intents   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}

	m := &metrics{
		batchSize: promutil.Register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_batch_size",
			Help:    "Intents per dispatched batch.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		})),
		intents: promutil.Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_intents_total",
			Help: "Resolved intents, by outcome.",
		}, []string{"outcome"})),
	}
	return m
}

func (m *metrics) batch(size int) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(size))
}

func (m *metrics) resolved(label string, n int) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(label).Add(float64(n))
}
