// internal/httpserver/metrics.go
//
// Prometheus counters fed by session hooks, served on GET /metrics.
// A private registry is used so tests can build several servers.

package httpserver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	reg         *prometheus.Registry
	resolved    *prometheus.CounterVec // outcome=correct|incorrect, mode=classic|endless
	rounds      prometheus.Counter
	replenished prometheus.Counter
	failures    prometheus.Counter
	sessions    prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		reg: prometheus.NewRegistry(),
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pairlearner",
			Name:      "pairs_resolved_total",
			Help:      "Evaluated selections by outcome and mode.",
		}, []string{"outcome", "mode"}),
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pairlearner",
			Name:      "rounds_completed_total",
			Help:      "Classic rounds played to completion.",
		}),
		replenished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pairlearner",
			Name:      "pairs_replenished_total",
			Help:      "Endless-mode pair swaps.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pairlearner",
			Name:      "engine_errors_total",
			Help:      "Engine failures reported through hooks.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pairlearner",
			Name:      "sessions_active",
			Help:      "Sessions currently held in memory.",
		}),
	}
	m.reg.MustRegister(
		m.resolved, m.rounds, m.replenished, m.failures, m.sessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
