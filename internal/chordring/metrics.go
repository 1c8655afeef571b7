package chordring

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the prometheus collectors exercised across the
// dispatcher, the RPC transport, and the periodic membership tasks.
// Every Server gets its own registry so tests can stand up several
// servers in one process without colliding on collector names.
type metrics struct {
	requestsTotal     *prometheus.CounterVec
	requestErrors     *prometheus.CounterVec
	rpcLatencySeconds *prometheus.HistogramVec
	rpcErrorsTotal    *prometheus.CounterVec
	stabilizeRuns     prometheus.Counter
	stabilizeErrors   prometheus.Counter
	fixFingersRuns    prometheus.Counter
	fixFingersErrors  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chordring",
			Name:      "requests_total",
			Help:      "Inbound wire requests handled, by command.",
		}, []string{"command"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chordring",
			Name:      "request_errors_total",
			Help:      "Inbound wire requests that were discarded due to an error.",
		}, []string{"command"}),
		rpcLatencySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chordring",
			Name:      "rpc_latency_seconds",
			Help:      "Outbound peer RPC latency, by method.",
		}, []string{"method"}),
		rpcErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chordring",
			Name:      "rpc_errors_total",
			Help:      "Outbound peer RPCs that failed, by method.",
		}, []string{"method"}),
		stabilizeRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chordring",
			Name:      "stabilize_runs_total",
			Help:      "Completed stabilize passes across all virtual nodes.",
		}),
		stabilizeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chordring",
			Name:      "stabilize_errors_total",
			Help:      "Stabilize passes that returned an error.",
		}),
		fixFingersRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chordring",
			Name:      "fix_fingers_runs_total",
			Help:      "Completed fix_fingers passes across all virtual nodes.",
		}),
		fixFingersErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chordring",
			Name:      "fix_fingers_errors_total",
			Help:      "fix_fingers passes that returned an error.",
		}),
	}

	reg.MustRegister(
		m.requestsTotal, m.requestErrors,
		m.rpcLatencySeconds, m.rpcErrorsTotal,
		m.stabilizeRuns, m.stabilizeErrors,
		m.fixFingersRuns, m.fixFingersErrors,
	)
	return m
}
