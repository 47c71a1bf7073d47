package rpclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "rustplus"

type metrics struct {
	requestsTotal  *prometheus.CounterVec
	messagesTotal  *prometheus.CounterVec
	timeoutsTotal  prometheus.Counter
	cancelledTotal prometheus.Counter
	decodeErrors   prometheus.Counter
	pending        prometheus.Gauge
	latency        prometheus.Histogram
}

// newMetrics - reg == nil означает "не регистрировать": коллекторы живут,
// но никуда не экспортируются.
func newMetrics(reg prometheus.Registerer, server string) *metrics {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"server": server}

	return &metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "requests_total",
			Help:        "AppRequests written to the socket, by request kind",
			ConstLabels: labels,
		}, []string{"kind"}),
		messagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "messages_total",
			Help:        "Decoded AppMessages, by routing (response|broadcast)",
			ConstLabels: labels,
		}, []string{"route"}),
		timeoutsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "request_timeouts_total",
			Help:        "Requests that expired before a response arrived",
			ConstLabels: labels,
		}),
		cancelledTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "requests_cancelled_total",
			Help:        "Pending requests failed by a disconnect",
			ConstLabels: labels,
		}),
		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "decode_errors_total",
			Help:        "Inbound frames dropped as malformed",
			ConstLabels: labels,
		}),
		pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "pending_requests",
			Help:        "Requests awaiting a response",
			ConstLabels: labels,
		}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   metricsNamespace,
			Name:        "response_latency_seconds",
			Help:        "Time from request write to matched response",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
	}
}
