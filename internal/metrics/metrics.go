// Package metrics exposes the Prometheus instrumentation for the API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homelab",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP requests processed, by method, route and status code.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "homelab",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(c.RequestsTotal, c.RequestDuration)
	return c
}
