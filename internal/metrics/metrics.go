// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terapia",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "terapia",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	DispatchInserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terapia",
		Name:      "dispatch_notifications_total",
		Help:      "Notifications inserted by the dispatcher, per pass.",
	}, []string{"pass"})

	DispatchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terapia",
		Name:      "dispatch_failures_total",
		Help:      "Dispatcher pass failures.",
	}, []string{"pass"})

	RealtimeDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "terapia",
		Name:      "realtime_dropped_events_total",
		Help:      "Change-feed events dropped because a subscriber was full.",
	})

	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terapia",
		Name:      "jobs_processed_total",
		Help:      "Background jobs by type and outcome.",
	}, []string{"type", "outcome"})
)
