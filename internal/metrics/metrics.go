// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts finished HTTP requests by route pattern.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presently_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration observes request latency by route pattern.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "presently_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Transitions counts lifecycle operations by outcome ("ok" or an error kind).
	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presently_transitions_total",
			Help: "Lifecycle operations by outcome",
		},
		[]string{"op", "outcome"},
	)

	// GatewayDuration observes calls to generation and publishing services.
	GatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "presently_gateway_duration_seconds",
			Help:    "Duration of external gateway calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"gateway", "outcome"},
	)
)

// ObserveGateway records one gateway call that started at start.
func ObserveGateway(gateway string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	GatewayDuration.WithLabelValues(gateway, outcome).Observe(time.Since(start).Seconds())
}

// ObserveTransition counts one lifecycle operation.
func ObserveTransition(op, outcome string) {
	Transitions.WithLabelValues(op, outcome).Inc()
}
