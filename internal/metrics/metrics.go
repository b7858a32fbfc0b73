// Package metrics exposes the storefront's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckoutTotal counts finished payment attempts by terminal outcome:
	// committed, order_failed, gateway_abandoned, verification_failed,
	// booking_failed.
	CheckoutTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinego",
		Name:      "checkout_total",
		Help:      "Finished checkout attempts by outcome.",
	}, []string{"outcome"})

	// ActiveSessions tracks how many browser sessions currently exist.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cinego",
		Name:      "active_sessions",
		Help:      "Browser sessions currently tracked.",
	})

	// BackendRequestDuration observes latency of upstream storefront calls.
	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cinego",
		Name:      "backend_request_duration_seconds",
		Help:      "Latency of upstream backend calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"call"})
)
