// Package metrics provides Prometheus instrumentation for the marketplace
// client.
//
// Outgoing API calls are timed by wrapping the HTTP transport:
//
//	client := &http.Client{Transport: metrics.InstrumentTransport(http.DefaultTransport)}
//
// Cart mutations, checkout outcomes and local-store failures are counted by
// the packages that own them. `kisan metrics` prints the current values.
package metrics

import (
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

const namespace = "kisan"

var (
	// APIRequestDuration tracks outgoing API request latency by method and
	// status code.
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of outgoing API requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "code"},
	)

	// APIRequestsInFlight counts API requests awaiting a response.
	APIRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "requests_in_flight",
		Help:      "Number of outgoing API requests awaiting a response.",
	})

	// CartMutations counts cart operations by name.
	CartMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "mutations_total",
			Help:      "Total cart mutations.",
		},
		[]string{"op"}, // "add" | "remove" | "update_quantity" | "clear"
	)

	// CheckoutOutcomes counts terminal checkout results.
	CheckoutOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "outcomes_total",
			Help:      "Checkout sessions by terminal outcome.",
		},
		[]string{"outcome"}, // "completed" | "abandoned" | "payment_failed" | "order_not_recorded" | "rejected"
	)

	// LocalStoreErrors counts swallowed durable-storage failures.
	LocalStoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "localstore",
			Name:      "errors_total",
			Help:      "Durable storage failures that were logged and recovered.",
		},
		[]string{"op"}, // "load" | "persist" | "delete"
	)

	// ChatEvents counts inbound chat events by name.
	ChatEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "events_total",
			Help:      "Inbound chat events by event name.",
		},
		[]string{"event"},
	)
)

// DefaultRegistry holds every client metric.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(collectors.NewGoCollector())

	DefaultRegistry.MustRegister(
		APIRequestDuration,
		APIRequestsInFlight,
		CartMutations,
		CheckoutOutcomes,
		LocalStoreErrors,
		ChatEvents,
	)
}

// InstrumentTransport wraps next so every round trip is timed and counted.
func InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperInFlight(APIRequestsInFlight,
		promhttp.InstrumentRoundTripperDuration(APIRequestDuration, next))
}

// WriteText writes every registered metric family in the Prometheus text
// exposition format.
func WriteText(w io.Writer) error {
	families, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
