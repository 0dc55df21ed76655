// Package metrics holds the Prometheus collectors for booking and dispatch activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cabdispatch_booking_transitions_total",
		Help: "Committed booking status transitions by source and target status",
	}, []string{"from", "to"})

	BookingRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cabdispatch_booking_rejections_total",
		Help: "Booking commands refused, by operation and error class",
	}, []string{"operation", "reason"})

	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cabdispatch_dispatch_total",
		Help: "Driver assignment attempts by result",
	}, []string{"result"})

	StoreRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cabdispatch_store_version_retries_total",
		Help: "Booking writes retried after an optimistic version conflict",
	})

	HookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cabdispatch_hook_deliveries_total",
		Help: "Outbound lifecycle hook deliveries by sink and result",
	}, []string{"sink", "result"})
)

// RecordTransition counts a committed status change.
func RecordTransition(from, to string) {
	BookingTransitionsTotal.WithLabelValues(normalize(from), normalize(to)).Inc()
}

// RecordRejection counts a refused booking command.
func RecordRejection(operation, reason string) {
	BookingRejectionsTotal.WithLabelValues(normalize(operation), normalize(reason)).Inc()
}

// RecordDispatch counts one assignment attempt ("assigned", "conflict", "not_found", "error").
func RecordDispatch(result string) {
	DispatchTotal.WithLabelValues(normalize(result)).Inc()
}

// RecordStoreRetry counts one version-conflict retry.
func RecordStoreRetry() {
	StoreRetriesTotal.Inc()
}

// RecordHookDelivery counts one delivery attempt ("ok", "error", "dropped").
func RecordHookDelivery(sink, result string) {
	HookDeliveriesTotal.WithLabelValues(normalize(sink), normalize(result)).Inc()
}

func normalize(label string) string {
	if label == "" {
		return "unknown"
	}
	return label
}
