package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesProcessed The total number of processed messages (counter)
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processed_total",
			Help:      "The total number of processed messages",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingFailed total number of message processing failures (counter)
	MessagesProcessingFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processing_failed_total",
			Help:      "The total number of message processing failures",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingDuration The total time spent processing messages (summary with quantiles 0.5, 0.9, and 0.99)
	MessagesProcessingDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  "messages",
			Name:       "processing_duration_seconds",
			Help:       "The total time spent processing messages",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"topic", "handler"},
	)

	// OrdersConfirmed counts confirmation signals raised, by event access type.
	OrdersConfirmed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orders",
			Name:      "confirmed_total",
			Help:      "The total number of confirmed orders",
		},
		[]string{"access_type"},
	)

	// OrphanPayments counts webhook deliveries that matched no order or
	// transaction. A non-zero rate means the processor and our store disagree.
	OrphanPayments = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "payments",
			Name:      "orphan_total",
			Help:      "The total number of webhook deliveries referencing unknown transactions",
		},
	)

	// SeatLedgerViolations counts allocations that would have driven
	// remaining seats negative. Any increment is an alert.
	SeatLedgerViolations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "seats",
			Name:      "ledger_violations_total",
			Help:      "The total number of seat allocations rejected to keep the ledger non-negative",
		},
	)
)
