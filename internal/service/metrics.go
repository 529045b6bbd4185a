package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's prometheus instruments. Construct with an
// explicit registerer so tests can use an isolated registry.
type Metrics struct {
	transactionsTotal   *prometheus.CounterVec
	denialsTotal        *prometheus.CounterVec
	conflictRetries     prometheus.Counter
	compensationsTotal  prometheus.Counter
	repairEnqueued      prometheus.Counter
	repairFailed        prometheus.Counter
	eventsDropped       prometheus.Counter
	eventQueueDepth     prometheus.Gauge
	duplicateFundings   prometheus.Counter
}

// NewMetrics registers the engine metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wallet_engine",
				Subsystem: "processor",
				Name:      "transactions_total",
				Help:      "Processed transactions partitioned by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		denialsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wallet_engine",
				Subsystem: "processor",
				Name:      "denials_total",
				Help:      "Business denials partitioned by reason.",
			},
			[]string{"reason"},
		),
		conflictRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "wallet_engine",
				Subsystem: "processor",
				Name:      "conflict_retries_total",
				Help:      "Optimistic-concurrency conflicts that triggered a pricing retry.",
			},
		),
		compensationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "wallet_engine",
				Subsystem: "processor",
				Name:      "compensating_credits_total",
				Help:      "Debits rolled back by a compensating credit after a post-debit check failed.",
			},
		),
		repairEnqueued: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "wallet_engine",
				Subsystem: "ledger",
				Name:      "repair_enqueued_total",
				Help:      "Ledger writes that failed in-band and were queued for repair.",
			},
		),
		repairFailed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "wallet_engine",
				Subsystem: "ledger",
				Name:      "repair_failed_total",
				Help:      "Repair tasks that exhausted their retries.",
			},
		),
		eventsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "wallet_engine",
				Subsystem: "events",
				Name:      "dropped_total",
				Help:      "Outbound notification events dropped because the queue was full.",
			},
		),
		eventQueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "wallet_engine",
				Subsystem: "events",
				Name:      "queue_depth",
				Help:      "Current depth of the outbound event queue.",
			},
		),
		duplicateFundings: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "wallet_engine",
				Subsystem: "processor",
				Name:      "duplicate_fundings_total",
				Help:      "Funding requests recognised as duplicates of an applied external reference.",
			},
		),
	}
}
