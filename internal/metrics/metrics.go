package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Settlement outcomes, labeled by result:
	// success|duplicate|rejected|invalid_reference|refused_failed|
	// credit_failed|gateway_error
	Settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Settlement attempts by outcome",
		},
		[]string{"result"},
	)

	DuplicateCredits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "duplicate_credits_suppressed_total",
			Help: "Credits skipped because the external reference was already credited",
		},
	)

	LedgerEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_entries_total",
			Help: "Ledger entries written, by direction",
		},
		[]string{"direction"},
	)

	Reconciliations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciliations_total",
			Help: "Successful admin reconciliations",
		},
	)

	GhostMigrations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ghost_wallet_migrations_total",
			Help: "Legacy ghost wallets migrated to canonical accounts",
		},
	)

	SweepBatchSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "payment_sweep_batch_size",
			Help: "Stale pending payments picked up by the last sweep",
		},
	)

	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

func Init() {
	prometheus.MustRegister(Settlements)
	prometheus.MustRegister(DuplicateCredits)
	prometheus.MustRegister(LedgerEntries)
	prometheus.MustRegister(Reconciliations)
	prometheus.MustRegister(GhostMigrations)
	prometheus.MustRegister(SweepBatchSize)
	prometheus.MustRegister(WorkerQueueDepth)
}
