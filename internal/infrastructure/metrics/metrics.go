// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── HTTP ───────────────────────────────────────────────────────────────────

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lendledger",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by method, route and status code.",
}, []string{"method", "route", "code"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "lendledger",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by method and route.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

// IdempotencyReplays counts responses served from the idempotency cache.
var IdempotencyReplays = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "lendledger",
	Subsystem: "http",
	Name:      "idempotency_replays_total",
	Help:      "Responses replayed for a repeated request id.",
})

// ─── Ledger ─────────────────────────────────────────────────────────────────

var LoanChanges = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lendledger",
	Subsystem: "ledger",
	Name:      "loan_changes_total",
	Help:      "Loan mutations by kind (created, settled, deleted).",
}, []string{"kind"})

// SnapshotLookups counts snapshot cache reads by result (hit, miss, error).
var SnapshotLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lendledger",
	Subsystem: "ledger",
	Name:      "snapshot_lookups_total",
	Help:      "Snapshot cache lookups by result.",
}, []string{"result"})

var InvalidRecords = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "lendledger",
	Subsystem: "ledger",
	Name:      "invalid_records_total",
	Help:      "Loan records skipped by aggregation because they failed validation.",
})

// ─── Reminders ──────────────────────────────────────────────────────────────

// RemindersDispatched counts dispatcher outcomes (sent, skipped, failed).
var RemindersDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lendledger",
	Subsystem: "reminders",
	Name:      "dispatched_total",
	Help:      "Reminder dispatch outcomes.",
}, []string{"result"})

var ReminderBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "lendledger",
	Subsystem: "reminders",
	Name:      "batch_duration_seconds",
	Help:      "Time spent dispatching one batch of due reminders.",
	Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5},
})
