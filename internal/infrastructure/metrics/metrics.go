package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	CommitCreated   = "created"
	CommitDuplicate = "duplicate"
	CommitConflict  = "conflict"
	CommitError     = "error"
)

var LedgerCommits = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "payment_ledger_commits_total",
	Help: "Ledger commit attempts by result.",
}, []string{"result"})

var Callbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "payment_callbacks_total",
	Help: "Provider callbacks by endpoint and resulting status.",
}, []string{"endpoint", "status"})

var OutcomesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "payment_outcome_events_total",
	Help: "Finalized outcome events sent to the broker by result.",
}, []string{"result"})
