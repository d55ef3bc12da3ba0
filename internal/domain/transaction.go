package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionOutcome string

const (
	OutcomePending          TransactionOutcome = "PENDING"
	OutcomeSuccess          TransactionOutcome = "SUCCESS"
	OutcomeFailed           TransactionOutcome = "FAILED"
	OutcomeInvalidSignature TransactionOutcome = "INVALID_SIGNATURE"
	OutcomeUnknown          TransactionOutcome = "UNKNOWN"
)

// IsTerminal reports whether the outcome may be recorded in the ledger.
// INVALID_SIGNATURE is terminal for the request but untrusted, so it is excluded.
func (o TransactionOutcome) IsTerminal() bool {
	return o == OutcomeSuccess || o == OutcomeFailed
}

// LedgerEntry is the single recorded outcome of a transaction reference. Once
// Finalized is set the Outcome is never rewritten.
type LedgerEntry struct {
	TxnRef      string              `db:"txn_ref"`
	Outcome     TransactionOutcome  `db:"outcome"`
	Amount      decimal.NullDecimal `db:"amount"`
	FirstSeenAt time.Time           `db:"first_seen_at"`
	Finalized   bool                `db:"finalized"`
	PublishedAt *time.Time          `db:"published_at"`
}

func (e LedgerEntry) Exists() bool {
	return e.TxnRef != ""
}
