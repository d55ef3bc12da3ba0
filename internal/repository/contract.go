package repository

import (
	"context"
	"time"

	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/domain"
)

// LedgerRepository stores one entry per transaction reference.
// InsertLedgerEntryIfAbsent must be an atomic conditional write: when an entry
// already exists it returns that entry with created=false and writes nothing.
// GetLedgerEntryByTxnRef returns a zero entry and a nil error when nothing is stored.
type LedgerRepository interface {
	GetLedgerEntryByTxnRef(ctx context.Context, txnRef string) (data domain.LedgerEntry, err error)
	InsertLedgerEntryIfAbsent(ctx context.Context, data domain.LedgerEntry) (stored domain.LedgerEntry, created bool, err error)
	GetUnpublishedLedgerEntries(ctx context.Context, limit int) (data []domain.LedgerEntry, err error)
	MarkLedgerEntryPublished(ctx context.Context, txnRef string, publishedAt time.Time) (err error)
	Ping(ctx context.Context) (err error)
}
