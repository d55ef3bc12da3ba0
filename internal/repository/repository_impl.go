package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/domain"
	"github.com/alimikegami/ticket-booking/payment-callback-service/pkg/errs"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	txn_ref       VARCHAR(100) PRIMARY KEY,
	outcome       VARCHAR(32)  NOT NULL,
	amount        NUMERIC(20, 2),
	first_seen_at TIMESTAMPTZ  NOT NULL,
	finalized     BOOLEAN      NOT NULL DEFAULT TRUE,
	published_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS ledger_entries_unpublished_idx
	ON ledger_entries (first_seen_at) WHERE published_at IS NULL;
`

const (
	qLedgerGet = "SELECT txn_ref, outcome, amount, first_seen_at, finalized, published_at FROM ledger_entries WHERE txn_ref = $1"
	// ON CONFLICT DO NOTHING makes the insert the per-key compare-and-set: the
	// loser of a race gets no row back and reads the winner's entry.
	qLedgerInsertIfAbsent = "INSERT INTO ledger_entries(txn_ref, outcome, amount, first_seen_at, finalized) VALUES (:txn_ref, :outcome, :amount, :first_seen_at, :finalized) ON CONFLICT (txn_ref) DO NOTHING RETURNING txn_ref, outcome, amount, first_seen_at, finalized, published_at"
	qLedgerUnpublished    = "SELECT txn_ref, outcome, amount, first_seen_at, finalized, published_at FROM ledger_entries WHERE published_at IS NULL ORDER BY first_seen_at LIMIT $1"
	qLedgerMarkPublished  = "UPDATE ledger_entries SET published_at = $1 WHERE txn_ref = $2 AND published_at IS NULL"
)

type LedgerRepositoryImpl struct {
	db *sqlx.DB
}

func CreateLedgerRepository(db *sqlx.DB) *LedgerRepositoryImpl {
	return &LedgerRepositoryImpl{
		db: db,
	}
}

func (r *LedgerRepositoryImpl) EnsureSchema(ctx context.Context) (err error) {
	_, err = r.db.ExecContext(ctx, ledgerSchema)
	if err != nil {
		log.Error().Err(err).Str("component", "EnsureSchema").Msg("")
		return errors.Join(errs.ErrStorageUnavailable, err)
	}

	return nil
}

func (r *LedgerRepositoryImpl) GetLedgerEntryByTxnRef(ctx context.Context, txnRef string) (data domain.LedgerEntry, err error) {
	row := r.db.QueryRowxContext(ctx, qLedgerGet, txnRef)
	err = row.StructScan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LedgerEntry{}, nil
		}
		log.Error().Err(err).Str("component", "GetLedgerEntryByTxnRef").Str("txn_ref", txnRef).Msg("")
		return data, errors.Join(errs.ErrStorageUnavailable, err)
	}

	return
}

func (r *LedgerRepositoryImpl) InsertLedgerEntryIfAbsent(ctx context.Context, data domain.LedgerEntry) (stored domain.LedgerEntry, created bool, err error) {
	nstmt, err := r.db.PrepareNamedContext(ctx, qLedgerInsertIfAbsent)
	if err != nil {
		log.Error().Err(err).Str("component", "InsertLedgerEntryIfAbsent").Msg("")
		return stored, false, errors.Join(errs.ErrStorageUnavailable, err)
	}
	defer nstmt.Close()

	err = nstmt.GetContext(ctx, &stored, data)
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Error().Err(err).Str("component", "InsertLedgerEntryIfAbsent").Str("txn_ref", data.TxnRef).Msg("")
		return stored, false, errors.Join(errs.ErrStorageUnavailable, err)
	}

	stored, err = r.GetLedgerEntryByTxnRef(ctx, data.TxnRef)
	if err != nil {
		return stored, false, err
	}
	if !stored.Exists() {
		log.Error().Str("component", "InsertLedgerEntryIfAbsent").Str("txn_ref", data.TxnRef).Msg("conflicting row vanished")
		return stored, false, errs.ErrStorageUnavailable
	}

	return stored, false, nil
}

func (r *LedgerRepositoryImpl) GetUnpublishedLedgerEntries(ctx context.Context, limit int) (data []domain.LedgerEntry, err error) {
	err = r.db.SelectContext(ctx, &data, qLedgerUnpublished, limit)
	if err != nil {
		log.Error().Err(err).Str("component", "GetUnpublishedLedgerEntries").Msg("")
		return nil, errors.Join(errs.ErrStorageUnavailable, err)
	}

	return data, nil
}

func (r *LedgerRepositoryImpl) MarkLedgerEntryPublished(ctx context.Context, txnRef string, publishedAt time.Time) (err error) {
	_, err = r.db.ExecContext(ctx, qLedgerMarkPublished, publishedAt, txnRef)
	if err != nil {
		log.Error().Err(err).Str("component", "MarkLedgerEntryPublished").Str("txn_ref", txnRef).Msg("")
		return errors.Join(errs.ErrStorageUnavailable, err)
	}

	return nil
}

func (r *LedgerRepositoryImpl) Ping(ctx context.Context) (err error) {
	if err = r.db.PingContext(ctx); err != nil {
		return errors.Join(errs.ErrStorageUnavailable, err)
	}
	return nil
}
