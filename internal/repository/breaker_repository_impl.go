package repository

import (
	"context"
	"errors"
	"time"

	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/domain"
	"github.com/alimikegami/ticket-booking/payment-callback-service/pkg/errs"
	"github.com/sony/gobreaker/v2"
)

// LedgerRepositoryWithBreaker fails fast with ErrStorageUnavailable while the
// store is considered down instead of letting every callback wait for its timeout.
type LedgerRepositoryWithBreaker struct {
	next LedgerRepository
	cb   *gobreaker.CircuitBreaker[any]
}

type insertResult struct {
	stored  domain.LedgerEntry
	created bool
}

func CreateLedgerRepositoryWithBreaker(next LedgerRepository, cb *gobreaker.CircuitBreaker[any]) *LedgerRepositoryWithBreaker {
	return &LedgerRepositoryWithBreaker{
		next: next,
		cb:   cb,
	}
}

func execute[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	var zero T

	res, err := cb.Execute(func() (any, error) {
		v, err := fn()
		return v, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, errors.Join(errs.ErrStorageUnavailable, err)
		}
		return zero, err
	}

	v, ok := res.(T)
	if !ok {
		return zero, errs.ErrInternalServer
	}
	return v, nil
}

func (r *LedgerRepositoryWithBreaker) GetLedgerEntryByTxnRef(ctx context.Context, txnRef string) (domain.LedgerEntry, error) {
	return execute(r.cb, func() (domain.LedgerEntry, error) {
		return r.next.GetLedgerEntryByTxnRef(ctx, txnRef)
	})
}

func (r *LedgerRepositoryWithBreaker) InsertLedgerEntryIfAbsent(ctx context.Context, data domain.LedgerEntry) (domain.LedgerEntry, bool, error) {
	res, err := execute(r.cb, func() (insertResult, error) {
		stored, created, err := r.next.InsertLedgerEntryIfAbsent(ctx, data)
		return insertResult{stored: stored, created: created}, err
	})
	return res.stored, res.created, err
}

func (r *LedgerRepositoryWithBreaker) GetUnpublishedLedgerEntries(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	return execute(r.cb, func() ([]domain.LedgerEntry, error) {
		return r.next.GetUnpublishedLedgerEntries(ctx, limit)
	})
}

func (r *LedgerRepositoryWithBreaker) MarkLedgerEntryPublished(ctx context.Context, txnRef string, publishedAt time.Time) error {
	_, err := execute(r.cb, func() (struct{}, error) {
		return struct{}{}, r.next.MarkLedgerEntryPublished(ctx, txnRef, publishedAt)
	})
	return err
}

func (r *LedgerRepositoryWithBreaker) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}
