package service

import (
	"context"
	"errors"
	"time"

	"github.com/alimikegami/ticket-booking/payment-callback-service/config"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/domain"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/dto"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/infrastructure/metrics"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/repository"
	"github.com/alimikegami/ticket-booking/payment-callback-service/pkg/errs"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const outboxBatchSize = 100

var tracer = otel.Tracer("payment-callback-service/service")

type LedgerServiceImpl struct {
	repository   repository.LedgerRepository
	publisher    OutcomePublisher
	storeTimeout time.Duration
	now          func() time.Time
}

// CreateLedgerService accepts a nil publisher, in which case entries stay in
// the outbox until a broker is configured.
func CreateLedgerService(repository repository.LedgerRepository, publisher OutcomePublisher, config *config.Config) LedgerService {
	return &LedgerServiceImpl{
		repository:   repository,
		publisher:    publisher,
		storeTimeout: config.LedgerConfig.StoreTimeout,
		now:          time.Now,
	}
}

func (s *LedgerServiceImpl) Commit(ctx context.Context, txnRef string, outcome domain.TransactionOutcome, amount *decimal.Decimal) (res CommitResult, err error) {
	if !outcome.IsTerminal() {
		return res, errs.ErrNonTerminalOutcome
	}

	ctx, span := tracer.Start(ctx, "LedgerService.Commit")
	defer span.End()
	span.SetAttributes(attribute.String("txn_ref", txnRef), attribute.String("outcome", string(outcome)))

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	existing, err := s.repository.GetLedgerEntryByTxnRef(storeCtx, txnRef)
	if err != nil {
		metrics.LedgerCommits.WithLabelValues(metrics.CommitError).Inc()
		return res, s.storageFailure(span, txnRef, err)
	}
	if existing.Exists() {
		return s.compare(existing, outcome, amount), nil
	}

	entry := domain.LedgerEntry{
		TxnRef:      txnRef,
		Outcome:     outcome,
		FirstSeenAt: s.now().UTC(),
		Finalized:   true,
	}
	if amount != nil {
		entry.Amount = decimal.NewNullDecimal(*amount)
	}

	stored, created, err := s.repository.InsertLedgerEntryIfAbsent(storeCtx, entry)
	if err != nil {
		metrics.LedgerCommits.WithLabelValues(metrics.CommitError).Inc()
		return res, s.storageFailure(span, txnRef, err)
	}
	if !created {
		// another delivery of the same reference won the insert
		return s.compare(stored, outcome, amount), nil
	}

	metrics.LedgerCommits.WithLabelValues(metrics.CommitCreated).Inc()
	log.Info().Str("component", "Commit").Str("txn_ref", txnRef).Str("outcome", string(outcome)).Msg("ledger entry finalized")

	s.publish(ctx, stored)

	return CommitResult{Entry: stored, Created: true}, nil
}

func (s *LedgerServiceImpl) Get(ctx context.Context, txnRef string) (res dto.LedgerEntryResponse, err error) {
	ctx, span := tracer.Start(ctx, "LedgerService.Get")
	defer span.End()

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	entry, err := s.repository.GetLedgerEntryByTxnRef(storeCtx, txnRef)
	if err != nil {
		return res, s.storageFailure(span, txnRef, err)
	}
	if !entry.Exists() {
		return res, errs.ErrPaymentNotFound
	}

	return toLedgerEntryResponse(entry), nil
}

// RepublishPendingOutcomes sends every entry whose event has not been
// acknowledged by the broker yet. It runs on the scheduler.
func (s *LedgerServiceImpl) RepublishPendingOutcomes() {
	if s.publisher == nil {
		return
	}

	ctx, span := tracer.Start(context.Background(), "LedgerService.RepublishPendingOutcomes")
	defer span.End()

	storeCtx, cancel := s.storeContext(ctx)
	entries, err := s.repository.GetUnpublishedLedgerEntries(storeCtx, outboxBatchSize)
	cancel()
	if err != nil {
		log.Error().Err(err).Str("component", "RepublishPendingOutcomes").Msg("")
		return
	}

	for _, entry := range entries {
		s.publish(ctx, entry)
	}
}

func (s *LedgerServiceImpl) publish(ctx context.Context, entry domain.LedgerEntry) {
	if s.publisher == nil {
		return
	}

	// the outcome is already durable, so the caller's cancellation must not cut the publish short
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()

	if err := s.publisher.PublishOutcome(ctx, entry); err != nil {
		metrics.OutcomesPublished.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("component", "publish").Str("txn_ref", entry.TxnRef).Msg("left in outbox")
		return
	}
	metrics.OutcomesPublished.WithLabelValues("sent").Inc()

	if err := s.repository.MarkLedgerEntryPublished(ctx, entry.TxnRef, s.now().UTC()); err != nil {
		log.Error().Err(err).Str("component", "publish").Str("txn_ref", entry.TxnRef).Msg("")
	}
}

func (s *LedgerServiceImpl) compare(existing domain.LedgerEntry, outcome domain.TransactionOutcome, amount *decimal.Decimal) CommitResult {
	res := CommitResult{Entry: existing}

	if existing.Outcome != outcome {
		res.Conflict = true
		metrics.LedgerCommits.WithLabelValues(metrics.CommitConflict).Inc()
		log.Warn().Err(errs.ErrLedgerConflict).
			Str("component", "Commit").
			Str("txn_ref", existing.TxnRef).
			Str("stored_outcome", string(existing.Outcome)).
			Str("incoming_outcome", string(outcome)).
			Msg("keeping first recorded outcome")
		return res
	}

	metrics.LedgerCommits.WithLabelValues(metrics.CommitDuplicate).Inc()
	if amount != nil && existing.Amount.Valid && !existing.Amount.Decimal.Equal(*amount) {
		log.Warn().
			Str("component", "Commit").
			Str("txn_ref", existing.TxnRef).
			Str("stored_amount", existing.Amount.Decimal.String()).
			Str("incoming_amount", amount.String()).
			Msg("duplicate delivery with a different amount")
	}

	return res
}

func (s *LedgerServiceImpl) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *LedgerServiceImpl) storageFailure(span trace.Span, txnRef string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "ledger store unavailable")
	log.Error().Err(err).Str("component", "LedgerService").Str("txn_ref", txnRef).Msg("")

	if errors.Is(err, errs.ErrStorageUnavailable) {
		return err
	}
	return errors.Join(errs.ErrStorageUnavailable, err)
}

func toLedgerEntryResponse(entry domain.LedgerEntry) dto.LedgerEntryResponse {
	res := dto.LedgerEntryResponse{
		TxnRef:      entry.TxnRef,
		Outcome:     string(entry.Outcome),
		FirstSeenAt: entry.FirstSeenAt,
		Finalized:   entry.Finalized,
		PublishedAt: entry.PublishedAt,
	}
	if entry.Amount.Valid {
		amount := entry.Amount.Decimal
		res.Amount = &amount
	}
	return res
}
