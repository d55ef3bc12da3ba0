package service

import (
	"context"
	"net/url"

	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/domain"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/dto"
	"github.com/shopspring/decimal"
)

// CommitResult reports what the ledger holds for a reference after a commit.
// Conflict is set when the stored outcome differs from the one being committed.
type CommitResult struct {
	Entry    domain.LedgerEntry
	Created  bool
	Conflict bool
}

type LedgerService interface {
	Commit(ctx context.Context, txnRef string, outcome domain.TransactionOutcome, amount *decimal.Decimal) (res CommitResult, err error)
	Get(ctx context.Context, txnRef string) (res dto.LedgerEntryResponse, err error)
	RepublishPendingOutcomes()
}

type CallbackService interface {
	ProcessCallback(ctx context.Context, query url.Values) (res dto.CallbackResult, err error)
	CreatePaymentURL(ctx context.Context, req dto.PaymentURLRequest) (res dto.PaymentURLResponse, err error)
}

type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, entry domain.LedgerEntry) error
}
