package service

import (
	"context"
	"errors"
	"net/url"

	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/domain"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/dto"
	paymentgateway "github.com/alimikegami/ticket-booking/payment-callback-service/internal/infrastructure/payment-gateway"
	"github.com/alimikegami/ticket-booking/payment-callback-service/pkg/errs"
	"github.com/alimikegami/ticket-booking/payment-callback-service/pkg/utils"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

type CallbackServiceImpl struct {
	ledger  LedgerService
	gateway *paymentgateway.Client
}

func CreateCallbackService(ledger LedgerService, gateway *paymentgateway.Client) CallbackService {
	return &CallbackServiceImpl{
		ledger:  ledger,
		gateway: gateway,
	}
}

// ProcessCallback runs parse, verify, map and commit for one provider callback.
// The result is always filled with a redirect-safe status; err carries the
// failure class (malformed request, signature mismatch or storage) for callers
// that answer the provider instead of the browser.
func (s *CallbackServiceImpl) ProcessCallback(ctx context.Context, query url.Values) (res dto.CallbackResult, err error) {
	ctx, span := tracer.Start(ctx, "CallbackService.ProcessCallback")
	defer span.End()

	params, err := paymentgateway.ParseCallbackParameters(query)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("component", "ProcessCallback").Str("txn_ref", params.TxnRef).Msg("rejected callback")
		return dto.CallbackResult{TxnRef: params.TxnRef, Status: dto.StatusInvalidRequest}, err
	}
	span.SetAttributes(attribute.String("txn_ref", params.TxnRef))

	verified, err := s.gateway.Verifier().Verify(params)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("component", "ProcessCallback").Str("txn_ref", params.TxnRef).Msg("rejected callback")
		return dto.CallbackResult{TxnRef: params.TxnRef, Status: dto.StatusInvalidRequest}, err
	}
	if !verified.SignatureValid {
		log.Ctx(ctx).Warn().Str("component", "ProcessCallback").Str("txn_ref", params.TxnRef).Msg("signature mismatch")
		return dto.CallbackResult{TxnRef: params.TxnRef, Status: dto.StatusInvalidSignature}, errs.ErrSignatureMismatch
	}

	outcome := paymentgateway.MapStatus(params.ResponseCode, params.TransactionStatus)
	span.SetAttributes(attribute.String("outcome", string(outcome)))

	if !outcome.IsTerminal() {
		return s.nonTerminal(ctx, params, outcome)
	}

	commit, err := s.ledger.Commit(ctx, params.TxnRef, outcome, params.Amount)
	if err != nil {
		return dto.CallbackResult{TxnRef: params.TxnRef, Status: dto.StatusError}, err
	}

	res = dto.CallbackResult{
		TxnRef:   commit.Entry.TxnRef,
		Status:   string(commit.Entry.Outcome),
		Created:  commit.Created,
		Conflict: commit.Conflict,
	}
	if commit.Entry.Amount.Valid {
		amount := commit.Entry.Amount.Decimal
		res.Amount = &amount
	}

	event := log.Ctx(ctx).Info()
	if paidAt, err := utils.ParseProviderDateTime(params.Raw[paymentgateway.FieldPayDate]); err == nil {
		event = event.Time("paid_at", paidAt)
	}
	event.
		Str("component", "ProcessCallback").
		Str("txn_ref", res.TxnRef).
		Str("status", res.Status).
		Str("response_code", params.ResponseCode).
		Str("response_description", paymentgateway.DescribeResponseCode(params.ResponseCode)).
		Bool("created", res.Created).
		Msg("callback processed")

	return res, nil
}

// nonTerminal reports an outcome that is not recorded. If an earlier delivery
// already finalized the reference, the stored outcome is reported instead. A
// store failure is reported as an error so the provider retries.
func (s *CallbackServiceImpl) nonTerminal(ctx context.Context, params paymentgateway.CallbackParameters, outcome domain.TransactionOutcome) (dto.CallbackResult, error) {
	res := dto.CallbackResult{TxnRef: params.TxnRef, Status: string(outcome), Amount: params.Amount}

	stored, err := s.ledger.Get(ctx, params.TxnRef)
	switch {
	case err == nil:
		res.Status = stored.Outcome
		res.Amount = stored.Amount
	case errors.Is(err, errs.ErrPaymentNotFound):
	default:
		log.Ctx(ctx).Error().Err(err).Str("component", "ProcessCallback").Str("txn_ref", params.TxnRef).Msg("")
		return dto.CallbackResult{TxnRef: params.TxnRef, Status: dto.StatusError}, err
	}

	return res, nil
}

func (s *CallbackServiceImpl) CreatePaymentURL(ctx context.Context, req dto.PaymentURLRequest) (res dto.PaymentURLResponse, err error) {
	_, span := tracer.Start(ctx, "CallbackService.CreatePaymentURL")
	defer span.End()

	paymentURL, err := s.gateway.CreatePaymentURL(paymentgateway.PaymentRequest{
		TxnRef:    req.TxnRef,
		Amount:    req.Amount,
		OrderInfo: req.OrderInfo,
		Locale:    req.Locale,
		BankCode:  req.BankCode,
		IPAddr:    req.IPAddr,
	})
	if err != nil {
		log.Error().Err(err).Str("component", "CreatePaymentURL").Msg("")
		return res, err
	}

	return dto.PaymentURLResponse{TxnRef: req.TxnRef, PaymentURL: paymentURL}, nil
}
