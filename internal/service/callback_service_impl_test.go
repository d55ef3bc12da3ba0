package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/alimikegami/ticket-booking/payment-callback-service/config"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/domain"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/dto"
	paymentgateway "github.com/alimikegami/ticket-booking/payment-callback-service/internal/infrastructure/payment-gateway"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/repository"
	"github.com/alimikegami/ticket-booking/payment-callback-service/pkg/errs"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const callbackSecret = "SECRETKEY0123456789ABCDEFGHIJKLM"

func newGateway() *paymentgateway.Client {
	return paymentgateway.CreateVNPayClient(&config.Config{
		VNPayConfig: config.VNPayConfig{
			TmnCode:    "DEMO0001",
			HashSecret: callbackSecret,
			PaymentURL: "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
			ReturnURL:  "http://localhost:8080/api/v1/payments/vnpay/return",
		},
	})
}

func callbackFields(responseCode, transactionStatus string) map[string]string {
	return map[string]string{
		"vnp_TxnRef":            "abc123",
		"vnp_Amount":            "15000000",
		"vnp_ResponseCode":      responseCode,
		"vnp_TransactionStatus": transactionStatus,
		"vnp_TmnCode":           "DEMO0001",
		"vnp_TransactionNo":     "14226112",
		"vnp_OrderInfo":         "Thanh toan ve xem phim",
		"vnp_PayDate":           "20240315103512",
	}
}

func signedQuery(gateway *paymentgateway.Client, fields map[string]string) url.Values {
	v := url.Values{}
	for k, val := range fields {
		v.Set(k, val)
	}
	v.Set("vnp_SecureHash", gateway.Verifier().Sign(fields))
	return v
}

func newCallbackService(repo repository.LedgerRepository) (CallbackService, *paymentgateway.Client) {
	gateway := newGateway()
	ledger := newLedgerService(repo, nil, time.Second)
	return CreateCallbackService(ledger, gateway), gateway
}

func TestCallbackService_ProcessCallback(t *testing.T) {
	gateway := newGateway()

	var tests = []struct {
		name           string
		query          func() url.Values
		expectedTxnRef string
		expectedStatus string
		expectedErr    error
		expectedStored domain.TransactionOutcome
	}{
		{
			name:           "successful payment",
			query:          func() url.Values { return signedQuery(gateway, callbackFields("00", "00")) },
			expectedTxnRef: "abc123",
			expectedStatus: "SUCCESS",
			expectedStored: domain.OutcomeSuccess,
		},
		{
			name:           "cancelled payment",
			query:          func() url.Values { return signedQuery(gateway, callbackFields("24", "02")) },
			expectedTxnRef: "abc123",
			expectedStatus: "FAILED",
			expectedStored: domain.OutcomeFailed,
		},
		{
			name: "tampered response code",
			query: func() url.Values {
				v := signedQuery(gateway, callbackFields("24", "02"))
				v.Set("vnp_ResponseCode", "00")
				v.Set("vnp_TransactionStatus", "00")
				return v
			},
			expectedTxnRef: "abc123",
			expectedStatus: dto.StatusInvalidSignature,
			expectedErr:    errs.ErrSignatureMismatch,
		},
		{
			name: "signature missing",
			query: func() url.Values {
				v := signedQuery(gateway, callbackFields("00", "00"))
				v.Del("vnp_SecureHash")
				return v
			},
			expectedTxnRef: "abc123",
			expectedStatus: dto.StatusInvalidRequest,
			expectedErr:    errs.ErrMalformedRequest,
		},
		{
			name: "txn ref not safe to echo",
			query: func() url.Values {
				fields := callbackFields("00", "00")
				fields["vnp_TxnRef"] = "<b>abc</b>"
				return signedQuery(gateway, fields)
			},
			expectedStatus: dto.StatusInvalidRequest,
			expectedErr:    errs.ErrMalformedRequest,
		},
		{
			name:           "undocumented status codes",
			query:          func() url.Values { return signedQuery(gateway, callbackFields("ab", "00")) },
			expectedTxnRef: "abc123",
			expectedStatus: "UNKNOWN",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.CreateInMemoryLedgerRepository()
			svc := CreateCallbackService(newLedgerService(repo, nil, time.Second), gateway)

			res, err := svc.ProcessCallback(context.Background(), tt.query())
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.expectedTxnRef, res.TxnRef)
			require.Equal(t, tt.expectedStatus, res.Status)

			stored, err := repo.GetLedgerEntryByTxnRef(context.Background(), "abc123")
			require.NoError(t, err)
			if tt.expectedStored == "" {
				require.False(t, stored.Exists())
				return
			}
			require.Equal(t, tt.expectedStored, stored.Outcome)
			require.True(t, stored.Amount.Decimal.Equal(decimal.NewFromInt(150000)))
		})
	}
}

func TestCallbackService_ProcessCallback_Replay(t *testing.T) {
	repo := repository.CreateInMemoryLedgerRepository()
	svc, gateway := newCallbackService(repo)
	query := signedQuery(gateway, callbackFields("00", "00"))

	first, err := svc.ProcessCallback(context.Background(), query)
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := svc.ProcessCallback(context.Background(), query)
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, "SUCCESS", second.Status)
	require.Equal(t, "150000", second.Amount.String())

	late, err := svc.ProcessCallback(context.Background(), signedQuery(gateway, callbackFields("24", "02")))
	require.NoError(t, err)
	require.True(t, late.Conflict)
	require.Equal(t, "SUCCESS", late.Status)

	unknown, err := svc.ProcessCallback(context.Background(), signedQuery(gateway, callbackFields("ab", "cd")))
	require.NoError(t, err)
	require.Equal(t, "SUCCESS", unknown.Status)

	require.Equal(t, 1, repo.Inserts())
}

func TestCallbackService_ProcessCallback_StorageUnavailable(t *testing.T) {
	repo := new(repository.LedgerRepositoryMock)
	repo.On("GetLedgerEntryByTxnRef", mock.Anything, "abc123").Return(domain.LedgerEntry{}, errors.New("too many connections"))

	svc, gateway := newCallbackService(repo)

	res, err := svc.ProcessCallback(context.Background(), signedQuery(gateway, callbackFields("00", "00")))
	require.ErrorIs(t, err, errs.ErrStorageUnavailable)
	require.Equal(t, dto.StatusError, res.Status)
	require.Nil(t, res.Amount)
}

func TestCallbackService_ProcessCallback_StorageUnavailableOnUnknownOutcome(t *testing.T) {
	repo := new(repository.LedgerRepositoryMock)
	repo.On("GetLedgerEntryByTxnRef", mock.Anything, "abc123").Return(domain.LedgerEntry{}, errors.New("too many connections"))

	svc, gateway := newCallbackService(repo)

	res, err := svc.ProcessCallback(context.Background(), signedQuery(gateway, callbackFields("ab", "cd")))
	require.ErrorIs(t, err, errs.ErrStorageUnavailable)
	require.Equal(t, "abc123", res.TxnRef)
	require.Equal(t, dto.StatusError, res.Status)
	require.Nil(t, res.Amount)
	repo.AssertNotCalled(t, "InsertLedgerEntryIfAbsent", mock.Anything, mock.Anything)
}

func TestCallbackService_CreatePaymentURL(t *testing.T) {
	svc, gateway := newCallbackService(repository.CreateInMemoryLedgerRepository())

	res, err := svc.CreatePaymentURL(context.Background(), dto.PaymentURLRequest{
		TxnRef:    "abc123",
		Amount:    decimal.NewFromInt(150000),
		OrderInfo: "Thanh toan ve xem phim",
		IPAddr:    "127.0.0.1",
	})
	require.NoError(t, err)
	require.Equal(t, "abc123", res.TxnRef)

	u, err := url.Parse(res.PaymentURL)
	require.NoError(t, err)
	params, err := paymentgateway.ParseCallbackParameters(u.Query())
	require.NoError(t, err)
	verified, err := gateway.Verifier().Verify(params)
	require.NoError(t, err)
	require.True(t, verified.SignatureValid)

	_, err = svc.CreatePaymentURL(context.Background(), dto.PaymentURLRequest{TxnRef: "abc123", OrderInfo: "x"})
	require.ErrorIs(t, err, errs.ErrClient)
}
