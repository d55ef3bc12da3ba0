package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alimikegami/ticket-booking/payment-callback-service/config"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/dto"
	localmiddleware "github.com/alimikegami/ticket-booking/payment-callback-service/internal/middleware"
	paymentgateway "github.com/alimikegami/ticket-booking/payment-callback-service/internal/infrastructure/payment-gateway"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/repository"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/service"
	"github.com/alimikegami/ticket-booking/payment-callback-service/pkg/utils"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testResultURL = "https://tickets.example.com/payment-result"
	testJWTSecret = "jwt-secret"
)

type testServer struct {
	echo    *echo.Echo
	repo    *repository.InMemoryLedgerRepository
	gateway *paymentgateway.Client
}

func newTestServer(resultURL string) *testServer {
	conf := &config.Config{
		LedgerConfig: config.LedgerConfig{StoreTimeout: time.Second},
		VNPayConfig: config.VNPayConfig{
			TmnCode:    "DEMO0001",
			HashSecret: "SECRETKEY0123456789ABCDEFGHIJKLM",
			PaymentURL: "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
			ReturnURL:  "http://localhost:8080/api/v1/payments/vnpay/return",
		},
		FrontendConfig: config.FrontendConfig{ResultURL: resultURL},
		JWTSecret:      testJWTSecret,
	}

	repo := repository.CreateInMemoryLedgerRepository()
	gateway := paymentgateway.CreateVNPayClient(conf)
	ledgerSvc := service.CreateLedgerService(repo, nil, conf)
	callbackSvc := service.CreateCallbackService(ledgerSvc, gateway)

	e := echo.New()
	g := e.Group("/api/v1")
	CreatePaymentController(g, callbackSvc, ledgerSvc, conf.FrontendConfig.ResultURL, localmiddleware.ServiceAuth(conf.JWTSecret))

	return &testServer{echo: e, repo: repo, gateway: gateway}
}

func (s *testServer) signedQuery(responseCode, transactionStatus string) url.Values {
	fields := map[string]string{
		"vnp_TxnRef":            "abc123",
		"vnp_Amount":            "15000000",
		"vnp_ResponseCode":      responseCode,
		"vnp_TransactionStatus": transactionStatus,
		"vnp_TmnCode":           "DEMO0001",
		"vnp_TransactionNo":     "14226112",
		"vnp_OrderInfo":         "Thanh toan ve xem phim",
		"vnp_BankCode":          "NCB",
	}
	v := url.Values{}
	for k, val := range fields {
		v.Set(k, val)
	}
	v.Set("vnp_SecureHash", s.gateway.Verifier().Sign(fields))
	return v
}

func (s *testServer) get(target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) callReturn(rawQuery string) *httptest.ResponseRecorder {
	return s.get("/api/v1/payments/vnpay/return?"+rawQuery, nil)
}

func flipLastHexDigit(sig string) string {
	last := sig[len(sig)-1]
	flipped := byte('0')
	if last == '0' {
		flipped = '1'
	}
	return sig[:len(sig)-1] + string(flipped)
}

func TestController_VNPayReturn(t *testing.T) {
	var tests = []struct {
		name             string
		query            func(s *testServer) string
		expectedLocation string
		expectStored     bool
	}{
		{
			name:             "successful payment",
			query:            func(s *testServer) string { return s.signedQuery("00", "00").Encode() },
			expectedLocation: testResultURL + "?txnRef=abc123&status=SUCCESS&amount=150000",
			expectStored:     true,
		},
		{
			name:             "user cancelled",
			query:            func(s *testServer) string { return s.signedQuery("24", "02").Encode() },
			expectedLocation: testResultURL + "?txnRef=abc123&status=FAILED&amount=150000",
			expectStored:     true,
		},
		{
			name: "tampered status",
			query: func(s *testServer) string {
				v := s.signedQuery("24", "02")
				v.Set("vnp_ResponseCode", "00")
				v.Set("vnp_TransactionStatus", "00")
				return v.Encode()
			},
			expectedLocation: testResultURL + "?txnRef=abc123&status=invalid_signature",
		},
		{
			name: "one signature digit flipped",
			query: func(s *testServer) string {
				v := s.signedQuery("00", "00")
				v.Set("vnp_SecureHash", flipLastHexDigit(v.Get("vnp_SecureHash")))
				return v.Encode()
			},
			expectedLocation: testResultURL + "?txnRef=abc123&status=invalid_signature",
		},
		{
			// a digest that is not hex is malformed input, not a mismatch
			name: "signature with non hex digit",
			query: func(s *testServer) string {
				v := s.signedQuery("00", "00")
				sig := v.Get("vnp_SecureHash")
				v.Set("vnp_SecureHash", sig[:len(sig)-1]+"z")
				return v.Encode()
			},
			expectedLocation: testResultURL + "?txnRef=abc123&status=invalid_request",
		},
		{
			name: "signature missing",
			query: func(s *testServer) string {
				v := s.signedQuery("00", "00")
				v.Del("vnp_SecureHash")
				return v.Encode()
			},
			expectedLocation: testResultURL + "?txnRef=abc123&status=invalid_request",
		},
		{
			name:             "undecodable query",
			query:            func(s *testServer) string { return "vnp_TxnRef=abc%zz" },
			expectedLocation: testResultURL + "?status=invalid_request",
		},
		{
			name:             "empty query",
			query:            func(s *testServer) string { return "" },
			expectedLocation: testResultURL + "?status=invalid_request",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(testResultURL)

			rec := s.callReturn(tt.query(s))

			require.Equal(t, http.StatusFound, rec.Code)
			location := rec.Header().Get(echo.HeaderLocation)
			require.Equal(t, tt.expectedLocation, location)
			require.NotContains(t, location, "vnp_")
			require.Equal(t, "no-store", rec.Header().Get(echo.HeaderCacheControl))
			require.Contains(t, rec.Body.String(), strings.ReplaceAll(location, "&", "&amp;"))
			if tt.expectStored {
				require.Equal(t, 1, s.repo.Len())
			} else {
				require.Zero(t, s.repo.Len())
			}
		})
	}
}

func TestController_VNPayReturn_Replay(t *testing.T) {
	s := newTestServer(testResultURL)
	query := s.signedQuery("00", "00").Encode()

	first := s.callReturn(query)
	second := s.callReturn(query)

	require.Equal(t, http.StatusFound, second.Code)
	require.Equal(t, first.Header().Get(echo.HeaderLocation), second.Header().Get(echo.HeaderLocation))
	require.Contains(t, second.Header().Get(echo.HeaderLocation), "txnRef=abc123&status=SUCCESS")
	require.Equal(t, 1, s.repo.Inserts())

	late := s.callReturn(s.signedQuery("24", "02").Encode())
	require.Contains(t, late.Header().Get(echo.HeaderLocation), "status=SUCCESS")
	require.Equal(t, 1, s.repo.Inserts())
}

func TestController_VNPayReturn_ResultURLWithQuery(t *testing.T) {
	s := newTestServer(testResultURL + "?lang=vi")

	rec := s.callReturn(s.signedQuery("00", "00").Encode())

	require.Equal(t, testResultURL+"?lang=vi&txnRef=abc123&status=SUCCESS&amount=150000", rec.Header().Get(echo.HeaderLocation))
}

func TestController_VNPayIPN(t *testing.T) {
	s := newTestServer(testResultURL)

	ipn := func(rawQuery string) dto.IPNResponse {
		rec := s.get("/api/v1/payments/vnpay/ipn?"+rawQuery, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp dto.IPNResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	tampered := s.signedQuery("00", "00")
	tampered.Set("vnp_Amount", "100")
	require.Equal(t, dto.IPNInvalidChecksum, ipn(tampered.Encode()).RspCode)

	require.Equal(t, dto.IPNUnknownError, ipn("vnp_TxnRef=abc123").RspCode)
	require.Equal(t, dto.IPNUnknownError, ipn(s.signedQuery("ab", "00").Encode()).RspCode)

	query := s.signedQuery("00", "00").Encode()
	require.Equal(t, dto.IPNConfirmed, ipn(query).RspCode)
	require.Equal(t, dto.IPNAlreadyConfirmed, ipn(query).RspCode)
	require.Equal(t, 1, s.repo.Inserts())
}

func TestController_GetLedgerEntry(t *testing.T) {
	s := newTestServer(testResultURL)
	s.callReturn(s.signedQuery("00", "00").Encode())

	token, err := utils.CreateServiceToken("booking-service", testJWTSecret, time.Hour)
	require.NoError(t, err)
	auth := http.Header{echo.HeaderAuthorization: {"Bearer " + token}}

	rec := s.get("/api/v1/ledger/abc123", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.get("/api/v1/ledger/abc123", http.Header{echo.HeaderAuthorization: {"Bearer garbage"}})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.get("/api/v1/ledger/missing", auth)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.get("/api/v1/ledger/abc123", auth)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string                  `json:"status"`
		Data   dto.LedgerEntryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "success", body.Status)
	require.Equal(t, "SUCCESS", body.Data.Outcome)
	require.True(t, decimal.NewFromInt(150000).Equal(*body.Data.Amount))
}

func TestController_CreatePaymentURL(t *testing.T) {
	s := newTestServer(testResultURL)

	token, err := utils.CreateServiceToken("booking-service", testJWTSecret, time.Hour)
	require.NoError(t, err)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/vnpay", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		s.echo.ServeHTTP(rec, req)
		return rec
	}

	rec := post(`{"txn_ref":"abc123","amount":150000,"order_info":"Thanh toan ve xem phim"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data dto.PaymentURLResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, strings.HasPrefix(body.Data.PaymentURL, "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html?"))
	require.Contains(t, body.Data.PaymentURL, "vnp_Amount=15000000")

	rec = post(`{"txn_ref":"abc123","amount":0,"order_info":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
