package paymentgateway

import (
	"fmt"
	"net/url"
	"time"

	"github.com/alimikegami/ticket-booking/payment-callback-service/config"
	"github.com/alimikegami/ticket-booking/payment-callback-service/pkg/errs"
	"github.com/alimikegami/ticket-booking/payment-callback-service/pkg/utils"
	"github.com/shopspring/decimal"
)

const (
	apiVersion       = "2.1.0"
	commandPay       = "pay"
	currencyVND      = "VND"
	orderTypeOther   = "other"
	defaultLocale    = "vn"
	paymentLifetime  = 15 * time.Minute
	maxOrderInfoSize = 255
)

var (
	ErrInvalidPaymentAmount = fmt.Errorf("%w: payment amount must be a positive whole number of VND", errs.ErrClient)
	ErrInvalidOrderInfo     = fmt.Errorf("%w: order info must be between 1 and 255 characters", errs.ErrClient)
)

type Client struct {
	tmnCode    string
	paymentURL string
	returnURL  string
	verifier   *Verifier
	now        func() time.Time
}

type PaymentRequest struct {
	TxnRef    string
	Amount    decimal.Decimal
	OrderInfo string
	Locale    string
	BankCode  string
	IPAddr    string
}

func CreateVNPayClient(config *config.Config) *Client {
	return &Client{
		tmnCode:    config.VNPayConfig.TmnCode,
		paymentURL: config.VNPayConfig.PaymentURL,
		returnURL:  config.VNPayConfig.ReturnURL,
		verifier:   NewVerifier(config.VNPayConfig.HashSecret),
		now:        time.Now,
	}
}

func (c *Client) Verifier() *Verifier {
	return c.verifier
}

// CreatePaymentURL signs a payment request with the same canonical encoding the
// provider uses for its callbacks.
func (c *Client) CreatePaymentURL(req PaymentRequest) (string, error) {
	if !ValidTxnRef(req.TxnRef) {
		return "", ErrInvalidTxnRef
	}
	minor := req.Amount.Shift(2)
	if !req.Amount.IsPositive() || !req.Amount.IsInteger() {
		return "", ErrInvalidPaymentAmount
	}
	if req.OrderInfo == "" || len(req.OrderInfo) > maxOrderInfoSize {
		return "", ErrInvalidOrderInfo
	}

	locale := req.Locale
	if locale == "" {
		locale = defaultLocale
	}

	now := c.now()
	params := map[string]string{
		FieldVersion:    apiVersion,
		FieldCommand:    commandPay,
		FieldTmnCode:    c.tmnCode,
		FieldAmount:     minor.String(),
		FieldCurrCode:   currencyVND,
		FieldTxnRef:     req.TxnRef,
		FieldOrderInfo:  req.OrderInfo,
		FieldOrderType:  orderTypeOther,
		FieldLocale:     locale,
		FieldReturnURL:  c.returnURL,
		FieldIPAddr:     req.IPAddr,
		FieldCreateDate: utils.FormatProviderDateTime(now),
		FieldExpireDate: utils.FormatProviderDateTime(now.Add(paymentLifetime)),
		FieldBankCode:   req.BankCode,
	}

	base, err := url.Parse(c.paymentURL)
	if err != nil {
		return "", err
	}

	base.RawQuery = Canonicalize(params) + "&" + FieldSecureHash + "=" + c.verifier.Sign(params)

	return base.String(), nil
}
