package paymentgateway

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/alimikegami/ticket-booking/payment-callback-service/pkg/errs"
	"github.com/shopspring/decimal"
)

const (
	FieldVersion           = "vnp_Version"
	FieldCommand           = "vnp_Command"
	FieldTmnCode           = "vnp_TmnCode"
	FieldAmount            = "vnp_Amount"
	FieldCurrCode          = "vnp_CurrCode"
	FieldTxnRef            = "vnp_TxnRef"
	FieldOrderInfo         = "vnp_OrderInfo"
	FieldOrderType         = "vnp_OrderType"
	FieldLocale            = "vnp_Locale"
	FieldReturnURL         = "vnp_ReturnUrl"
	FieldIPAddr            = "vnp_IpAddr"
	FieldCreateDate        = "vnp_CreateDate"
	FieldExpireDate        = "vnp_ExpireDate"
	FieldBankCode          = "vnp_BankCode"
	FieldResponseCode      = "vnp_ResponseCode"
	FieldTransactionStatus = "vnp_TransactionStatus"
	FieldTransactionNo     = "vnp_TransactionNo"
	FieldPayDate           = "vnp_PayDate"
	FieldSecureHash        = "vnp_SecureHash"
	FieldSecureHashType    = "vnp_SecureHashType"
)

// signatureFields never take part in the signed base string.
var signatureFields = []string{FieldSecureHash, FieldSecureHashType}

var txnRefPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,100}$`)

var (
	ErrDuplicateParameter = fmt.Errorf("%w: parameter supplied more than once", errs.ErrMalformedRequest)
	ErrMissingTxnRef      = fmt.Errorf("%w: %s is required", errs.ErrMalformedRequest, FieldTxnRef)
	ErrInvalidTxnRef      = fmt.Errorf("%w: %s has an invalid format", errs.ErrMalformedRequest, FieldTxnRef)
	ErrInvalidAmount      = fmt.Errorf("%w: %s must be a non-negative integer", errs.ErrMalformedRequest, FieldAmount)
	ErrMissingSignature   = fmt.Errorf("%w: %s is required", errs.ErrMalformedRequest, FieldSecureHash)
	ErrMalformedSignature = fmt.Errorf("%w: %s is not hex encoded", errs.ErrMalformedRequest, FieldSecureHash)
)

// CallbackParameters is the typed view of one provider callback. Raw keeps every
// received field because the signature covers fields this service never reads.
type CallbackParameters struct {
	TxnRef            string
	ResponseCode      string
	TransactionStatus string
	Amount            *decimal.Decimal
	SecureHash        string
	Raw               map[string]string
}

// ParseCallbackParameters validates the query string at the boundary. A key
// repeated with several values is rejected since the provider signed exactly
// one value per key.
func ParseCallbackParameters(values url.Values) (CallbackParameters, error) {
	params := CallbackParameters{Raw: make(map[string]string, len(values))}

	for key, vals := range values {
		if len(vals) > 1 {
			return params, fmt.Errorf("%w: %s", ErrDuplicateParameter, key)
		}
		if len(vals) == 1 {
			params.Raw[key] = vals[0]
		}
	}

	params.TxnRef = params.Raw[FieldTxnRef]
	params.ResponseCode = params.Raw[FieldResponseCode]
	params.TransactionStatus = params.Raw[FieldTransactionStatus]
	params.SecureHash = params.Raw[FieldSecureHash]

	if params.TxnRef == "" {
		return params, ErrMissingTxnRef
	}
	if !ValidTxnRef(params.TxnRef) {
		params.TxnRef = ""
		return params, ErrInvalidTxnRef
	}

	if raw, ok := params.Raw[FieldAmount]; ok && raw != "" {
		amount, err := parseMinorUnits(raw)
		if err != nil {
			return params, err
		}
		params.Amount = &amount
	}

	return params, nil
}

// ValidTxnRef reports whether ref is safe to echo back to the browser.
func ValidTxnRef(ref string) bool {
	return txnRefPattern.MatchString(ref)
}

// parseMinorUnits converts the provider's amount, sent multiplied by 100.
func parseMinorUnits(raw string) (decimal.Decimal, error) {
	for _, r := range raw {
		if r < '0' || r > '9' {
			return decimal.Decimal{}, ErrInvalidAmount
		}
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return amount.Shift(-2), nil
}
