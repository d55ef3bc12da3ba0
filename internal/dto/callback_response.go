package dto

import "github.com/shopspring/decimal"

// Statuses handed to the frontend. The first two mirror ledger outcomes.
const (
	StatusSuccess          = "SUCCESS"
	StatusFailed           = "FAILED"
	StatusInvalidSignature = "invalid_signature"
	StatusInvalidRequest   = "invalid_request"
	StatusError            = "error"
)

// CallbackResult carries only values that are safe to hand back to the browser.
type CallbackResult struct {
	TxnRef   string
	Status   string
	Amount   *decimal.Decimal
	Created  bool
	Conflict bool
}

// IPN acknowledgement codes understood by the provider.
const (
	IPNConfirmed        = "00"
	IPNAlreadyConfirmed = "02"
	IPNInvalidChecksum  = "97"
	IPNUnknownError     = "99"
)

type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}
