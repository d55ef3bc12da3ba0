package dto

import "github.com/shopspring/decimal"

type PaymentURLRequest struct {
	TxnRef    string          `json:"txn_ref"`
	Amount    decimal.Decimal `json:"amount"`
	OrderInfo string          `json:"order_info"`
	Locale    string          `json:"locale"`
	BankCode  string          `json:"bank_code"`
	IPAddr    string          `json:"-"`
}

type PaymentURLResponse struct {
	TxnRef     string `json:"txn_ref"`
	PaymentURL string `json:"payment_url"`
}
