package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

const EventPaymentTransactionFinalized = "payment_transaction_finalized"

type KafkaMessage struct {
	EventID   string      `json:"event_id"`
	EventType string      `json:"event_type"`
	Data      interface{} `json:"data"`
}

type PaymentTransactionFinalized struct {
	TxnRef      string           `json:"txn_ref"`
	Outcome     string           `json:"outcome"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	FirstSeenAt time.Time        `json:"first_seen_at"`
}
