package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type LedgerEntryResponse struct {
	TxnRef      string           `json:"txn_ref"`
	Outcome     string           `json:"outcome"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	FirstSeenAt time.Time        `json:"first_seen_at"`
	Finalized   bool             `json:"finalized"`
	PublishedAt *time.Time       `json:"published_at,omitempty"`
}
