package recorder

import (
	"time"

	"github.com/shopspring/decimal"

	"KrakenDCA/internal/model"
)

// DepositEvent records a detected fiat deposit and the resulting allocation.
type DepositEvent struct {
	CycleID  string
	At       time.Time
	Currency string
	Fiat     decimal.Decimal
	Buckets  map[model.AssetID]decimal.Decimal
	Deadline time.Time
}

// BuyEvent records one executed market buy.
type BuyEvent struct {
	CycleID       string
	At            time.Time
	Asset         model.AssetID
	Size          decimal.Decimal
	Price         decimal.Decimal
	FiatSpent     decimal.Decimal
	BucketAfter   decimal.Decimal
	NextOrderTime time.Time
	Description   string
}

// WithdrawalEvent records a withdrawal attempt.
type WithdrawalEvent struct {
	CycleID     string
	At          time.Time
	Asset       model.AssetID
	AddressKey  string
	Amount      decimal.Decimal
	Success     bool
	ReferenceID string
	Error       string
}

// Recorder journals trading activity. The journal is write-only: the
// scheduler never reads it back.
type Recorder interface {
	RecordDeposit(evt *DepositEvent) error
	RecordBuy(evt *BuyEvent) error
	RecordWithdrawal(evt *WithdrawalEvent) error
	Close() error
}
