package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderResult is the exchange's answer to a market buy.
type OrderResult struct {
	Success           bool
	FilledDescription string
}

// WithdrawalResult is the exchange's answer to a withdrawal request.
type WithdrawalResult struct {
	Success     bool
	ReferenceID string
}

// AssetStatus is the per-asset part of a status snapshot.
type AssetStatus struct {
	Asset         Asset
	Price         decimal.Decimal
	Holdings      decimal.Decimal
	Bucket        decimal.Decimal
	NextOrderTime time.Time
	Bought        bool
	Description   string
	Err           error
}

// StatusSnapshot summarises one cycle for logging, notifications and commands.
type StatusSnapshot struct {
	CycleID         string
	At              time.Time
	Currency        string
	Fiat            decimal.Decimal
	DepositDetected bool
	EmptyFiatAt     time.Time
	Assets          []AssetStatus
	Withdrawal      *WithdrawalResult
}

// BuyExecuted reports whether any asset was bought in the cycle.
func (s *StatusSnapshot) BuyExecuted() bool {
	for _, a := range s.Assets {
		if a.Bought {
			return true
		}
	}
	return false
}
