package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionState is the scheduler's only mutable record. It lives in memory for
// the lifetime of the process and is rebuilt from live balances on restart.
type SessionState struct {
	// FiatObserved is false until the first balance read, standing in for a
	// last balance of negative infinity.
	FiatObserved    bool
	LastFiatBalance decimal.Decimal

	Buckets           map[AssetID]decimal.Decimal
	DepletionDeadline time.Time
	NextOrderTime     map[AssetID]time.Time

	WithdrawalDeadline time.Time

	ConsecutiveFailures int
	HasEverBought       bool
}

// NewSessionState returns the startup state for the given assets. Every
// asset's next order is due immediately.
func NewSessionState(assets []Asset, now, withdrawalDeadline time.Time) *SessionState {
	s := &SessionState{
		Buckets:            make(map[AssetID]decimal.Decimal, len(assets)),
		NextOrderTime:      make(map[AssetID]time.Time, len(assets)),
		DepletionDeadline:  now,
		WithdrawalDeadline: withdrawalDeadline,
	}
	for _, a := range assets {
		s.Buckets[a.ID] = decimal.Zero
		s.NextOrderTime[a.ID] = now
	}
	return s
}
