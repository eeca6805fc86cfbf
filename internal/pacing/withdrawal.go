package pacing

import (
	"time"

	"github.com/shopspring/decimal"

	"KrakenDCA/internal/model"
)

// WithdrawalMode selects which condition moves accumulated coin off-exchange.
type WithdrawalMode int

const (
	WithdrawalDisabled WithdrawalMode = iota
	WithdrawalByDate
	WithdrawalByThreshold
)

func (m WithdrawalMode) String() string {
	switch m {
	case WithdrawalByDate:
		return "monthly"
	case WithdrawalByThreshold:
		return "threshold"
	default:
		return "disabled"
	}
}

// WithdrawalTrigger decides when to withdraw. Date and threshold modes are
// mutually exclusive.
type WithdrawalTrigger struct {
	Mode      WithdrawalMode
	Threshold decimal.Decimal
}

// NewWithdrawalTrigger derives the mode from configuration: no address key
// disables withdrawals, a positive threshold selects threshold mode, anything
// else withdraws monthly.
func NewWithdrawalTrigger(addressKey string, threshold decimal.Decimal) WithdrawalTrigger {
	switch {
	case addressKey == "":
		return WithdrawalTrigger{Mode: WithdrawalDisabled}
	case threshold.IsPositive():
		return WithdrawalTrigger{Mode: WithdrawalByThreshold, Threshold: threshold}
	default:
		return WithdrawalTrigger{Mode: WithdrawalByDate}
	}
}

// ShouldWithdraw reports whether accumulated coin should be withdrawn now. In
// date mode a positive answer advances the session's withdrawal deadline.
func (t WithdrawalTrigger) ShouldWithdraw(s *model.SessionState, now time.Time, accumulated decimal.Decimal) bool {
	switch t.Mode {
	case WithdrawalByDate:
		return DateTriggerFires(s, now)
	case WithdrawalByThreshold:
		return accumulated.GreaterThanOrEqual(t.Threshold)
	default:
		return false
	}
}

// DateTriggerFires returns true once the withdrawal deadline is reached and
// moves it to the first day of the following month.
func DateTriggerFires(s *model.SessionState, now time.Time) bool {
	if now.Before(s.WithdrawalDeadline) {
		return false
	}
	s.WithdrawalDeadline = FirstOfNextMonth(now)
	return true
}

// FirstOfNextMonth returns 00:00 on the first day of the month after now.
func FirstOfNextMonth(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, now.Location())
}
