package pacing

import (
	"time"

	"github.com/pkg/errors"
)

// DeadlinePolicy selects how the depletion deadline is estimated.
type DeadlinePolicy string

const (
	// PolicyNextMidnight spends each deposit by local midnight of the next day.
	PolicyNextMidnight DeadlinePolicy = "next_midnight"
	// PolicyRefillDay spends each deposit by the next expected refill date.
	PolicyRefillDay DeadlinePolicy = "refill_day"
)

// DeadlineEstimator computes the depletion deadline for a fresh deposit.
type DeadlineEstimator struct {
	Policy    DeadlinePolicy
	RefillDay int // day of month, 1..31; used by PolicyRefillDay
}

// NewDeadlineEstimator validates policy and refillDay.
func NewDeadlineEstimator(policy DeadlinePolicy, refillDay int) (DeadlineEstimator, error) {
	switch policy {
	case "", PolicyNextMidnight:
		return DeadlineEstimator{Policy: PolicyNextMidnight}, nil
	case PolicyRefillDay:
		if refillDay < 1 || refillDay > 31 {
			return DeadlineEstimator{}, errors.Errorf("refill day must be within 1..31, got %d", refillDay)
		}
		return DeadlineEstimator{Policy: PolicyRefillDay, RefillDay: refillDay}, nil
	default:
		return DeadlineEstimator{}, errors.Errorf("unknown deadline policy %q", policy)
	}
}

// Estimate returns the instant by which a deposit seen at now should be spent.
func (e DeadlineEstimator) Estimate(now time.Time) time.Time {
	if e.Policy == PolicyRefillDay {
		return NextRefillDate(now, e.RefillDay)
	}
	return NextMidnight(now)
}

// NextMidnight returns 00:00 of the calendar day after now, in now's location.
func NextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}

// NextRefillDate returns the start of the next refill day after now. A day
// past the end of a short month means its last day. A refill day on a weekend
// is moved back to the preceding Friday.
func NextRefillDate(now time.Time, day int) time.Time {
	y, m, _ := now.Date()
	for i := 0; ; i++ {
		month := m + time.Month(i)
		d := min(day, daysIn(y, month, now.Location()))
		t := skipWeekendBackwards(time.Date(y, month, d, 0, 0, 0, 0, now.Location()))
		if t.After(now) {
			return t
		}
	}
}

func daysIn(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}

func skipWeekendBackwards(t time.Time) time.Time {
	for isWeekend(t) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
