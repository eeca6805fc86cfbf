package pacing

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"KrakenDCA/internal/model"
)

// Pace is the result of one cadence recomputation for an asset.
type Pace struct {
	RemainingValue  decimal.Decimal // bucket expressed in asset units
	OrdersRemaining int64
	Interval        time.Duration
	NextOrderTime   time.Time
	// Clamped is set when the deadline had already passed; Interval is then 0.
	Clamped bool
}

// Calculate spreads the time left until deadline evenly over the orders the
// bucket can still pay for at price:
//
//	remaining = bucket / price
//	orders    = max(1, ceil(remaining / orderSize))
//	next      = now + (deadline - now) / orders
//
// A non-positive price yields ErrPriceUnavailable. A deadline already in the
// past clamps the window to zero and yields the clamped Pace together with
// ErrScheduleInconsistency.
func Calculate(now, deadline time.Time, bucket, price, orderSize decimal.Decimal) (Pace, error) {
	if !price.IsPositive() {
		return Pace{}, errors.Wrapf(ErrPriceUnavailable, "price %s", price)
	}
	if !orderSize.IsPositive() {
		return Pace{}, errors.Errorf("order size must be positive, got %s", orderSize)
	}

	remaining := bucket.Div(price)
	orders := remaining.Div(orderSize).Ceil().IntPart()
	if orders < 1 {
		orders = 1
	}

	p := Pace{RemainingValue: remaining, OrdersRemaining: orders}
	window := deadline.Sub(now)
	if window < 0 {
		p.Clamped = true
		p.NextOrderTime = now
		return p, errors.Wrapf(ErrScheduleInconsistency, "deadline %s passed %s ago",
			deadline.Format("2006-01-02 15:04:05"), (-window).Round(time.Second))
	}
	p.Interval = window / time.Duration(orders)
	p.NextOrderTime = now.Add(p.Interval)
	return p, nil
}

// Repace recomputes the asset's next order time from the session's bucket and
// deadline. A clamped pace is still applied and returned with
// ErrScheduleInconsistency; on any other error the session is left unchanged.
func Repace(s *model.SessionState, a model.Asset, now time.Time, price decimal.Decimal) (Pace, error) {
	p, err := Calculate(now, s.DepletionDeadline, s.Buckets[a.ID], price, a.OrderSize)
	if err != nil && !errors.Is(err, ErrScheduleInconsistency) {
		return p, errors.Wrapf(err, "pace %s", a.ID)
	}
	s.NextOrderTime[a.ID] = p.NextOrderTime
	return p, errors.Wrapf(err, "pace %s", a.ID)
}

// OrderDue reports whether the asset should be bought now. A deposit detected
// in the same cycle forces a buy regardless of the cadence.
func OrderDue(s *model.SessionState, id model.AssetID, now time.Time, depositDetected bool) bool {
	if depositDetected {
		return true
	}
	return !now.Before(s.NextOrderTime[id])
}
