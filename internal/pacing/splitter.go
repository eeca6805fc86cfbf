package pacing

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"KrakenDCA/internal/model"
)

// Split divides total across assets by their ratios.
func Split(total decimal.Decimal, assets []model.Asset) map[model.AssetID]decimal.Decimal {
	out := make(map[model.AssetID]decimal.Decimal, len(assets))
	for _, a := range assets {
		out[a.ID] = total.Mul(a.Ratio)
	}
	return out
}

// Allocate replaces every bucket with its share of total. Unspent fiat from
// the previous deposit is not carried over: the balance already contains it.
func Allocate(s *model.SessionState, total decimal.Decimal, assets []model.Asset) {
	for id, amount := range Split(total, assets) {
		s.Buckets[id] = amount
	}
}

// ValidateRatios checks that every ratio is positive and that they sum to 1.
func ValidateRatios(assets []model.Asset) error {
	if len(assets) == 0 {
		return errors.New("no assets configured")
	}
	sum := decimal.Zero
	for _, a := range assets {
		if !a.Ratio.IsPositive() {
			return errors.Errorf("asset %s: ratio must be positive, got %s", a.ID, a.Ratio)
		}
		sum = sum.Add(a.Ratio)
	}
	if !sum.Equal(decimal.NewFromInt(1)) {
		return errors.Errorf("asset ratios must sum to 1, got %s", sum)
	}
	return nil
}
