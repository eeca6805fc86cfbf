package pacing

import (
	"github.com/shopspring/decimal"

	"KrakenDCA/internal/model"
)

// DetectDeposit reports whether fiat is a new deposit. The first observation
// always counts as one.
func DetectDeposit(s *model.SessionState, fiat decimal.Decimal) bool {
	if !s.FiatObserved {
		return true
	}
	return fiat.GreaterThan(s.LastFiatBalance)
}

// ObserveFiat stores fiat as the last seen balance.
func ObserveFiat(s *model.SessionState, fiat decimal.Decimal) {
	s.FiatObserved = true
	s.LastFiatBalance = fiat
}

// ConsumeFiat records the balance read after a buy and deducts the fiat spent
// from the asset's bucket. The bucket may go negative; it only paces spending.
func ConsumeFiat(s *model.SessionState, id model.AssetID, fiatAfter decimal.Decimal) decimal.Decimal {
	spent := s.LastFiatBalance.Sub(fiatAfter)
	DeductSpend(s, id, spent)
	return spent
}

// DeductSpend charges spent to the asset's bucket and lowers the last seen
// balance by the same amount. Used directly when the post-buy balance could
// not be read and the spend had to be estimated.
func DeductSpend(s *model.SessionState, id model.AssetID, spent decimal.Decimal) {
	s.Buckets[id] = s.Buckets[id].Sub(spent)
	ObserveFiat(s, s.LastFiatBalance.Sub(spent))
}
