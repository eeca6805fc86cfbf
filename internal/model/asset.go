package model

import "github.com/shopspring/decimal"

// AssetID is the exchange asset code, e.g. "XBT" or "ETH".
type AssetID string

// Asset describes one tracked coin and its share of every deposit.
type Asset struct {
	ID         AssetID
	Symbol     string          // display symbol, e.g. "BTC"
	BalanceKey string          // key in the balance map, e.g. "XXBT"
	Ratio      decimal.Decimal // share of each deposit; ratios of all assets sum to 1
	OrderSize  decimal.Decimal // fixed market buy volume in asset units
}

// Balances maps exchange balance keys to amounts.
type Balances map[string]decimal.Decimal

// Get returns the amount stored under key and whether it was present.
func (b Balances) Get(key string) (decimal.Decimal, bool) {
	v, ok := b[key]
	return v, ok
}
