package exchange

import (
	"strings"

	"KrakenDCA/internal/model"
)

// Kraken prefixes legacy asset codes with X (crypto) and Z (fiat).
var prefixedFiat = map[string]bool{"USD": true, "EUR": true, "GBP": true}

// TickerPair returns the pair name used by the public Ticker endpoint,
// e.g. XXBTZUSD or XBTCHF.
func TickerPair(asset model.AssetID, fiat string) string {
	if prefixedFiat[fiat] {
		return "X" + string(asset) + "Z" + fiat
	}
	return string(asset) + fiat
}

// OrderPair returns the pair name used when placing orders, e.g. xbtusd.
func OrderPair(asset model.AssetID, fiat string) string {
	return strings.ToLower(string(asset) + fiat)
}

// FiatBalanceKey returns the key under which fiat appears in the balance map.
func FiatBalanceKey(fiat string) string {
	if prefixedFiat[fiat] || fiat == "AUD" {
		return "Z" + fiat
	}
	return fiat
}
