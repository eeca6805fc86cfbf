package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign_KnownVector(t *testing.T) {
	sig, err := Sign(
		"kQH5HW/8p1uGOVjbgWA7FunAmGO8lsSUXNsu3eow76sz84Q18fWxnyRzBHCd3pd5nE9qa99HAZtuZuj6F1huXg==",
		"/0/private/AddOrder",
		"1616492376594",
		"nonce=1616492376594&ordertype=limit&pair=XBTUSD&price=37500&type=buy&volume=1.25",
	)
	require.NoError(t, err)
	const want = "4/dpxb3iT4tp/ZCVEwSnEsLxx0bqyhLpdfOpc6fn7OR8+UClSV5n9E6aSS8MPtnRfp32bAb0nmbRn6H8ndwLUQ=="
	assert.Equal(t, want, sig)
}

func TestSign_InvalidSecret(t *testing.T) {
	_, err := Sign("not base64!", "/0/private/Balance", "1", "nonce=1")
	assert.Error(t, err)
}

func TestPairs(t *testing.T) {
	assert.Equal(t, "XXBTZUSD", TickerPair("XBT", "USD"))
	assert.Equal(t, "XETHZEUR", TickerPair("ETH", "EUR"))
	assert.Equal(t, "XBTCHF", TickerPair("XBT", "CHF"))
	assert.Equal(t, "XBTAUD", TickerPair("XBT", "AUD"))

	assert.Equal(t, "xbtusd", OrderPair("XBT", "USD"))
	assert.Equal(t, "ethchf", OrderPair("ETH", "CHF"))

	assert.Equal(t, "ZUSD", FiatBalanceKey("USD"))
	assert.Equal(t, "ZGBP", FiatBalanceKey("GBP"))
	assert.Equal(t, "ZAUD", FiatBalanceKey("AUD"))
	assert.Equal(t, "CHF", FiatBalanceKey("CHF"))
}
