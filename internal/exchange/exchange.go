package exchange

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"KrakenDCA/internal/model"
)

var (
	// ErrDataUnavailable means a balance or price query returned an empty or
	// malformed payload.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrOrderFailed means the exchange explicitly rejected a buy or withdrawal.
	ErrOrderFailed = errors.New("order failed")
	// ErrNetworkFailure means the request itself failed.
	ErrNetworkFailure = errors.New("network failure")
)

// Client is the exchange boundary used by the scheduler.
type Client interface {
	Balances(ctx context.Context) (model.Balances, error)
	Price(ctx context.Context, asset model.AssetID, fiat string) (decimal.Decimal, error)
	PlaceMarketBuy(ctx context.Context, asset model.AssetID, fiat string, size decimal.Decimal) (model.OrderResult, error)
	Withdraw(ctx context.Context, asset model.AssetID, addressKey string, amount decimal.Decimal) (model.WithdrawalResult, error)
	Name() string
}

// PriceFeed is the read-only part of Client.
type PriceFeed interface {
	Price(ctx context.Context, asset model.AssetID, fiat string) (decimal.Decimal, error)
}
