package exchange

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"KrakenDCA/internal/model"
)

// Op names a PaperExchange operation for scripted failures.
type Op string

const (
	OpBalances Op = "balances"
	OpPrice    Op = "price"
	OpBuy      Op = "buy"
	OpWithdraw Op = "withdraw"
)

// PaperFill records a simulated market buy.
type PaperFill struct {
	Asset model.AssetID
	Size  decimal.Decimal
	Price decimal.Decimal
	Cost  decimal.Decimal
}

// PaperWithdrawal records a simulated withdrawal.
type PaperWithdrawal struct {
	Asset       model.AssetID
	AddressKey  string
	Amount      decimal.Decimal
	ReferenceID string
}

// PaperExchange simulates an exchange account with in-memory balances. Market
// buys fill at the current price. Prices come from SetPrice or, when set, from
// Feed. It is used for dry runs and tests.
type PaperExchange struct {
	mu       sync.Mutex
	fiat     string
	fiatKey  string
	keys     map[model.AssetID]string
	balances model.Balances
	prices   map[model.AssetID]decimal.Decimal
	failures map[Op][]error

	fills       []PaperFill
	withdrawals []PaperWithdrawal

	Feed PriceFeed
}

// NewPaperExchange creates an account holding fiat only.
func NewPaperExchange(fiat string, assets []model.Asset) *PaperExchange {
	p := &PaperExchange{
		fiat:     fiat,
		fiatKey:  FiatBalanceKey(fiat),
		keys:     make(map[model.AssetID]string, len(assets)),
		balances: make(model.Balances),
		prices:   make(map[model.AssetID]decimal.Decimal),
		failures: make(map[Op][]error),
	}
	p.balances[p.fiatKey] = decimal.Zero
	for _, a := range assets {
		p.keys[a.ID] = a.BalanceKey
		p.balances[a.BalanceKey] = decimal.Zero
	}
	return p
}

func (p *PaperExchange) Name() string { return "paper" }

// Deposit credits fiat to the account.
func (p *PaperExchange) Deposit(amount decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[p.fiatKey] = p.balances[p.fiatKey].Add(amount)
}

// SetBalance overwrites the balance stored under key.
func (p *PaperExchange) SetBalance(key string, amount decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[key] = amount
}

// RemoveBalance drops key from the balance map.
func (p *PaperExchange) RemoveBalance(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.balances, key)
}

// SetPrice sets the price used for asset.
func (p *PaperExchange) SetPrice(asset model.AssetID, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[asset] = price
}

// FailNext makes the next call of op return err. Calls queue in order; a nil
// err lets that call through.
func (p *PaperExchange) FailNext(op Op, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[op] = append(p.failures[op], err)
}

// Fills returns a copy of all simulated buys.
func (p *PaperExchange) Fills() []PaperFill {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PaperFill(nil), p.fills...)
}

// Withdrawals returns a copy of all simulated withdrawals.
func (p *PaperExchange) Withdrawals() []PaperWithdrawal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PaperWithdrawal(nil), p.withdrawals...)
}

func (p *PaperExchange) popFailure(op Op) error {
	queue := p.failures[op]
	if len(queue) == 0 {
		return nil
	}
	p.failures[op] = queue[1:]
	return queue[0]
}

func (p *PaperExchange) Balances(_ context.Context) (model.Balances, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.popFailure(OpBalances); err != nil {
		return nil, err
	}
	out := make(model.Balances, len(p.balances))
	for k, v := range p.balances {
		out[k] = v
	}
	return out, nil
}

func (p *PaperExchange) Price(ctx context.Context, asset model.AssetID, fiat string) (decimal.Decimal, error) {
	p.mu.Lock()
	if err := p.popFailure(OpPrice); err != nil {
		p.mu.Unlock()
		return decimal.Zero, err
	}
	feed := p.Feed
	p.mu.Unlock()

	if feed != nil {
		price, err := feed.Price(ctx, asset, fiat)
		if err != nil {
			return decimal.Zero, err
		}
		p.SetPrice(asset, price)
		return price, nil
	}
	return p.lastPrice(asset, fiat)
}

func (p *PaperExchange) lastPrice(asset model.AssetID, fiat string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	price, ok := p.prices[asset]
	if !ok || !price.IsPositive() {
		return decimal.Zero, errors.Wrapf(ErrDataUnavailable, "no %s price", TickerPair(asset, fiat))
	}
	return price, nil
}

func (p *PaperExchange) PlaceMarketBuy(_ context.Context, asset model.AssetID, fiat string, size decimal.Decimal) (model.OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.popFailure(OpBuy); err != nil {
		return model.OrderResult{}, err
	}
	key, ok := p.keys[asset]
	if !ok {
		return model.OrderResult{}, errors.Wrapf(ErrOrderFailed, "unknown asset %s", asset)
	}
	price, ok := p.prices[asset]
	if !ok || !price.IsPositive() {
		return model.OrderResult{}, errors.Wrapf(ErrOrderFailed, "no %s price", asset)
	}
	cost := price.Mul(size)
	if p.balances[p.fiatKey].LessThan(cost) {
		return model.OrderResult{}, errors.Wrap(ErrOrderFailed, "EOrder:Insufficient funds")
	}

	p.balances[p.fiatKey] = p.balances[p.fiatKey].Sub(cost)
	p.balances[key] = p.balances[key].Add(size)
	p.fills = append(p.fills, PaperFill{Asset: asset, Size: size, Price: price, Cost: cost})

	descr := "buy " + size.String() + " " + OrderPair(asset, fiat) + " @ market"
	logrus.WithField("component", "paper").Infof("PAPER EXECUTION: %s (cost %s %s)", descr, cost.StringFixed(2), fiat)
	return model.OrderResult{Success: true, FilledDescription: descr}, nil
}

func (p *PaperExchange) Withdraw(_ context.Context, asset model.AssetID, addressKey string, amount decimal.Decimal) (model.WithdrawalResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.popFailure(OpWithdraw); err != nil {
		return model.WithdrawalResult{}, err
	}
	key, ok := p.keys[asset]
	if !ok {
		return model.WithdrawalResult{}, errors.Wrapf(ErrOrderFailed, "unknown asset %s", asset)
	}
	if p.balances[key].LessThan(amount) {
		return model.WithdrawalResult{}, errors.Wrap(ErrOrderFailed, "EFunding:Insufficient funds")
	}

	p.balances[key] = p.balances[key].Sub(amount)
	ref := uuid.NewString()
	p.withdrawals = append(p.withdrawals, PaperWithdrawal{Asset: asset, AddressKey: addressKey, Amount: amount, ReferenceID: ref})
	return model.WithdrawalResult{Success: true, ReferenceID: ref}, nil
}
