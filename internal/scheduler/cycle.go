package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"KrakenDCA/internal/exchange"
	"KrakenDCA/internal/model"
	"KrakenDCA/internal/notifier"
	"KrakenDCA/internal/pacing"
	"KrakenDCA/internal/recorder"
)

const notifyRetries = 2

// Options configures a Controller.
type Options struct {
	Exchange exchange.Client
	// Assets are processed in order; the first one is the withdrawal asset.
	Assets     []model.Asset
	Currency   string
	Deadline   pacing.DeadlineEstimator
	Withdrawal pacing.WithdrawalTrigger
	AddressKey string
	// FailureLimit defaults to pacing.DefaultFailureLimit.
	FailureLimit int
	Recorder     recorder.Recorder
	// Notifier is optional.
	Notifier notifier.Sender
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Controller runs order cycles over one in-memory session. RunCycle must not
// be called concurrently; Latest and HandleCommand may be called from any
// goroutine.
type Controller struct {
	exchange   exchange.Client
	assets     []model.Asset
	currency   string
	fiatKey    string
	deadline   pacing.DeadlineEstimator
	withdrawal pacing.WithdrawalTrigger
	addressKey string
	guard      pacing.FailureGuard
	recorder   recorder.Recorder
	notifier   notifier.Sender
	now        func() time.Time
	log        *logrus.Entry

	state *model.SessionState

	mu   sync.RWMutex
	last *model.StatusSnapshot
}

// NewController creates a controller with a fresh session. The first cycle
// treats the whole fiat balance as a deposit.
func NewController(opts Options) *Controller {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	rec := opts.Recorder
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	now := clock()
	return &Controller{
		exchange:   opts.Exchange,
		assets:     opts.Assets,
		currency:   opts.Currency,
		fiatKey:    exchange.FiatBalanceKey(opts.Currency),
		deadline:   opts.Deadline,
		withdrawal: opts.Withdrawal,
		addressKey: opts.AddressKey,
		guard:      pacing.FailureGuard{Limit: opts.FailureLimit},
		recorder:   rec,
		notifier:   opts.Notifier,
		now:        clock,
		log:        logrus.WithField("component", "cycle"),
		state:      model.NewSessionState(opts.Assets, now, pacing.FirstOfNextMonth(now)),
	}
}

// State exposes the session for inspection. It must not be modified while a
// cycle is running.
func (c *Controller) State() *model.SessionState { return c.state }

// Latest returns the snapshot of the last completed cycle, or nil.
func (c *Controller) Latest() *model.StatusSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// RunCycle performs one iteration: read balances, detect deposits, buy every
// asset that is due, repace it, and withdraw when the trigger fires. Only an
// escalated failure is returned as an error; everything else is logged and
// retried on the next cycle.
func (c *Controller) RunCycle(ctx context.Context) (*model.StatusSnapshot, error) {
	now := c.now()
	snap := &model.StatusSnapshot{CycleID: uuid.NewString(), At: now, Currency: c.currency}
	log := c.log.WithField("cycle", snap.CycleID[:8])

	balances, err := c.exchange.Balances(ctx)
	if err == nil {
		if _, ok := balances.Get(c.fiatKey); !ok {
			err = errors.Wrapf(exchange.ErrDataUnavailable, "no %s balance (check currency)", c.fiatKey)
		}
	}
	if err != nil {
		log.Errorf("balance query: %v", err)
		return snap, c.recordFailure(ctx, log)
	}
	fiat, _ := balances.Get(c.fiatKey)

	deposit := pacing.DetectDeposit(c.state, fiat)
	pacing.ObserveFiat(c.state, fiat)
	if deposit {
		pacing.Allocate(c.state, fiat, c.assets)
		c.state.DepletionDeadline = c.deadline.Estimate(now)
		snap.DepositDetected = true
		log.Infof("new deposit: %s %s to spend by %s", fiat.StringFixed(2), c.currency,
			c.state.DepletionDeadline.Format("2006-01-02 15:04:05"))
		c.recordDeposit(log, snap.CycleID, now, fiat)
	}

	dataFailed := false
	for _, a := range c.assets {
		st := c.processAsset(ctx, log, snap.CycleID, a, now, deposit, &balances)
		if st.Err != nil {
			dataFailed = true
		}
		snap.Assets = append(snap.Assets, st)
	}

	if dataFailed {
		if err := c.recordFailure(ctx, log); err != nil {
			return snap, err
		}
	} else {
		c.guard.RecordSuccess(c.state)
	}

	snap.Fiat = c.state.LastFiatBalance
	snap.EmptyFiatAt = c.state.DepletionDeadline

	if snap.BuyExecuted() {
		snap.Withdrawal = c.maybeWithdraw(ctx, log, snap, now)
	}

	if snap.BuyExecuted() || deposit {
		log.Info(notifier.FormatStatusLine(snap))
	} else {
		log.Debug(notifier.FormatStatusLine(snap))
	}
	if deposit {
		c.notify(ctx, notifier.FormatDeposit(snap))
	}

	c.mu.Lock()
	c.last = snap
	c.mu.Unlock()
	return snap, nil
}

// processAsset prices one asset and buys it when due. A failed price query is
// reported in the returned status; a failed order is only logged.
func (c *Controller) processAsset(ctx context.Context, log *logrus.Entry, cycleID string, a model.Asset, now time.Time, deposit bool, balances *model.Balances) model.AssetStatus {
	alog := log.WithField("asset", a.Symbol)
	st := model.AssetStatus{Asset: a}
	st.Holdings, _ = balances.Get(a.BalanceKey)

	price, err := c.exchange.Price(ctx, a.ID, c.currency)
	if err == nil && !price.IsPositive() {
		err = errors.Wrapf(pacing.ErrPriceUnavailable, "%s price %s", a.ID, price)
	}
	if err != nil {
		alog.Errorf("price query: %v", err)
		st.Err = err
		st.Bucket = c.state.Buckets[a.ID]
		st.NextOrderTime = c.state.NextOrderTime[a.ID]
		return st
	}
	st.Price = price

	if deposit {
		if _, err := pacing.Repace(c.state, a, now, price); err != nil {
			alog.Warnf("repace after deposit: %v", err)
		}
	}

	if pacing.OrderDue(c.state, a.ID, now, deposit) {
		c.buy(ctx, alog, cycleID, a, now, price, &st, balances)
	}

	st.Bucket = c.state.Buckets[a.ID]
	st.NextOrderTime = c.state.NextOrderTime[a.ID]
	return st
}

func (c *Controller) buy(ctx context.Context, log *logrus.Entry, cycleID string, a model.Asset, now time.Time, price decimal.Decimal, st *model.AssetStatus, balances *model.Balances) {
	res, err := c.exchange.PlaceMarketBuy(ctx, a.ID, c.currency, a.OrderSize)
	if err == nil && !res.Success {
		err = errors.Wrap(exchange.ErrOrderFailed, "order not accepted")
	}
	if err != nil {
		log.Warnf("buy %s %s failed, retrying next cycle: %v", a.OrderSize, a.Symbol, err)
		return
	}
	c.guard.RecordBuy(c.state)
	st.Bought = true
	st.Description = res.FilledDescription

	var spent decimal.Decimal
	after, err := c.exchange.Balances(ctx)
	fiatAfter, ok := after.Get(c.fiatKey)
	if err != nil || !ok {
		spent = price.Mul(a.OrderSize)
		log.Warnf("balance re-query after buy failed (%v), estimating spend as %s %s", err, spent.StringFixed(2), c.currency)
		pacing.DeductSpend(c.state, a.ID, spent)
		st.Holdings = st.Holdings.Add(a.OrderSize)
	} else {
		spent = pacing.ConsumeFiat(c.state, a.ID, fiatAfter)
		*balances = after
		st.Holdings, _ = after.Get(a.BalanceKey)
	}

	log.Infof("bought: %s, spent %s %s", res.FilledDescription, spent.StringFixed(2), c.currency)
	pace, err := pacing.Repace(c.state, a, now, price)
	switch {
	case errors.Is(err, pacing.ErrScheduleInconsistency):
		log.Warnf("%v, next order now", err)
	case err != nil:
		log.Warnf("repace: %v", err)
	default:
		log.Debugf("%d orders left, next in %s", pace.OrdersRemaining, pace.Interval.Round(time.Second))
	}

	if err := c.recorder.RecordBuy(&recorder.BuyEvent{
		CycleID:       cycleID,
		At:            now,
		Asset:         a.ID,
		Size:          a.OrderSize,
		Price:         price,
		FiatSpent:     spent,
		BucketAfter:   c.state.Buckets[a.ID],
		NextOrderTime: c.state.NextOrderTime[a.ID],
		Description:   res.FilledDescription,
	}); err != nil {
		log.Errorf("record buy: %v", err)
	}
}

// maybeWithdraw withdraws the whole holding of the first asset when the
// trigger fires.
func (c *Controller) maybeWithdraw(ctx context.Context, log *logrus.Entry, snap *model.StatusSnapshot, now time.Time) *model.WithdrawalResult {
	if c.withdrawal.Mode == pacing.WithdrawalDisabled || len(snap.Assets) == 0 {
		return nil
	}
	primary := snap.Assets[0]
	amount := primary.Holdings
	if !c.withdrawal.ShouldWithdraw(c.state, now, amount) {
		return nil
	}
	alog := log.WithField("asset", primary.Asset.Symbol)
	if !amount.IsPositive() {
		alog.Warn("withdrawal due but nothing to withdraw")
		return nil
	}

	alog.Infof("attempting to withdraw %s %s ...", amount, primary.Asset.Symbol)
	res, err := c.exchange.Withdraw(ctx, primary.Asset.ID, c.addressKey, amount)
	evt := &recorder.WithdrawalEvent{
		CycleID:     snap.CycleID,
		At:          now,
		Asset:       primary.Asset.ID,
		AddressKey:  c.addressKey,
		Amount:      amount,
		Success:     err == nil && res.Success,
		ReferenceID: res.ReferenceID,
	}
	if err != nil {
		evt.Error = err.Error()
		alog.Errorf("withdrawal failed: %v", err)
	} else {
		alog.Infof("withdrawal executed: ref %s, date %s", res.ReferenceID, now.Format("2006-01-02 15:04:05"))
	}
	if rerr := c.recorder.RecordWithdrawal(evt); rerr != nil {
		alog.Errorf("record withdrawal: %v", rerr)
	}
	c.notify(ctx, notifier.FormatWithdrawal(primary.Asset, amount, res, err))
	if err != nil {
		return nil
	}
	return &res
}

func (c *Controller) recordFailure(ctx context.Context, log *logrus.Entry) error {
	err := c.guard.RecordFailure(c.state)
	if err == nil {
		return nil
	}
	log.Error(err)
	c.notify(ctx, notifier.FormatEscalation(err))
	return err
}

func (c *Controller) recordDeposit(log *logrus.Entry, cycleID string, now time.Time, fiat decimal.Decimal) {
	buckets := make(map[model.AssetID]decimal.Decimal, len(c.state.Buckets))
	for id, v := range c.state.Buckets {
		buckets[id] = v
	}
	if err := c.recorder.RecordDeposit(&recorder.DepositEvent{
		CycleID:  cycleID,
		At:       now,
		Currency: c.currency,
		Fiat:     fiat,
		Buckets:  buckets,
		Deadline: c.state.DepletionDeadline,
	}); err != nil {
		log.Errorf("record deposit: %v", err)
	}
}

func (c *Controller) notify(ctx context.Context, text string) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.SendWithRetry(ctx, text, notifyRetries); err != nil {
		c.log.Errorf("send notification: %v", err)
	}
}

// HandleCommand answers a chat command.
func (c *Controller) HandleCommand(command string) string {
	switch command {
	case "/status":
		return notifier.FormatStatus(c.Latest())
	default:
		return "Available commands:\n• /status"
	}
}
