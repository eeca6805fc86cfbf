package exchange

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/buger/jsonparser"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"KrakenDCA/internal/model"
)

const (
	krakenAPIURL      = "https://api.kraken.com"
	krakenPublicPath  = "/0/public/"
	krakenPrivatePath = "/0/private/"

	krakenTicker   = "Ticker"
	krakenBalance  = "Balance"
	krakenAddOrder = "AddOrder"
	krakenWithdraw = "Withdraw"

	// Kraken's starter tier refills one private call every 3 seconds with a
	// burst of 15; public calls allow roughly one per second.
	krakenPrivateInterval = 3 * time.Second
	krakenPrivateBurst    = 15
	krakenPublicInterval  = time.Second
	krakenPublicBurst     = 5
)

// KrakenConfig configures a KrakenClient.
type KrakenConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Proxy     string
	Timeout   time.Duration
}

// KrakenClient implements Client against the Kraken spot REST API.
type KrakenClient struct {
	http      *resty.Client
	apiKey    string
	apiSecret string

	publicLimit  *rate.Limiter
	privateLimit *rate.Limiter

	mu        sync.Mutex
	lastNonce int64

	log *logrus.Entry
}

// NewKrakenClient creates a client with optional proxy support.
func NewKrakenClient(cfg KrakenConfig) *KrakenClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = krakenAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "kraken-dca")
	if cfg.Proxy != "" {
		client.SetProxy(cfg.Proxy)
	}
	return &KrakenClient{
		http:         client,
		apiKey:       cfg.APIKey,
		apiSecret:    cfg.APISecret,
		publicLimit:  rate.NewLimiter(rate.Every(krakenPublicInterval), krakenPublicBurst),
		privateLimit: rate.NewLimiter(rate.Every(krakenPrivateInterval), krakenPrivateBurst),
		log:          logrus.WithField("component", "kraken"),
	}
}

func (k *KrakenClient) Name() string { return "kraken" }

// Price returns today's volume weighted average price of asset in fiat.
func (k *KrakenClient) Price(ctx context.Context, asset model.AssetID, fiat string) (decimal.Decimal, error) {
	pair := TickerPair(asset, fiat)
	body, err := k.public(ctx, krakenTicker, url.Values{"pair": {pair}})
	if err != nil {
		return decimal.Zero, err
	}
	if err := k.responseError(body); err != nil {
		return decimal.Zero, errors.Wrapf(ErrDataUnavailable, "ticker %s: %v", pair, err)
	}
	raw, err := jsonparser.GetString(body, "result", pair, "p", "[0]")
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrDataUnavailable, "ticker %s: %v", pair, err)
	}
	price, err := decimal.NewFromString(raw)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, errors.Wrapf(ErrDataUnavailable, "ticker %s: invalid price %q", pair, raw)
	}
	return price, nil
}

// Balances returns every non-empty balance on the account.
func (k *KrakenClient) Balances(ctx context.Context) (model.Balances, error) {
	body, err := k.private(ctx, krakenBalance, url.Values{})
	if err != nil {
		return nil, err
	}
	if err := k.responseError(body); err != nil {
		return nil, errors.Wrapf(ErrDataUnavailable, "balance: %v", err)
	}

	balances := make(model.Balances)
	err = jsonparser.ObjectEach(body, func(key, value []byte, _ jsonparser.ValueType, _ int) error {
		amount, err := decimal.NewFromString(string(value))
		if err != nil {
			return errors.Wrapf(err, "balance %s", key)
		}
		balances[string(key)] = amount
		return nil
	}, "result")
	if err != nil {
		return nil, errors.Wrapf(ErrDataUnavailable, "balance: %v", err)
	}
	if len(balances) == 0 {
		return nil, errors.Wrap(ErrDataUnavailable, "balance: empty result")
	}
	return balances, nil
}

// PlaceMarketBuy buys size units of asset at market price.
func (k *KrakenClient) PlaceMarketBuy(ctx context.Context, asset model.AssetID, fiat string, size decimal.Decimal) (model.OrderResult, error) {
	params := url.Values{
		"pair":      {OrderPair(asset, fiat)},
		"type":      {"buy"},
		"ordertype": {"market"},
		"volume":    {size.String()},
	}
	body, err := k.private(ctx, krakenAddOrder, params)
	if err != nil {
		return model.OrderResult{}, err
	}
	if err := k.responseError(body); err != nil {
		return model.OrderResult{}, errors.Wrapf(ErrOrderFailed, "add order %s: %v", params.Get("pair"), err)
	}
	descr, err := jsonparser.GetString(body, "result", "descr", "order")
	if err != nil {
		return model.OrderResult{}, errors.Wrapf(ErrOrderFailed, "add order %s: missing description", params.Get("pair"))
	}
	return model.OrderResult{Success: true, FilledDescription: descr}, nil
}

// Withdraw sends amount of asset to the whitelisted address named addressKey.
func (k *KrakenClient) Withdraw(ctx context.Context, asset model.AssetID, addressKey string, amount decimal.Decimal) (model.WithdrawalResult, error) {
	params := url.Values{
		"asset":  {string(asset)},
		"key":    {addressKey},
		"amount": {amount.String()},
	}
	body, err := k.private(ctx, krakenWithdraw, params)
	if err != nil {
		return model.WithdrawalResult{}, err
	}
	if err := k.responseError(body); err != nil {
		return model.WithdrawalResult{}, errors.Wrapf(ErrOrderFailed, "withdraw %s: %v", asset, err)
	}
	refID, err := jsonparser.GetString(body, "result", "refid")
	if err != nil || refID == "" {
		return model.WithdrawalResult{}, errors.Wrapf(ErrOrderFailed, "withdraw %s: missing reference id", asset)
	}
	return model.WithdrawalResult{Success: true, ReferenceID: refID}, nil
}

func (k *KrakenClient) public(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := k.publicLimit.Wait(ctx); err != nil {
		return nil, errors.Wrapf(ErrNetworkFailure, "%s: %v", endpoint, err)
	}
	resp, err := k.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get(krakenPublicPath + endpoint)
	return checkResponse(endpoint, resp, err)
}

func (k *KrakenClient) private(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if k.apiKey == "" || k.apiSecret == "" {
		return nil, errors.Errorf("%s: api credentials not set", endpoint)
	}
	if err := k.privateLimit.Wait(ctx); err != nil {
		return nil, errors.Wrapf(ErrNetworkFailure, "%s: %v", endpoint, err)
	}

	path := krakenPrivatePath + endpoint
	nonce := k.nextNonce()
	params.Set("nonce", nonce)
	encoded := params.Encode()
	signature, err := Sign(k.apiSecret, path, nonce, encoded)
	if err != nil {
		return nil, err
	}

	k.log.WithField("endpoint", endpoint).Debug("sending private request")
	resp, err := k.http.R().
		SetContext(ctx).
		SetHeader("API-Key", k.apiKey).
		SetHeader("API-Sign", signature).
		SetHeader("Content-Type", "application/x-www-form-urlencoded; charset=utf-8").
		SetBody(encoded).
		Post(path)
	return checkResponse(endpoint, resp, err)
}

// nextNonce returns a strictly increasing millisecond nonce.
func (k *KrakenClient) nextNonce() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	n := time.Now().UnixMilli()
	if n <= k.lastNonce {
		n = k.lastNonce + 1
	}
	k.lastNonce = n
	return strconv.FormatInt(n, 10)
}

func checkResponse(endpoint string, resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, errors.Wrapf(ErrNetworkFailure, "%s: %v", endpoint, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errors.Wrapf(ErrNetworkFailure, "%s: status %d, body: %s", endpoint, resp.StatusCode(), resp.String())
	}
	return resp.Body(), nil
}

// responseError returns the first error in Kraken's "error" array. Entries
// are formatted <severity><category>:<type>; W entries are only warnings.
func (k *KrakenClient) responseError(body []byte) error {
	var firstErr error
	_, err := jsonparser.ArrayEach(body, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		msg := string(value)
		switch {
		case msg == "" || firstErr != nil:
		case msg[0] == 'W':
			k.log.Warnf("Kraken API warning: %s", msg[1:])
		default:
			firstErr = errors.Errorf("Kraken API error: %s", msg[1:])
		}
	}, "error")
	if err != nil && !errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return errors.Wrap(err, "decode response")
	}
	return firstErr
}
