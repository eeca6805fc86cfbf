package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"KrakenDCA/internal/model"
	"KrakenDCA/internal/pacing"
)

// AssetConfig describes one coin the bot accumulates.
type AssetConfig struct {
	Code       string  `yaml:"code"`        // exchange asset code, e.g. XBT
	Symbol     string  `yaml:"symbol"`      // display symbol, e.g. BTC
	BalanceKey string  `yaml:"balance_key"` // key in the balance response, e.g. XXBT
	Ratio      float64 `yaml:"ratio"`
	OrderSize  float64 `yaml:"order_size"`
}

// Config holds all application configuration.
type Config struct {
	Kraken struct {
		BaseURL   string        `yaml:"base_url"`
		APIKey    string        `yaml:"api_key"`
		APISecret string        `yaml:"api_secret"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"kraken"`
	Currency string `yaml:"currency"`
	Assets   struct {
		Primary   AssetConfig `yaml:"primary"`
		Secondary AssetConfig `yaml:"secondary"`
	} `yaml:"assets"`
	Schedule struct {
		PollDelay      time.Duration `yaml:"poll_delay"`
		DeadlinePolicy string        `yaml:"deadline_policy"`
		RefillDay      int           `yaml:"refill_day"`
		FailureLimit   int           `yaml:"failure_limit"`
	} `yaml:"schedule"`
	Withdrawal struct {
		AddressKey string  `yaml:"address_key"`
		Threshold  float64 `yaml:"threshold"`
	} `yaml:"withdrawal"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
	Proxy  string `yaml:"proxy"`
	DryRun bool   `yaml:"dry_run"`
}

// LoadEnvFile loads variables from a .env file into the environment. A
// missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file yields a config built from the
// environment alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"KRAKEN_API_PUBLIC_KEY":         &c.Kraken.APIKey,
		"KRAKEN_API_PRIVATE_KEY":        &c.Kraken.APISecret,
		"CURRENCY":                      &c.Currency,
		"KRAKEN_WITHDRAWAL_ADDRESS_KEY": &c.Withdrawal.AddressKey,
		"TELEGRAM_BOT_TOKEN":            &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":              &c.Telegram.ChatID,
		"SQLITE_PATH":                   &c.Database.SQLitePath,
		"LOG_LEVEL":                     &c.Log.Level,
		"LOG_FILE":                      &c.Log.File,
		"HTTPS_PROXY":                   &c.Proxy,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	floats := map[string]*float64{
		"WITHDRAW_TARGET":       &c.Withdrawal.Threshold,
		"KRAKEN_BTC_ORDER_SIZE": &c.Assets.Primary.OrderSize,
		"KRAKEN_ETH_ORDER_SIZE": &c.Assets.Secondary.OrderSize,
	}
	for name, dst := range floats {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		*dst = f
	}

	if v := os.Getenv("FIAT_CHECK_DELAY"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse FIAT_CHECK_DELAY: %w", err)
		}
		c.Schedule.PollDelay = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv("DATE_OF_CASH_REFILL"); v != "" {
		day, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse DATE_OF_CASH_REFILL: %w", err)
		}
		// refill_day stays opt-in through schedule.deadline_policy
		c.Schedule.RefillDay = day
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Kraken.BaseURL == "" {
		c.Kraken.BaseURL = "https://api.kraken.com"
	}
	if c.Kraken.Timeout == 0 {
		c.Kraken.Timeout = 30 * time.Second
	}
	if c.Currency == "" {
		c.Currency = "USD"
	}
	defaultAsset(&c.Assets.Primary, AssetConfig{Code: "XBT", Symbol: "BTC", BalanceKey: "XXBT", Ratio: 0.7, OrderSize: 0.0001})
	defaultAsset(&c.Assets.Secondary, AssetConfig{Code: "ETH", Symbol: "ETH", BalanceKey: "XETH", Ratio: 0.3, OrderSize: 0.002})
	if c.Schedule.PollDelay == 0 {
		c.Schedule.PollDelay = time.Minute
	}
	if c.Schedule.DeadlinePolicy == "" {
		c.Schedule.DeadlinePolicy = string(pacing.PolicyNextMidnight)
	}
	if c.Schedule.FailureLimit == 0 {
		c.Schedule.FailureLimit = pacing.DefaultFailureLimit
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 50
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 30
	}
}

func defaultAsset(a *AssetConfig, def AssetConfig) {
	if a.Code == "" {
		a.Code = def.Code
	}
	if a.Symbol == "" {
		a.Symbol = def.Symbol
	}
	if a.BalanceKey == "" {
		a.BalanceKey = def.BalanceKey
	}
	if a.Ratio == 0 {
		a.Ratio = def.Ratio
	}
	if a.OrderSize == 0 {
		a.OrderSize = def.OrderSize
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if !c.DryRun {
		if c.Kraken.APIKey == "" {
			return fmt.Errorf("kraken.api_key is required")
		}
		if c.Kraken.APISecret == "" {
			return fmt.Errorf("kraken.api_secret is required")
		}
	}
	if c.Currency == "" {
		return fmt.Errorf("currency is required")
	}
	if c.Assets.Primary.OrderSize <= 0 || c.Assets.Secondary.OrderSize <= 0 {
		return fmt.Errorf("asset order sizes must be positive")
	}
	if c.Assets.Primary.Code == c.Assets.Secondary.Code {
		return fmt.Errorf("primary and secondary asset must differ, both are %s", c.Assets.Primary.Code)
	}
	if err := pacing.ValidateRatios(c.TrackedAssets()); err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	if c.Schedule.PollDelay < time.Second {
		return fmt.Errorf("schedule.poll_delay must be at least 1s, got %s", c.Schedule.PollDelay)
	}
	if _, err := c.DeadlineEstimator(); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	if c.Withdrawal.Threshold < 0 {
		return fmt.Errorf("withdrawal.threshold must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TrackedAssets returns the configured assets, primary first.
func (c *Config) TrackedAssets() []model.Asset {
	out := make([]model.Asset, 0, 2)
	for _, a := range []AssetConfig{c.Assets.Primary, c.Assets.Secondary} {
		out = append(out, model.Asset{
			ID:         model.AssetID(a.Code),
			Symbol:     a.Symbol,
			BalanceKey: a.BalanceKey,
			Ratio:      decimal.NewFromFloat(a.Ratio),
			OrderSize:  decimal.NewFromFloat(a.OrderSize),
		})
	}
	return out
}

// DeadlineEstimator builds the configured depletion deadline policy.
func (c *Config) DeadlineEstimator() (pacing.DeadlineEstimator, error) {
	return pacing.NewDeadlineEstimator(pacing.DeadlinePolicy(c.Schedule.DeadlinePolicy), c.Schedule.RefillDay)
}

// WithdrawalTrigger builds the configured withdrawal mode.
func (c *Config) WithdrawalTrigger() pacing.WithdrawalTrigger {
	return pacing.NewWithdrawalTrigger(c.Withdrawal.AddressKey, decimal.NewFromFloat(c.Withdrawal.Threshold))
}
