package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KrakenDCA/internal/pacing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

var envNames = []string{
	"KRAKEN_API_PUBLIC_KEY", "KRAKEN_API_PRIVATE_KEY", "CURRENCY", "DATE_OF_CASH_REFILL",
	"KRAKEN_WITHDRAWAL_ADDRESS_KEY", "WITHDRAW_TARGET", "KRAKEN_BTC_ORDER_SIZE",
	"KRAKEN_ETH_ORDER_SIZE", "FIAT_CHECK_DELAY", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
	"SQLITE_PATH", "LOG_LEVEL", "LOG_FILE", "HTTPS_PROXY",
}

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envNames {
		t.Setenv(name, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, time.Minute, cfg.Schedule.PollDelay)
	assert.Equal(t, string(pacing.PolicyNextMidnight), cfg.Schedule.DeadlinePolicy)
	assert.Equal(t, pacing.DefaultFailureLimit, cfg.Schedule.FailureLimit)

	assets := cfg.TrackedAssets()
	require.Len(t, assets, 2)
	assert.Equal(t, "XBT", string(assets[0].ID))
	assert.Equal(t, "XXBT", assets[0].BalanceKey)
	assert.Equal(t, "0.7", assets[0].Ratio.String())
	assert.Equal(t, "0.0001", assets[0].OrderSize.String())
	assert.Equal(t, "ETH", string(assets[1].ID))
	assert.Equal(t, "0.002", assets[1].OrderSize.String())
	assert.Equal(t, pacing.WithdrawalDisabled, cfg.WithdrawalTrigger().Mode)
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
kraken:
  api_key: k
  api_secret: s
  timeout: 10s
currency: CHF
assets:
  primary:
    order_size: 0.0002
schedule:
  poll_delay: 30s
  deadline_policy: refill_day
  refill_day: 25
withdrawal:
  address_key: cold
  threshold: 0.05
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "CHF", cfg.Currency)
	assert.Equal(t, 10*time.Second, cfg.Kraken.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Schedule.PollDelay)
	assert.Equal(t, "0.0002", cfg.TrackedAssets()[0].OrderSize.String())
	assert.Equal(t, "XBT", cfg.Assets.Primary.Code, "unset fields keep defaults")

	est, err := cfg.DeadlineEstimator()
	require.NoError(t, err)
	assert.Equal(t, pacing.PolicyRefillDay, est.Policy)
	assert.Equal(t, 25, est.RefillDay)

	trig := cfg.WithdrawalTrigger()
	assert.Equal(t, pacing.WithdrawalByThreshold, trig.Mode)
	assert.Equal(t, "0.05", trig.Threshold.String())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("KRAKEN_API_PUBLIC_KEY", "pub")
	t.Setenv("KRAKEN_API_PRIVATE_KEY", "priv")
	t.Setenv("CURRENCY", "EUR")
	t.Setenv("FIAT_CHECK_DELAY", "90000")
	t.Setenv("KRAKEN_ETH_ORDER_SIZE", "0.004")
	t.Setenv("DATE_OF_CASH_REFILL", "10")
	t.Setenv("KRAKEN_WITHDRAWAL_ADDRESS_KEY", "ledger")

	path := writeFile(t, "config.yaml", "currency: USD\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "pub", cfg.Kraken.APIKey)
	assert.Equal(t, "priv", cfg.Kraken.APISecret)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, 90*time.Second, cfg.Schedule.PollDelay)
	assert.Equal(t, "0.004", cfg.TrackedAssets()[1].OrderSize.String())
	assert.Equal(t, string(pacing.PolicyNextMidnight), cfg.Schedule.DeadlinePolicy)
	assert.Equal(t, 10, cfg.Schedule.RefillDay)
	assert.Equal(t, pacing.WithdrawalByDate, cfg.WithdrawalTrigger().Mode)
}

func TestLoad_RefillDayEnvKeepsMidnightDeadline(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATE_OF_CASH_REFILL", "30")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	cfg.DryRun = true
	require.NoError(t, cfg.Validate())

	est, err := cfg.DeadlineEstimator()
	require.NoError(t, err)
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), est.Estimate(now))

	cfg.Schedule.DeadlinePolicy = string(pacing.PolicyRefillDay)
	require.NoError(t, cfg.Validate())
	est, err = cfg.DeadlineEstimator()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 30, 0, 0, 0, 0, time.UTC), est.Estimate(now))
}

func TestLoad_BadEnvNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv("FIAT_CHECK_DELAY", "soon")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "FIAT_CHECK_DELAY")
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeFile(t, "config.yaml", "currency: [\n"))
	assert.ErrorContains(t, err, "parse config")
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env")))

	t.Cleanup(func() { os.Unsetenv("KRAKEN_DCA_TEST_CHAT") })
	path := writeFile(t, ".env", "KRAKEN_DCA_TEST_CHAT=12345\n")
	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "12345", os.Getenv("KRAKEN_DCA_TEST_CHAT"))
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	valid := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		cfg.Kraken.APIKey = "k"
		cfg.Kraken.APISecret = "s"
		return cfg
	}
	require.NoError(t, valid().Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing key", func(c *Config) { c.Kraken.APIKey = "" }, "api_key"},
		{"missing secret", func(c *Config) { c.Kraken.APISecret = "" }, "api_secret"},
		{"order size", func(c *Config) { c.Assets.Secondary.OrderSize = -1 }, "order sizes"},
		{"ratios", func(c *Config) { c.Assets.Primary.Ratio = 0.8 }, "sum to 1"},
		{"same asset", func(c *Config) { c.Assets.Secondary.Code = "XBT" }, "must differ"},
		{"poll delay", func(c *Config) { c.Schedule.PollDelay = -time.Second }, "poll_delay"},
		{"sub-second poll delay", func(c *Config) { c.Schedule.PollDelay = 500 * time.Millisecond }, "at least 1s"},
		{"policy", func(c *Config) { c.Schedule.DeadlinePolicy = "weekly" }, "unknown deadline policy"},
		{"refill day", func(c *Config) {
			c.Schedule.DeadlinePolicy = string(pacing.PolicyRefillDay)
			c.Schedule.RefillDay = 32
		}, "refill day"},
		{"threshold", func(c *Config) { c.Withdrawal.Threshold = -0.1 }, "threshold"},
		{"telegram", func(c *Config) { c.Telegram.BotToken = "t" }, "set together"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}
}

func TestValidate_DryRunNeedsNoKeys(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	cfg.Kraken.APIKey = ""
	cfg.Kraken.APISecret = ""
	cfg.DryRun = true
	assert.NoError(t, cfg.Validate())
}
