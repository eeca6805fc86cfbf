package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"KrakenDCA/internal/model"
)

const (
	clockLayout = "15:04:05"
	stampLayout = "2006-01-02 15:04:05"
)

// Decimals returns the number of fractional digits in an order size. Holdings
// are printed with the same precision.
func Decimals(size decimal.Decimal) int32 {
	if exp := size.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

// FormatCountdown renders the time from now until at as "Hh Mm Ss @ HH:MM:SS".
func FormatCountdown(now, at time.Time) string {
	d := at.Sub(now).Round(time.Second)
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%dh %dm %ds @ %s", h, m, s, at.Format(clockLayout))
}

// FormatStatusLine builds the consolidated one-line cycle summary.
func FormatStatusLine(s *model.StatusSnapshot) string {
	parts := []string{
		"[" + s.At.Format(stampLayout) + "]",
		fmt.Sprintf("Fiat: %s %s", s.Fiat.StringFixed(2), s.Currency),
	}
	if s.DepositDetected {
		parts = append(parts, "New deposit")
	}
	for _, a := range s.Assets {
		sym := a.Asset.Symbol
		if a.Err != nil {
			parts = append(parts, fmt.Sprintf("%s: %v", sym, a.Err))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s Price: %s %s", sym, a.Price.StringFixed(2), s.Currency))
		if a.Bought {
			parts = append(parts, fmt.Sprintf("Bought for ~%s %s", a.Price.Mul(a.Asset.OrderSize).StringFixed(2), s.Currency))
		}
		parts = append(parts,
			fmt.Sprintf("Accumulated %s: %s %s", sym, a.Holdings.StringFixed(Decimals(a.Asset.OrderSize)), sym),
			fmt.Sprintf("Next %s order in: %s", sym, FormatCountdown(s.At, a.NextOrderTime)),
		)
	}
	if !s.EmptyFiatAt.IsZero() {
		parts = append(parts, "Empty fiat @ "+s.EmptyFiatAt.Format(stampLayout))
	}
	return strings.Join(parts, " > ")
}

// FormatBanner is logged once at startup.
func FormatBanner(exchangeName, currency string, assets []model.Asset, withdrawal string) string {
	var b strings.Builder
	b.WriteString("|===========================================================|\n")
	b.WriteString("|                ------------------------------             |\n")
	b.WriteString("|                |   Kraken DCA Scheduler     |             |\n")
	b.WriteString("|                ------------------------------             |\n")
	b.WriteString("|===========================================================|\n")
	b.WriteString(fmt.Sprintf("Exchange: %s | Currency: %s | Withdrawals: %s\n", exchangeName, currency, withdrawal))
	for _, a := range assets {
		b.WriteString(fmt.Sprintf("  %s: %s%% of each deposit, %s %s per order\n",
			a.Symbol, a.Ratio.Shift(2).String(), a.OrderSize.String(), a.Symbol))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatStatus renders the latest snapshot for the /status command.
func FormatStatus(s *model.StatusSnapshot) string {
	if s == nil {
		return "No cycle has completed yet."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>DCA status</b> | %s\n\n", s.At.Format(stampLayout)))
	b.WriteString(fmt.Sprintf("Fiat: %s %s\n", s.Fiat.StringFixed(2), s.Currency))
	for _, a := range s.Assets {
		sym := a.Asset.Symbol
		if a.Err != nil {
			b.WriteString(fmt.Sprintf("%s: %s\n", sym, html.EscapeString(a.Err.Error())))
			continue
		}
		b.WriteString(fmt.Sprintf("%s: %s @ %s %s | bucket %s %s\n",
			sym, a.Holdings.StringFixed(Decimals(a.Asset.OrderSize)), a.Price.StringFixed(2), s.Currency,
			a.Bucket.StringFixed(2), s.Currency))
		b.WriteString(fmt.Sprintf("  next order in %s\n", FormatCountdown(s.At, a.NextOrderTime)))
	}
	if !s.EmptyFiatAt.IsZero() {
		b.WriteString(fmt.Sprintf("Fiat empty by: %s\n", s.EmptyFiatAt.Format(stampLayout)))
	}
	return b.String()
}

// FormatDeposit announces a detected deposit and its split.
func FormatDeposit(s *model.StatusSnapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("💰 <b>New deposit</b> | %s %s\n", s.Fiat.StringFixed(2), s.Currency))
	for _, a := range s.Assets {
		b.WriteString(fmt.Sprintf("%s bucket: %s %s\n", a.Asset.Symbol, a.Bucket.StringFixed(2), s.Currency))
	}
	if !s.EmptyFiatAt.IsZero() {
		b.WriteString(fmt.Sprintf("Spending until %s\n", s.EmptyFiatAt.Format(stampLayout)))
	}
	return b.String()
}

// FormatWithdrawal reports a withdrawal attempt.
func FormatWithdrawal(asset model.Asset, amount decimal.Decimal, res model.WithdrawalResult, err error) string {
	qty := amount.StringFixed(Decimals(asset.OrderSize))
	if err != nil {
		return fmt.Sprintf("❌ <b>Withdrawal failed</b> | %s %s\n%s", qty, asset.Symbol, html.EscapeString(err.Error()))
	}
	return fmt.Sprintf("📤 <b>Withdrawal executed</b> | %s %s\nReference: %s", qty, asset.Symbol, res.ReferenceID)
}

// FormatEscalation is sent right before the process gives up.
func FormatEscalation(err error) string {
	return fmt.Sprintf("🛑 <b>DCA stopped</b>\n%s\nCheck the API keys and currency.", html.EscapeString(err.Error()))
}
