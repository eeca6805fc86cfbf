package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KrakenDCA/internal/model"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_Deposit(t *testing.T) {
	r := openTestRecorder(t)
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	err := r.RecordDeposit(&DepositEvent{
		CycleID:  "c1",
		At:       at,
		Currency: "USD",
		Fiat:     decimal.NewFromInt(1000),
		Buckets: map[model.AssetID]decimal.Decimal{
			"XBT": decimal.NewFromInt(700),
			"ETH": decimal.NewFromInt(300),
		},
		Deadline: at.Add(12 * time.Hour),
	})
	require.NoError(t, err)

	var fiat, buckets string
	var ts int64
	require.NoError(t, r.db.QueryRow(`SELECT timestamp, fiat, buckets FROM deposits`).Scan(&ts, &fiat, &buckets))
	assert.Equal(t, at.Unix(), ts)
	assert.Equal(t, "1000", fiat)
	assert.Equal(t, "ETH=300,XBT=700", buckets)
}

func TestSQLiteRecorder_BuyKeepsDecimalPrecision(t *testing.T) {
	r := openTestRecorder(t)
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		require.NoError(t, r.RecordBuy(&BuyEvent{
			CycleID:     "c1",
			At:          at,
			Asset:       "XBT",
			Size:        decimal.RequireFromString("0.0001"),
			Price:       decimal.RequireFromString("50000.1"),
			FiatSpent:   decimal.RequireFromString("5.00001"),
			BucketAfter: decimal.RequireFromString("694.99999"),
			Description: "buy 0.00010000 XBTUSD @ market",
		}))
	}

	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM buys WHERE asset = 'XBT'`).Scan(&n))
	assert.Equal(t, 2, n)

	var spent string
	require.NoError(t, r.db.QueryRow(`SELECT fiat_spent FROM buys LIMIT 1`).Scan(&spent))
	assert.Equal(t, "5.00001", spent)
}

func TestSQLiteRecorder_Withdrawal(t *testing.T) {
	r := openTestRecorder(t)

	require.NoError(t, r.RecordWithdrawal(&WithdrawalEvent{
		CycleID:    "c2",
		At:         time.Now(),
		Asset:      "XBT",
		AddressKey: "cold",
		Amount:     decimal.RequireFromString("0.015"),
		Error:      "EFunding:Insufficient funds",
	}))

	var success bool
	var errText string
	require.NoError(t, r.db.QueryRow(`SELECT success, error FROM withdrawals`).Scan(&success, &errText))
	assert.False(t, success)
	assert.Equal(t, "EFunding:Insufficient funds", errText)
}

func TestSQLiteRecorder_ReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	r, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	require.NoError(t, r.RecordBuy(&BuyEvent{Asset: "ETH", At: time.Now()}))
	require.NoError(t, r.Close())

	r, err = NewSQLiteRecorder(path)
	require.NoError(t, err)
	defer r.Close()
	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM buys`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordDeposit(&DepositEvent{}))
	assert.NoError(t, r.RecordBuy(&BuyEvent{}))
	assert.NoError(t, r.RecordWithdrawal(&WithdrawalEvent{}))
	assert.NoError(t, r.Close())
}
