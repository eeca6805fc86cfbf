package recorder

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"KrakenDCA/internal/model"
)

// SQLiteRecorder appends journal rows to a SQLite database. Amounts are stored
// as decimal strings so no precision is lost.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logrus.WithField("component", "recorder").Infof("sqlite journal opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS deposits (
			id        TEXT PRIMARY KEY,
			cycle_id  TEXT,
			timestamp INTEGER NOT NULL,
			currency  TEXT,
			fiat      TEXT,
			buckets   TEXT,
			deadline  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deposits_ts ON deposits(timestamp)`,

		`CREATE TABLE IF NOT EXISTS buys (
			id              TEXT PRIMARY KEY,
			cycle_id        TEXT,
			timestamp       INTEGER NOT NULL,
			asset           TEXT,
			size            TEXT,
			price           TEXT,
			fiat_spent      TEXT,
			bucket_after    TEXT,
			next_order_time INTEGER,
			description     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_buys_ts ON buys(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_buys_asset ON buys(asset)`,

		`CREATE TABLE IF NOT EXISTS withdrawals (
			id           TEXT PRIMARY KEY,
			cycle_id     TEXT,
			timestamp    INTEGER NOT NULL,
			asset        TEXT,
			address_key  TEXT,
			amount       TEXT,
			success      INTEGER,
			reference_id TEXT,
			error        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_withdrawals_ts ON withdrawals(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordDeposit(evt *DepositEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]model.AssetID, 0, len(evt.Buckets))
	for id := range evt.Buckets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, string(id)+"="+evt.Buckets[id].String())
	}

	_, err := r.db.Exec(`INSERT INTO deposits
		(id, cycle_id, timestamp, currency, fiat, buckets, deadline)
		VALUES (?,?,?,?,?,?,?)`,
		uuid.NewString(), evt.CycleID, evt.At.Unix(), evt.Currency,
		evt.Fiat.String(), strings.Join(parts, ","), evt.Deadline.Unix(),
	)
	return err
}

func (r *SQLiteRecorder) RecordBuy(evt *BuyEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO buys
		(id, cycle_id, timestamp, asset, size, price, fiat_spent, bucket_after, next_order_time, description)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		uuid.NewString(), evt.CycleID, evt.At.Unix(), string(evt.Asset),
		evt.Size.String(), evt.Price.String(), evt.FiatSpent.String(), evt.BucketAfter.String(),
		evt.NextOrderTime.Unix(), evt.Description,
	)
	return err
}

func (r *SQLiteRecorder) RecordWithdrawal(evt *WithdrawalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO withdrawals
		(id, cycle_id, timestamp, asset, address_key, amount, success, reference_id, error)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		uuid.NewString(), evt.CycleID, evt.At.Unix(), string(evt.Asset), evt.AddressKey,
		evt.Amount.String(), evt.Success, evt.ReferenceID, evt.Error,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
