// Package sqlite implements store.Store on an embedded SQLite database
// via the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/harborlane/retaildex/internal/domain"
	"github.com/harborlane/retaildex/internal/store"
)

// Compile-time check: Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store is a SQLite-backed persistence layer.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	account_id TEXT PRIMARY KEY,
	index_blob BLOB,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS retail_records (
	id           TEXT PRIMARY KEY,
	account_id   TEXT NOT NULL REFERENCES accounts(account_id),
	invoice      TEXT NOT NULL,
	stock_code   TEXT NOT NULL,
	description  TEXT NOT NULL,
	quantity     INTEGER NOT NULL,
	invoice_date TEXT NOT NULL,
	price        REAL NOT NULL,
	customer_id  TEXT NOT NULL,
	country      TEXT NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_retail_records_account
	ON retail_records(account_id);

CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL
);
`

// New opens (creating if needed) a SQLite database at path and applies the schema.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the database handle.
func (s *Store) Close() error {
	return s.db.Close() //nolint:wrapcheck // delegating to database/sql
}

// GetAccount returns the account row for accountID.
func (s *Store) GetAccount(ctx context.Context, accountID string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT account_id, index_blob, created_at, updated_at FROM accounts WHERE account_id = ?`,
		accountID,
	)

	var (
		acc      domain.Account
		blob     []byte
		created  string
		updated  string
	)
	if err := row.Scan(&acc.AccountID, &blob, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}

	acc.IndexBlob = blob
	acc.CreatedAt = parseTime(created)
	acc.UpdatedAt = parseTime(updated)
	return acc, nil
}

// CreateAccount inserts a new account row.
func (s *Store) CreateAccount(ctx context.Context, accountID string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts(account_id, index_blob, created_at, updated_at) VALUES(?, NULL, ?, ?)`,
		accountID, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// SaveIndexBlob overwrites the serialized index of an account.
func (s *Store) SaveIndexBlob(ctx context.Context, accountID string, blob []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET index_blob = ?, updated_at = ? WHERE account_id = ?`,
		blob, now, accountID,
	)
	if err != nil {
		return fmt.Errorf("save index blob: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// InsertRecord stores one retail transaction row.
func (s *Store) InsertRecord(ctx context.Context, rec domain.RetailRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO retail_records
			(id, account_id, invoice, stock_code, description, quantity, invoice_date, price, customer_id, country, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AccountID, rec.Invoice, rec.StockCode, rec.Description,
		rec.Quantity, rec.InvoiceDate.UTC().Format(time.RFC3339), rec.Price,
		rec.CustomerID, rec.Country, createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// CountRecords returns the number of retail rows for an account.
func (s *Store) CountRecords(ctx context.Context, accountID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM retail_records WHERE account_id = ?`, accountID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// DeleteAccountData removes the account row and all its records.
func (s *Store) DeleteAccountData(ctx context.Context, accountID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM retail_records WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM accounts WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get retrieves a KV value. store.ErrKeyNotFound if absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrKeyNotFound
		}
		return nil, fmt.Errorf("kv get: %w", err)
	}
	return value, nil
}

// Set stores a KV value, overwriting any previous one.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv(key, value, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now,
	)
	if err != nil {
		return fmt.Errorf("kv set: %w", err)
	}
	return nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// isUniqueViolation matches SQLite's primary key constraint error text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
