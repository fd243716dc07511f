// Package store defines the persistence facade for retaildex: tenant
// accounts with their serialized index blobs, retail transaction records,
// and a small key-value surface used by the embedding cache.
package store

import (
	"context"
	"errors"

	"github.com/harborlane/retaildex/internal/domain"
)

// ErrKeyNotFound signals a missing key in the KV surface.
var ErrKeyNotFound = errors.New("key not found")

// Store is the main persistence facade combining all sub-interfaces.
// Consumers should depend on the narrow sub-interfaces.
type Store interface {
	Pinger
	Accounts
	Records
	KV
	Close() error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Accounts manages tenant rows and their opaque index blobs.
type Accounts interface {
	// GetAccount returns the account row. domain.ErrAccountNotFound if absent.
	GetAccount(ctx context.Context, accountID string) (domain.Account, error)
	// CreateAccount inserts a new account row with an empty index blob.
	// domain.ErrAlreadyExists if the account is already present.
	CreateAccount(ctx context.Context, accountID string) error
	// SaveIndexBlob overwrites the account's serialized index.
	SaveIndexBlob(ctx context.Context, accountID string, blob []byte) error
}

// Records manages retail transaction rows.
type Records interface {
	InsertRecord(ctx context.Context, rec domain.RetailRecord) error
	CountRecords(ctx context.Context, accountID string) (int, error)
	// DeleteAccountData removes the account row and all its records.
	// Used by the seeder to truncate a tenant before reload.
	DeleteAccountData(ctx context.Context, accountID string) error
}

// KV provides simple byte-valued key-value operations.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
