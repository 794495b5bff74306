package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)
	Migrate(ctx context.Context) error

	// Archetype model related methods.
	UpsertArchetype(ctx context.Context, upsert *UpsertArchetype) (*Archetype, error)
	GetArchetype(ctx context.Context, find *FindArchetype) (*Archetype, error)
	SearchCandidates(ctx context.Context, find *FindCandidates) ([]*Candidate, error)
	ListPool(ctx context.Context, find *FindPool) ([]*Archetype, error)

	// Lifecycle transitions. Each is a single statement.
	IncrementAbandonment(ctx context.Context, userID, partitionID string) (*AbandonmentState, error)
	ApplyLedgerCount(ctx context.Context, userID string, count int) ([]*AbandonmentState, error)

	// WalletLink model related methods.
	LinkWallet(ctx context.Context, link *WalletLink) error
	ResolveWallet(ctx context.Context, wallet string) (string, error)

	// MatchRecord model related methods.
	CreateMatchRecords(ctx context.Context, records []*MatchRecord) error
	ListMatchRecords(ctx context.Context, find *FindMatchRecord) ([]*MatchRecord, error)
}
