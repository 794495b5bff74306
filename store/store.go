package store

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/mirrormatch/internal/profile"
	"github.com/hrygo/mirrormatch/matching"
	"github.com/hrygo/mirrormatch/store/cache"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// Store provides database access to all raw objects.
type Store struct {
	profile  *profile.Profile
	driver   Driver
	registry *matching.Registry

	// archetypeCache holds rows keyed by "user:partition".
	archetypeCache *cache.LRU[*Archetype]
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:         driver,
		profile:        profile,
		registry:       matching.DefaultRegistry(),
		archetypeCache: cache.NewLRU[*Archetype](cache.DefaultCapacity, 10*time.Minute),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

// Registry returns the registry used to lay out stored embeddings.
func (s *Store) Registry() *matching.Registry {
	return s.registry
}

// Migrate applies the driver schema.
func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	s.archetypeCache.Purge()
	return s.driver.Close()
}

func archetypeKey(userID, partitionID string) string {
	return userID + ":" + partitionID
}

// UpsertArchetype validates the vector, derives its embedding and writes it.
func (s *Store) UpsertArchetype(ctx context.Context, upsert *UpsertArchetype) (*Archetype, error) {
	if upsert.UserID == "" || upsert.PartitionID == "" {
		return nil, errors.New("user id and partition id are required")
	}
	if err := upsert.Vector.Validate(); err != nil {
		return nil, err
	}
	upsert.Embedding = upsert.Vector.Ordered(s.registry)

	archetype, err := s.driver.UpsertArchetype(ctx, upsert)
	if err != nil {
		return nil, err
	}
	s.archetypeCache.Set(archetypeKey(archetype.UserID, archetype.PartitionID), archetype)
	return archetype, nil
}

// GetArchetype returns ErrNotFound when the row is missing.
func (s *Store) GetArchetype(ctx context.Context, find *FindArchetype) (*Archetype, error) {
	key := archetypeKey(find.UserID, find.PartitionID)
	if archetype, ok := s.archetypeCache.Get(key); ok {
		return archetype, nil
	}
	archetype, err := s.driver.GetArchetype(ctx, find)
	if err != nil {
		return nil, err
	}
	s.archetypeCache.Set(key, archetype)
	return archetype, nil
}

func (s *Store) SearchCandidates(ctx context.Context, find *FindCandidates) ([]*Candidate, error) {
	if err := find.Validate(); err != nil {
		return nil, err
	}
	return s.driver.SearchCandidates(ctx, find)
}

func (s *Store) ListPool(ctx context.Context, find *FindPool) ([]*Archetype, error) {
	return s.driver.ListPool(ctx, find)
}

// IncrementAbandonment records one abandonment and returns the new state.
func (s *Store) IncrementAbandonment(ctx context.Context, userID, partitionID string) (*AbandonmentState, error) {
	state, err := s.driver.IncrementAbandonment(ctx, userID, partitionID)
	if err != nil {
		return nil, err
	}
	s.archetypeCache.Delete(archetypeKey(userID, partitionID))
	return state, nil
}

// ApplyLedgerCount raises every partition row of userID to the ledger count.
func (s *Store) ApplyLedgerCount(ctx context.Context, userID string, count int) ([]*AbandonmentState, error) {
	states, err := s.driver.ApplyLedgerCount(ctx, userID, count)
	if err != nil {
		return nil, err
	}
	s.archetypeCache.DeletePrefix(userID + ":")
	return states, nil
}

func (s *Store) LinkWallet(ctx context.Context, link *WalletLink) error {
	if link.Wallet == "" || link.UserID == "" {
		return errors.New("wallet and user id are required")
	}
	// Ledger snapshots key identities by lowercase hex.
	normalized := *link
	normalized.Wallet = strings.ToLower(link.Wallet)
	return s.driver.LinkWallet(ctx, &normalized)
}

func (s *Store) ResolveWallet(ctx context.Context, wallet string) (string, error) {
	return s.driver.ResolveWallet(ctx, strings.ToLower(wallet))
}

func (s *Store) CreateMatchRecords(ctx context.Context, records []*MatchRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.driver.CreateMatchRecords(ctx, records)
}

func (s *Store) ListMatchRecords(ctx context.Context, find *FindMatchRecord) ([]*MatchRecord, error) {
	return s.driver.ListMatchRecords(ctx, find)
}
