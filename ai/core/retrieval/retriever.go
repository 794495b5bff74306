// Package retrieval is the first matching phase: a similarity scan over the
// stored archetypes of one partition.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hrygo/mirrormatch/matching"
	"github.com/hrygo/mirrormatch/store"
)

// DefaultOversample is how many candidates are fetched per requested match,
// leaving the re-ranker room to reorder.
const DefaultOversample = 2

// DefaultLimit is used when a query does not set one.
const DefaultLimit = 10

// Searcher is the similarity-search port. *store.Store implements it.
type Searcher interface {
	SearchCandidates(ctx context.Context, find *store.FindCandidates) ([]*store.Candidate, error)
}

// Query describes one retrieval.
type Query struct {
	Vector    *matching.PersonalityVector
	Partition string
	ExcludeID string
	Limit     int
}

// Retriever fetches eligible candidates ranked by raw cosine similarity.
type Retriever struct {
	searcher   Searcher
	registry   *matching.Registry
	oversample int
	logger     *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithOversample sets the oversample factor. Values below 1 are ignored.
func WithOversample(n int) Option {
	return func(r *Retriever) {
		if n >= 1 {
			r.oversample = n
		}
	}
}

// WithRegistry sets the registry that orders query vectors.
func WithRegistry(reg *matching.Registry) Option {
	return func(r *Retriever) { r.registry = reg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// NewRetriever creates a Retriever over s.
func NewRetriever(s Searcher, opts ...Option) *Retriever {
	r := &Retriever{
		searcher:   s,
		registry:   matching.DefaultRegistry(),
		oversample: DefaultOversample,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Oversample returns the configured factor.
func (r *Retriever) Oversample() int {
	return r.oversample
}

// Retrieve asks the backend for Limit × oversample candidates. Only active
// partition members below the abandonment threshold are returned, highest
// similarity first. An empty partition is not an error.
func (r *Retriever) Retrieve(ctx context.Context, q *Query) ([]*store.Candidate, error) {
	if q == nil || q.Vector == nil {
		return nil, errors.New("retrieval query needs a vector")
	}
	if err := q.Vector.Validate(); err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	candidates, err := r.searcher.SearchCandidates(ctx, &store.FindCandidates{
		PartitionID:   q.Partition,
		ExcludeUserID: q.ExcludeID,
		Embedding:     q.Vector.Ordered(r.registry),
		Limit:         limit * r.oversample,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search candidates: %w", err)
	}

	r.logger.DebugContext(ctx, "retrieved candidates",
		"partition", q.Partition,
		"requested", limit*r.oversample,
		"found", len(candidates),
	)
	return candidates, nil
}
