// Package matchmaker orchestrates the matching flows: retrieval, re-rank,
// delta annotation, optional blurbs and history for individual matches,
// and pool fetch plus team search for groups.
package matchmaker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hrygo/mirrormatch/ai/core/reranker"
	"github.com/hrygo/mirrormatch/ai/core/retrieval"
	"github.com/hrygo/mirrormatch/ai/insight"
	"github.com/hrygo/mirrormatch/ai/metrics"
	"github.com/hrygo/mirrormatch/ai/services/stats"
	"github.com/hrygo/mirrormatch/matching"
	"github.com/hrygo/mirrormatch/matching/team"
	"github.com/hrygo/mirrormatch/store"
)

const (
	// DefaultTopN is the number of matches returned when a request sets none.
	DefaultTopN = 10
	// DefaultBlurbConcurrency bounds parallel blurb calls per request.
	DefaultBlurbConcurrency = 4
)

// ErrBlurbsUnavailable is returned by blurb-only operations when no
// text-generation backend is configured.
var ErrBlurbsUnavailable = errors.New("text generation is not configured")

// ErrInvalidRequest marks a request missing a required field.
var ErrInvalidRequest = errors.New("invalid request")

// Config configures a Service.
type Config struct {
	Oversample       int
	TeamMaxPool      int
	TeamMaxSubsets   int
	BlurbConcurrency int
	Scorer           *matching.Scorer
}

// Service is the matchmaking entry point shared by the HTTP and MCP surfaces.
type Service struct {
	store     *store.Store
	scorer    *matching.Scorer
	retriever *retrieval.Retriever
	reranker  *reranker.Reranker
	optimizer *team.Optimizer
	generator *insight.Generator
	history   *stats.Persister
	metrics   *metrics.PrometheusExporter
	logger    *slog.Logger
	blurbSem  *semaphore.Weighted
}

// Option configures optional collaborators.
type Option func(*Service)

// WithGenerator enables blurbs and the other text-generation features.
func WithGenerator(g *insight.Generator) Option {
	return func(s *Service) { s.generator = g }
}

// WithHistory records returned matches.
func WithHistory(p *stats.Persister) Option {
	return func(s *Service) { s.history = p }
}

// WithMetrics records request metrics.
func WithMetrics(e *metrics.PrometheusExporter) Option {
	return func(s *Service) { s.metrics = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService wires a Service over st.
func NewService(st *store.Store, cfg Config, opts ...Option) *Service {
	if cfg.Scorer == nil {
		cfg.Scorer = matching.DefaultScorer()
	}
	if cfg.BlurbConcurrency <= 0 {
		cfg.BlurbConcurrency = DefaultBlurbConcurrency
	}

	s := &Service{
		store:    st,
		scorer:   cfg.Scorer,
		reranker: reranker.New(cfg.Scorer),
		optimizer: team.NewOptimizer(team.Config{
			MaxPool:    cfg.TeamMaxPool,
			MaxSubsets: cfg.TeamMaxSubsets,
			Scorer:     cfg.Scorer,
		}),
		logger:   slog.Default(),
		blurbSem: semaphore.NewWeighted(int64(cfg.BlurbConcurrency)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.retriever = retrieval.NewRetriever(st,
		retrieval.WithOversample(cfg.Oversample),
		retrieval.WithRegistry(st.Registry()),
		retrieval.WithLogger(s.logger),
	)
	return s
}

// Scorer returns the scorer every flow uses.
func (s *Service) Scorer() *matching.Scorer {
	return s.scorer
}

// Optimizer returns the team optimizer.
func (s *Service) Optimizer() *team.Optimizer {
	return s.optimizer
}

// Generator returns the text generator, or nil when none is configured.
func (s *Service) Generator() *insight.Generator {
	return s.generator
}

// Metrics returns the exporter, which may be nil.
func (s *Service) Metrics() *metrics.PrometheusExporter {
	return s.metrics
}

// MatchRequest asks for the best matches of one identity in a partition.
type MatchRequest struct {
	UserID        string           `json:"user_id"`
	PartitionID   string           `json:"partition_id"`
	Context       matching.Context `json:"context"`
	TopN          int              `json:"top_n"`
	IncludeBlurbs bool             `json:"include_blurbs"`
	// Vector overrides the stored archetype when set.
	Vector *matching.PersonalityVector `json:"vector,omitempty"`
}

// Match is one returned candidate.
type Match struct {
	UserID          string                  `json:"user_id"`
	CosineScore     float64                 `json:"cosine_score"`
	WeightedScore   float64                 `json:"weighted_score"`
	Grade           matching.Grade          `json:"grade"`
	DimensionScores map[string]float64      `json:"dimension_scores"`
	TopStrengths    []matching.Contribution `json:"top_strengths"`
	TopTensions     []matching.Contribution `json:"top_tensions"`
	Clashes         []matching.Adjustment   `json:"clash_penalties"`
	Bonuses         []matching.Adjustment   `json:"bonuses"`
	RedFlags        *matching.RadarReport   `json:"red_flags"`
	DangerousDeltas []matching.DeltaAlert   `json:"dangerous_deltas"`
	ReputationScore float64                 `json:"reputation_score"`
	Blurb           *insight.Blurb          `json:"blurb"`

	vector *matching.PersonalityVector
}

// MatchResponse is the result of GetMatches.
type MatchResponse struct {
	UserID            string           `json:"user_id"`
	Context           matching.Context `json:"context"`
	PartitionID       string           `json:"partition_id"`
	Matches           []*Match         `json:"matches"`
	CandidatePoolSize int              `json:"candidate_pool_size"`
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// GetMatches runs the individual matching flow. An empty partition is a
// valid empty result.
func (s *Service) GetMatches(ctx context.Context, req *MatchRequest) (resp *MatchResponse, err error) {
	start := time.Now()
	defer func() {
		pool := 0
		if resp != nil {
			pool = resp.CandidatePoolSize
		}
		s.metrics.RecordMatchRequest(string(req.Context), time.Since(start), pool, err == nil)
	}()

	if !req.Context.Valid() {
		return nil, &matching.InvalidContextError{Value: string(req.Context)}
	}
	if req.UserID == "" || req.PartitionID == "" {
		return nil, fmt.Errorf("%w: user_id and partition_id are required", ErrInvalidRequest)
	}
	topN := req.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	query := req.Vector
	if query == nil {
		archetype, err := s.store.GetArchetype(ctx, &store.FindArchetype{UserID: req.UserID, PartitionID: req.PartitionID})
		if err != nil {
			return nil, fmt.Errorf("failed to load archetype of %s: %w", req.UserID, err)
		}
		query = archetype.Vector
	}

	resp = &MatchResponse{
		UserID:      req.UserID,
		Context:     req.Context,
		PartitionID: req.PartitionID,
		Matches:     []*Match{},
	}

	candidates, err := s.retriever.Retrieve(ctx, &retrieval.Query{
		Vector:    query,
		Partition: req.PartitionID,
		ExcludeID: req.UserID,
		Limit:     topN,
	})
	if err != nil {
		return nil, err
	}
	resp.CandidatePoolSize = len(candidates)
	if len(candidates) == 0 {
		return resp, nil
	}

	ranked, err := s.reranker.Rerank(query, candidates, req.Context, topN)
	if err != nil {
		return nil, err
	}

	for _, r := range ranked {
		m := r.Match
		resp.Matches = append(resp.Matches, &Match{
			UserID:          r.Candidate.UserID,
			CosineScore:     round(r.Candidate.Similarity, 4),
			WeightedScore:   m.Score,
			Grade:           m.Grade,
			DimensionScores: m.DimensionScores,
			TopStrengths:    m.TopStrengths,
			TopTensions:     m.TopTensions,
			Clashes:         m.Clashes,
			Bonuses:         m.Bonuses,
			RedFlags:        r.RedFlags,
			DangerousDeltas: matching.DangerousDeltas(query, r.Candidate.Vector, r.Candidate.Similarity),
			ReputationScore: r.Candidate.ReputationScore,
			vector:          r.Candidate.Vector,
		})
		s.metrics.RecordMatchResult(string(m.Grade))
	}

	if req.IncludeBlurbs && s.generator != nil {
		s.attachBlurbs(ctx, query, resp.Matches, ranked)
	}

	s.recordHistory(req, resp)
	return resp, nil
}

// attachBlurbs fills Match.Blurb concurrently. A failed blurb is logged and
// left nil.
func (s *Service) attachBlurbs(ctx context.Context, query *matching.PersonalityVector, matches []*Match, ranked []reranker.Result) {
	var wg sync.WaitGroup
	for i := range matches {
		if err := s.blurbSem.Acquire(ctx, 1); err != nil {
			s.logger.Warn("blurb generation cancelled", "error", err)
			break
		}
		wg.Add(1)
		go func(m *Match, result *matching.MatchResult) {
			defer wg.Done()
			defer s.blurbSem.Release(1)

			blurb, err := s.generator.BlurbFor(ctx,
				insight.Party{Vector: query},
				insight.Party{Vector: m.vector},
				result)
			if err != nil {
				s.metrics.RecordBlurbFailure()
				s.logger.Warn("blurb generation failed", "user_id", m.UserID, "error", err)
				return
			}
			m.Blurb = blurb
		}(matches[i], ranked[i].Match)
	}
	wg.Wait()
}

func (s *Service) recordHistory(req *MatchRequest, resp *MatchResponse) {
	if s.history == nil || len(resp.Matches) == 0 {
		return
	}
	records := make([]*store.MatchRecord, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		flags, _ := json.Marshal(m.RedFlags)
		record := &store.MatchRecord{
			UserAID:       req.UserID,
			UserBID:       m.UserID,
			PartitionID:   req.PartitionID,
			Context:       string(req.Context),
			RawScore:      m.CosineScore,
			WeightedScore: m.WeightedScore,
			Grade:         string(m.Grade),
			RedFlagsJSON:  string(flags),
		}
		if m.Blurb != nil {
			blurb, _ := json.Marshal(m.Blurb)
			record.BlurbJSON = string(blurb)
		}
		records = append(records, record)
	}
	s.history.Enqueue(records)
}

// GroupRequest asks for the best team in a partition.
type GroupRequest struct {
	PartitionID string `json:"partition_id"`
	TeamSize    int    `json:"team_size"`
	// PoolLimit keeps only the highest-reputation members when > 0.
	PoolLimit int `json:"pool_limit,omitempty"`
}

// GroupResponse wraps the optimizer result with the pool it searched.
type GroupResponse struct {
	PartitionID string `json:"partition_id"`
	PoolSize    int    `json:"pool_size"`
	*team.Result
}

// GroupMatch loads the eligible pool, ordered by reputation, and runs the
// team search over it.
func (s *Service) GroupMatch(ctx context.Context, req *GroupRequest) (*GroupResponse, error) {
	if req.PartitionID == "" {
		return nil, fmt.Errorf("%w: partition_id is required", ErrInvalidRequest)
	}
	pool, err := s.store.ListPool(ctx, &store.FindPool{PartitionID: req.PartitionID, Limit: req.PoolLimit})
	if err != nil {
		return nil, err
	}

	members := make([]team.Member, len(pool))
	for i, a := range pool {
		members[i] = team.Member{Name: a.UserID, Vector: a.Vector}
	}
	result, err := s.OptimizeTeam(ctx, members, req.TeamSize)
	if err != nil {
		return nil, err
	}
	return &GroupResponse{PartitionID: req.PartitionID, PoolSize: len(pool), Result: result}, nil
}

// OptimizeTeam runs the team search over an explicit pool.
func (s *Service) OptimizeTeam(ctx context.Context, members []team.Member, k int) (*team.Result, error) {
	return s.recordTeamSearch(s.optimizer.Optimize(ctx, members, k))
}

// OptimizeNamed runs the team search over parallel name and vector lists.
func (s *Service) OptimizeNamed(ctx context.Context, names []string, vectors []*matching.PersonalityVector, k int) (*team.Result, error) {
	return s.recordTeamSearch(s.optimizer.OptimizeNamed(ctx, names, vectors, k))
}

func (s *Service) recordTeamSearch(result *team.Result, err error) (*team.Result, error) {
	if err != nil {
		s.metrics.RecordTeamSearch(0, false)
		return nil, err
	}
	s.metrics.RecordTeamSearch(result.SubsetsEvaluated, true)
	return result, nil
}

// UpsertArchetype stores a vector for (user, partition).
func (s *Service) UpsertArchetype(ctx context.Context, upsert *store.UpsertArchetype) (*store.Archetype, error) {
	return s.store.UpsertArchetype(ctx, upsert)
}

// ReportAbandonment counts one abandonment and returns the new state.
func (s *Service) ReportAbandonment(ctx context.Context, userID, partitionID string) (*store.AbandonmentState, error) {
	state, err := s.store.IncrementAbandonment(ctx, userID, partitionID)
	if err != nil {
		return nil, err
	}
	if state.Status == store.StatusFlagged {
		s.logger.Info("identity flagged after abandonment",
			"user_id", userID,
			"partition_id", partitionID,
			"count", state.Count)
	}
	return state, nil
}

// LinkWallet maps a ledger wallet to an identity.
func (s *Service) LinkWallet(ctx context.Context, link *store.WalletLink) error {
	return s.store.LinkWallet(ctx, link)
}
