// Package team selects the best fixed-size team from a pool by exhaustive
// search over every k-subset.
package team

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/mirrormatch/matching"
)

const (
	// DefaultMaxPool bounds the pool an exhaustive search will accept.
	DefaultMaxPool = 30
	// DefaultMaxSubsets bounds C(pool, k). A pool of 30 allows k up to 5
	// (142,506 subsets); k = 6 gives 593,775.
	DefaultMaxSubsets = 1_000_000
	// DefaultTeamSize is used when callers do not pick one.
	DefaultTeamSize = 4
	// RoleBonus is added once per covered role.
	RoleBonus = 0.02
	// RunnerUpCount is the number of alternatives reported after the best team.
	RunnerUpCount = 3

	gapThreshold      = 0.45
	strengthThreshold = 0.65

	// cancellation is checked once per this many subsets.
	checkEvery = 1 << 12
)

// Role is a team function covered when any member meets its threshold.
type Role struct {
	Variable  string  `json:"variable"`
	Threshold float64 `json:"threshold"`
}

// DefaultRoles are the hackathon roles rewarded by the search.
var DefaultRoles = []Role{
	{Variable: "execution_bias", Threshold: 0.65},
	{Variable: "systems_thinking", Threshold: 0.65},
	{Variable: "detail_orientation", Threshold: 0.60},
	{Variable: "leadership_drive", Threshold: 0.65},
	{Variable: "novelty_seeking", Threshold: 0.60},
}

// Member is one pool entry.
type Member struct {
	Name   string
	Vector *matching.PersonalityVector
}

// Config configures an Optimizer.
type Config struct {
	MaxPool    int
	MaxSubsets int
	Roles      []Role
	Scorer     *matching.Scorer
}

// Optimizer runs the exhaustive team search. It is safe for concurrent use.
type Optimizer struct {
	maxPool    int
	maxSubsets int
	roles      []Role
	scorer     *matching.Scorer
}

// NewOptimizer applies defaults for zero-valued fields.
func NewOptimizer(cfg Config) *Optimizer {
	o := &Optimizer{
		maxPool:    cfg.MaxPool,
		maxSubsets: cfg.MaxSubsets,
		roles:      cfg.Roles,
		scorer:     cfg.Scorer,
	}
	if o.maxPool <= 0 {
		o.maxPool = DefaultMaxPool
	}
	if o.maxSubsets <= 0 {
		o.maxSubsets = DefaultMaxSubsets
	}
	if o.roles == nil {
		o.roles = DefaultRoles
	}
	if o.scorer == nil {
		o.scorer = matching.DefaultScorer()
	}
	return o
}

// MaxPool returns the configured pool bound.
func (o *Optimizer) MaxPool() int {
	return o.maxPool
}

// MaxSubsets returns the configured bound on subsets per search.
func (o *Optimizer) MaxSubsets() int {
	return o.maxSubsets
}

// Candidate is a scored subset.
type Candidate struct {
	Members []string `json:"members"`
	Score   float64  `json:"score"`
}

// PairScore is the hackathon score of one pair in the team.
type PairScore struct {
	A     string  `json:"a"`
	B     string  `json:"b"`
	Score float64 `json:"score"`
}

// Coverage names the member strongest in a group.
type Coverage struct {
	BestMember string  `json:"best_person"`
	Score      float64 `json:"score"`
}

// Team is the winning subset and its report.
type Team struct {
	Members         []string            `json:"optimal_team"`
	Score           float64             `json:"team_score"`
	Pairwise        []PairScore         `json:"pairwise_scores"`
	CoveredRoles    []string            `json:"covered_roles"`
	GroupAverages   map[string]float64  `json:"team_dim_averages"`
	Gaps            []string            `json:"coverage_gaps"`
	Strengths       []string            `json:"coverage_strengths"`
	CoverageByGroup map[string]Coverage `json:"coverage_analysis"`
}

// Result is the full search output.
type Result struct {
	Team             Team        `json:"team"`
	RunnerUps        []Candidate `json:"runner_up_teams"`
	SubsetsEvaluated int         `json:"subsets_evaluated"`
}

// OptimizeNamed is Optimize over parallel names and vectors.
func (o *Optimizer) OptimizeNamed(ctx context.Context, names []string, vectors []*matching.PersonalityVector, k int) (*Result, error) {
	if len(names) != len(vectors) {
		return nil, fmt.Errorf("%w: %d names, %d vectors", ErrLengthMismatch, len(names), len(vectors))
	}
	members := make([]Member, len(names))
	for i := range names {
		members[i] = Member{Name: names[i], Vector: vectors[i]}
	}
	return o.Optimize(ctx, members, k)
}

// Validate checks k, the pool size and the subset count without scoring
// anything.
func (o *Optimizer) Validate(poolSize, k int) error {
	if k < 2 {
		return ErrInvalidTeamSize
	}
	if poolSize < k {
		return &InsufficientPoolError{Required: k, Actual: poolSize}
	}
	if poolSize > o.maxPool {
		return &PoolTooLargeError{Max: o.maxPool, Actual: poolSize}
	}
	if subsets := binomial(poolSize, k, o.maxSubsets); subsets > o.maxSubsets {
		return &PoolTooLargeError{
			Max:        o.maxPool,
			Actual:     poolSize,
			TeamSize:   k,
			Subsets:    subsets,
			MaxSubsets: o.maxSubsets,
		}
	}
	return nil
}

// binomial returns C(n, k), or limit+1 once the running product passes
// limit.
func binomial(n, k, limit int) int {
	if k > n-k {
		k = n - k
	}
	c := 1
	for i := 0; i < k; i++ {
		if c > math.MaxInt/(n-i) {
			return limit + 1
		}
		// exact: C(n, i) * (n-i) is divisible by i+1
		c = c * (n - i) / (i + 1)
		if c > limit {
			return limit + 1
		}
	}
	return c
}

// Optimize returns the highest-scoring k-subset of members. Subsets are
// enumerated in lexicographic index order and ties go to the earlier one.
func (o *Optimizer) Optimize(ctx context.Context, members []Member, k int) (*Result, error) {
	if err := o.Validate(len(members), k); err != nil {
		return nil, err
	}

	matrix, err := o.pairMatrix(ctx, members)
	if err != nil {
		return nil, err
	}

	ranked := newLeaderboard(RunnerUpCount + 1)
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}

	n := len(members)
	evaluated := 0
	for {
		if evaluated%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		ranked.offer(idx, o.subsetScore(members, matrix, idx))
		evaluated++

		// Advance to the next combination in lexicographic order.
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			break
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}

	best := ranked.entries[0]
	result := &Result{
		Team:             o.report(members, matrix, best.indices, best.score),
		RunnerUps:        []Candidate{},
		SubsetsEvaluated: evaluated,
	}
	for _, e := range ranked.entries[1:] {
		result.RunnerUps = append(result.RunnerUps, Candidate{
			Members: names(members, e.indices),
			Score:   e.score,
		})
	}
	return result, nil
}

// pairMatrix scores every pool pair once, one row per goroutine.
func (o *Optimizer) pairMatrix(ctx context.Context, members []Member) ([][]float64, error) {
	n := len(members)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			for j := i + 1; j < n; j++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := o.scorer.Score(members[i].Vector, members[j].Vector, matching.ContextHackathon)
				if err != nil {
					return fmt.Errorf("failed to score %s and %s: %w", members[i].Name, members[j].Name, err)
				}
				// Each goroutine writes only row i and column i of later rows.
				matrix[i][j] = res.Score
				matrix[j][i] = res.Score
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matrix, nil
}

func (o *Optimizer) subsetScore(members []Member, matrix [][]float64, idx []int) float64 {
	var sum float64
	pairs := 0
	for x := 0; x < len(idx); x++ {
		for y := x + 1; y < len(idx); y++ {
			sum += matrix[idx[x]][idx[y]]
			pairs++
		}
	}
	score := sum / float64(pairs)
	score += RoleBonus * float64(len(o.coveredRoles(members, idx)))
	return score
}

func (o *Optimizer) coveredRoles(members []Member, idx []int) []string {
	covered := []string{}
	for _, role := range o.roles {
		for _, i := range idx {
			if members[i].Vector.Value(role.Variable) >= role.Threshold {
				covered = append(covered, role.Variable)
				break
			}
		}
	}
	return covered
}

func (o *Optimizer) report(members []Member, matrix [][]float64, idx []int, score float64) Team {
	reg := o.scorer.Registry()
	t := Team{
		Members:         names(members, idx),
		Score:           score,
		Pairwise:        []PairScore{},
		CoveredRoles:    o.coveredRoles(members, idx),
		GroupAverages:   make(map[string]float64),
		Gaps:            []string{},
		Strengths:       []string{},
		CoverageByGroup: make(map[string]Coverage),
	}

	for x := 0; x < len(idx); x++ {
		for y := x + 1; y < len(idx); y++ {
			t.Pairwise = append(t.Pairwise, PairScore{
				A:     members[idx[x]].Name,
				B:     members[idx[y]].Name,
				Score: matrix[idx[x]][idx[y]],
			})
		}
	}

	averages := make([]map[string]float64, len(idx))
	for x, i := range idx {
		averages[x] = reg.GroupAverages(members[i].Vector)
	}

	for _, group := range reg.GroupNames() {
		var sum float64
		bestX := 0
		for x := range idx {
			v := averages[x][group]
			sum += v
			if v > averages[bestX][group] {
				bestX = x
			}
		}
		avg := round3(sum / float64(len(idx)))
		t.GroupAverages[group] = avg
		if avg < gapThreshold {
			t.Gaps = append(t.Gaps, group)
		}
		if avg > strengthThreshold {
			t.Strengths = append(t.Strengths, group)
		}
		t.CoverageByGroup[group] = Coverage{
			BestMember: members[idx[bestX]].Name,
			Score:      averages[bestX][group],
		}
	}
	return t
}

func names(members []Member, idx []int) []string {
	out := make([]string, len(idx))
	for x, i := range idx {
		out[x] = members[i].Name
	}
	return out
}
