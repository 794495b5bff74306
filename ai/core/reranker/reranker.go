// Package reranker is the second matching phase: full weighted scoring of
// retrieved candidates.
package reranker

import (
	"sort"

	"github.com/hrygo/mirrormatch/matching"
	"github.com/hrygo/mirrormatch/store"
)

// Result is one re-ranked candidate. Candidate is a private copy.
type Result struct {
	Candidate store.Candidate
	Match     *matching.MatchResult
	RedFlags  *matching.RadarReport
}

// Reranker scores candidates against a query vector.
type Reranker struct {
	scorer *matching.Scorer
}

// New returns a Reranker. A nil scorer uses the default one.
func New(scorer *matching.Scorer) *Reranker {
	if scorer == nil {
		scorer = matching.DefaultScorer()
	}
	return &Reranker{scorer: scorer}
}

// Rerank scores every candidate in c, sorts by weighted score descending
// and keeps the first topN. Ties keep retrieval order. topN <= 0 keeps all.
// The input slice and its candidates are not modified.
func (r *Reranker) Rerank(query *matching.PersonalityVector, candidates []*store.Candidate, c matching.Context, topN int) ([]Result, error) {
	if !c.Valid() {
		return nil, &matching.InvalidContextError{Value: string(c)}
	}

	results := make([]Result, 0, len(candidates))
	for _, cand := range candidates {
		snapshot := *cand
		snapshot.Vector = cand.Vector.Clone()

		m, err := r.scorer.Score(query, snapshot.Vector, c)
		if err != nil {
			return nil, err
		}
		flags, err := matching.RedFlagRadar(query, snapshot.Vector, c)
		if err != nil {
			return nil, err
		}
		results = append(results, Result{Candidate: snapshot, Match: m, RedFlags: flags})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Match.Score > results[j].Match.Score
	})
	if topN > 0 && topN < len(results) {
		results = results[:topN]
	}
	return results, nil
}
