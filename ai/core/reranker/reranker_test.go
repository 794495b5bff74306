package reranker

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/mirrormatch/matching"
	"github.com/hrygo/mirrormatch/store"
)

func uniform(v float64) *matching.PersonalityVector {
	scores := map[string]float64{}
	for _, name := range matching.DefaultRegistry().Names() {
		scores[name] = v
	}
	return &matching.PersonalityVector{Scores: scores}
}

func TestRerank_OrdersByWeightedScore(t *testing.T) {
	query := uniform(0.6)
	candidates := []*store.Candidate{
		{UserID: "far", Similarity: 0.99, Vector: uniform(0.1)},
		{UserID: "twin", Similarity: 0.5, Vector: uniform(0.6)},
		{UserID: "near", Similarity: 0.7, Vector: uniform(0.5)},
	}

	results, err := New(nil).Rerank(query, candidates, matching.ContextHackathon, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "twin", results[0].Candidate.UserID)
	assert.Equal(t, "near", results[1].Candidate.UserID)
	assert.GreaterOrEqual(t, results[0].Match.Score, results[1].Match.Score)
	assert.NotNil(t, results[0].RedFlags)
	assert.Equal(t, 0.5, results[0].Candidate.Similarity)
}

func TestRerank_TiesKeepRetrievalOrder(t *testing.T) {
	candidates := []*store.Candidate{
		{UserID: "a", Vector: uniform(0.5)},
		{UserID: "b", Vector: uniform(0.5)},
		{UserID: "c", Vector: uniform(0.5)},
	}
	results, err := New(nil).Rerank(uniform(0.5), candidates, matching.ContextFriendship, 0)
	require.NoError(t, err)

	var ids []string
	for _, r := range results {
		ids = append(ids, r.Candidate.UserID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestRerank_DoesNotMutateInput(t *testing.T) {
	cand := &store.Candidate{UserID: "a", Similarity: 0.8, Vector: uniform(0.3)}
	before := *cand
	beforeVector := cand.Vector.Clone()

	results, err := New(nil).Rerank(uniform(0.7), []*store.Candidate{cand}, matching.ContextRomantic, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)

	results[0].Candidate.Vector.Scores["curiosity"] = 1
	results[0].Candidate.UserID = "changed"

	assert.Equal(t, before.UserID, cand.UserID)
	if diff := cmp.Diff(beforeVector, cand.Vector); diff != "" {
		t.Errorf("candidate vector changed (-before +after):\n%s", diff)
	}
}

func TestRerank_Empty(t *testing.T) {
	results, err := New(nil).Rerank(uniform(0.5), nil, matching.ContextHackathon, 10)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRerank_InvalidContext(t *testing.T) {
	_, err := New(nil).Rerank(uniform(0.5), nil, "work", 10)
	assert.ErrorIs(t, err, matching.ErrInvalidContext)
}
