package matching

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoVariableRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry([]Variable{
		sim("v1", 0.6, 0.6, 0.6),
		comp("v2", 0.4, 0.4, 0.4),
	}, []Group{
		{Name: "first", Variables: []string{"v1"}},
		{Name: "second", Variables: []string{"v2"}},
	})
	require.NoError(t, err)
	return r
}

func randomVector(rng *rand.Rand, r *Registry) *PersonalityVector {
	scores := make(map[string]float64, r.Len())
	for _, name := range r.Names() {
		scores[name] = rng.Float64()
	}
	return &PersonalityVector{Scores: scores}
}

func TestScore_WorkedExample(t *testing.T) {
	s := NewScorer(twoVariableRegistry(t), nil)
	a := &PersonalityVector{Scores: map[string]float64{"v1": 0.8, "v2": 0.2}}
	b := &PersonalityVector{Scores: map[string]float64{"v1": 0.6, "v2": 0.9}}

	res, err := s.Score(a, b, ContextHackathon)
	require.NoError(t, err)

	assert.InDelta(t, 0.76, res.Score, 1e-9)
	assert.Equal(t, GradeB, res.Grade)
	assert.Empty(t, res.Clashes)
	assert.Empty(t, res.Bonuses)
	assert.InDelta(t, 0.8, res.DimensionScores["first"], 1e-9)
	assert.InDelta(t, 0.7, res.DimensionScores["second"], 1e-9)

	require.Len(t, res.TopStrengths, 2)
	assert.Equal(t, "v1", res.TopStrengths[0].Variable)
	assert.InDelta(t, 0.8, res.TopStrengths[0].Dyadic, 1e-9)
	assert.InDelta(t, 0.6, res.TopStrengths[0].Weight, 1e-9)
	assert.Equal(t, "v2", res.TopTensions[0].Variable)
}

func TestScore_InvalidContext(t *testing.T) {
	_, err := Score(&PersonalityVector{}, &PersonalityVector{}, Context("coworker"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidContext))
}

func TestDyadic_EqualValues(t *testing.T) {
	for _, x := range []float64{0, 0.3, 0.5, 1} {
		assert.Equal(t, 1.0, Dyadic(ModeSimilarity, x, x))
		assert.Equal(t, 0.0, Dyadic(ModeComplement, x, x))
	}
}

func TestGradeFor(t *testing.T) {
	testCases := []struct {
		score float64
		want  Grade
	}{
		{1.0, GradeAPlus},
		{0.88, GradeAPlus},
		{0.879999, GradeA},
		{0.80, GradeA},
		{0.799999, GradeB},
		{0.70, GradeB},
		{0.60, GradeC},
		{0.599999, GradeD},
		{0, GradeD},
	}
	for _, tc := range testCases {
		if got := GradeFor(tc.score); got != tc.want {
			t.Errorf("GradeFor(%v) = %v, want %v", tc.score, got, tc.want)
		}
	}
}

func TestScore_StaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	r := DefaultRegistry()
	for i := 0; i < 200; i++ {
		a, b := randomVector(rng, r), randomVector(rng, r)
		for _, ctx := range AllContexts {
			res, err := Score(a, b, ctx)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res.Score, 0.0)
			assert.LessOrEqual(t, res.Score, 1.0)
			assert.Equal(t, GradeFor(res.Score), res.Grade)
		}
	}
}

func TestScore_ClampsLargeAdjustments(t *testing.T) {
	reg := twoVariableRegistry(t)
	a := &PersonalityVector{Scores: map[string]float64{"v1": 0.1}}
	b := &PersonalityVector{Scores: map[string]float64{"v1": 0.9}}

	penalty := NewScorer(reg, []Rule{NewGapRule("huge_gap", "v1", 0.5, -5)})
	res, err := penalty.Score(a, b, ContextFriendship)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, GradeD, res.Grade)
	assert.InDelta(t, -5.0, res.Adjustment, 1e-12)

	boost := NewScorer(reg, []Rule{NewGapRule("huge_gap", "v1", 0.5, 5)})
	res, err = boost.Score(a, b, ContextFriendship)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, GradeAPlus, res.Grade)
}

func TestScore_Idempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := DefaultRegistry()
	a, b := randomVector(rng, r), randomVector(rng, r)

	first, err := Score(a, b, ContextRomantic)
	require.NoError(t, err)
	second, err := Score(a, b, ContextRomantic)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Score() not idempotent (-first +second):\n%s", diff)
	}
}

func TestScore_TopFiveTiesKeepRegistryOrder(t *testing.T) {
	// Identical neutral vectors: every similarity variable scores 1, so the
	// ranking is by weight alone and equal weights keep registry order.
	r, err := NewRegistry([]Variable{
		sim("a", 1, 1, 1), sim("b", 1, 1, 1), sim("c", 1, 1, 1),
		sim("d", 1, 1, 1), sim("e", 1, 1, 1), sim("f", 1, 1, 1),
	}, []Group{{Name: "all", Variables: []string{"a", "b", "c", "d", "e", "f"}}})
	require.NoError(t, err)

	res, err := NewScorer(r, nil).Score(&PersonalityVector{}, &PersonalityVector{}, ContextHackathon)
	require.NoError(t, err)

	var strengths, tensions []string
	for _, c := range res.TopStrengths {
		strengths = append(strengths, c.Variable)
	}
	for _, c := range res.TopTensions {
		tensions = append(tensions, c.Variable)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, strengths)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, tensions)
}

func TestScore_GroupRollupZeroWeight(t *testing.T) {
	r, err := NewRegistry([]Variable{
		sim("a", 1, 1, 1),
		sim("b", 0, 1, 1),
	}, []Group{
		{Name: "main", Variables: []string{"a"}},
		{Name: "unweighted", Variables: []string{"b"}},
	})
	require.NoError(t, err)

	a := &PersonalityVector{Scores: map[string]float64{"b": 0}}
	b := &PersonalityVector{Scores: map[string]float64{"b": 1}}
	res, err := NewScorer(r, nil).Score(a, b, ContextHackathon)
	require.NoError(t, err)
	assert.Equal(t, NeutralValue, res.DimensionScores["unweighted"])
	assert.InDelta(t, 1.0, res.Score, 1e-12)
}

func TestScore_DefaultRulesApplied(t *testing.T) {
	a := &PersonalityVector{Scores: map[string]float64{
		"collaboration_enjoyment": 0.9,
		"intellectual_humility":   0.9,
		"directness":              0.05,
	}}
	b := &PersonalityVector{Scores: map[string]float64{
		"collaboration_enjoyment": 0.8,
		"intellectual_humility":   0.8,
		"directness":              0.95,
	}}

	res, err := Score(a, b, ContextFriendship)
	require.NoError(t, err)

	want := []Adjustment{{RuleID: "directness_gap", Magnitude: -0.10}}
	if diff := cmp.Diff(want, res.Clashes); diff != "" {
		t.Errorf("clashes mismatch (-want +got):\n%s", diff)
	}
	want = []Adjustment{
		{RuleID: "mutual_collaboration", Magnitude: 0.08},
		{RuleID: "mutual_humility", Magnitude: 0.06},
	}
	if diff := cmp.Diff(want, res.Bonuses); diff != "" {
		t.Errorf("bonuses mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 0.04, res.Adjustment, 1e-12)
}

func TestAllContextScores(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	r := DefaultRegistry()
	a, b := randomVector(rng, r), randomVector(rng, r)

	all, err := AllContextScores(a, b)
	require.NoError(t, err)
	require.Len(t, all.Results, 3)

	best := all.Results[all.BestContext]
	for _, ctx := range AllContexts {
		assert.LessOrEqual(t, all.Results[ctx].Score, best.Score)
	}
	assert.Equal(t, contextSummaries[all.BestContext], all.Summary)
}
