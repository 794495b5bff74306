package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDangerousDeltas_Gating(t *testing.T) {
	a := &PersonalityVector{Scores: map[string]float64{"hotheadedness": 0.05}}
	b := &PersonalityVector{Scores: map[string]float64{"hotheadedness": 0.95}}

	below := DangerousDeltas(a, b, 0.5)
	assert.NotNil(t, below)
	assert.Empty(t, below)

	alerts := DangerousDeltas(a, b, 0.75)
	require.Len(t, alerts, 1)
	assert.Equal(t, "hotheadedness", alerts[0].Dimension)
	assert.Equal(t, 0.05, alerts[0].ValueA)
	assert.Equal(t, 0.95, alerts[0].ValueB)
	assert.Equal(t, 0.9, alerts[0].Delta)
	assert.Equal(t,
		"High overall compatibility masks a significant gap in hotheadedness (delta: 0.90). This could surface under stress.",
		alerts[0].Warning)
}

func TestDangerousDeltas_ThresholdInclusiveAndOrdered(t *testing.T) {
	a := &PersonalityVector{Scores: map[string]float64{
		"independence_value":       0.0,
		"emotional_expressiveness": 0.25,
		"life_pace":                0.5,
	}}
	b := &PersonalityVector{Scores: map[string]float64{
		"independence_value":       0.5,
		"emotional_expressiveness": 0.75,
		"life_pace":                0.9,
	}}

	alerts := DangerousDeltas(a, b, DeltaGate)
	require.Len(t, alerts, 2)
	assert.Equal(t, "emotional_expressiveness", alerts[0].Dimension)
	assert.Equal(t, "independence_value", alerts[1].Dimension)
	assert.Contains(t, alerts[1].Warning, "independence value")
}

func TestRedFlagRadar(t *testing.T) {
	a := &PersonalityVector{Scores: map[string]float64{
		"leadership_drive": 0.9,
		"structure_need":   0.1,
	}}
	b := &PersonalityVector{Scores: map[string]float64{
		"leadership_drive": 0.85,
		"structure_need":   0.9,
	}}

	hack, err := RedFlagRadar(a, b, ContextHackathon)
	require.NoError(t, err)
	var ids []string
	for _, f := range hack.Flags {
		ids = append(ids, f.Variable)
		assert.Equal(t, SeverityHigh, f.Severity)
	}
	assert.Equal(t, []string{"structure_mismatch", "dual_leadership"}, ids)
	assert.Equal(t, RiskHigh, hack.OverallRisk)
	assert.Equal(t, riskAdvice[RiskHigh], hack.Advice)

	rom, err := RedFlagRadar(a, b, ContextRomantic)
	require.NoError(t, err)
	assert.Empty(t, rom.Flags)
	assert.Equal(t, RiskLow, rom.OverallRisk)

	_, err = RedFlagRadar(a, b, Context("work"))
	assert.ErrorIs(t, err, ErrInvalidContext)
}

func TestRedFlagRadar_EitherLowFeedback(t *testing.T) {
	a := &PersonalityVector{Scores: map[string]float64{"feedback_receptivity": 0.9}}
	b := &PersonalityVector{Scores: map[string]float64{"feedback_receptivity": 0.2}}

	r, err := RedFlagRadar(a, b, ContextFriendship)
	require.NoError(t, err)
	require.Len(t, r.Flags, 1)
	assert.Equal(t, "low_feedback_receptivity", r.Flags[0].Variable)
	assert.Equal(t, RiskLow, r.OverallRisk)
}

func TestOverallRisk(t *testing.T) {
	testCases := []struct {
		highs, mediums int
		want           Risk
	}{
		{0, 0, RiskLow},
		{0, 1, RiskLow},
		{0, 2, RiskMedium},
		{1, 0, RiskMedium},
		{1, 1, RiskMedium},
		{1, 2, RiskHigh},
		{2, 0, RiskHigh},
	}
	for _, tc := range testCases {
		if got := OverallRisk(tc.highs, tc.mediums); got != tc.want {
			t.Errorf("OverallRisk(%d, %d) = %v, want %v", tc.highs, tc.mediums, got, tc.want)
		}
	}
}

func TestSelfPortrait(t *testing.T) {
	v := &PersonalityVector{
		Scores: map[string]float64{
			"loyalty":       0.95,
			"ambition":      0.8,
			"optimism":      0.6,
			"hotheadedness": 0.1,
			"verbosity":     0.4,
			"life_pace":     0.5,
		},
		Confidence:   ConfidenceHigh,
		MessageCount: 120,
	}

	p := SelfPortrait(v)
	assert.Equal(t, Trait{Variable: "loyalty", Label: "Loyalty", Value: 0.95}, p.Highest)
	assert.Equal(t, "hotheadedness", p.Lowest.Variable)
	require.Len(t, p.Top5, 5)
	require.Len(t, p.Bottom5, 5)
	assert.Equal(t, "ambition", p.Top5[1].Variable)
	assert.Equal(t, "hotheadedness", p.Bottom5[4].Variable)
	assert.Len(t, p.AllScores, 6)
	assert.Len(t, p.DimensionScores, 6)
	assert.Equal(t, ConfidenceHigh, p.Confidence)
	assert.Equal(t, 120, p.MessageCount)
}

func TestSelfPortrait_EmptyVector(t *testing.T) {
	p := SelfPortrait(&PersonalityVector{})
	assert.Len(t, p.AllScores, 50)
	assert.Equal(t, ConfidenceUnknown, p.Confidence)
	assert.Equal(t, "abstract_thinking", p.Highest.Variable)
	for _, avg := range p.DimensionScores {
		assert.Equal(t, NeutralValue, avg)
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Routine Vs Spontaneity", Label("routine_vs_spontaneity"))
	assert.Equal(t, "Loyalty", Label("loyalty"))
}

func TestGrowthDiff(t *testing.T) {
	past := &PersonalityVector{}
	now := &PersonalityVector{Scores: map[string]float64{
		"loyalty":  0.9,
		"ambition": 0.5,
		"optimism": 0.3,
	}}

	g := GrowthDiff(past, now, "", "")
	assert.Equal(t, DefaultLabelPast, g.LabelPast)
	assert.Equal(t, DefaultLabelNow, g.LabelNow)
	assert.Equal(t, "ambition", g.MostStable.Variable)
	assert.Equal(t, "optimism", g.BiggestRegression.Variable)
	assert.Equal(t, "loyalty", g.BiggestGrowth.Variable)
	assert.Equal(t, 0.4, g.BiggestGrowth.Delta)
	assert.Equal(t, 0.2, g.OverallChange)
	assert.Contains(t, g.Narrative, "recalibration")
	assert.Len(t, g.VariableDeltas, 3)
}

func TestGrowthDiff_Narratives(t *testing.T) {
	base := &PersonalityVector{Scores: map[string]float64{"loyalty": 0.5, "ambition": 0.5}}

	same := GrowthDiff(base, base.Clone(), "last year", "today")
	assert.Equal(t, 0.0, same.OverallChange)
	assert.Contains(t, same.Narrative, "remarkably consistent between last year and today")

	grown := &PersonalityVector{Scores: map[string]float64{"loyalty": 0.9, "ambition": 0.5}}
	g := GrowthDiff(base, grown, "last year", "today")
	assert.Contains(t, g.Narrative, "especially in loyalty. 1 traits strengthened, 0 softened.")
}

func TestRelationshipType(t *testing.T) {
	testCases := []struct {
		name string
		a, b map[string]float64
		want string
	}{
		{
			name: "sparring partners",
			a:    map[string]float64{"contrarianism": 0.8, "intellectual_humility": 0.7},
			b:    map[string]float64{"contrarianism": 0.7, "intellectual_humility": 0.8},
			want: "The Sparring Partners",
		},
		{
			name: "dream team either direction",
			a:    map[string]float64{"execution_bias": 0.8, "ambition": 0.8},
			b:    map[string]float64{"abstract_thinking": 0.8, "ambition": 0.9},
			want: "The Dream Team",
		},
		{
			name: "safe harbor",
			a:    map[string]float64{"empathy_signaling": 0.8, "vulnerability": 0.7},
			b:    map[string]float64{"empathy_signaling": 0.9, "vulnerability": 0.8},
			want: "The Safe Harbor",
		},
		{
			name: "easy ones",
			a:    map[string]float64{"collaboration_enjoyment": 0.8},
			b:    map[string]float64{"collaboration_enjoyment": 0.9},
			want: "The Easy Ones",
		},
		{
			name: "mentor and builder",
			a:    map[string]float64{"collaboration_enjoyment": 0.8, "leadership_drive": 0.9, "life_pace": 0.9},
			b:    map[string]float64{"collaboration_enjoyment": 0.9, "leadership_drive": 0.2, "life_pace": 0.1},
			want: "The Mentor & The Builder",
		},
		{
			name: "rivals",
			a:    map[string]float64{"ambition": 0.9},
			b:    map[string]float64{"ambition": 0.8},
			want: "The Rivals",
		},
		{
			name: "slow burn",
			want: "The Slow Burn",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := RelationshipType(&PersonalityVector{Scores: tc.a}, &PersonalityVector{Scores: tc.b})
			assert.Equal(t, tc.want, got.Type)
			assert.NotEmpty(t, got.DynamicTags)
			assert.True(t, got.NaturalContext.Valid())
		})
	}
}
