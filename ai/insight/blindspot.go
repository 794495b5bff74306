package insight

import (
	"context"
	"fmt"
	"math"

	"github.com/hrygo/mirrormatch/ai/core/llm"
	"github.com/hrygo/mirrormatch/matching"
)

const blindSpotSystem = "You are an empathetic but honest psychologist. You reveal blind spots with care: both hidden strengths the person underestimates, and growth edges they may not see. Never cruel. Always specific. Return only valid JSON."

// surpriseGap is the minimum difference that makes a trait pair notable.
const surpriseGap = 0.35

const maxEvidenceLines = 15

// TraitInsight is one observation about a trait.
type TraitInsight struct {
	Trait   string  `json:"trait"`
	Score   float64 `json:"score"`
	Insight string  `json:"insight"`
}

// BlindSpot is the self-knowledge report.
type BlindSpot struct {
	HiddenStrengths []TraitInsight `json:"hidden_strengths"`
	GrowthEdges     []TraitInsight `json:"growth_edges"`
	Pattern         string         `json:"pattern"`
	Reframe         string         `json:"reframe"`
}

var traitInsightSchema = llm.Object(map[string]*llm.JSONSchema{
	"trait":   llm.String("variable name"),
	"score":   {Type: "number"},
	"insight": llm.String(""),
})

var blindSpotSchema = llm.Object(map[string]*llm.JSONSchema{
	"hidden_strengths": llm.Array(traitInsightSchema, "underrated qualities"),
	"growth_edges":     llm.Array(traitInsightSchema, "honest, caring observations"),
	"pattern":          llm.String("one overarching observation"),
	"reframe":          llm.String("one empowering reframe"),
})

// SurprisingPair is a pair of traits expected to move together that do not.
type SurprisingPair struct {
	Pair  string  `json:"pair"`
	Label string  `json:"label"`
	A     float64 `json:"a"`
	B     float64 `json:"b"`
}

var watchedPairs = []struct {
	a, b, label string
}{
	{"empathy_signaling", "emotional_neediness", "High empathy but also high neediness"},
	{"intellectual_humility", "contrarianism", "Open to being wrong but rarely challenges others"},
	{"ambition", "execution_bias", "Ambitious but not wired to just ship"},
	{"leadership_drive", "collaboration_enjoyment", "Wants to lead but loves collaboration"},
	{"vulnerability", "emotional_expressiveness", "Opens up but doesn't always show it"},
	{"optimism", "long_term_thinking", "Optimistic but lives in the present"},
}

// SurprisingPairs lists the watched pairs whose values differ by more than 0.35.
func SurprisingPairs(v *matching.PersonalityVector) []SurprisingPair {
	out := []SurprisingPair{}
	for _, p := range watchedPairs {
		sa, sb := v.Value(p.a), v.Value(p.b)
		if math.Abs(sa-sb) > surpriseGap {
			out = append(out, SurprisingPair{
				Pair:  p.a + " vs " + p.b,
				Label: p.label,
				A:     math.Round(sa*100) / 100,
				B:     math.Round(sb*100) / 100,
			})
		}
	}
	return out
}

type blindSpotPrompt struct {
	Name       string
	Top        string
	Bottom     string
	Surprising string
	Evidence   string
}

// BlindSpot asks for hidden strengths and growth edges of p.
func (g *Generator) BlindSpot(ctx context.Context, p Party) (*BlindSpot, error) {
	reg := g.scorer.Registry()
	sorted := reg.SortedByValue(p.Vector)

	type scored struct {
		Variable string  `json:"variable"`
		Score    float64 `json:"score"`
	}
	pick := func(names []string) []scored {
		out := make([]scored, len(names))
		for i, n := range names {
			out[i] = scored{Variable: n, Score: p.Vector.Value(n)}
		}
		return out
	}
	top := sorted[:min(10, len(sorted))]
	bottom := make([]string, 0, 10)
	for i := len(sorted) - 1; i >= 0 && len(bottom) < 10; i-- {
		bottom = append(bottom, sorted[i])
	}

	evidence := map[string]string{}
	for _, n := range reg.Names() {
		if len(evidence) == maxEvidenceLines {
			break
		}
		if e := p.Vector.EvidenceFor(n); e != "" {
			evidence[n] = e
		}
	}

	surprising := SurprisingPairs(p.Vector)
	if len(surprising) > 4 {
		surprising = surprising[:4]
	}

	user, err := render("blindspot.tmpl", blindSpotPrompt{
		Name:       p.nameOr("this person"),
		Top:        mustJSON(pick(top)),
		Bottom:     mustJSON(pick(bottom)),
		Surprising: mustJSON(surprising),
		Evidence:   mustJSON(evidence),
	})
	if err != nil {
		return nil, err
	}

	var out BlindSpot
	if err := g.call(ctx, blindSpotSystem, user, blindSpotTemperature, "blind_spot", blindSpotSchema, &out); err != nil {
		return nil, fmt.Errorf("failed to generate blind spot: %w", err)
	}
	return &out, nil
}
