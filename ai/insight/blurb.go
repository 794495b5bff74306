package insight

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/mirrormatch/ai/core/llm"
	"github.com/hrygo/mirrormatch/matching"
)

const blurbSystem = "You are a warm, insightful matchmaker who writes honest, specific connection blurbs. Never generic. Always grounded in real evidence. Return only valid JSON."

// Blurb is the "why you two should connect" note.
type Blurb struct {
	Hook          string           `json:"hook"`
	Blurb         string           `json:"blurb"`
	SharedTraits  []string         `json:"shared_traits"`
	Complementary []string         `json:"complementary"`
	Score         float64          `json:"score"`
	Grade         matching.Grade   `json:"grade"`
	Context       matching.Context `json:"context"`
}

var blurbSchema = llm.Object(map[string]*llm.JSONSchema{
	"hook":          llm.String("one punchy sentence, max 12 words"),
	"blurb":         llm.String("2-3 specific, warm, honest sentences"),
	"shared_traits": llm.Array(llm.String(""), "traits they both have"),
	"complementary": llm.Array(llm.String(""), "how each fills the other's gap"),
})

type blurbPrompt struct {
	Context          string
	NameA, NameB     string
	Strengths        string
	Percent          string
	Grade            matching.Grade
	StrengthEvidence string
	TensionEvidence  string
	Clashes          string
	Bonuses          string
}

// Blurb scores a and b in c and asks for a blurb.
func (g *Generator) Blurb(ctx context.Context, a, b Party, c matching.Context) (*Blurb, error) {
	result, err := g.scorer.Score(a.Vector, b.Vector, c)
	if err != nil {
		return nil, err
	}
	return g.BlurbFor(ctx, a, b, result)
}

// BlurbFor asks for a blurb about an already computed result.
func (g *Generator) BlurbFor(ctx context.Context, a, b Party, result *matching.MatchResult) (*Blurb, error) {
	user, err := render("blurb.tmpl", blurbPrompt{
		Context:          strings.ToUpper(string(result.Context)),
		NameA:            a.nameOr("Person A"),
		NameB:            b.nameOr("Person B"),
		Strengths:        mustJSON(head(result.TopStrengths, 3)),
		Percent:          percent(result.Score),
		Grade:            result.Grade,
		StrengthEvidence: mustJSON(pairEvidence(a.Vector, b.Vector, head(result.TopStrengths, 3))),
		TensionEvidence:  mustJSON(pairEvidence(a.Vector, b.Vector, head(result.TopTensions, 2))),
		Clashes:          mustJSON(result.Clashes),
		Bonuses:          mustJSON(result.Bonuses),
	})
	if err != nil {
		return nil, err
	}

	var out Blurb
	if err := g.call(ctx, blurbSystem, user, blurbTemperature, "connection_blurb", blurbSchema, &out); err != nil {
		return nil, fmt.Errorf("failed to generate blurb: %w", err)
	}
	out.Score = result.Score
	out.Grade = result.Grade
	out.Context = result.Context
	return &out, nil
}

// pairEvidence quotes both sides for each contribution where A has evidence.
func pairEvidence(a, b *matching.PersonalityVector, cs []matching.Contribution) []string {
	out := []string{}
	for _, c := range cs {
		ea := a.EvidenceFor(c.Variable)
		if ea == "" {
			continue
		}
		out = append(out, fmt.Sprintf("%s: '%s' / '%s'", c.Variable, ea, b.EvidenceFor(c.Variable)))
	}
	return out
}

func head(cs []matching.Contribution, n int) []matching.Contribution {
	if len(cs) > n {
		return cs[:n]
	}
	return cs
}
