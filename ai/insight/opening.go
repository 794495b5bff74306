package insight

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/mirrormatch/ai/core/llm"
	"github.com/hrygo/mirrormatch/matching"
)

const openingSystem = "You write opening messages between two people meeting for the first time. Natural, specific, never cringe. Return only valid JSON."

// OpeningMessage is a drafted first message from A to B.
type OpeningMessage struct {
	Message    string `json:"message"`
	Tone       string `json:"tone"`
	WhyItWorks string `json:"why_it_works"`
}

var openingSchema = llm.Object(map[string]*llm.JSONSchema{
	"message":      llm.String("the opening message, under 3 sentences"),
	"tone":         llm.String("one word describing the tone"),
	"why_it_works": llm.String("one sentence on why it fits this pairing"),
})

var openingTraitsA = []string{"directness", "humor_frequency", "humor_style", "formality"}
var openingTraitsB = []string{"directness", "humor_frequency", "emotional_expressiveness"}

type openingPrompt struct {
	Context      string
	NameA, NameB string
	A, B         map[string]string
	Relationship matching.Relationship
	TopTrait     string
	Percent      string
}

// OpeningMessage drafts a message from a to b calibrated to both styles.
func (g *Generator) OpeningMessage(ctx context.Context, a, b Party, c matching.Context) (*OpeningMessage, error) {
	result, err := g.scorer.Score(a.Vector, b.Vector, c)
	if err != nil {
		return nil, err
	}

	topTrait := "curiosity"
	if len(result.TopStrengths) > 0 {
		topTrait = result.TopStrengths[0].Variable
	}
	user, err := render("opening.tmpl", openingPrompt{
		Context:      strings.ToUpper(string(c)),
		NameA:        a.nameOr("me"),
		NameB:        b.nameOr("them"),
		A:            traitValues(a.Vector, openingTraitsA),
		B:            traitValues(b.Vector, openingTraitsB),
		Relationship: matching.RelationshipType(a.Vector, b.Vector),
		TopTrait:     topTrait,
		Percent:      percent(result.Score),
	})
	if err != nil {
		return nil, err
	}

	var out OpeningMessage
	if err := g.call(ctx, openingSystem, user, openingTemperature, "opening_message", openingSchema, &out); err != nil {
		return nil, fmt.Errorf("failed to generate opening message: %w", err)
	}
	return &out, nil
}

func traitValues(v *matching.PersonalityVector, names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		out[n] = fmt.Sprintf("%.2f", v.Value(n))
	}
	return out
}
