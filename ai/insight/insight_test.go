package insight

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/mirrormatch/ai/core/llm/llmtest"
	"github.com/hrygo/mirrormatch/matching"
)

func vectorWith(scores map[string]float64, evidence map[string]string) *matching.PersonalityVector {
	return &matching.PersonalityVector{Scores: scores, Evidence: evidence}
}

func TestBlurb(t *testing.T) {
	fake := &llmtest.Fake{Response: "```json\n" + `{"hook":"Builders who finish","blurb":"Both ship.","shared_traits":["execution_bias"],"complementary":["a","b"]}` + "\n```"}
	g := NewGenerator(fake, nil)

	a := Party{Name: "Alice", Vector: vectorWith(
		map[string]float64{"execution_bias": 0.9, "curiosity": 0.8},
		map[string]string{"execution_bias": "shipped it friday", "curiosity": matching.NoSignal},
	)}
	b := Party{Name: "Bob", Vector: vectorWith(map[string]float64{"execution_bias": 0.85}, nil)}

	out, err := g.Blurb(context.Background(), a, b, matching.ContextHackathon)
	require.NoError(t, err)

	expected, err := matching.Score(a.Vector, b.Vector, matching.ContextHackathon)
	require.NoError(t, err)
	assert.Equal(t, "Builders who finish", out.Hook)
	assert.Equal(t, []string{"execution_bias"}, out.SharedTraits)
	assert.Equal(t, expected.Score, out.Score)
	assert.Equal(t, expected.Grade, out.Grade)
	assert.Equal(t, matching.ContextHackathon, out.Context)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, float32(0.8), calls[0].Temperature)
	assert.Equal(t, "connection_blurb", calls[0].SchemaName)
	assert.Equal(t, blurbSystem, calls[0].Messages[0].Content)

	prompt := fake.LastUserPrompt()
	assert.Contains(t, prompt, "HACKATHON")
	assert.Contains(t, prompt, "Alice and Bob")
	assert.NotContains(t, prompt, matching.NoSignal)
}

func TestBlurb_Errors(t *testing.T) {
	boom := errors.New("boom")
	g := NewGenerator(&llmtest.Fake{Err: boom}, nil)
	p := Party{Vector: &matching.PersonalityVector{}}

	_, err := g.Blurb(context.Background(), p, p, matching.ContextRomantic)
	assert.ErrorIs(t, err, boom)

	_, err = g.Blurb(context.Background(), p, p, "work")
	assert.ErrorIs(t, err, matching.ErrInvalidContext)

	g = NewGenerator(&llmtest.Fake{Response: "not json"}, nil)
	_, err = g.Blurb(context.Background(), p, p, matching.ContextRomantic)
	assert.Error(t, err)
}

func TestOpeningMessage(t *testing.T) {
	fake := &llmtest.Fake{Response: `{"message":"hey","tone":"playful","why_it_works":"matches"}`}
	g := NewGenerator(fake, nil)

	a := Party{Name: "Ana", Vector: vectorWith(map[string]float64{"directness": 0.9, "humor_style": 0.2}, nil)}
	b := Party{Vector: vectorWith(map[string]float64{"emotional_expressiveness": 0.1}, nil)}

	out, err := g.OpeningMessage(context.Background(), a, b, matching.ContextFriendship)
	require.NoError(t, err)
	assert.Equal(t, &OpeningMessage{Message: "hey", Tone: "playful", WhyItWorks: "matches"}, out)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, float32(0.85), calls[0].Temperature)

	prompt := fake.LastUserPrompt()
	assert.Contains(t, prompt, "Ana wants to send an opening message to them")
	assert.Contains(t, prompt, "Directness: 0.90")
	assert.Contains(t, prompt, "Emotional expressiveness: 0.10")
	assert.Contains(t, prompt, "Relationship type: "+matching.RelationshipType(a.Vector, b.Vector).Type)
}

func TestSurprisingPairs(t *testing.T) {
	v := vectorWith(map[string]float64{
		"empathy_signaling":   0.912,
		"emotional_neediness": 0.2,
		"ambition":            0.8,
		"execution_bias":      0.5, // gap 0.3 stays under the bar
	}, nil)

	pairs := SurprisingPairs(v)
	require.Len(t, pairs, 1)
	assert.Equal(t, SurprisingPair{
		Pair:  "empathy_signaling vs emotional_neediness",
		Label: "High empathy but also high neediness",
		A:     0.91,
		B:     0.2,
	}, pairs[0])

	assert.Empty(t, SurprisingPairs(&matching.PersonalityVector{}))
}

func TestBlindSpot(t *testing.T) {
	fake := &llmtest.Fake{Response: `{"hidden_strengths":[{"trait":"loyalty","score":0.9,"insight":"steady"}],"growth_edges":[],"pattern":"p","reframe":"r"}`}
	g := NewGenerator(fake, nil)

	p := Party{Name: "Kai", Vector: vectorWith(
		map[string]float64{"leadership_drive": 0.95, "collaboration_enjoyment": 0.3, "loyalty": 0.9},
		map[string]string{"loyalty": "stuck with the team", "humor_style": matching.NoSignal},
	)}
	out, err := g.BlindSpot(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, out.HiddenStrengths, 1)
	assert.Equal(t, "loyalty", out.HiddenStrengths[0].Trait)
	assert.Equal(t, "r", out.Reframe)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, float32(0.75), calls[0].Temperature)
	assert.Equal(t, "blind_spot", calls[0].SchemaName)

	prompt := fake.LastUserPrompt()
	assert.Contains(t, prompt, "Here is Kai's personality vector")
	assert.Contains(t, prompt, "Wants to lead but loves collaboration")
	assert.Contains(t, prompt, "stuck with the team")
	assert.NotContains(t, prompt, matching.NoSignal)
}

func TestQuizVariables(t *testing.T) {
	scores := map[string]float64{}
	evidence := map[string]string{}
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("trait_%02d", i)
		scores[name] = 0.75 + 0.02*float64(i)
		evidence[name] = "quote " + name
	}
	scores["loud"] = 0.0
	evidence["loud"] = matching.NoSignal
	scores["quiet"] = 0.05

	got := QuizVariables(vectorWith(scores, evidence))
	require.Len(t, got, QuizSize)
	assert.Equal(t, "trait_11", got[0].Variable)
	assert.Equal(t, 0.97, got[0].Score)
	assert.Equal(t, "quote trait_11", got[0].Evidence)
	for _, q := range got {
		assert.NotEqual(t, "loud", q.Variable)
		assert.NotEqual(t, "quiet", q.Variable)
	}
}

func TestQuiz(t *testing.T) {
	fake := &llmtest.Fake{Response: `{"questions":[{"id":1,"question":"q","variable":"ambition","correct_answer":0.9,"correct_label":"very","options":["a","b","c","d"],"correct_index":2,"evidence":"e"}],"scoring":{"perfect":"p","good":"g","okay":"o","miss":"m"}}`}
	g := NewGenerator(fake, nil)

	_, err := g.Quiz(context.Background(), Party{Vector: &matching.PersonalityVector{}})
	assert.ErrorIs(t, err, ErrNoQuizSignal)
	assert.Empty(t, fake.Calls())

	p := Party{Name: "Sam", Vector: vectorWith(
		map[string]float64{"ambition": 0.95},
		map[string]string{"ambition": "ten year plan"},
	)}
	out, err := g.Quiz(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, out.Questions, 1)
	assert.Equal(t, 2, out.Questions[0].CorrectIndex)
	assert.Len(t, out.Questions[0].Options, 4)
	assert.Equal(t, "m", out.Scoring.Miss)

	assert.Equal(t, float32(0.7), fake.Calls()[0].Temperature)
	assert.Contains(t, fake.LastUserPrompt(), "Generate 1 quiz questions")
	assert.Contains(t, fake.LastUserPrompt(), "guessing scores for: Sam")
}
