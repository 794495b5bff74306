package insight

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/hrygo/mirrormatch/ai/core/llm"
	"github.com/hrygo/mirrormatch/matching"
)

const quizSystem = "You generate personality quiz questions. Each question asks someone to guess how a person scored on a trait based on knowing them. Return only valid JSON."

const (
	// QuizSize is the number of questions requested.
	QuizSize = 8
	// quizSignal is the minimum distance from neutral for a quizzable trait.
	quizSignal = 0.2
)

// ErrNoQuizSignal is returned when no variable is strong enough to quiz on.
var ErrNoQuizSignal = errors.New("no variable has enough signal to quiz on")

// QuizQuestion is one multiple-choice question.
type QuizQuestion struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Variable      string   `json:"variable"`
	CorrectAnswer float64  `json:"correct_answer"`
	CorrectLabel  string   `json:"correct_label"`
	Options       []string `json:"options"`
	CorrectIndex  int      `json:"correct_index"`
	Evidence      string   `json:"evidence"`
}

// QuizScoring holds the result messages per score band.
type QuizScoring struct {
	Perfect string `json:"perfect"`
	Good    string `json:"good"`
	Okay    string `json:"okay"`
	Miss    string `json:"miss"`
}

// Quiz is a "how well do you know me" quiz.
type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
	Scoring   QuizScoring    `json:"scoring"`
}

var quizSchema = llm.Object(map[string]*llm.JSONSchema{
	"questions": llm.Array(llm.Object(map[string]*llm.JSONSchema{
		"id":             llm.Integer(""),
		"question":       llm.String(""),
		"variable":       llm.String(""),
		"correct_answer": {Type: "number"},
		"correct_label":  llm.String(""),
		"options":        llm.Array(llm.String(""), "exactly 4 options"),
		"correct_index":  llm.Integer("0-3"),
		"evidence":       llm.String(""),
	}), ""),
	"scoring": llm.Object(map[string]*llm.JSONSchema{
		"perfect": llm.String(""),
		"good":    llm.String(""),
		"okay":    llm.String(""),
		"miss":    llm.String(""),
	}),
})

// QuizVariable is a trait selected for the quiz.
type QuizVariable struct {
	Variable string  `json:"variable"`
	Score    float64 `json:"score"`
	Evidence string  `json:"evidence"`
}

// QuizVariables picks up to QuizSize variables with evidence whose value is
// more than 0.2 from neutral, strongest signal first.
func QuizVariables(v *matching.PersonalityVector) []QuizVariable {
	names := make([]string, 0, len(v.Scores))
	for n := range v.Scores {
		names = append(names, n)
	}
	sort.Strings(names)

	out := []QuizVariable{}
	for _, n := range names {
		s := v.Value(n)
		e := v.EvidenceFor(n)
		if math.Abs(s-matching.NeutralValue) > quizSignal && e != "" {
			out = append(out, QuizVariable{Variable: n, Score: math.Round(s*100) / 100, Evidence: e})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(v.Value(out[i].Variable)-matching.NeutralValue) > math.Abs(v.Value(out[j].Variable)-matching.NeutralValue)
	})
	if len(out) > QuizSize {
		out = out[:QuizSize]
	}
	return out
}

type quizPrompt struct {
	Count     int
	Name      string
	Variables string
}

// Quiz asks for questions about p's strongest traits.
func (g *Generator) Quiz(ctx context.Context, p Party) (*Quiz, error) {
	selected := QuizVariables(p.Vector)
	if len(selected) == 0 {
		return nil, ErrNoQuizSignal
	}

	user, err := render("quiz.tmpl", quizPrompt{
		Count:     len(selected),
		Name:      p.nameOr("them"),
		Variables: mustJSON(selected),
	})
	if err != nil {
		return nil, err
	}

	var out Quiz
	if err := g.call(ctx, quizSystem, user, quizTemperature, "personality_quiz", quizSchema, &out); err != nil {
		return nil, fmt.Errorf("failed to generate quiz: %w", err)
	}
	return &out, nil
}
