package matching

import (
	"math"
	"sort"
	"sync"
)

// Grade is the letter band for a final score.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
)

// GradeFor maps a final score onto its band. Lower bounds are inclusive.
func GradeFor(score float64) Grade {
	switch {
	case score >= 0.88:
		return GradeAPlus
	case score >= 0.80:
		return GradeA
	case score >= 0.70:
		return GradeB
	case score >= 0.60:
		return GradeC
	default:
		return GradeD
	}
}

// topN is the number of strengths and tensions reported per match.
const topN = 5

// Contribution is one variable's share of the base score.
type Contribution struct {
	Variable string  `json:"variable"`
	Dyadic   float64 `json:"score"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// MatchResult is the outcome of scoring two vectors in one context.
type MatchResult struct {
	Context         Context            `json:"context"`
	Score           float64            `json:"score"`
	Grade           Grade              `json:"grade"`
	BaseScore       float64            `json:"base_score"`
	Adjustment      float64            `json:"adjustment"`
	DimensionScores map[string]float64 `json:"dimension_scores"`
	TopStrengths    []Contribution     `json:"top_strengths"`
	TopTensions     []Contribution     `json:"top_tensions"`
	Clashes         []Adjustment       `json:"clash_penalties"`
	Bonuses         []Adjustment       `json:"bonuses"`
}

// Scorer computes weighted compatibility against a registry and rule table.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	registry *Registry
	rules    []Rule
}

// NewScorer returns a scorer over reg and rules. A nil rules slice disables
// adjustments.
func NewScorer(reg *Registry, rules []Rule) *Scorer {
	rs := make([]Rule, len(rules))
	copy(rs, rules)
	return &Scorer{registry: reg, rules: rs}
}

var (
	defaultScorerOnce sync.Once
	defaultScorer     *Scorer
)

// DefaultScorer uses DefaultRegistry and DefaultRules.
func DefaultScorer() *Scorer {
	defaultScorerOnce.Do(func() {
		defaultScorer = NewScorer(DefaultRegistry(), DefaultRules())
	})
	return defaultScorer
}

// Score scores (a, b) in ctx with the default scorer.
func Score(a, b *PersonalityVector, ctx Context) (*MatchResult, error) {
	return DefaultScorer().Score(a, b, ctx)
}

// Registry returns the registry the scorer reads.
func (s *Scorer) Registry() *Registry {
	return s.registry
}

// Rules returns a copy of the scorer's rule table.
func (s *Scorer) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Dyadic compares two values under mode.
func Dyadic(mode Mode, a, b float64) float64 {
	d := math.Abs(a - b)
	if mode == ModeComplement {
		return d
	}
	return 1 - d
}

// Score computes the full MatchResult. The final score is not rounded.
func (s *Scorer) Score(a, b *PersonalityVector, ctx Context) (*MatchResult, error) {
	if !ctx.Valid() {
		return nil, &InvalidContextError{Value: string(ctx)}
	}

	vars := s.registry.variables
	normalized := s.registry.NormalizedWeights(ctx)
	dyadic := make(map[string]float64, len(vars))
	contributions := make([]Contribution, len(vars))

	var base float64
	for i, v := range vars {
		d := Dyadic(v.Mode, a.Value(v.Name), b.Value(v.Name))
		dyadic[v.Name] = d
		w := normalized[i]
		base += w * d
		contributions[i] = Contribution{
			Variable: v.Name,
			Dyadic:   d,
			Weight:   w,
			Weighted: w * d,
		}
	}

	dims := make(map[string]float64, len(s.registry.groups))
	for _, g := range s.registry.groups {
		var sum, total float64
		for _, name := range g.Variables {
			v, _ := s.registry.Lookup(name)
			w := v.Weights.For(ctx)
			sum += w * dyadic[name]
			total += w
		}
		if total == 0 {
			dims[g.Name] = NeutralValue
			continue
		}
		dims[g.Name] = sum / total
	}

	clashes, bonuses := EvaluateRules(s.rules, a, b, ctx)
	var adjustment float64
	for _, c := range clashes {
		adjustment += c.Magnitude
	}
	for _, bn := range bonuses {
		adjustment += bn.Magnitude
	}

	final := math.Max(0, math.Min(1, base+adjustment))

	strengths := make([]Contribution, len(contributions))
	copy(strengths, contributions)
	sort.SliceStable(strengths, func(i, j int) bool {
		return strengths[i].Weighted > strengths[j].Weighted
	})

	tensions := make([]Contribution, len(contributions))
	copy(tensions, contributions)
	sort.SliceStable(tensions, func(i, j int) bool {
		return tensions[i].Weighted < tensions[j].Weighted
	})

	return &MatchResult{
		Context:         ctx,
		Score:           final,
		Grade:           GradeFor(final),
		BaseScore:       base,
		Adjustment:      adjustment,
		DimensionScores: dims,
		TopStrengths:    head(strengths, topN),
		TopTensions:     head(tensions, topN),
		Clashes:         clashes,
		Bonuses:         bonuses,
	}, nil
}

func head(cs []Contribution, n int) []Contribution {
	if len(cs) > n {
		cs = cs[:n]
	}
	return cs
}
