package matching

import (
	"sort"
	"strings"
)

// Trait is one labelled variable value.
type Trait struct {
	Variable string  `json:"variable"`
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
}

// Portrait summarizes a single vector for the self-view.
type Portrait struct {
	DimensionScores map[string]float64 `json:"dimension_scores"`
	AllScores       map[string]float64 `json:"all_scores"`
	Highest         Trait              `json:"highest"`
	Lowest          Trait              `json:"lowest"`
	Top5            []Trait            `json:"top5"`
	Bottom5         []Trait            `json:"bottom5"`
	Confidence      Confidence         `json:"confidence"`
	MessageCount    int                `json:"message_count"`
}

// Label renders a variable name as title-cased words.
func Label(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// GroupAverages returns the plain mean of each group's values, rounded to 3.
func (r *Registry) GroupAverages(v *PersonalityVector) map[string]float64 {
	out := make(map[string]float64, len(r.groups))
	for _, g := range r.groups {
		out[g.Name] = round(r.groupAverage(v, g), 3)
	}
	return out
}

func (r *Registry) groupAverage(v *PersonalityVector, g Group) float64 {
	if len(g.Variables) == 0 {
		return NeutralValue
	}
	var sum float64
	for _, name := range g.Variables {
		sum += v.Value(name)
	}
	return sum / float64(len(g.Variables))
}

// SelfPortrait builds the portrait for v over the variables it carries.
// A vector with no scores is read across the full registry at the neutral value.
func (r *Registry) SelfPortrait(v *PersonalityVector) *Portrait {
	names := r.scoredNames(v)
	sort.SliceStable(names, func(i, j int) bool {
		return v.Value(names[i]) > v.Value(names[j])
	})

	trait := func(name string) Trait {
		return Trait{Variable: name, Label: Label(name), Value: round(v.Value(name), 3)}
	}

	all := make(map[string]float64, len(names))
	for _, n := range names {
		all[n] = round(v.Value(n), 3)
	}

	p := &Portrait{
		DimensionScores: r.GroupAverages(v),
		AllScores:       all,
		Highest:         trait(names[0]),
		Lowest:          trait(names[len(names)-1]),
		Confidence:      v.ConfidenceOrUnknown(),
		MessageCount:    v.MessageCount,
	}
	for i := 0; i < len(names) && i < topN; i++ {
		p.Top5 = append(p.Top5, trait(names[i]))
	}
	start := len(names) - topN
	if start < 0 {
		start = 0
	}
	for _, n := range names[start:] {
		p.Bottom5 = append(p.Bottom5, trait(n))
	}
	return p
}

// scoredNames returns the registry names v carries, in registry order,
// followed by any extra keys in sorted order.
func (r *Registry) scoredNames(v *PersonalityVector) []string {
	if v == nil || len(v.Scores) == 0 {
		return r.Names()
	}
	var names, extra []string
	for _, n := range r.Names() {
		if _, ok := v.Scores[n]; ok {
			names = append(names, n)
		}
	}
	for n := range v.Scores {
		if !r.Has(n) {
			extra = append(extra, n)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// SelfPortrait builds a portrait against the default registry.
func SelfPortrait(v *PersonalityVector) *Portrait {
	return DefaultRegistry().SelfPortrait(v)
}
