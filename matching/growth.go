package matching

import (
	"fmt"
	"math"
	"strings"
)

const (
	consistentChange = 0.05
	notableMove      = 0.1
)

// TraitDelta is a labelled change in one variable.
type TraitDelta struct {
	Variable string  `json:"variable"`
	Label    string  `json:"label"`
	Delta    float64 `json:"delta"`
}

// Growth compares two snapshots of one person.
type Growth struct {
	DimensionDeltas   map[string]float64 `json:"dimension_deltas"`
	VariableDeltas    map[string]float64 `json:"variable_deltas"`
	BiggestGrowth     TraitDelta         `json:"biggest_growth"`
	BiggestRegression TraitDelta         `json:"biggest_regression"`
	MostStable        TraitDelta         `json:"most_stable"`
	OverallChange     float64            `json:"overall_change"`
	Narrative         string             `json:"narrative"`
	PastDimScores     map[string]float64 `json:"past_dim_scores"`
	NowDimScores      map[string]float64 `json:"now_dim_scores"`
	LabelPast         string             `json:"label_past"`
	LabelNow          string             `json:"label_now"`
}

// Default snapshot labels.
const (
	DefaultLabelPast = "6 months ago"
	DefaultLabelNow  = "today"
)

// GrowthDiff compares past and now over the variables now carries.
func (r *Registry) GrowthDiff(past, now *PersonalityVector, labelPast, labelNow string) *Growth {
	if labelPast == "" {
		labelPast = DefaultLabelPast
	}
	if labelNow == "" {
		labelNow = DefaultLabelNow
	}

	names := r.scoredNames(now)
	deltas := make(map[string]float64, len(names))
	ordered := make([]float64, len(names))
	for i, n := range names {
		d := round(now.Value(n)-past.Value(n), 3)
		deltas[n] = d
		ordered[i] = d
	}

	dims := make(map[string]float64, len(r.groups))
	for _, g := range r.groups {
		dims[g.Name] = round(r.groupAverage(now, g)-r.groupAverage(past, g), 3)
	}

	// Regression takes the first minimum, growth the last maximum.
	regIdx, growIdx, stableIdx := 0, 0, 0
	var absSum float64
	var grew, dropped int
	for i, d := range ordered {
		if d < ordered[regIdx] {
			regIdx = i
		}
		if d >= ordered[growIdx] {
			growIdx = i
		}
		if math.Abs(d) < math.Abs(ordered[stableIdx]) {
			stableIdx = i
		}
		absSum += math.Abs(d)
		if d > notableMove {
			grew++
		}
		if d < -notableMove {
			dropped++
		}
	}
	overall := round(absSum/float64(len(ordered)), 3)

	td := func(i int) TraitDelta {
		return TraitDelta{Variable: names[i], Label: Label(names[i]), Delta: ordered[i]}
	}

	var narrative string
	switch {
	case overall < consistentChange:
		narrative = fmt.Sprintf("You've been remarkably consistent between %s and %s. Your core personality is stable.", labelPast, labelNow)
	case grew > dropped:
		narrative = fmt.Sprintf("You've grown significantly since %s, especially in %s. %d traits strengthened, %d softened.",
			labelPast, strings.ReplaceAll(names[growIdx], "_", " "), grew, dropped)
	default:
		narrative = fmt.Sprintf("A period of change and recalibration between %s and %s. Some edges softened, some sharpened.", labelPast, labelNow)
	}

	return &Growth{
		DimensionDeltas:   dims,
		VariableDeltas:    deltas,
		BiggestGrowth:     td(growIdx),
		BiggestRegression: td(regIdx),
		MostStable:        td(stableIdx),
		OverallChange:     overall,
		Narrative:         narrative,
		PastDimScores:     r.GroupAverages(past),
		NowDimScores:      r.GroupAverages(now),
		LabelPast:         labelPast,
		LabelNow:          labelNow,
	}
}

// GrowthDiff compares two snapshots against the default registry.
func GrowthDiff(past, now *PersonalityVector, labelPast, labelNow string) *Growth {
	return DefaultRegistry().GrowthDiff(past, now, labelPast, labelNow)
}
