package matching

import "math"

// Severity of a red flag.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Risk is the overall verdict of a red-flag radar.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// RedFlag is a single private friction warning.
type RedFlag struct {
	Variable string   `json:"variable"`
	Severity Severity `json:"severity"`
	Warning  string   `json:"warning"`
}

// RadarReport is the full red-flag readout for a pairing.
type RadarReport struct {
	Flags       []RedFlag `json:"flags"`
	OverallRisk Risk      `json:"overall_risk"`
	Advice      string    `json:"advice"`
	Context     Context   `json:"context"`
}

type redFlagCheck struct {
	id       string
	severity Severity
	context  Context // empty applies everywhere
	holds    func(a, b *PersonalityVector) bool
	warning  string
}

func bothAbove(name string, t float64) func(a, b *PersonalityVector) bool {
	return func(a, b *PersonalityVector) bool {
		return a.Value(name) > t && b.Value(name) > t
	}
}

func bothBelow(name string, t float64) func(a, b *PersonalityVector) bool {
	return func(a, b *PersonalityVector) bool {
		return a.Value(name) < t && b.Value(name) < t
	}
}

func gapAbove(name string, t float64) func(a, b *PersonalityVector) bool {
	return func(a, b *PersonalityVector) bool {
		return math.Abs(a.Value(name)-b.Value(name)) > t
	}
}

var redFlagChecks = []redFlagCheck{
	{
		id: "hotheadedness", severity: SeverityHigh,
		holds:   bothAbove("hotheadedness", 0.7),
		warning: "Both of you flare up quickly. Under stress, deadlines and disagreements could escalate fast.",
	},
	{
		id: "directness_gap", severity: SeverityMedium,
		holds:   gapAbove("directness", 0.6),
		warning: "One of you is very direct, the other very diplomatic. What feels honest to one may feel harsh to the other.",
	},
	{
		id: "life_pace_gap", severity: SeverityMedium,
		holds:   gapAbove("life_pace", 0.6),
		warning: "Your life paces are very different. One of you is always moving, the other more deliberate. This creates friction over time.",
	},
	{
		id: "low_feedback_receptivity", severity: SeverityMedium,
		holds: func(a, b *PersonalityVector) bool {
			return a.Value("feedback_receptivity") < 0.35 || b.Value("feedback_receptivity") < 0.35
		},
		warning: "One of you struggles to receive criticism. Honest conversations may feel like attacks.",
	},
	{
		id: "mutual_neediness", severity: SeverityMedium,
		holds:   bothAbove("emotional_neediness", 0.75),
		warning: "Both of you seek emotional support and validation. Neither may have enough to give the other.",
	},
	{
		id: "structure_mismatch", severity: SeverityHigh, context: ContextHackathon,
		holds:   gapAbove("structure_need", 0.65),
		warning: "One of you needs clear process and plans while the other thrives in chaos. At 3am with 6 hours left, this will be a problem.",
	},
	{
		id: "dual_leadership", severity: SeverityHigh, context: ContextHackathon,
		holds:   bothAbove("leadership_drive", 0.8),
		warning: "Both of you naturally take charge. Without an explicit role split upfront, expect power struggles.",
	},
	{
		id: "horizon_mismatch", severity: SeverityHigh, context: ContextRomantic,
		holds:   gapAbove("long_term_thinking", 0.6),
		warning: "One of you thinks in years and decades; the other lives in the present. Conversations about the future may feel threatening to one of you.",
	},
	{
		id: "independence_gap", severity: SeverityMedium, context: ContextRomantic,
		holds:   gapAbove("independence_value", 0.6),
		warning: "One of you needs a lot of space and autonomy; the other values closeness and togetherness. This tension needs explicit conversation early.",
	},
	{
		id: "low_mutual_humility", severity: SeverityMedium,
		holds:   bothBelow("intellectual_humility", 0.3),
		warning: "Neither of you finds it easy to admit you're wrong. Disagreements may turn into standoffs.",
	},
}

var riskAdvice = map[Risk]string{
	RiskHigh:   "There are some real friction points here. That doesn't mean it won't work, but go in with eyes open and set expectations early.",
	RiskMedium: "A few things worth being aware of. Most of these are manageable with good communication.",
	RiskLow:    "No major red flags. The friction points that exist are normal and workable.",
}

// RedFlagRadar lists the friction warnings for (a, b) in ctx.
func RedFlagRadar(a, b *PersonalityVector, ctx Context) (*RadarReport, error) {
	if !ctx.Valid() {
		return nil, &InvalidContextError{Value: string(ctx)}
	}

	flags := []RedFlag{}
	var highs, mediums int
	for _, c := range redFlagChecks {
		if c.context != "" && c.context != ctx {
			continue
		}
		if !c.holds(a, b) {
			continue
		}
		flags = append(flags, RedFlag{Variable: c.id, Severity: c.severity, Warning: c.warning})
		if c.severity == SeverityHigh {
			highs++
		} else {
			mediums++
		}
	}

	risk := OverallRisk(highs, mediums)
	return &RadarReport{
		Flags:       flags,
		OverallRisk: risk,
		Advice:      riskAdvice[risk],
		Context:     ctx,
	}, nil
}

// OverallRisk folds flag counts into a single risk level.
func OverallRisk(highs, mediums int) Risk {
	switch {
	case highs >= 2 || (highs >= 1 && mediums >= 2):
		return RiskHigh
	case highs == 1 || mediums >= 2:
		return RiskMedium
	default:
		return RiskLow
	}
}
