package matching

import (
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"
)

// Direction is the comparison used by a threshold condition.
type Direction string

const (
	// Above holds when value > threshold.
	Above Direction = "above"
	// Below holds when value < threshold.
	Below Direction = "below"
)

// RuleKind identifies which variant a Rule carries.
type RuleKind string

const (
	RuleKindGap       RuleKind = "gap"
	RuleKindThreshold RuleKind = "threshold"
)

// Rule is a clash (negative magnitude) or bonus (positive magnitude) applied
// on top of the weighted base score. Exactly one of Gap or Threshold is set.
type Rule struct {
	ID        string         `yaml:"id"`
	Magnitude float64        `yaml:"magnitude"`
	Contexts  []Context      `yaml:"contexts,omitempty"`
	Gap       *GapRule       `yaml:"gap,omitempty"`
	Threshold *ThresholdRule `yaml:"threshold,omitempty"`
}

// GapRule fires when |A.Variable - B.Variable| >= Min.
type GapRule struct {
	Variable string  `yaml:"variable"`
	Min      float64 `yaml:"min"`
}

// ThresholdRule fires when First holds on vector A and Second holds on vector B.
// It is directional: swapping A and B can change the outcome when the two
// variables differ.
type ThresholdRule struct {
	First  Condition `yaml:"first"`
	Second Condition `yaml:"second"`
}

// Condition is one side of a ThresholdRule.
type Condition struct {
	Variable  string    `yaml:"variable"`
	Direction Direction `yaml:"direction"`
	Value     float64   `yaml:"value"`
}

func (c Condition) holds(v *PersonalityVector) bool {
	x := v.Value(c.Variable)
	switch c.Direction {
	case Above:
		return x > c.Value
	case Below:
		return x < c.Value
	}
	return false
}

// Adjustment is a triggered rule and its signed magnitude.
type Adjustment struct {
	RuleID    string  `json:"rule"`
	Magnitude float64 `json:"magnitude"`
}

// NewGapRule builds a gap rule. No contexts means every context.
func NewGapRule(id, variable string, min, magnitude float64, contexts ...Context) Rule {
	return Rule{
		ID:        id,
		Magnitude: magnitude,
		Contexts:  contexts,
		Gap:       &GapRule{Variable: variable, Min: min},
	}
}

// NewThresholdRule builds a directional pairwise-threshold rule.
func NewThresholdRule(id string, first, second Condition, magnitude float64, contexts ...Context) Rule {
	return Rule{
		ID:        id,
		Magnitude: magnitude,
		Contexts:  contexts,
		Threshold: &ThresholdRule{First: first, Second: second},
	}
}

// BothAbove is a threshold rule requiring both vectors to exceed value on variable.
func BothAbove(id, variable string, value, magnitude float64, contexts ...Context) Rule {
	c := Condition{Variable: variable, Direction: Above, Value: value}
	return NewThresholdRule(id, c, c, magnitude, contexts...)
}

// Kind reports the variant carried by r.
func (r Rule) Kind() RuleKind {
	if r.Gap != nil {
		return RuleKindGap
	}
	return RuleKindThreshold
}

// AppliesTo reports whether r is scoped to ctx.
func (r Rule) AppliesTo(ctx Context) bool {
	if len(r.Contexts) == 0 {
		return true
	}
	for _, c := range r.Contexts {
		if c == ctx {
			return true
		}
	}
	return false
}

// Validate checks the rule against a registry.
func (r Rule) Validate(reg *Registry) error {
	if r.ID == "" {
		return fmt.Errorf("rule has no id")
	}
	if r.Magnitude == 0 || math.IsNaN(r.Magnitude) {
		return fmt.Errorf("rule %s: magnitude must be non-zero", r.ID)
	}
	if (r.Gap == nil) == (r.Threshold == nil) {
		return fmt.Errorf("rule %s: exactly one of gap or threshold must be set", r.ID)
	}
	for _, c := range r.Contexts {
		if !c.Valid() {
			return fmt.Errorf("rule %s: %w", r.ID, &InvalidContextError{Value: string(c)})
		}
	}
	if r.Gap != nil {
		if !reg.Has(r.Gap.Variable) {
			return fmt.Errorf("rule %s: unknown variable %q", r.ID, r.Gap.Variable)
		}
		return nil
	}
	for _, c := range []Condition{r.Threshold.First, r.Threshold.Second} {
		if !reg.Has(c.Variable) {
			return fmt.Errorf("rule %s: unknown variable %q", r.ID, c.Variable)
		}
		if c.Direction != Above && c.Direction != Below {
			return fmt.Errorf("rule %s: unknown direction %q", r.ID, c.Direction)
		}
	}
	return nil
}

// EvaluateRule reports whether r fires for (a, b) under ctx.
func EvaluateRule(r Rule, a, b *PersonalityVector, ctx Context) (Adjustment, bool) {
	if !r.AppliesTo(ctx) {
		return Adjustment{}, false
	}

	var fired bool
	switch {
	case r.Gap != nil:
		fired = math.Abs(a.Value(r.Gap.Variable)-b.Value(r.Gap.Variable)) >= r.Gap.Min
	case r.Threshold != nil:
		fired = r.Threshold.First.holds(a) && r.Threshold.Second.holds(b)
	}
	if !fired {
		return Adjustment{}, false
	}
	return Adjustment{RuleID: r.ID, Magnitude: r.Magnitude}, true
}

// EvaluateRules runs every rule independently and splits the triggered ones
// into clashes (negative) and bonuses (positive), preserving table order.
func EvaluateRules(rules []Rule, a, b *PersonalityVector, ctx Context) (clashes, bonuses []Adjustment) {
	clashes = []Adjustment{}
	bonuses = []Adjustment{}
	for _, r := range rules {
		adj, ok := EvaluateRule(r, a, b, ctx)
		if !ok {
			continue
		}
		if adj.Magnitude < 0 {
			clashes = append(clashes, adj)
		} else {
			bonuses = append(bonuses, adj)
		}
	}
	return clashes, bonuses
}

// DefaultRules returns a copy of the built-in clash and bonus table.
func DefaultRules() []Rule {
	out := make([]Rule, len(defaultRules))
	copy(out, defaultRules)
	return out
}

var defaultRules = []Rule{
	// Clashes
	NewThresholdRule("hotheadedness_vs_low_feedback",
		Condition{Variable: "hotheadedness", Direction: Above, Value: 0.75},
		Condition{Variable: "feedback_receptivity", Direction: Below, Value: 0.3},
		-0.15),
	NewThresholdRule("dual_leadership_rigidity",
		Condition{Variable: "leadership_drive", Direction: Above, Value: 0.8},
		Condition{Variable: "adaptability", Direction: Below, Value: 0.3},
		-0.12, ContextHackathon),
	NewGapRule("directness_gap", "directness", 0.7, -0.10),
	BothAbove("mutual_neediness", "emotional_neediness", 0.8, -0.12, ContextRomantic),
	NewGapRule("life_pace_gap", "life_pace", 0.7, -0.10, ContextRomantic, ContextFriendship),

	// Bonuses
	BothAbove("mutual_collaboration", "collaboration_enjoyment", 0.7, 0.08),
	BothAbove("mutual_humility", "intellectual_humility", 0.7, 0.06),
	BothAbove("mutual_loyalty", "loyalty", 0.7, 0.08, ContextRomantic, ContextFriendship),
	NewThresholdRule("vision_execution",
		Condition{Variable: "abstract_thinking", Direction: Above, Value: 0.7},
		Condition{Variable: "execution_bias", Direction: Above, Value: 0.7},
		0.10, ContextHackathon),
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules decodes a YAML rule table and validates every entry against reg.
func LoadRules(r io.Reader, reg *Registry) ([]Rule, error) {
	var f ruleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rule file contains no rules")
	}

	seen := make(map[string]bool, len(f.Rules))
	for _, rule := range f.Rules {
		if err := rule.Validate(reg); err != nil {
			return nil, err
		}
		if seen[rule.ID] {
			return nil, fmt.Errorf("duplicate rule id %q", rule.ID)
		}
		seen[rule.ID] = true
	}
	return f.Rules, nil
}
