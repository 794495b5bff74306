// Package matching implements the compatibility model: the variable registry,
// the pairwise scorer, the adjustment rules and the derived reports built on
// top of them (portraits, growth, red flags, relationship types).
package matching

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Context selects which importance weights and rules apply to a pairing.
type Context string

const (
	ContextHackathon  Context = "hackathon"
	ContextRomantic   Context = "romantic"
	ContextFriendship Context = "friendship"
)

// AllContexts lists the recognized contexts in reporting order.
var AllContexts = []Context{ContextHackathon, ContextRomantic, ContextFriendship}

// Valid reports whether c is one of the recognized contexts.
func (c Context) Valid() bool {
	switch c {
	case ContextHackathon, ContextRomantic, ContextFriendship:
		return true
	}
	return false
}

// ParseContext converts a raw string into a Context.
func ParseContext(s string) (Context, error) {
	c := Context(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", &InvalidContextError{Value: s}
	}
	return c, nil
}

// Mode is the comparison applied to one variable.
type Mode string

const (
	// ModeSimilarity rewards closeness: 1 - |a-b|.
	ModeSimilarity Mode = "similarity"
	// ModeComplement rewards difference: |a-b|.
	ModeComplement Mode = "complement"
)

// Weights holds the raw per-context importance of a variable.
type Weights struct {
	Hackathon  float64
	Romantic   float64
	Friendship float64
}

// For returns the raw weight for ctx, or 0 for an unknown context.
func (w Weights) For(ctx Context) float64 {
	switch ctx {
	case ContextHackathon:
		return w.Hackathon
	case ContextRomantic:
		return w.Romantic
	case ContextFriendship:
		return w.Friendship
	}
	return 0
}

// Variable describes one personality variable.
type Variable struct {
	Name    string
	Mode    Mode
	Weights Weights
}

// Group is a named dimension used for rollups.
type Group struct {
	Name      string
	Variables []string
}

// Registry is the read-only table of variables and dimension groups.
type Registry struct {
	variables []Variable
	index     map[string]int
	groups    []Group
	groupOf   map[string]string
	totals    map[Context]float64
}

// NewRegistry validates vars and groups and builds a Registry.
// Groups must be disjoint and cover every variable exactly once.
func NewRegistry(vars []Variable, groups []Group) (*Registry, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("registry requires at least one variable")
	}

	r := &Registry{
		variables: make([]Variable, len(vars)),
		index:     make(map[string]int, len(vars)),
		groupOf:   make(map[string]string, len(vars)),
		totals:    make(map[Context]float64, len(AllContexts)),
	}
	copy(r.variables, vars)

	for i, v := range r.variables {
		if v.Name == "" {
			return nil, fmt.Errorf("variable %d has no name", i)
		}
		if _, dup := r.index[v.Name]; dup {
			return nil, fmt.Errorf("duplicate variable %q", v.Name)
		}
		if v.Mode != ModeSimilarity && v.Mode != ModeComplement {
			return nil, fmt.Errorf("variable %q has unknown mode %q", v.Name, v.Mode)
		}
		for _, ctx := range AllContexts {
			w := v.Weights.For(ctx)
			if w < 0 {
				return nil, fmt.Errorf("variable %q has negative %s weight", v.Name, ctx)
			}
			r.totals[ctx] += w
		}
		r.index[v.Name] = i
	}

	for _, ctx := range AllContexts {
		if r.totals[ctx] <= 0 {
			return nil, fmt.Errorf("context %s has zero total weight", ctx)
		}
	}

	for _, g := range groups {
		members := make([]string, len(g.Variables))
		copy(members, g.Variables)
		for _, name := range members {
			if _, ok := r.index[name]; !ok {
				return nil, fmt.Errorf("group %q references unknown variable %q", g.Name, name)
			}
			if owner, taken := r.groupOf[name]; taken {
				return nil, fmt.Errorf("variable %q is in both %q and %q", name, owner, g.Name)
			}
			r.groupOf[name] = g.Name
		}
		r.groups = append(r.groups, Group{Name: g.Name, Variables: members})
	}
	if len(r.groupOf) != len(r.variables) {
		return nil, fmt.Errorf("groups cover %d of %d variables", len(r.groupOf), len(r.variables))
	}

	return r, nil
}

// Len returns the number of variables.
func (r *Registry) Len() int {
	return len(r.variables)
}

// Variables returns a copy of the variables in registry order.
func (r *Registry) Variables() []Variable {
	out := make([]Variable, len(r.variables))
	copy(out, r.variables)
	return out
}

// Names returns the variable names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.variables))
	for i, v := range r.variables {
		names[i] = v.Name
	}
	return names
}

// Lookup returns the variable named name.
func (r *Registry) Lookup(name string) (Variable, bool) {
	i, ok := r.index[name]
	if !ok {
		return Variable{}, false
	}
	return r.variables[i], true
}

// Has reports whether name is a registered variable.
func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// NormalizedWeight returns the weight of name for ctx divided by the
// context's total, so the weights of one context sum to 1.
func (r *Registry) NormalizedWeight(name string, ctx Context) float64 {
	v, ok := r.Lookup(name)
	if !ok || !ctx.Valid() {
		return 0
	}
	return v.Weights.For(ctx) / r.totals[ctx]
}

// NormalizedWeights returns the normalized weights for ctx in registry order.
func (r *Registry) NormalizedWeights(ctx Context) []float64 {
	out := make([]float64, len(r.variables))
	if !ctx.Valid() {
		return out
	}
	total := r.totals[ctx]
	for i, v := range r.variables {
		out[i] = v.Weights.For(ctx) / total
	}
	return out
}

// Groups returns the dimension groups in declaration order.
func (r *Registry) Groups() []Group {
	out := make([]Group, len(r.groups))
	for i, g := range r.groups {
		members := make([]string, len(g.Variables))
		copy(members, g.Variables)
		out[i] = Group{Name: g.Name, Variables: members}
	}
	return out
}

// GroupNames returns the group names in declaration order.
func (r *Registry) GroupNames() []string {
	names := make([]string, len(r.groups))
	for i, g := range r.groups {
		names[i] = g.Name
	}
	return names
}

// GroupOf returns the group that contains name.
func (r *Registry) GroupOf(name string) string {
	return r.groupOf[name]
}

// SortedByValue returns the registry's variable names ordered by the
// vector's values, descending. Equal values keep registry order.
func (r *Registry) SortedByValue(v *PersonalityVector) []string {
	names := r.Names()
	sort.SliceStable(names, func(i, j int) bool {
		return v.Value(names[i]) > v.Value(names[j])
	})
	return names
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the process-wide registry of the 50 production
// variables and their six dimension groups.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		r, err := NewRegistry(defaultVariables, defaultGroups)
		if err != nil {
			panic(fmt.Sprintf("matching: invalid built-in registry: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

func sim(name string, h, r, f float64) Variable {
	return Variable{Name: name, Mode: ModeSimilarity, Weights: Weights{Hackathon: h, Romantic: r, Friendship: f}}
}

func comp(name string, h, r, f float64) Variable {
	return Variable{Name: name, Mode: ModeComplement, Weights: Weights{Hackathon: h, Romantic: r, Friendship: f}}
}

var defaultVariables = []Variable{
	// Cognitive Style
	sim("abstract_thinking", 0.4, 0.5, 0.4),
	comp("systems_thinking", 0.8, 0.2, 0.2),
	sim("novelty_seeking", 0.6, 0.7, 0.8),
	comp("detail_orientation", 0.9, 0.2, 0.2),
	comp("decisiveness", 0.7, 0.3, 0.3),
	sim("pattern_recognition", 0.5, 0.4, 0.4),
	sim("risk_tolerance", 0.6, 0.5, 0.4),
	comp("contrarianism", 0.7, 0.3, 0.4),
	comp("depth_vs_breadth", 0.8, 0.3, 0.3),

	// Emotional Profile
	sim("emotional_expressiveness", 0.2, 0.8, 0.7),
	sim("hotheadedness", 0.5, 0.5, 0.5),
	sim("empathy_signaling", 0.3, 0.9, 0.8),
	sim("self_criticism", 0.3, 0.5, 0.5),
	comp("confidence_oscillation", 0.4, 0.4, 0.4),
	sim("optimism", 0.5, 0.7, 0.7),
	sim("vulnerability", 0.2, 0.9, 0.8),
	comp("emotional_neediness", 0.3, 0.6, 0.6),
	sim("intensity", 0.6, 0.6, 0.5),
	sim("frustration_tolerance", 0.7, 0.5, 0.5),

	// Collaboration & Work
	comp("leadership_drive", 1.0, 0.4, 0.3),
	comp("structure_need", 0.8, 0.3, 0.3),
	sim("feedback_receptivity", 0.9, 0.4, 0.4),
	comp("execution_bias", 0.9, 0.2, 0.2),
	sim("async_preference", 0.7, 0.5, 0.4),
	sim("ownership_taking", 0.8, 0.3, 0.3),
	comp("perfectionism", 0.7, 0.3, 0.3),
	sim("collaboration_enjoyment", 0.8, 0.6, 0.9),
	sim("adaptability", 0.7, 0.4, 0.4),
	sim("deadline_orientation", 0.8, 0.2, 0.2),

	// Values & Motivation
	sim("intrinsic_motivation", 0.6, 0.7, 0.6),
	sim("impact_orientation", 0.5, 0.7, 0.6),
	sim("ambition", 0.7, 0.6, 0.5),
	sim("ethical_sensitivity", 0.4, 0.9, 0.8),
	sim("competitiveness", 0.5, 0.4, 0.4),
	sim("loyalty", 0.4, 1.0, 0.9),
	sim("independence_value", 0.4, 0.6, 0.5),
	sim("intellectual_humility", 0.6, 0.7, 0.7),
	sim("long_term_thinking", 0.5, 0.8, 0.6),

	// Communication
	sim("directness", 0.7, 0.6, 0.6),
	sim("verbosity", 0.5, 0.6, 0.6),
	sim("humor_frequency", 0.4, 0.8, 0.9),
	sim("humor_style", 0.3, 0.9, 0.8),
	sim("question_asking_rate", 0.5, 0.6, 0.7),
	sim("formality", 0.6, 0.5, 0.5),
	sim("storytelling_tendency", 0.3, 0.6, 0.6),

	// Identity & Lifestyle
	sim("social_energy", 0.4, 0.7, 0.8),
	sim("routine_vs_spontaneity", 0.3, 0.8, 0.7),
	comp("creative_drive", 0.6, 0.5, 0.4),
	sim("physical_lifestyle", 0.1, 0.7, 0.6),
	sim("life_pace", 0.7, 0.8, 0.7),
}

// Dimension group names.
const (
	GroupCognitive     = "Cognitive Style"
	GroupEmotional     = "Emotional Profile"
	GroupCollaboration = "Collaboration & Work"
	GroupValues        = "Values & Motivation"
	GroupCommunication = "Communication"
	GroupLifestyle     = "Identity & Lifestyle"
)

var defaultGroups = []Group{
	{Name: GroupCognitive, Variables: []string{
		"abstract_thinking", "systems_thinking", "novelty_seeking",
		"detail_orientation", "decisiveness", "pattern_recognition",
		"risk_tolerance", "contrarianism", "depth_vs_breadth",
	}},
	{Name: GroupEmotional, Variables: []string{
		"emotional_expressiveness", "hotheadedness", "empathy_signaling",
		"self_criticism", "confidence_oscillation", "optimism",
		"vulnerability", "emotional_neediness", "intensity", "frustration_tolerance",
	}},
	{Name: GroupCollaboration, Variables: []string{
		"leadership_drive", "structure_need", "feedback_receptivity",
		"execution_bias", "async_preference", "ownership_taking",
		"perfectionism", "collaboration_enjoyment", "adaptability", "deadline_orientation",
	}},
	{Name: GroupValues, Variables: []string{
		"intrinsic_motivation", "impact_orientation", "ambition",
		"ethical_sensitivity", "competitiveness", "loyalty",
		"independence_value", "intellectual_humility", "long_term_thinking",
	}},
	{Name: GroupCommunication, Variables: []string{
		"directness", "verbosity", "humor_frequency", "humor_style",
		"question_asking_rate", "formality", "storytelling_tendency",
	}},
	{Name: GroupLifestyle, Variables: []string{
		"social_energy", "routine_vs_spontaneity", "creative_drive",
		"physical_lifestyle", "life_pace",
	}},
}
