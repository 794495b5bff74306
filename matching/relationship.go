package matching

import "math"

// Relationship describes the natural dynamic two people fall into.
type Relationship struct {
	Type            string   `json:"type"`
	Description     string   `json:"description"`
	NaturalContext  Context  `json:"natural_context"`
	DynamicTags     []string `json:"dynamic_tags"`
	LongTermOutlook string   `json:"long_term_outlook"`
}

type relationshipSignals struct {
	bothIntellectual  bool
	bothContrarian    bool
	bothEmpathetic    bool
	bothAmbitious     bool
	bothCollaborative bool
	oneLeads          bool
	visionExecution   bool
	bothVulnerable    bool
	paceAligned       bool
	humorAligned      bool
}

func readSignals(a, b *PersonalityVector) relationshipSignals {
	both := func(name string, t float64) bool {
		return a.Value(name) > t && b.Value(name) > t
	}
	gap := func(name string) float64 {
		return math.Abs(a.Value(name) - b.Value(name))
	}
	visionExec := func(x, y *PersonalityVector) bool {
		return x.Value("abstract_thinking") > 0.7 && y.Value("execution_bias") > 0.7
	}

	return relationshipSignals{
		bothIntellectual:  both("intellectual_humility", 0.6),
		bothContrarian:    both("contrarianism", 0.6),
		bothEmpathetic:    both("empathy_signaling", 0.7),
		bothAmbitious:     both("ambition", 0.7),
		bothCollaborative: both("collaboration_enjoyment", 0.7),
		oneLeads:          gap("leadership_drive") > 0.4,
		visionExecution:   visionExec(a, b) || visionExec(b, a),
		bothVulnerable:    both("vulnerability", 0.65),
		paceAligned:       gap("life_pace") < 0.2,
		humorAligned:      gap("humor_style") < 0.2,
	}
}

type relationshipRule struct {
	matches func(s relationshipSignals) bool
	result  Relationship
}

// relationshipChain is checked in order; the first match wins.
var relationshipChain = []relationshipRule{
	{
		matches: func(s relationshipSignals) bool { return s.bothContrarian && s.bothIntellectual },
		result: Relationship{
			Type:            "The Sparring Partners",
			Description:     "You two will debate everything and never get tired of it. Ideas sharpen against each other like flint.",
			NaturalContext:  ContextFriendship,
			DynamicTags:     []string{"intellectual tension", "mutual respect", "endless debate"},
			LongTermOutlook: "Long-term, this relationship deepens as trust grows. The debates get better with time.",
		},
	},
	{
		matches: func(s relationshipSignals) bool { return s.visionExecution && s.bothAmbitious },
		result: Relationship{
			Type:            "The Dream Team",
			Description:     "One of you sees what could be; the other makes it real. This is the rarest and most powerful pairing.",
			NaturalContext:  ContextHackathon,
			DynamicTags:     []string{"visionary + builder", "high output", "complementary roles"},
			LongTermOutlook: "Explosive in short bursts. Sustainable if you build mutual respect and don't let roles calcify.",
		},
	},
	{
		matches: func(s relationshipSignals) bool { return s.bothEmpathetic && s.bothVulnerable },
		result: Relationship{
			Type:            "The Safe Harbor",
			Description:     "You both open up easily and hold space well. This will become one of those rare relationships where you can say anything.",
			NaturalContext:  ContextRomantic,
			DynamicTags:     []string{"deep trust", "emotional safety", "mutual care"},
			LongTermOutlook: "Slow to form, built to last. The kind of friendship or relationship that defines a chapter of your life.",
		},
	},
	{
		matches: func(s relationshipSignals) bool { return s.bothCollaborative && s.humorAligned && s.paceAligned },
		result: Relationship{
			Type:            "The Easy Ones",
			Description:     "No friction, no performance. You just fit. Conversations flow and silences are comfortable.",
			NaturalContext:  ContextFriendship,
			DynamicTags:     []string{"effortless chemistry", "shared rhythm", "low maintenance"},
			LongTermOutlook: "Reliably good. Not always intense, but consistently nourishing.",
		},
	},
	{
		matches: func(s relationshipSignals) bool { return s.oneLeads && s.bothCollaborative },
		result: Relationship{
			Type:            "The Mentor & The Builder",
			Description:     "A natural pull toward teaching and learning. One of you has done this before; the other is hungry to grow.",
			NaturalContext:  ContextHackathon,
			DynamicTags:     []string{"mentorship dynamic", "knowledge transfer", "guided ambition"},
			LongTermOutlook: "Transformative for the person learning. Fulfilling for the person teaching. Roles may shift over time.",
		},
	},
	{
		matches: func(s relationshipSignals) bool { return s.bothAmbitious && !s.bothCollaborative },
		result: Relationship{
			Type:            "The Rivals",
			Description:     "Competitive, driven, and deeply aware of each other. You'll push each other to levels neither would reach alone.",
			NaturalContext:  ContextHackathon,
			DynamicTags:     []string{"mutual pressure", "competitive respect", "parallel growth"},
			LongTermOutlook: "Energizing but high-maintenance. Needs clear boundaries to stay healthy.",
		},
	},
}

var slowBurn = Relationship{
	Type:            "The Slow Burn",
	Description:     "Not obvious on paper, but something real builds over time. The kind of connection that sneaks up on you.",
	NaturalContext:  ContextFriendship,
	DynamicTags:     []string{"gradual depth", "unexpected compatibility", "grows with time"},
	LongTermOutlook: "Give it time. The best things about this pairing take a while to reveal themselves.",
}

// RelationshipType predicts the dynamic a pairing naturally forms.
func RelationshipType(a, b *PersonalityVector) Relationship {
	s := readSignals(a, b)
	for _, rule := range relationshipChain {
		if rule.matches(s) {
			return cloneRelationship(rule.result)
		}
	}
	return cloneRelationship(slowBurn)
}

func cloneRelationship(r Relationship) Relationship {
	tags := make([]string, len(r.DynamicTags))
	copy(tags, r.DynamicTags)
	r.DynamicTags = tags
	return r
}
