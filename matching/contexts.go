package matching

// contextSummaries is the headline shown for a pairing's best context.
var contextSummaries = map[Context]string{
	ContextHackathon:  "You two are built to build together",
	ContextRomantic:   "This could be something real",
	ContextFriendship: "A deep friendship waiting to happen",
}

// ContextScores scores one pairing in every context at once.
type ContextScores struct {
	Results     map[Context]*MatchResult `json:"results"`
	BestContext Context                  `json:"best_context"`
	Summary     string                   `json:"summary"`
}

// AllContextScores scores (a, b) in each context. The best context is the
// highest score; ties go to the earlier context in AllContexts.
func (s *Scorer) AllContextScores(a, b *PersonalityVector) (*ContextScores, error) {
	out := &ContextScores{Results: make(map[Context]*MatchResult, len(AllContexts))}
	var best *MatchResult
	for _, ctx := range AllContexts {
		res, err := s.Score(a, b, ctx)
		if err != nil {
			return nil, err
		}
		out.Results[ctx] = res
		if best == nil || res.Score > best.Score {
			best = res
		}
	}
	out.BestContext = best.Context
	out.Summary = contextSummaries[best.Context]
	return out, nil
}

// AllContextScores scores (a, b) in every context with the default scorer.
func AllContextScores(a, b *PersonalityVector) (*ContextScores, error) {
	return DefaultScorer().AllContextScores(a, b)
}
