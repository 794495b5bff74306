package store

// MatchRecord is one served match, kept for analytics.
type MatchRecord struct {
	ID            int64   `json:"id"`
	UID           string  `json:"uid"`
	UserAID       string  `json:"user_a_id"`
	UserBID       string  `json:"user_b_id"`
	PartitionID   string  `json:"partition_id"`
	Context       string  `json:"context"`
	RawScore      float64 `json:"raw_score"`
	WeightedScore float64 `json:"weighted_score"`
	Grade         string  `json:"grade"`
	RedFlagsJSON  string  `json:"red_flags"` // serialized dangerous-delta alerts
	BlurbJSON     string  `json:"blurb"`     // serialized blurb, "" when none was generated
	CreatedTs     int64   `json:"created_ts"`
}

// FindMatchRecord specifies conditions for listing match history.
// UserID matches either side of the pair.
type FindMatchRecord struct {
	UserID      *string
	PartitionID *string
	Context     *string
	Limit       int
}
