package store

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/hrygo/mirrormatch/matching"
)

// AbandonmentThreshold is the abandonment count at which an identity is flagged.
const AbandonmentThreshold = 3

// Status is the lifecycle state of an archetype row.
type Status string

const (
	StatusActive  Status = "active"
	StatusFlagged Status = "flagged"
)

// Archetype is one identity's stored personality vector within a partition.
type Archetype struct {
	UserID           string
	PartitionID      string
	Vector           *matching.PersonalityVector
	Embedding        []float32 // registry-ordered form used for similarity search
	ReputationScore  float64
	AbandonmentCount int
	Status           Status
	CreatedTs        int64
	UpdatedTs        int64
}

// UpsertArchetype is the write for an archetype. Lifecycle columns are left
// untouched when the row already exists.
type UpsertArchetype struct {
	UserID          string
	PartitionID     string
	Vector          *matching.PersonalityVector
	Embedding       []float32
	ReputationScore float64
}

// FindArchetype selects one archetype row.
type FindArchetype struct {
	UserID      string
	PartitionID string
}

// FindCandidates is the similarity-search request.
type FindCandidates struct {
	PartitionID   string
	ExcludeUserID string
	Embedding     []float32
	Limit         int
}

// Validate validates the FindCandidates.
func (f *FindCandidates) Validate() error {
	if f.PartitionID == "" {
		return errors.New("partition id cannot be empty")
	}
	if len(f.Embedding) == 0 {
		return errors.New("embedding cannot be empty")
	}
	if f.Limit < 0 {
		return errors.Errorf("limit cannot be negative: %d", f.Limit)
	}
	if f.Limit == 0 {
		f.Limit = 10
	}
	if f.Limit > 1000 {
		f.Limit = 1000
	}
	return nil
}

// Candidate is a retrieval hit: an eligible archetype and its raw cosine
// similarity to the query.
type Candidate struct {
	UserID           string
	Similarity       float64
	Vector           *matching.PersonalityVector
	ReputationScore  float64
	Status           Status
	AbandonmentCount int
}

// FindPool selects the eligible archetypes of a partition for team search.
type FindPool struct {
	PartitionID string
	Limit       int
}

// AbandonmentState is a row's lifecycle state after a transition.
type AbandonmentState struct {
	UserID      string
	PartitionID string
	Count       int
	Status      Status
}

// EncodeVector splits a vector into the scores and evidence JSON columns.
func EncodeVector(v *matching.PersonalityVector) (scores string, evidence string, err error) {
	if v == nil {
		return "", "", errors.New("vector cannot be nil")
	}
	s, err := json.Marshal(v.Scores)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to marshal scores")
	}
	ev := v.Evidence
	if ev == nil {
		ev = map[string]string{}
	}
	e, err := json.Marshal(ev)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to marshal evidence")
	}
	return string(s), string(e), nil
}

// DecodeVector rebuilds a vector from its stored columns.
func DecodeVector(scores, evidence, confidence string, messageCount int) (*matching.PersonalityVector, error) {
	v := &matching.PersonalityVector{
		Confidence:   matching.Confidence(confidence),
		MessageCount: messageCount,
	}
	if err := json.Unmarshal([]byte(scores), &v.Scores); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal scores")
	}
	if evidence != "" {
		if err := json.Unmarshal([]byte(evidence), &v.Evidence); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal evidence")
		}
	}
	return v, nil
}
