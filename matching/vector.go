package matching

import (
	"fmt"
	"math"
)

// NeutralValue is the score assumed for a variable the vector does not carry.
const NeutralValue = 0.5

// NoSignal is the evidence placeholder used when extraction found nothing.
const NoSignal = "no signal"

// Confidence is the extractor's self-reported certainty.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceUnknown Confidence = "unknown"
)

// PersonalityVector is one snapshot of a person.
type PersonalityVector struct {
	Scores       map[string]float64 `json:"scores"`
	Evidence     map[string]string  `json:"evidence,omitempty"`
	Confidence   Confidence         `json:"confidence,omitempty"`
	MessageCount int                `json:"message_count_used,omitempty"`
}

// Value returns the score for name, or NeutralValue when it is missing.
// Every read of a variable goes through here.
func (v *PersonalityVector) Value(name string) float64 {
	if v == nil || v.Scores == nil {
		return NeutralValue
	}
	if s, ok := v.Scores[name]; ok {
		return s
	}
	return NeutralValue
}

// EvidenceFor returns the evidence note for name, or "" when absent or empty.
func (v *PersonalityVector) EvidenceFor(name string) string {
	if v == nil || v.Evidence == nil {
		return ""
	}
	e := v.Evidence[name]
	if e == NoSignal {
		return ""
	}
	return e
}

// ConfidenceOrUnknown returns the confidence label, defaulting to unknown.
func (v *PersonalityVector) ConfidenceOrUnknown() Confidence {
	if v == nil || v.Confidence == "" {
		return ConfidenceUnknown
	}
	return v.Confidence
}

// Validate rejects scores outside [0,1] and NaN values.
func (v *PersonalityVector) Validate() error {
	if v == nil {
		return fmt.Errorf("%w: vector is nil", ErrInvalidVector)
	}
	for name, s := range v.Scores {
		if math.IsNaN(s) || s < 0 || s > 1 {
			return fmt.Errorf("%w: %s=%v is outside [0,1]", ErrInvalidVector, name, s)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (v *PersonalityVector) Clone() *PersonalityVector {
	if v == nil {
		return nil
	}
	out := &PersonalityVector{
		Confidence:   v.Confidence,
		MessageCount: v.MessageCount,
	}
	if v.Scores != nil {
		out.Scores = make(map[string]float64, len(v.Scores))
		for k, s := range v.Scores {
			out.Scores[k] = s
		}
	}
	if v.Evidence != nil {
		out.Evidence = make(map[string]string, len(v.Evidence))
		for k, e := range v.Evidence {
			out.Evidence[k] = e
		}
	}
	return out
}

// Ordered lays the vector out in registry order, filling gaps with NeutralValue.
// This is the fixed-dimension form stored for similarity search.
func (v *PersonalityVector) Ordered(r *Registry) []float32 {
	out := make([]float32, r.Len())
	for i, name := range r.Names() {
		out[i] = float32(v.Value(name))
	}
	return out
}

// FromOrdered rebuilds scores from a registry-ordered slice.
func FromOrdered(r *Registry, values []float32) (*PersonalityVector, error) {
	if len(values) != r.Len() {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrInvalidVector, len(values), r.Len())
	}
	scores := make(map[string]float64, len(values))
	for i, name := range r.Names() {
		scores[name] = float64(values[i])
	}
	return &PersonalityVector{Scores: scores, Confidence: ConfidenceUnknown}, nil
}

// Cosine returns the cosine similarity of two equal-length vectors.
// Mismatched lengths or a zero vector yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
