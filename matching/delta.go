package matching

import (
	"fmt"
	"math"
	"strings"
)

// DeltaGate is the raw similarity at or above which hidden gaps are reported.
const DeltaGate = 0.7

// MonitoredDelta is a high-stakes dimension and the gap that makes it dangerous.
type MonitoredDelta struct {
	Variable  string
	Threshold float64
}

// MonitoredDeltas lists the watched dimensions in reporting order.
var MonitoredDeltas = []MonitoredDelta{
	{"emotional_expressiveness", 0.50},
	{"hotheadedness", 0.40},
	{"vulnerability", 0.45},
	{"feedback_receptivity", 0.45},
	{"directness", 0.55},
	{"life_pace", 0.55},
	{"structure_need", 0.50},
	{"leadership_drive", 0.45},
	{"emotional_neediness", 0.40},
	{"long_term_thinking", 0.50},
	{"independence_value", 0.50},
}

// DeltaAlert flags a large gap hidden behind a high raw similarity.
type DeltaAlert struct {
	Dimension string  `json:"dimension"`
	ValueA    float64 `json:"your_value"`
	ValueB    float64 `json:"their_value"`
	Delta     float64 `json:"delta"`
	Warning   string  `json:"warning"`
}

// DangerousDeltas returns an alert per monitored dimension whose gap meets its
// threshold. Below DeltaGate it always returns an empty list.
func DangerousDeltas(a, b *PersonalityVector, rawSimilarity float64) []DeltaAlert {
	alerts := []DeltaAlert{}
	if rawSimilarity < DeltaGate {
		return alerts
	}

	for _, m := range MonitoredDeltas {
		va, vb := a.Value(m.Variable), b.Value(m.Variable)
		delta := math.Abs(va - vb)
		if delta < m.Threshold {
			continue
		}
		alerts = append(alerts, DeltaAlert{
			Dimension: m.Variable,
			ValueA:    round(va, 3),
			ValueB:    round(vb, 3),
			Delta:     round(delta, 3),
			Warning: fmt.Sprintf(
				"High overall compatibility masks a significant gap in %s (delta: %.2f). This could surface under stress.",
				humanize(m.Variable), delta),
		})
	}
	return alerts
}

// humanize turns a variable name into spaced words.
func humanize(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
