// Package insight turns match results and vectors into prompts for the
// text-generation collaborator and decodes what comes back.
package insight

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"github.com/hrygo/mirrormatch/ai/core/llm"
	"github.com/hrygo/mirrormatch/ai/metrics"
	"github.com/hrygo/mirrormatch/matching"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// Sampling temperatures per prompt.
const (
	blurbTemperature     = 0.8
	blindSpotTemperature = 0.75
	quizTemperature      = 0.7
	openingTemperature   = 0.85
)

// Party is one side of a prompt: a display name and a vector.
type Party struct {
	Name   string                      `json:"name"`
	Vector *matching.PersonalityVector `json:"vector"`
}

func (p Party) nameOr(fallback string) string {
	if p.Name == "" {
		return fallback
	}
	return p.Name
}

// Generator builds prompts and calls the text-generation service.
type Generator struct {
	llm     llm.Service
	scorer  *matching.Scorer
	metrics *metrics.PrometheusExporter
}

// NewGenerator returns a Generator. A nil scorer uses the default one.
func NewGenerator(svc llm.Service, scorer *matching.Scorer) *Generator {
	if scorer == nil {
		scorer = matching.DefaultScorer()
	}
	return &Generator{llm: svc, scorer: scorer}
}

// WithMetrics records latency and token usage of every call on exporter.
func (g *Generator) WithMetrics(exporter *metrics.PrometheusExporter) *Generator {
	g.metrics = exporter
	return g
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", name, err)
	}
	return buf.String(), nil
}

func (g *Generator) call(ctx context.Context, system, user string, temperature float32, schemaName string, schema *llm.JSONSchema, out any) error {
	start := time.Now()
	stats, err := llm.ChatJSON(ctx, g.llm,
		[]llm.Message{llm.SystemPrompt(system), llm.UserMessage(user)},
		out,
		llm.WithTemperature(temperature),
		llm.WithJSONSchema(schemaName, schema),
	)
	if stats != nil {
		g.metrics.RecordLLMCall(g.llm.Provider(), schemaName, time.Since(start), stats.PromptTokens, stats.CompletionTokens)
	}
	return err
}

// mustJSON renders prompt fragments; the inputs are plain data.
func mustJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func percent(score float64) string {
	return fmt.Sprintf("%.0f%%", score*100)
}
