// Package llm is the text-generation collaborator: one Service interface
// with an OpenAI-compatible backend and a Gemini backend.
package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// ErrDisabled is returned by constructors when no backend is configured.
var ErrDisabled = errors.New("text generation is not configured")

// ErrEmptyResponse is returned when the backend answers with no content.
var ErrEmptyResponse = errors.New("empty response from LLM")

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// CallStats reports token usage and timing for one call.
type CallStats struct {
	PromptTokens     int   `json:"prompt_tokens"`
	CompletionTokens int   `json:"completion_tokens"`
	TotalTokens      int   `json:"total_tokens"`
	TotalDurationMs  int64 `json:"total_duration_ms"`
}

// Service is the LLM service interface.
type Service interface {
	// Chat performs synchronous chat and returns the response text.
	Chat(ctx context.Context, messages []Message, opts ...Option) (string, *CallStats, error)
	// Provider names the configured backend.
	Provider() string
}

// Config represents LLM service configuration.
type Config struct {
	Provider    string // openai, deepseek, openrouter, siliconflow, zai, ollama, gemini
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 1024
	Temperature float32 // default: 0.7
	Timeout     int     // Request timeout in seconds (default: 60)
}

// callOptions are per-call overrides.
type callOptions struct {
	temperature *float32
	maxTokens   int
	schemaName  string
	schema      *JSONSchema
	json        bool
}

// Option overrides a Config default for one call.
type Option func(*callOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(o *callOptions) { o.temperature = &t }
}

// WithMaxTokens caps the response length.
func WithMaxTokens(n int) Option {
	return func(o *callOptions) { o.maxTokens = n }
}

// WithJSONSchema asks for a JSON object matching schema. Backends without
// schema support fall back to plain JSON mode.
func WithJSONSchema(name string, schema *JSONSchema) Option {
	return func(o *callOptions) {
		o.json = true
		o.schemaName = name
		o.schema = schema
	}
}

func (c *Config) resolve(opts []Option) callOptions {
	o := callOptions{maxTokens: c.MaxTokens}
	for _, opt := range opts {
		opt(&o)
	}
	if o.temperature == nil {
		t := c.Temperature
		o.temperature = &t
	}
	return o
}

// NewService creates a new LLM Service.
func NewService(cfg *Config) (Service, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60
	}
	if cfg.Provider == "gemini" {
		return newGeminiService(cfg)
	}
	return newOpenAIService(cfg)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// SystemPrompt is a helper for creating system prompts.
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage is a helper for creating user messages.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// Inspect reports the temperature and schema name opts select, with zero
// values for what they leave unset. Fakes use it to record calls.
func Inspect(opts ...Option) (temperature float32, schemaName string) {
	o := (&Config{}).resolve(opts)
	return *o.temperature, o.schemaName
}
