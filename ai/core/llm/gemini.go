package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

type geminiService struct {
	client *genai.Client
	cfg    Config
}

func newGeminiService(cfg *Config) (Service, error) {
	if cfg.APIKey == "" {
		return nil, ErrDisabled
	}
	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: newHTTPClient(time.Duration(cfg.Timeout) * time.Second),
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &geminiService{client: client, cfg: *cfg}, nil
}

func (s *geminiService) Provider() string {
	return "gemini"
}

// Chat folds system messages into the system instruction; Gemini has no
// system role in contents.
func (s *geminiService) Chat(ctx context.Context, messages []Message, opts ...Option) (string, *CallStats, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Timeout)*time.Second)
	defer cancel()

	o := s.cfg.resolve(opts)
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(*o.temperature),
		MaxOutputTokens: int32(o.maxTokens),
	}
	if o.json {
		config.ResponseMIMEType = "application/json"
	}

	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	startTime := time.Now()
	resp, err := s.client.Models.GenerateContent(ctx, s.cfg.Model, contents, config)
	if err != nil {
		return "", nil, fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", nil, ErrEmptyResponse
	}

	stats := &CallStats{TotalDurationMs: time.Since(startTime).Milliseconds()}
	if u := resp.UsageMetadata; u != nil {
		stats.PromptTokens = int(u.PromptTokenCount)
		stats.CompletionTokens = int(u.CandidatesTokenCount)
		stats.TotalTokens = int(u.TotalTokenCount)
	}
	slog.Debug("LLM: Gemini response received", "model", s.cfg.Model, "total_tokens", stats.TotalTokens)
	return text, stats, nil
}
