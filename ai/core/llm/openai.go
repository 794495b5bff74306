package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Default base URLs for OpenAI-compatible providers.
var providerBaseURLs = map[string]string{
	"deepseek":    "https://api.deepseek.com",
	"openrouter":  "https://openrouter.ai/api/v1",
	"siliconflow": "https://api.siliconflow.cn/v1",
	"zai":         "https://open.bigmodel.cn/api/paas/v4",
	"ollama":      "http://localhost:11434/v1",
}

type openAIService struct {
	client *openai.Client
	cfg    Config
}

func newOpenAIService(cfg *Config) (Service, error) {
	if cfg.APIKey == "" && cfg.Provider != "ollama" {
		return nil, ErrDisabled
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	switch {
	case cfg.BaseURL != "":
		clientConfig.BaseURL = cfg.BaseURL
	case providerBaseURLs[cfg.Provider] != "":
		clientConfig.BaseURL = providerBaseURLs[cfg.Provider]
	case cfg.Provider != "openai":
		// Generic fallback for any other OpenAI-compatible provider
		slog.Info("Using generic OpenAI-compatible provider", "provider", cfg.Provider)
	}
	clientConfig.HTTPClient = newHTTPClient(time.Duration(cfg.Timeout) * time.Second)

	return &openAIService{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    *cfg,
	}, nil
}

func (s *openAIService) Provider() string {
	return s.cfg.Provider
}

func (s *openAIService) Chat(ctx context.Context, messages []Message, opts ...Option) (string, *CallStats, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Timeout)*time.Second)
	defer cancel()

	o := s.cfg.resolve(opts)
	req := openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		MaxTokens:   o.maxTokens,
		Temperature: *o.temperature,
		Messages:    convertMessages(messages),
	}
	if o.json {
		req.ResponseFormat = s.responseFormat(o)
	}

	startTime := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", nil, fmt.Errorf("LLM chat failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", nil, ErrEmptyResponse
	}

	stats := &CallStats{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		TotalDurationMs:  time.Since(startTime).Milliseconds(),
	}
	slog.Debug("LLM: Chat response received",
		"provider", s.cfg.Provider,
		"content_length", len(resp.Choices[0].Message.Content),
		"total_tokens", stats.TotalTokens,
		"duration_ms", stats.TotalDurationMs,
	)
	return resp.Choices[0].Message.Content, stats, nil
}

// responseFormat uses strict schemas on OpenAI itself and plain JSON mode
// on compatible providers, which mostly reject json_schema.
func (s *openAIService) responseFormat(o callOptions) *openai.ChatCompletionResponseFormat {
	if s.cfg.Provider == "openai" && o.schema != nil {
		return &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   o.schemaName,
				Schema: o.schema,
			},
		}
	}
	return &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		out[i] = openai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return out
}
