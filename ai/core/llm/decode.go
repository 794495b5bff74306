package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// StripFences removes a surrounding ``` or ```json code fence.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ChatJSON calls svc and decodes the response into out.
func ChatJSON(ctx context.Context, svc Service, messages []Message, out any, opts ...Option) (*CallStats, error) {
	content, stats, err := svc.Chat(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(StripFences(content)), out); err != nil {
		return stats, fmt.Errorf("failed to decode LLM JSON response: %w", err)
	}
	return stats, nil
}
