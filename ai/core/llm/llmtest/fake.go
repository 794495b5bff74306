// Package llmtest provides an in-memory llm.Service for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/hrygo/mirrormatch/ai/core/llm"
)

// Call is one recorded Chat invocation.
type Call struct {
	Messages    []llm.Message
	Temperature float32
	SchemaName  string
}

// Fake answers every Chat with Response, or Err when set.
type Fake struct {
	Response string
	Err      error

	mu    sync.Mutex
	calls []Call
}

var _ llm.Service = (*Fake)(nil)

// Chat records the call and returns the canned answer.
func (f *Fake) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, *llm.CallStats, error) {
	temperature, schema := llm.Inspect(opts...)
	f.mu.Lock()
	f.calls = append(f.calls, Call{Messages: messages, Temperature: temperature, SchemaName: schema})
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	if f.Err != nil {
		return "", nil, f.Err
	}
	return f.Response, &llm.CallStats{}, nil
}

func (f *Fake) Provider() string {
	return "fake"
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// LastUserPrompt returns the user message of the most recent call.
func (f *Fake) LastUserPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	msgs := f.calls[len(f.calls)-1].Messages
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}
