// Package mcptools exposes the stateless scoring operations as MCP tools
// over stdio.
//
// Each tool is a struct with its dependencies injected via constructor,
// a Definition() returning the mcp.Tool schema and a Handle() method.
// Vector arguments are JSON objects shaped like a personality vector, or
// strings holding the same JSON.
package mcptools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hrygo/mirrormatch/matching"
)

// decodeArg re-reads an argument into out. Strings are parsed as JSON.
func decodeArg(req mcp.CallToolRequest, key string, out any) error {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return fmt.Errorf("'%s' is required", key)
	}
	var data []byte
	if s, isString := raw.(string); isString {
		data = []byte(s)
	} else {
		var err error
		if data, err = json.Marshal(raw); err != nil {
			return fmt.Errorf("'%s': %w", key, err)
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("'%s' is not valid JSON: %w", key, err)
	}
	return nil
}

func vectorArg(req mcp.CallToolRequest, key string) (*matching.PersonalityVector, error) {
	v := &matching.PersonalityVector{}
	if err := decodeArg(req, key, v); err != nil {
		return nil, err
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("'%s': %w", key, err)
	}
	return v, nil
}

func pairArgs(req mcp.CallToolRequest) (a, b *matching.PersonalityVector, err error) {
	if a, err = vectorArg(req, "vector_a"); err != nil {
		return nil, nil, err
	}
	if b, err = vectorArg(req, "vector_b"); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func contextArg(req mcp.CallToolRequest) (matching.Context, error) {
	return matching.ParseContext(req.GetString("context", string(matching.ContextHackathon)))
}

// intArg extracts an integer argument, returning defaultVal if the key is
// missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func vectorPairOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithObject("vector_a",
			mcp.Required(),
			mcp.Description("First personality vector: {\"scores\": {variable: 0..1}, \"evidence\": {...}}"),
		),
		mcp.WithObject("vector_b",
			mcp.Required(),
			mcp.Description("Second personality vector, same shape as vector_a"),
		),
	}
}

func contextOption() mcp.ToolOption {
	return mcp.WithString("context",
		mcp.Description("Match context (default: hackathon)"),
		mcp.Enum(string(matching.ContextHackathon), string(matching.ContextRomantic), string(matching.ContextFriendship)),
	)
}
