package llm

import (
	"encoding/json"
	"sort"
)

// JSONSchema implements json.Marshaler for OpenAI's JSON Schema format.
// The alias type prevents infinite recursion during marshaling.
type JSONSchema struct {
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	Type                 string                 `json:"type"`
	Description          string                 `json:"description,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	AdditionalProperties bool                   `json:"additionalProperties"`
}

// MarshalJSON implements json.Marshaler for JSONSchema.
func (s *JSONSchema) MarshalJSON() ([]byte, error) {
	type alias JSONSchema
	return json.Marshal((*alias)(s))
}

// Object builds a closed object schema whose properties are all required.
func Object(props map[string]*JSONSchema) *JSONSchema {
	required := make([]string, 0, len(props))
	for name := range props {
		required = append(required, name)
	}
	sort.Strings(required)
	return &JSONSchema{Type: "object", Properties: props, Required: required}
}

// String is a string schema with a description.
func String(desc string) *JSONSchema {
	return &JSONSchema{Type: "string", Description: desc}
}

// Integer is an integer schema with a description.
func Integer(desc string) *JSONSchema {
	return &JSONSchema{Type: "integer", Description: desc}
}

// Array is an array schema of items.
func Array(items *JSONSchema, desc string) *JSONSchema {
	return &JSONSchema{Type: "array", Items: items, Description: desc}
}
