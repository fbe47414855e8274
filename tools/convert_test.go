package tools

import (
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
)

func TestToOllamaTools(t *testing.T) {
	tests := []struct {
		name     string
		input    []mcptypes.Tool
		expected int // expected tool count
		validate func(t *testing.T, result []api.Tool)
	}{
		{
			name:     "empty tools",
			input:    []mcptypes.Tool{},
			expected: 0,
			validate: func(t *testing.T, result []api.Tool) {
				if len(result) != 0 {
					t.Errorf("expected empty slice, got %d tools", len(result))
				}
			},
		},
		{
			name: "single simple tool",
			input: []mcptypes.Tool{
				{
					Name:        "current_datetime",
					Description: "Get the current date and time",
					InputSchema: mcptypes.ToolInputSchema{
						Type:       "object",
						Properties: map[string]any{},
						Required:   []string{},
					},
				},
			},
			expected: 1,
			validate: func(t *testing.T, result []api.Tool) {
				if result[0].Type != "function" {
					t.Errorf("expected type 'function', got %q", result[0].Type)
				}
				if result[0].Function.Name != "current_datetime" {
					t.Errorf("expected name 'current_datetime', got %q", result[0].Function.Name)
				}
				if result[0].Function.Description != "Get the current date and time" {
					t.Errorf("unexpected description %q", result[0].Function.Description)
				}
			},
		},
		{
			name: "tool with properties",
			input: []mcptypes.Tool{
				{
					Name:        "web_search",
					Description: "Search the web",
					InputSchema: mcptypes.ToolInputSchema{
						Type: "object",
						Properties: map[string]any{
							"query": map[string]any{
								"type":        "string",
								"description": "The search query",
							},
							"max_results": map[string]any{
								"type":        "integer",
								"description": "Result limit",
							},
						},
						Required: []string{"query"},
					},
				},
			},
			expected: 1,
			validate: func(t *testing.T, result []api.Tool) {
				params := result[0].Function.Parameters
				if params.Type != "object" {
					t.Errorf("expected parameters type 'object', got %q", params.Type)
				}
				if len(params.Required) != 1 || params.Required[0] != "query" {
					t.Errorf("expected required [query], got %v", params.Required)
				}
				query, ok := params.Properties["query"]
				if !ok {
					t.Fatal("expected 'query' property")
				}
				if len(query.Type) != 1 || query.Type[0] != "string" {
					t.Errorf("expected query type [string], got %v", query.Type)
				}
				if query.Description != "The search query" {
					t.Errorf("unexpected query description %q", query.Description)
				}
			},
		},
		{
			name: "tool with enum property",
			input: []mcptypes.Tool{
				{
					Name: "convert_units",
					InputSchema: mcptypes.ToolInputSchema{
						Type: "object",
						Properties: map[string]any{
							"unit": map[string]any{
								"type": "string",
								"enum": []any{"celsius", "fahrenheit"},
							},
						},
						Required: []string{"unit"},
					},
				},
			},
			expected: 1,
			validate: func(t *testing.T, result []api.Tool) {
				unit := result[0].Function.Parameters.Properties["unit"]
				if len(unit.Enum) != 2 {
					t.Errorf("expected 2 enum values, got %d", len(unit.Enum))
				}
			},
		},
		{
			name: "property with type list",
			input: []mcptypes.Tool{
				{
					Name: "lookup",
					InputSchema: mcptypes.ToolInputSchema{
						Type: "object",
						Properties: map[string]any{
							"id": map[string]any{
								"type": []any{"string", "integer"},
							},
						},
					},
				},
			},
			expected: 1,
			validate: func(t *testing.T, result []api.Tool) {
				id := result[0].Function.Parameters.Properties["id"]
				if len(id.Type) != 2 || id.Type[0] != "string" || id.Type[1] != "integer" {
					t.Errorf("expected type [string integer], got %v", id.Type)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToOllamaTools(tt.input)
			if len(result) != tt.expected {
				t.Fatalf("expected %d tools, got %d", tt.expected, len(result))
			}
			tt.validate(t, result)
		})
	}
}

func TestToOpenAITools(t *testing.T) {
	defs := []mcptypes.Tool{
		{
			Name:        "web_search",
			Description: "Search the web",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"query": map[string]any{"type": "string"},
				},
				Required: []string{"query"},
			},
		},
	}

	result := ToOpenAITools(defs)
	if len(result) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(result))
	}

	fn := result[0].GetFunction()
	if fn == nil {
		t.Fatal("expected a function tool")
	}
	if fn.Name != "web_search" {
		t.Errorf("expected name 'web_search', got %q", fn.Name)
	}
	if fn.Parameters["type"] != "object" {
		t.Errorf("expected parameters type 'object', got %v", fn.Parameters["type"])
	}
	required, ok := fn.Parameters["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "query" {
		t.Errorf("expected required [query], got %v", fn.Parameters["required"])
	}
}

func TestToAnthropicTools(t *testing.T) {
	defs := []mcptypes.Tool{
		{
			Name:        "read_url",
			Description: "Fetch a web page",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"url": map[string]any{"type": "string"},
				},
				Required: []string{"url"},
			},
		},
	}

	result := ToAnthropicTools(defs)
	if len(result) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(result))
	}

	tool := result[0].OfTool
	if tool == nil {
		t.Fatal("expected a plain tool variant")
	}
	if tool.Name != "read_url" {
		t.Errorf("expected name 'read_url', got %q", tool.Name)
	}
	if tool.Description.Value != "Fetch a web page" {
		t.Errorf("unexpected description %q", tool.Description.Value)
	}
	if len(tool.InputSchema.Required) != 1 || tool.InputSchema.Required[0] != "url" {
		t.Errorf("expected required [url], got %v", tool.InputSchema.Required)
	}
}

func TestToOllamaToolsNilInput(t *testing.T) {
	if result := ToOllamaTools(nil); result != nil {
		t.Errorf("expected nil for nil input, got %v", result)
	}
	if result := ToOpenAITools(nil); result != nil {
		t.Errorf("expected nil for nil input, got %v", result)
	}
	if result := ToAnthropicTools(nil); result != nil {
		t.Errorf("expected nil for nil input, got %v", result)
	}
}
