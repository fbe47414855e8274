// Package tools provides the fixed set of tools the model may invoke and
// the registry that executes them.
//
// Tool definitions are carried as MCP tool descriptors
// (github.com/mark3labs/mcp-go/mcp.Tool), a provider-neutral JSON-schema
// shape, and converted to each backend's wire format by the functions in
// convert.go.
//
// Executors are side-effect-free with respect to the conversation data
// model: they receive primitive arguments and return text. A failed
// execution (timeout, HTTP error, malformed arguments) is returned as a
// failure-flagged result, never as a Go error, so the model can see what
// went wrong and retry with corrected arguments.
package tools

import (
	"context"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"chathub/chat"
)

// Tool is one named capability the model may request.
type Tool interface {
	// Definition returns the model-facing contract: name, description, and
	// parameter schema. The description constrains when the model chooses
	// to invoke the tool and is passed through to the backend unmodified.
	Definition() mcptypes.Tool

	// Execute runs the tool. Failures are encoded in the result, never
	// returned as errors. Implementations must honor ctx cancellation.
	Execute(ctx context.Context, args map[string]any) chat.ToolResult
}

// Failure builds a failure-flagged result with a human-readable message.
func Failure(format string, a ...any) chat.ToolResult {
	return chat.ToolResult{Content: fmt.Sprintf(format, a...), IsError: true}
}

// Success builds a success result.
func Success(content string) chat.ToolResult {
	return chat.ToolResult{Content: content}
}

// stringArg extracts a required string argument, reporting a usable error
// message when it is missing or has the wrong type.
func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", key, raw)
	}
	if s == "" {
		return "", fmt.Errorf("argument %q must not be empty", key)
	}
	return s, nil
}

// intArg extracts an optional integer argument, tolerating the float64
// values JSON decoding produces. Returns fallback when absent.
func intArg(args map[string]any, key string, fallback int) int {
	raw, ok := args[key]
	if !ok {
		return fallback
	}
	switch v := raw.(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// objectSchema builds an object input schema from property definitions.
func objectSchema(properties map[string]any, required ...string) mcptypes.ToolInputSchema {
	if required == nil {
		required = []string{}
	}
	return mcptypes.ToolInputSchema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}
