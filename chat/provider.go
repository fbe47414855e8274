package chat

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Provider abstracts an LLM backend (a local Ollama server, an
// OpenAI-compatible server such as llama.cpp or vLLM, or a cloud API).
//
// Two request shapes are exposed. Chat returns the complete structured turn
// and is what the agent loop uses: the loop needs the full message,
// including tool-call requests, before it can decide what to do next.
// ChatStream yields incremental tokens and is what the plain
// (non-agentic) path uses for live rendering.
type Provider interface {
	// Chat sends messages plus optional tool definitions and returns the
	// model's complete turn. When think is true, providers that support a
	// separate reasoning channel request it; the trace comes back in
	// Message.Thinking.
	Chat(ctx context.Context, messages []Message, tools []mcptypes.Tool, think bool) (Message, error)

	// ChatStream sends messages and streams the response through callback.
	// The final chunk may carry tool calls when tools were offered.
	ChatStream(ctx context.Context, messages []Message, tools []mcptypes.Tool, callback StreamCallback) error

	// ListModels returns the models available on this backend.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// GetModel returns the currently selected model name.
	GetModel() string

	// SetModel changes the active model for subsequent calls.
	SetModel(model string)

	// Ping checks whether the backend is reachable.
	Ping(ctx context.Context) error
}

// StreamCallback is invoked for each chunk of a streamed response.
type StreamCallback func(chunk string, toolCalls []ToolCall) error

// ModelInfo describes one model offered by a provider.
type ModelInfo struct {
	Name     string // display name
	Size     int64  // on-disk size in bytes, 0 when the backend does not report it
	Provider string // provider ID: "ollama", "openai", "anthropic"
}
