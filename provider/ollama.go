package provider

import (
	"context"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"

	"chathub/chat"
	"chathub/ollama"
	"chathub/tools"
)

// OllamaProvider implements chat.Provider against a local Ollama server.
//
// It converts between the application's message types and the Ollama API
// types, and synthesizes tool-call IDs since the Ollama wire format does
// not carry them.
var _ chat.Provider = (*OllamaProvider)(nil)

type OllamaProvider struct {
	client *ollama.Client
}

// NewOllamaProvider creates an Ollama-backed provider.
//
// An empty baseURL defaults to "http://localhost:11434" and an empty model
// to "llama3.1:latest". Returns an error when the URL does not parse.
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	client, err := ollama.NewClient(baseURL, model)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	return &OllamaProvider{client: client}, nil
}

// Chat implements chat.Provider.Chat. It sends the full context plus tool
// definitions and returns the model's complete turn with any tool-call
// requests attached.
func (p *OllamaProvider) Chat(ctx context.Context, messages []chat.Message, toolDefs []mcptypes.Tool, think bool) (chat.Message, error) {
	ollamaMessages := toOllamaMessages(messages)

	var ollamaTools []api.Tool
	if len(toolDefs) > 0 {
		ollamaTools = tools.ToOllamaTools(toolDefs)
	}

	resp, err := p.client.Chat(ctx, ollamaMessages, ollamaTools, think)
	if err != nil {
		return chat.Message{}, err
	}

	msg := chat.NewAssistantMessage(resp.Content)
	msg.Thinking = resp.Thinking
	msg.ToolCalls = fromOllamaToolCalls(resp.ToolCalls)
	return msg, nil
}

// ChatStream implements chat.Provider.ChatStream. Content fragments are
// forwarded to the callback as they arrive; tool-call fragments arrive
// with empty content and converted calls.
func (p *OllamaProvider) ChatStream(ctx context.Context, messages []chat.Message, toolDefs []mcptypes.Tool, callback chat.StreamCallback) error {
	ollamaMessages := toOllamaMessages(messages)

	var ollamaTools []api.Tool
	if len(toolDefs) > 0 {
		ollamaTools = tools.ToOllamaTools(toolDefs)
	}

	ollamaCallback := func(chunk string, _ string, ollamaCalls []api.ToolCall) error {
		if callback == nil {
			return nil
		}
		return callback(chunk, fromOllamaToolCalls(ollamaCalls))
	}

	return p.client.ChatStream(ctx, ollamaMessages, ollamaTools, false, ollamaCallback)
}

// ListModels implements chat.Provider.ListModels.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]chat.ModelInfo, error) {
	models, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]chat.ModelInfo, len(models))
	for i, m := range models {
		result[i] = chat.ModelInfo{
			Name:     m.Name,
			Size:     m.Size,
			Provider: string(ProviderTypeOllama),
		}
	}
	return result, nil
}

// GetModel implements chat.Provider.GetModel.
func (p *OllamaProvider) GetModel() string {
	return p.client.GetModel()
}

// SetModel implements chat.Provider.SetModel.
func (p *OllamaProvider) SetModel(model string) {
	p.client.SetModel(model)
}

// Ping implements chat.Provider.Ping.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}
