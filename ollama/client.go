// Package ollama wraps the official Ollama API client with the small
// surface the rest of the application needs: a non-streaming chat call
// that accumulates the full model turn, a streaming variant that drives
// a callback, and model listing.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"chathub/config"
)

type Client struct {
	client  *api.Client
	model   string
	baseURL string
}

// StreamCallback receives each streamed fragment. Tool calls arrive in
// dedicated fragments with empty content.
type StreamCallback func(chunk string, thinking string, toolCalls []api.ToolCall) error

func NewClient(baseURL, model string) (*Client, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.1:latest"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	client := api.NewClient(parsedURL, http.DefaultClient)

	return &Client{
		client:  client,
		model:   model,
		baseURL: baseURL,
	}, nil
}

// Chat sends a non-streaming request and returns the complete assistant
// message. The Ollama server still delivers the response in fragments, so
// content, thinking, and tool calls are accumulated here before returning.
func (c *Client) Chat(ctx context.Context, messages []api.Message, tools []api.Tool, think bool) (api.Message, error) {
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
		Stream:   func(b bool) *bool { return &b }(false),
	}
	if think {
		req.Think = &api.ThinkValue{Value: true}
	}

	var accumulated api.Message
	accumulated.Role = "assistant"

	respFunc := func(resp api.ChatResponse) error {
		accumulated.Content += resp.Message.Content
		accumulated.Thinking += resp.Message.Thinking
		if len(resp.Message.ToolCalls) > 0 {
			accumulated.ToolCalls = append(accumulated.ToolCalls, resp.Message.ToolCalls...)
		}
		return nil
	}

	if err := c.client.Chat(ctx, req, respFunc); err != nil {
		return api.Message{}, fmt.Errorf("ollama chat failed: %w", err)
	}

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[ollama] chat completed: model=%s toolCalls=%d contentLen=%d",
			c.model, len(accumulated.ToolCalls), len(accumulated.Content))
	}

	return accumulated, nil
}

// ChatStream sends a streaming request, invoking callback for each
// fragment as it arrives. Returning an error from the callback aborts
// the stream.
func (c *Client) ChatStream(ctx context.Context, messages []api.Message, tools []api.Tool, think bool, callback StreamCallback) error {
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
		Stream:   func(b bool) *bool { return &b }(true),
	}
	if think {
		req.Think = &api.ThinkValue{Value: true}
	}

	respFunc := func(resp api.ChatResponse) error {
		if callback != nil {
			return callback(resp.Message.Content, resp.Message.Thinking, resp.Message.ToolCalls)
		}
		return nil
	}

	return c.client.Chat(ctx, req, respFunc)
}

type ModelInfo struct {
	Name string
	Size int64
}

func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	resp, err := c.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	models := make([]ModelInfo, len(resp.Models))
	for i, model := range resp.Models {
		models[i] = ModelInfo{
			Name: model.Name,
			Size: model.Size,
		}
	}

	return models, nil
}

func (c *Client) SetModel(model string) {
	c.model = model
}

func (c *Client) GetModel() string {
	return c.model
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.client.List(ctx)
	return err
}
