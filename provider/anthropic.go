package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"chathub/chat"
	"chathub/tools"
)

const anthropicMaxTokens = 4096

// AnthropicProvider implements chat.Provider using the official Anthropic
// Go SDK.
var _ chat.Provider = (*AnthropicProvider)(nil)

type AnthropicProvider struct {
	client  *anthropic.Client
	model   anthropic.Model
	baseURL string
}

// NewAnthropicProvider creates an Anthropic provider instance.
//
// Parameters:
//   - baseURL: API base URL (default: "https://api.anthropic.com")
//   - apiKey: API key (required)
//   - model: initial model (default: claude-sonnet-4-5)
//
// Returns an error if the API key is missing.
func NewAnthropicProvider(baseURL, apiKey, model string) (*AnthropicProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	anthropicModel := anthropic.ModelClaudeSonnet4_5_20250929
	if model != "" {
		anthropicModel = anthropic.Model(model)
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &AnthropicProvider{
		client:  &client,
		model:   anthropicModel,
		baseURL: baseURL,
	}, nil
}

// Chat implements chat.Provider.Chat with a non-streaming request.
func (p *AnthropicProvider) Chat(ctx context.Context, messages []chat.Message, toolDefs []mcptypes.Tool, _ bool) (chat.Message, error) {
	params := p.buildParams(messages, toolDefs)

	response, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return chat.Message{}, fmt.Errorf("Anthropic chat failed: %w", err)
	}

	return fromAnthropicContent(response.Content), nil
}

// ChatStream implements chat.Provider.ChatStream. Text deltas go to the
// callback as they arrive; tool calls are extracted from the accumulated
// message once the stream completes, since their input JSON arrives in
// partial fragments.
func (p *AnthropicProvider) ChatStream(ctx context.Context, messages []chat.Message, toolDefs []mcptypes.Tool, callback chat.StreamCallback) error {
	params := p.buildParams(messages, toolDefs)

	stream := p.client.Messages.NewStreaming(ctx, params)
	msg := anthropic.Message{}

	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return fmt.Errorf("error accumulating message: %w", err)
		}

		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if deltaVariant, ok := eventVariant.Delta.AsAny().(anthropic.TextDelta); ok && callback != nil {
				if err := callback(deltaVariant.Text, nil); err != nil {
					return err
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("Anthropic streaming error: %w", err)
	}

	if callback != nil {
		final := fromAnthropicContent(msg.Content)
		if len(final.ToolCalls) > 0 {
			return callback("", final.ToolCalls)
		}
	}
	return nil
}

func (p *AnthropicProvider) buildParams(messages []chat.Message, toolDefs []mcptypes.Tool) anthropic.MessageNewParams {
	anthropicMessages, systemBlocks := toAnthropicMessages(messages)

	params := anthropic.MessageNewParams{
		Model:     p.model,
		Messages:  anthropicMessages,
		MaxTokens: anthropicMaxTokens,
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	if len(toolDefs) > 0 {
		params.Tools = tools.ToAnthropicTools(toolDefs)
	}
	return params
}

// ListModels implements chat.Provider.ListModels. Anthropic has no models
// endpoint, so a curated list of current Claude models is returned.
func (p *AnthropicProvider) ListModels(_ context.Context) ([]chat.ModelInfo, error) {
	models := []anthropic.Model{
		anthropic.ModelClaudeSonnet4_5_20250929,
		anthropic.ModelClaude3_5Haiku20241022,
		anthropic.ModelClaude_3_Opus_20240229,
		anthropic.ModelClaude_3_Haiku_20240307,
	}

	result := make([]chat.ModelInfo, 0, len(models))
	for _, m := range models {
		result = append(result, chat.ModelInfo{
			Name:     string(m),
			Provider: string(ProviderTypeAnthropic),
		})
	}
	return result, nil
}

// GetModel implements chat.Provider.GetModel.
func (p *AnthropicProvider) GetModel() string {
	return string(p.model)
}

// SetModel implements chat.Provider.SetModel.
func (p *AnthropicProvider) SetModel(model string) {
	p.model = anthropic.Model(model)
}

// Ping implements chat.Provider.Ping with a minimal one-token request,
// since the API has no health endpoint.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("Anthropic ping failed: %w", err)
	}
	return nil
}

// toAnthropicMessages converts conversation messages to Anthropic wire
// messages. System content moves to the separate system parameter.
// Assistant tool-call requests become tool_use blocks and tool-role
// messages become user messages carrying tool_result blocks, matching the
// pairing the Messages API requires.
func toAnthropicMessages(messages []chat.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var systemBlocks []anthropic.TextBlockParam
	anthropicMsgs := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: msg.Content})

		case chat.RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(msg.ToolCalls))
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    call.ID,
						Name:  call.Name,
						Input: call.Arguments,
					},
				})
			}
			if len(blocks) == 0 {
				blocks = append(blocks, anthropic.NewTextBlock(""))
			}
			anthropicMsgs = append(anthropicMsgs, anthropic.NewAssistantMessage(blocks...))

		case chat.RoleTool:
			anthropicMsgs = append(anthropicMsgs, anthropic.NewUserMessage(
				anthropic.ContentBlockParamUnion{
					OfToolResult: &anthropic.ToolResultBlockParam{
						ToolUseID: msg.ToolCallID,
						Content: []anthropic.ToolResultBlockParamContentUnion{
							{OfText: &anthropic.TextBlockParam{Text: msg.Content}},
						},
					},
				},
			))

		default:
			anthropicMsgs = append(anthropicMsgs, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return anthropicMsgs, systemBlocks
}

// fromAnthropicContent converts response content blocks to a single
// assistant message: text blocks concatenate into Content, thinking blocks
// into Thinking, tool_use blocks into ToolCalls.
func fromAnthropicContent(content []anthropic.ContentBlockUnion) chat.Message {
	msg := chat.NewAssistantMessage("")

	for _, block := range content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			msg.Content += variant.Text
		case anthropic.ThinkingBlock:
			msg.Thinking += variant.Thinking
		case anthropic.ToolUseBlock:
			var args map[string]any
			if err := json.Unmarshal(variant.Input, &args); err != nil {
				args = make(map[string]any)
			}
			msg.ToolCalls = append(msg.ToolCalls, chat.ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: args,
			})
		}
	}

	return msg
}
