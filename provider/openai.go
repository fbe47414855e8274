package provider

import (
	"context"
	"encoding/json"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"chathub/chat"
	"chathub/tools"
)

// OpenAIProvider implements chat.Provider using the official OpenAI Go
// SDK. Pointing BaseURL at any OpenAI-compatible server (llama.cpp, vLLM,
// LM Studio) works the same way.
var _ chat.Provider = (*OpenAIProvider)(nil)

type OpenAIProvider struct {
	client  openai.Client
	model   string
	baseURL string
}

// NewOpenAIProvider creates an OpenAI provider instance.
//
// Parameters:
//   - baseURL: API base URL (default: "https://api.openai.com/v1")
//   - apiKey: API key (required)
//   - model: initial model (default: "gpt-4o-mini")
//
// Returns an error if the API key is missing.
func NewOpenAIProvider(baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &OpenAIProvider{
		client:  client,
		model:   model,
		baseURL: baseURL,
	}, nil
}

// Chat implements chat.Provider.Chat with a non-streaming request.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []chat.Message, toolDefs []mcptypes.Tool, _ bool) (chat.Message, error) {
	params := openai.ChatCompletionNewParams{
		Messages: toOpenAIMessages(messages),
		Model:    openai.ChatModel(p.model),
	}
	if len(toolDefs) > 0 {
		params.Tools = tools.ToOpenAITools(toolDefs)
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return chat.Message{}, fmt.Errorf("OpenAI chat failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return chat.Message{}, fmt.Errorf("OpenAI returned no choices")
	}

	choice := completion.Choices[0].Message
	msg := chat.NewAssistantMessage(choice.Content)
	for _, call := range choice.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, chat.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: parseToolArguments([]byte(call.Function.Arguments)),
		})
	}
	return msg, nil
}

// ChatStream implements chat.Provider.ChatStream. Content deltas go to
// the callback as they arrive; completed tool calls are delivered through
// the accumulator once their argument JSON is whole.
func (p *OpenAIProvider) ChatStream(ctx context.Context, messages []chat.Message, toolDefs []mcptypes.Tool, callback chat.StreamCallback) error {
	params := openai.ChatCompletionNewParams{
		Messages: toOpenAIMessages(messages),
		Model:    openai.ChatModel(p.model),
	}
	if len(toolDefs) > 0 {
		params.Tools = tools.ToOpenAITools(toolDefs)
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	acc := openai.ChatCompletionAccumulator{}

	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if tool, ok := acc.JustFinishedToolCall(); ok && callback != nil {
			call := chat.ToolCall{
				ID:        tool.ID,
				Name:      tool.Name,
				Arguments: parseToolArguments([]byte(tool.Arguments)),
			}
			if err := callback("", []chat.ToolCall{call}); err != nil {
				return err
			}
		}

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if callback != nil {
				if err := callback(chunk.Choices[0].Delta.Content, nil); err != nil {
					return err
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("OpenAI streaming error: %w", err)
	}
	return nil
}

// ListModels implements chat.Provider.ListModels.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]chat.ModelInfo, error) {
	modelsPage, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list OpenAI models: %w", err)
	}

	result := make([]chat.ModelInfo, 0, len(modelsPage.Data))
	for _, m := range modelsPage.Data {
		result = append(result, chat.ModelInfo{
			Name:     m.ID,
			Provider: string(ProviderTypeOpenAI),
		})
	}
	return result, nil
}

// GetModel implements chat.Provider.GetModel.
func (p *OpenAIProvider) GetModel() string {
	return p.model
}

// SetModel implements chat.Provider.SetModel.
func (p *OpenAIProvider) SetModel(model string) {
	p.model = model
}

// Ping implements chat.Provider.Ping by listing models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("OpenAI ping failed: %w", err)
	}
	return nil
}

// toOpenAIMessages converts conversation messages to the chat-completions
// wire format. Assistant messages replay their tool calls and tool-role
// messages become tool messages keyed by the originating call ID, so the
// model sees a well-formed request/result pairing on later iterations.
func toOpenAIMessages(messages []chat.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case chat.RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				result = append(result, assistantMessageWithToolCalls(msg))
			} else {
				result = append(result, openai.AssistantMessage(msg.Content))
			}
		case chat.RoleTool:
			result = append(result, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}
	return result
}

func assistantMessageWithToolCalls(msg chat.Message) openai.ChatCompletionMessageParamUnion {
	calls := make([]openai.ChatCompletionMessageToolCallUnionParam, len(msg.ToolCalls))
	for i, call := range msg.ToolCalls {
		args, err := json.Marshal(call.Arguments)
		if err != nil {
			args = []byte("{}")
		}
		calls[i] = openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: call.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      call.Name,
					Arguments: string(args),
				},
			},
		}
	}

	assistant := openai.ChatCompletionAssistantMessageParam{
		ToolCalls: calls,
	}
	if msg.Content != "" {
		assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(msg.Content),
		}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}
