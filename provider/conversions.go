package provider

import (
	"encoding/json"

	"github.com/ollama/ollama/api"

	"chathub/chat"
)

// toOllamaMessages converts conversation messages to Ollama wire messages.
//
// The mapping is mostly direct: the Ollama chat API uses the same four
// roles. Assistant tool-call requests are replayed so the model sees its
// own earlier requests on the next iteration; the synthesized call IDs are
// dropped because the Ollama API has no ID field (results correlate by
// position instead).
func toOllamaMessages(messages []chat.Message) []api.Message {
	result := make([]api.Message, len(messages))
	for i, msg := range messages {
		m := api.Message{
			Role:     msg.Role,
			Content:  msg.Content,
			Thinking: msg.Thinking,
		}
		for _, call := range msg.ToolCalls {
			m.ToolCalls = append(m.ToolCalls, api.ToolCall{
				Function: api.ToolCallFunction{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		for _, att := range msg.Attachments {
			m.Images = append(m.Images, api.ImageData(att.Data))
		}
		result[i] = m
	}
	return result
}

// fromOllamaToolCalls converts Ollama tool calls to the provider-agnostic
// form. The Ollama API carries no call IDs, so one is synthesized per call;
// the agent loop uses these IDs to correlate results back to requests.
func fromOllamaToolCalls(ollamaCalls []api.ToolCall) []chat.ToolCall {
	if len(ollamaCalls) == 0 {
		return nil
	}

	result := make([]chat.ToolCall, len(ollamaCalls))
	for i, call := range ollamaCalls {
		result[i] = chat.ToolCall{
			ID:        chat.NewToolCallID(),
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		}
	}
	return result
}

// parseToolArguments parses a JSON arguments payload into a map. OpenAI
// and Anthropic deliver arguments as raw JSON strings; a payload that does
// not parse yields an empty map so the executor can report the missing
// arguments itself.
func parseToolArguments(raw []byte) map[string]any {
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil || args == nil {
		return make(map[string]any)
	}
	return args
}
