// Package chat defines the provider-agnostic data model shared by every
// other package: messages, tool calls, conversations, and the Provider
// contract for LLM backends.
//
// The types here are value types. A Message is never mutated after it has
// been appended to a conversation; updates go through copy-on-write helpers
// (WithStatus, WithContent) that return a new Message. This keeps snapshots
// handed to the UI stable while the agent loop keeps working.
//
// The Provider interface lives in this package (not in the provider package)
// to avoid import cycles: provider implementations import chat, and the
// agent loop can depend on the interface without importing any concrete
// provider.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message roles. Plain strings on the wire, so plain string constants here.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents one turn in a conversation.
//
// Invariants:
//   - a tool-role message always carries ToolCallID, identifying which
//     ToolCall it is the result for
//   - an assistant message with ToolCalls is eventually followed by one
//     tool-role message per call before the agent loop terminates
type Message struct {
	ID         string     `json:"id"`
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Thinking   string     `json:"thinking,omitempty"` // reasoning trace, kept separate from visible content
	Status     string     `json:"-"`                  // ephemeral progress text ("🔍 web_search"), never persisted
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`

	Attachments []Attachment `json:"attachments,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// ToolCall is a model-issued request to invoke a named tool. The ID
// correlates the eventual tool-role result message back to this request.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult is the outcome of executing one tool call. Failure is encoded
// in IsError rather than raised: the result is fed back to the model as a
// tool-role message either way, so the model can recover on its own.
type ToolResult struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// Attachment is a binary blob carried alongside a message (e.g. an image
// pasted into the chat).
type Attachment struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// NewSystemMessage creates a system-role message.
func NewSystemMessage(content string) Message {
	return newMessage(RoleSystem, content)
}

// NewUserMessage creates a user-role message.
func NewUserMessage(content string) Message {
	return newMessage(RoleUser, content)
}

// NewAssistantMessage creates an assistant-role message.
func NewAssistantMessage(content string) Message {
	return newMessage(RoleAssistant, content)
}

// NewToolMessage creates a tool-role message carrying the result for the
// tool call identified by callID.
func NewToolMessage(callID, content string) Message {
	msg := newMessage(RoleTool, content)
	msg.ToolCallID = callID
	return msg
}

// NewToolCallID generates an ID for a tool call. Ollama responses carry no
// call IDs, so providers synthesize one per request; OpenAI and Anthropic
// supply their own and never call this.
func NewToolCallID() string {
	return uuid.New().String()
}

func newMessage(role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// WithStatus returns a copy of the message with the ephemeral status text
// replaced. The receiver is not modified.
func (m Message) WithStatus(status string) Message {
	m.Status = status
	return m
}

// WithContent returns a copy of the message with Content replaced.
func (m Message) WithContent(content string) Message {
	m.Content = content
	return m
}

// AppendContent returns a copy of the message with chunk appended to
// Content. Used by the streaming path while tokens arrive.
func (m Message) AppendContent(chunk string) Message {
	m.Content += chunk
	return m
}

// HasToolCalls reports whether this message requests any tool invocations.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}
