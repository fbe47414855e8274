package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation is an ordered sequence of messages plus the settings that
// control how new turns are generated. Messages are append-only during a
// turn; the memory package may trim the view sent to the model, but the
// conversation itself keeps everything.
type Conversation struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Model        string `json:"model"`
	Provider     string `json:"provider"`
	SystemPrompt string `json:"system_prompt,omitempty"`

	// ToolCallingEnabled gates the agentic path for this conversation.
	// When false the stream controller never enters the agent loop and
	// never serializes tool definitions into a request.
	ToolCallingEnabled bool `json:"tool_calling_enabled"`

	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversation creates an empty conversation for the given provider and
// model. Tool calling starts enabled; callers flip it per conversation.
func NewConversation(providerID, model string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:                 uuid.New().String(),
		Model:              model,
		Provider:           providerID,
		ToolCallingEnabled: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Append adds a message to the conversation in chronological order.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
}

// ReplaceLast swaps the most recent message for an updated copy. Used by
// the streaming path where the in-flight assistant message grows chunk by
// chunk. Each update is a fresh Message value, never an in-place edit.
func (c *Conversation) ReplaceLast(msg Message) {
	if len(c.Messages) == 0 {
		c.Messages = []Message{msg}
		return
	}
	c.Messages[len(c.Messages)-1] = msg
}

// Last returns the most recent message, or a zero Message if empty.
func (c *Conversation) Last() Message {
	if len(c.Messages) == 0 {
		return Message{}
	}
	return c.Messages[len(c.Messages)-1]
}

// Clone returns a deep copy safe to hand to another goroutine. Snapshots
// emitted by the stream controller are clones, so the UI can hold on to
// them while the controller keeps appending.
func (c *Conversation) Clone() Conversation {
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	for i := range out.Messages {
		if calls := out.Messages[i].ToolCalls; len(calls) > 0 {
			cp := make([]ToolCall, len(calls))
			copy(cp, calls)
			out.Messages[i].ToolCalls = cp
		}
	}
	return out
}

// GenerateTitle derives a conversation title from the first user message,
// falling back to a timestamp when there is none.
func GenerateTitle(firstMessage string) string {
	if firstMessage == "" {
		return fmt.Sprintf("Chat %s", time.Now().Format("Jan 2, 3:04 PM"))
	}

	title := firstMessage
	if len(title) > 30 {
		title = title[:30] + "..."
	}

	title = strings.ReplaceAll(title, "\n", " ")
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.TrimSpace(title)

	if title == "" {
		return fmt.Sprintf("Chat %s", time.Now().Format("Jan 2, 3:04 PM"))
	}

	return title
}
