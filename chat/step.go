package chat

import "time"

// StepType classifies one entry in an agent execution trace.
type StepType string

const (
	StepInput      StepType = "input"
	StepThinking   StepType = "thinking"
	StepToolCall   StepType = "tool_call"
	StepToolResult StepType = "tool_result"
	StepAnswer     StepType = "answer"
)

// Step is one entry in the agent loop's execution trace. Steps are purely
// observational: they feed logging, tests, and the UI's progress display,
// and are never read back as control input.
type Step struct {
	Type      StepType       `json:"type"`
	Content   string         `json:"content,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewStep creates a trace entry stamped with the current time.
func NewStep(t StepType, content string) Step {
	return Step{Type: t, Content: content, Timestamp: time.Now()}
}
