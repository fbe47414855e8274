package tools

import (
	"context"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"chathub/chat"
)

// DateTime reports the current local date and time. Models have no clock,
// so questions like "what day is it" need this tool.
type DateTime struct {
	// now is swappable for tests
	now func() time.Time
}

func NewDateTime() *DateTime {
	return &DateTime{now: time.Now}
}

func (d *DateTime) Definition() mcptypes.Tool {
	return mcptypes.Tool{
		Name:        "current_datetime",
		Description: "Get the current date and time in the local timezone. Takes no arguments.",
		InputSchema: objectSchema(map[string]any{}),
	}
}

func (d *DateTime) Execute(_ context.Context, _ map[string]any) chat.ToolResult {
	return Success(d.now().Format(time.RFC3339))
}
