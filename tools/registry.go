package tools

import (
	"context"
	"errors"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"chathub/chat"
	"chathub/config"
)

// ErrUnknownTool is wrapped into the failure result produced when the model
// requests a tool the registry does not have.
var ErrUnknownTool = errors.New("unknown tool")

// DefaultTimeout is the hard per-invocation bound. A tool that has not
// produced a result by then yields a failure result; it never hangs the
// agent loop.
const DefaultTimeout = 10 * time.Second

// Registry holds the fixed tool set, defined once at startup. It is
// read-only after construction and safe for concurrent use across all
// conversations.
type Registry struct {
	tools   map[string]Tool
	order   []string // registration order, for stable Definitions() output
	timeout time.Duration
}

// NewRegistry creates a registry over the given tools. Duplicate names keep
// the first registration.
func NewRegistry(toolList ...Tool) *Registry {
	r := &Registry{
		tools:   make(map[string]Tool, len(toolList)),
		timeout: DefaultTimeout,
	}
	for _, t := range toolList {
		name := t.Definition().Name
		if _, exists := r.tools[name]; exists {
			continue
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return r
}

// SetTimeout overrides the per-invocation timeout. Intended for wiring at
// startup and for tests; not safe to call concurrently with Execute.
func (r *Registry) SetTimeout(d time.Duration) {
	if d > 0 {
		r.timeout = d
	}
}

// Lookup returns the definition for a tool name.
func (r *Registry) Lookup(name string) (mcptypes.Tool, bool) {
	t, ok := r.tools[name]
	if !ok {
		return mcptypes.Tool{}, false
	}
	return t.Definition(), true
}

// Definitions returns all tool definitions in registration order.
func (r *Registry) Definitions() []mcptypes.Tool {
	defs := make([]mcptypes.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Len reports how many tools are registered.
func (r *Registry) Len() int {
	return len(r.order)
}

// Execute runs the named tool under the registry timeout. It never returns
// a Go error: unknown tools, argument problems, executor failures, and
// timeouts all come back as failure-flagged results that the agent loop
// feeds to the model as tool output.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) chat.ToolResult {
	tool, ok := r.tools[name]
	if !ok {
		return Failure("%v: %q is not an available tool", ErrUnknownTool, name)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// The executor runs in its own goroutine so a misbehaving tool that
	// ignores ctx cannot stall the loop past the timeout. A late result is
	// discarded; the buffered channel lets the goroutine finish regardless.
	done := make(chan chat.ToolResult, 1)
	start := time.Now()
	go func() {
		done <- tool.Execute(ctx, args)
	}()

	select {
	case result := <-done:
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[tools] %s finished in %v (error=%v)", name, time.Since(start), result.IsError)
		}
		return result
	case <-ctx.Done():
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[tools] %s timed out after %v", name, time.Since(start))
		}
		return Failure("tool %q did not finish within %s: %v", name, r.timeout, ctx.Err())
	}
}
