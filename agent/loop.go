// Package agent implements the tool-calling loop that turns a single user
// input into a final answer.
//
// One Run is one exchange: the user input and the full prior context go to
// the model, the model either answers or requests tool calls, requested
// tools execute concurrently, their results are appended as tool-role
// messages, and the loop sends the grown context again. It terminates when
// the model answers without tool calls, when the iteration bound is hit,
// when the context is cancelled, or on a transport error. Tool failures
// never terminate the loop; they go back to the model as failure results.
package agent

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"chathub/chat"
	"chathub/config"
	"chathub/memory"
	"chathub/tools"
)

// DefaultMaxIterations bounds how many model turns one Run may take. Each
// tool-call round trip consumes one iteration.
const DefaultMaxIterations = 10

// ErrMaxIterations is returned when the model is still requesting tools
// after the iteration bound is hit.
var ErrMaxIterations = errors.New("agent loop exceeded maximum iterations")

// Config wires a Loop together. Provider and Registry are required.
type Config struct {
	Provider chat.Provider
	Registry *tools.Registry

	// Memory bounds the context sent to the model. Defaults to an
	// unbounded store when nil.
	Memory memory.Store

	// SystemPrompt is installed as the first message of a fresh store.
	SystemPrompt string

	// MaxIterations bounds model turns per Run. Defaults to
	// DefaultMaxIterations when 0.
	MaxIterations int

	// Think requests a separate reasoning channel from providers that
	// support one.
	Think bool

	// OnStep, when set, observes the execution trace as it unfolds:
	// thinking, each tool call and result, and the final answer.
	OnStep func(chat.Step)
}

// Result is the outcome of one completed Run.
type Result struct {
	// Final is the model's answer message.
	Final chat.Message

	// Steps is the execution trace in the order events occurred.
	Steps []chat.Step

	// Iterations counts the model turns consumed.
	Iterations int
}

// Loop drives the agentic exchange. A Loop is reused across Runs of the
// same conversation; its memory store carries the history forward.
type Loop struct {
	provider      chat.Provider
	registry      *tools.Registry
	memory        memory.Store
	systemPrompt  string
	maxIterations int
	think         bool
	onStep        func(chat.Step)
}

// New creates a Loop from cfg. Returns an error when Provider or Registry
// is missing.
func New(cfg Config) (*Loop, error) {
	if cfg.Provider == nil {
		return nil, errors.New("agent: provider is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("agent: tool registry is required")
	}

	store := cfg.Memory
	if store == nil {
		store = memory.NewUnbounded(0)
	}
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	return &Loop{
		provider:      cfg.Provider,
		registry:      cfg.Registry,
		memory:        store,
		systemPrompt:  cfg.SystemPrompt,
		maxIterations: maxIterations,
		think:         cfg.Think,
		onStep:        cfg.OnStep,
	}, nil
}

// Memory exposes the loop's message store, letting a caller seed prior
// history before the first Run.
func (l *Loop) Memory() memory.Store {
	return l.memory
}

// Run executes one agentic exchange for input and returns the final
// answer with its execution trace.
//
// Transport errors and context cancellation abort the Run with an error;
// the partial trace is lost. Tool execution failures do not abort: they
// are fed back to the model as failure results and the model gets the
// chance to correct itself on the next iteration.
func (l *Loop) Run(ctx context.Context, input string) (*Result, error) {
	if l.memory.Len() == 0 && l.systemPrompt != "" {
		l.memory.Append(chat.NewSystemMessage(l.systemPrompt))
	}
	l.memory.Append(chat.NewUserMessage(input))

	result := &Result{}
	l.trace(result, chat.NewStep(chat.StepInput, input))

	var lastPartial chat.Message

	for iteration := 1; iteration <= l.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Iterations = iteration

		response, err := l.provider.Chat(ctx, l.memory.Snapshot(), l.registry.Definitions(), l.think)
		if err != nil {
			return nil, fmt.Errorf("model turn %d failed: %w", iteration, err)
		}

		if response.Thinking != "" {
			l.trace(result, chat.NewStep(chat.StepThinking, response.Thinking))
		}

		calls := namedToolCalls(response.ToolCalls)
		response.ToolCalls = calls
		l.memory.Append(response)
		lastPartial = response

		if len(calls) == 0 {
			l.trace(result, chat.NewStep(chat.StepAnswer, response.Content))
			result.Final = response
			return result, nil
		}

		if err := checkDuplicateIDs(calls); err != nil {
			return nil, err
		}

		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[agent] iteration %d: %d tool calls", iteration, len(calls))
		}

		results, err := l.executeCalls(ctx, result, calls)
		if err != nil {
			return nil, err
		}

		// Results are appended in request order regardless of which
		// executor finished first, keeping transcripts reproducible.
		for i, call := range calls {
			l.memory.Append(chat.NewToolMessage(call.ID, results[i].Content))

			step := chat.NewStep(chat.StepToolResult, results[i].Content)
			step.ToolName = call.Name
			l.trace(result, step)
		}
	}

	// The bound was hit while the model was still asking for tools. The
	// last assistant message rides along so callers can show what was
	// produced before the cutoff.
	result.Final = lastPartial
	return result, fmt.Errorf("%w (%d)", ErrMaxIterations, l.maxIterations)
}

// executeCalls fans the batch out to the registry, one goroutine per call,
// and collects results indexed by request position.
func (l *Loop) executeCalls(ctx context.Context, result *Result, calls []chat.ToolCall) ([]chat.ToolResult, error) {
	for _, call := range calls {
		step := chat.NewStep(chat.StepToolCall, "")
		step.ToolName = call.Name
		step.Arguments = call.Arguments
		l.trace(result, step)
	}

	results := make([]chat.ToolResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = l.registry.Execute(gctx, call.Name, call.Arguments)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// In-flight executors have finished by now; if the caller cancelled
	// meanwhile, their results are discarded rather than appended.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// namedToolCalls filters out calls with a blank name. Some models emit
// empty stub calls alongside real ones; a blank name can be neither
// executed nor reported back, so the call is dropped from the request
// batch entirely.
func namedToolCalls(calls []chat.ToolCall) []chat.ToolCall {
	named := calls[:0:0]
	for _, call := range calls {
		if call.Name != "" {
			named = append(named, call)
		}
	}
	return named
}

// checkDuplicateIDs rejects a model turn whose tool calls share an ID.
// Results correlate to requests by ID, so a duplicate would make the
// pairing ambiguous; the turn is treated as malformed.
func checkDuplicateIDs(calls []chat.ToolCall) error {
	seen := make(map[string]struct{}, len(calls))
	for _, call := range calls {
		if _, dup := seen[call.ID]; dup {
			return fmt.Errorf("malformed model turn: duplicate tool call ID %q", call.ID)
		}
		seen[call.ID] = struct{}{}
	}
	return nil
}

func (l *Loop) trace(result *Result, step chat.Step) {
	result.Steps = append(result.Steps, step)
	if l.onStep != nil {
		l.onStep(step)
	}
}
