// Package stream orchestrates one user exchange end to end: it picks the
// provider, decides between the agentic and plain paths, emits
// conversation snapshots while work is in flight, and persists the result.
//
// The UI consumes a Send as a channel of Snapshot values. Each snapshot
// is a deep copy of the conversation at that moment, so the consumer can
// render freely while the controller keeps appending. The final snapshot
// has Done set and carries any terminal error.
package stream

import (
	"context"
	"errors"
	"fmt"

	"chathub/agent"
	"chathub/chat"
	"chathub/config"
	"chathub/memory"
	"chathub/notify"
	"chathub/provider"
	"chathub/storage"
	"chathub/tools"
)

const answerSummaryLimit = 120

// Snapshot is one point-in-time view of the conversation during a send.
type Snapshot struct {
	Conversation chat.Conversation
	References   []chat.Reference // populated on the final snapshot of an agentic send
	Done         bool
	Err          error
}

// Controller routes sends to providers and owns the conversation
// lifecycle around each exchange.
type Controller struct {
	providers     map[string]chat.Provider
	registry      *tools.Registry
	store         *storage.ConversationStore
	notifier      notify.Notifier
	maxIterations int
	think         bool
}

// Config wires a Controller. Providers and Registry are required; Store
// and Notifier may be nil, disabling persistence and notifications.
type Config struct {
	Providers     map[string]chat.Provider
	Registry      *tools.Registry
	Store         *storage.ConversationStore
	Notifier      notify.Notifier
	MaxIterations int
	Think         bool
}

// NewController creates a controller from cfg.
func NewController(cfg Config) (*Controller, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("stream: at least one provider is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("stream: tool registry is required")
	}

	return &Controller{
		providers:     cfg.Providers,
		registry:      cfg.Registry,
		store:         cfg.Store,
		notifier:      cfg.Notifier,
		maxIterations: cfg.MaxIterations,
		think:         cfg.Think,
	}, nil
}

// Send runs one exchange for text against conv. The returned channel
// yields snapshots as the exchange progresses and is closed after the
// final one. conv is mutated as messages arrive; consumers must read the
// snapshots rather than conv itself while the send is in flight.
//
// The tool-calling flag is honored strictly: a conversation with the flag
// off never causes tool definitions to be serialized into any request,
// and the capability check for the flag happens before the first
// transport call.
func (c *Controller) Send(ctx context.Context, conv *chat.Conversation, text string) <-chan Snapshot {
	out := make(chan Snapshot, 8)

	go func() {
		defer close(out)

		prov, ok := c.providers[conv.Provider]
		if !ok {
			fail(out, conv, fmt.Errorf("no provider configured for %q", conv.Provider))
			return
		}

		agentic := conv.ToolCallingEnabled && c.registry.Len() > 0
		if agentic {
			// Capability is checked before anything goes over the wire:
			// offering tools to a model that cannot handle them produces
			// garbage turns, not errors.
			capability := provider.ResolveCapability(provider.MapProviderIDToType(conv.Provider), conv.Model)
			if !capability.CanToolCall() {
				if config.Debug && config.DebugLog != nil {
					config.DebugLog.Printf("[stream] model %s tool support is %s, using plain path", conv.Model, capability.ToolSupport)
				}
				agentic = false
			}
		}

		var err error
		var refs []chat.Reference
		if agentic {
			refs, err = c.sendAgentic(ctx, out, prov, conv, text)
		} else {
			err = c.sendPlain(ctx, out, prov, conv, text)
		}
		if err != nil && !errors.Is(err, agent.ErrMaxIterations) {
			fail(out, conv, err)
			return
		}

		// A max-iterations cutoff keeps the partial transcript: it is
		// persisted like a normal exchange and the terminal snapshot
		// carries the error so the UI renders a distinct failure state.
		if conv.Title == "" {
			conv.Title = chat.GenerateTitle(text)
		}
		c.persist(conv)
		if err == nil {
			notify.Deliver(c.notifier, conv, summarize(conv.Last().Content))
		}

		out <- Snapshot{Conversation: conv.Clone(), References: refs, Done: true, Err: err}
	}()

	return out
}

// sendAgentic drives the agent loop, mirroring its trace into status
// snapshots while tools run.
func (c *Controller) sendAgentic(ctx context.Context, out chan<- Snapshot, prov chat.Provider, conv *chat.Conversation, text string) ([]chat.Reference, error) {
	// The loop owns an unbounded copy of the history; the conversation
	// transcript is rebuilt from it after the run so tool traffic is
	// preserved verbatim.
	store := memory.NewUnbounded(0)
	for _, msg := range conv.Messages {
		store.Append(msg)
	}

	conv.Append(chat.NewUserMessage(text))
	pending := chat.NewAssistantMessage("")
	conv.Append(pending)

	loop, err := agent.New(agent.Config{
		Provider:      prov,
		Registry:      c.registry,
		Memory:        store,
		SystemPrompt:  conv.SystemPrompt,
		MaxIterations: c.maxIterations,
		Think:         c.think,
		OnStep: func(step chat.Step) {
			status := statusFor(step)
			if status == "" {
				return
			}
			conv.ReplaceLast(pending.WithStatus(status))
			emit(out, conv)
		},
	})
	if err != nil {
		return nil, err
	}

	_, err = loop.Run(ctx, text)

	// Replace the provisional user+pending pair with the loop's
	// transcript: system prompt, user input, tool traffic, final answer.
	// This happens on failure too. Tool messages from rounds that
	// completed before a cancellation or transport error stay in the
	// conversation; only in-flight results were discarded by the loop.
	conv.Messages = conv.Messages[:len(conv.Messages)-2]
	history := store.Snapshot()
	for _, msg := range history[historyOverlap(conv.Messages, history):] {
		conv.Append(msg)
	}

	return chat.ExtractReferences(history), err
}

// sendPlain streams a single model turn with no tools offered.
func (c *Controller) sendPlain(ctx context.Context, out chan<- Snapshot, prov chat.Provider, conv *chat.Conversation, text string) error {
	if len(conv.Messages) == 0 && conv.SystemPrompt != "" {
		conv.Append(chat.NewSystemMessage(conv.SystemPrompt))
	}
	conv.Append(chat.NewUserMessage(text))

	pending := chat.NewAssistantMessage("")
	conv.Append(pending)

	err := prov.ChatStream(ctx, conv.Messages[:len(conv.Messages)-1], nil, func(chunk string, _ []chat.ToolCall) error {
		if chunk == "" {
			return nil
		}
		pending = pending.AppendContent(chunk)
		conv.ReplaceLast(pending)
		emit(out, conv)
		return ctx.Err()
	})
	if err != nil {
		return err
	}

	conv.ReplaceLast(pending)
	return nil
}

func (c *Controller) persist(conv *chat.Conversation) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(conv); err != nil {
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[stream] failed to persist conversation %s: %v", conv.ID, err)
		}
		return
	}
	if err := c.store.SetLastOpen(conv.ID); err != nil && config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[stream] failed to record last-open conversation: %v", err)
	}
}

// statusFor renders a trace step as a short progress line for the UI.
func statusFor(step chat.Step) string {
	switch step.Type {
	case chat.StepThinking:
		return "💭 thinking"
	case chat.StepToolCall:
		return "🔍 " + step.ToolName
	case chat.StepToolResult:
		return "✅ " + step.ToolName
	default:
		return ""
	}
}

// historyOverlap counts how many leading messages of history are already
// present in existing, matching by message ID.
func historyOverlap(existing []chat.Message, history []chat.Message) int {
	ids := make(map[string]bool, len(existing))
	for _, msg := range existing {
		ids[msg.ID] = true
	}
	n := 0
	for _, msg := range history {
		if !ids[msg.ID] {
			break
		}
		n++
	}
	return n
}

func emit(out chan<- Snapshot, conv *chat.Conversation) {
	// A slow consumer misses intermediate snapshots rather than stalling
	// the exchange; the final snapshot is always delivered.
	select {
	case out <- Snapshot{Conversation: conv.Clone()}:
	default:
	}
}

func fail(out chan<- Snapshot, conv *chat.Conversation, err error) {
	out <- Snapshot{Conversation: conv.Clone(), Done: true, Err: err}
}

func summarize(answer string) string {
	if len(answer) > answerSummaryLimit {
		return answer[:answerSummaryLimit] + "..."
	}
	return answer
}
