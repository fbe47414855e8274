package stream

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"chathub/agent"
	"chathub/chat"
	"chathub/tools"
)

// fakeProvider is scriptable for both request shapes and records whether
// tool definitions were ever put on the wire.
type fakeProvider struct {
	turns        []chat.Message
	streamChunks []string
	streamErr    error
	onChat       func(call int)
	chatCalls    atomic.Int32
	sawTools     atomic.Bool
}

func (p *fakeProvider) Chat(_ context.Context, _ []chat.Message, toolDefs []mcptypes.Tool, _ bool) (chat.Message, error) {
	if len(toolDefs) > 0 {
		p.sawTools.Store(true)
	}
	call := int(p.chatCalls.Add(1))
	if p.onChat != nil {
		p.onChat(call)
	}
	n := call - 1
	if n >= len(p.turns) {
		n = len(p.turns) - 1
	}
	return p.turns[n], nil
}

func (p *fakeProvider) ChatStream(_ context.Context, _ []chat.Message, toolDefs []mcptypes.Tool, callback chat.StreamCallback) error {
	if len(toolDefs) > 0 {
		p.sawTools.Store(true)
	}
	if p.streamErr != nil {
		return p.streamErr
	}
	for _, chunk := range p.streamChunks {
		if err := callback(chunk, nil); err != nil {
			return err
		}
	}
	return nil
}

func (p *fakeProvider) ListModels(context.Context) ([]chat.ModelInfo, error) { return nil, nil }
func (p *fakeProvider) GetModel() string                                     { return "llama3.1:latest" }
func (p *fakeProvider) SetModel(string)                                      {}
func (p *fakeProvider) Ping(context.Context) error                           { return nil }

type staticTool struct {
	name  string
	reply string
	runs  atomic.Int32
}

func (s *staticTool) Definition() mcptypes.Tool {
	return mcptypes.Tool{Name: s.name, InputSchema: mcptypes.ToolInputSchema{Type: "object", Properties: map[string]any{}}}
}

func (s *staticTool) Execute(context.Context, map[string]any) chat.ToolResult {
	s.runs.Add(1)
	return chat.ToolResult{Content: s.reply}
}

func withToolCall(id, name string) chat.Message {
	msg := chat.NewAssistantMessage("")
	msg.ToolCalls = []chat.ToolCall{{ID: id, Name: name, Arguments: map[string]any{}}}
	return msg
}

func newTestController(t *testing.T, prov chat.Provider, toolList ...tools.Tool) *Controller {
	t.Helper()
	c, err := NewController(Config{
		Providers: map[string]chat.Provider{"ollama": prov},
		Registry:  tools.NewRegistry(toolList...),
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func collect(t *testing.T, ch <-chan Snapshot) []Snapshot {
	t.Helper()
	var snapshots []Snapshot
	for snap := range ch {
		snapshots = append(snapshots, snap)
	}
	if len(snapshots) == 0 {
		t.Fatal("expected at least one snapshot")
	}
	return snapshots
}

func TestSendAgenticPath(t *testing.T) {
	search := &staticTool{name: "web_search", reply: "result from https://go.dev/blog"}
	prov := &fakeProvider{turns: []chat.Message{
		withToolCall("c1", "web_search"),
		chat.NewAssistantMessage("Go has a blog."),
	}}

	controller := newTestController(t, prov, search)
	conv := chat.NewConversation("ollama", "llama3.1:latest")

	snapshots := collect(t, controller.Send(context.Background(), conv, "find the go blog"))
	final := snapshots[len(snapshots)-1]

	if final.Err != nil {
		t.Fatalf("unexpected error: %v", final.Err)
	}
	if !final.Done {
		t.Fatal("last snapshot must have Done set")
	}
	if search.runs.Load() != 1 {
		t.Errorf("expected the tool to run once, ran %d times", search.runs.Load())
	}
	if got := final.Conversation.Last().Content; got != "Go has a blog." {
		t.Errorf("expected final answer in conversation, got %q", got)
	}
	if len(final.References) != 1 || final.References[0].URL != "https://go.dev/blog" {
		t.Errorf("expected the tool result URL as a reference, got %v", final.References)
	}

	// The transcript must include the tool traffic, in order.
	var roles []string
	for _, msg := range final.Conversation.Messages {
		roles = append(roles, msg.Role)
	}
	want := []string{"user", "assistant", "tool", "assistant"}
	if len(roles) != len(want) {
		t.Fatalf("expected roles %v, got %v", want, roles)
	}
	for i := range want {
		if roles[i] != want[i] {
			t.Fatalf("expected roles %v, got %v", want, roles)
		}
	}
}

func TestSendFlagDisabledNeverSendsTools(t *testing.T) {
	search := &staticTool{name: "web_search", reply: "unused"}
	prov := &fakeProvider{streamChunks: []string{"Hello", " there"}}

	controller := newTestController(t, prov, search)
	conv := chat.NewConversation("ollama", "llama3.1:latest")
	conv.ToolCallingEnabled = false

	snapshots := collect(t, controller.Send(context.Background(), conv, "hi"))
	final := snapshots[len(snapshots)-1]

	if final.Err != nil {
		t.Fatalf("unexpected error: %v", final.Err)
	}
	if prov.sawTools.Load() {
		t.Error("tool definitions must never reach the wire when the flag is off")
	}
	if prov.chatCalls.Load() != 0 {
		t.Error("disabled flag must use the streaming path, not the agent loop")
	}
	if search.runs.Load() != 0 {
		t.Error("no tool may execute when the flag is off")
	}
	if got := final.Conversation.Last().Content; got != "Hello there" {
		t.Errorf("expected accumulated stream content, got %q", got)
	}
}

func TestSendIncapableModelFallsBackToPlain(t *testing.T) {
	search := &staticTool{name: "web_search", reply: "unused"}
	prov := &fakeProvider{streamChunks: []string{"plain answer"}}

	controller := newTestController(t, prov, search)
	// gemma has no tool support; the flag stays on but the capability
	// check must route around the agent loop before any transport call.
	conv := chat.NewConversation("ollama", "gemma2:9b")

	snapshots := collect(t, controller.Send(context.Background(), conv, "hi"))
	final := snapshots[len(snapshots)-1]

	if final.Err != nil {
		t.Fatalf("unexpected error: %v", final.Err)
	}
	if prov.sawTools.Load() {
		t.Error("tools must not be offered to a model without tool support")
	}
	if prov.chatCalls.Load() != 0 {
		t.Error("expected the plain streaming path")
	}
}

func TestSendUnknownProvider(t *testing.T) {
	prov := &fakeProvider{streamChunks: []string{"x"}}
	controller := newTestController(t, prov)

	conv := chat.NewConversation("anthropic", "claude-sonnet-4-5")
	snapshots := collect(t, controller.Send(context.Background(), conv, "hi"))
	final := snapshots[len(snapshots)-1]

	if final.Err == nil || !strings.Contains(final.Err.Error(), "anthropic") {
		t.Fatalf("expected an unknown-provider error, got %v", final.Err)
	}
	if !final.Done {
		t.Error("error snapshot must have Done set")
	}
}

func TestSendStreamErrorSurfaces(t *testing.T) {
	prov := &fakeProvider{streamErr: errors.New("connection reset")}
	controller := newTestController(t, prov)

	conv := chat.NewConversation("ollama", "gemma2:9b")
	snapshots := collect(t, controller.Send(context.Background(), conv, "hi"))
	final := snapshots[len(snapshots)-1]

	if final.Err == nil || !strings.Contains(final.Err.Error(), "connection reset") {
		t.Fatalf("expected the stream error, got %v", final.Err)
	}
}

func TestSendMaxIterationsKeepsPartialTranscript(t *testing.T) {
	// The model never stops asking for tools; the controller must surface
	// the cutoff as a distinct error while keeping the tool traffic.
	search := &staticTool{name: "web_search", reply: "partial findings"}
	prov := &fakeProvider{turns: []chat.Message{
		withToolCall("c1", "web_search"),
	}}

	c, err := NewController(Config{
		Providers:     map[string]chat.Provider{"ollama": prov},
		Registry:      tools.NewRegistry(search),
		MaxIterations: 2,
	})
	if err != nil {
		t.Fatal(err)
	}

	conv := chat.NewConversation("ollama", "llama3.1:latest")
	snapshots := collect(t, c.Send(context.Background(), conv, "dig forever"))
	final := snapshots[len(snapshots)-1]

	if !final.Done {
		t.Fatal("terminal snapshot must have Done set")
	}
	if !errors.Is(final.Err, agent.ErrMaxIterations) {
		t.Fatalf("expected ErrMaxIterations on the terminal snapshot, got %v", final.Err)
	}
	if prov.chatCalls.Load() != 2 {
		t.Errorf("expected exactly 2 transport calls, got %d", prov.chatCalls.Load())
	}

	var toolMessages int
	for _, msg := range final.Conversation.Messages {
		if msg.Role == chat.RoleTool {
			toolMessages++
		}
	}
	if toolMessages != 2 {
		t.Errorf("expected 2 tool messages preserved in the transcript, got %d", toolMessages)
	}
}

func TestSendGeneratesTitle(t *testing.T) {
	prov := &fakeProvider{streamChunks: []string{"answer"}}
	controller := newTestController(t, prov)

	conv := chat.NewConversation("ollama", "gemma2:9b")
	snapshots := collect(t, controller.Send(context.Background(), conv, "what is the capital of Norway?"))
	final := snapshots[len(snapshots)-1]

	if final.Conversation.Title == "" {
		t.Fatal("expected a generated title")
	}
	if !strings.HasPrefix(final.Conversation.Title, "what is the capital of Norway") {
		t.Errorf("title should derive from the first message, got %q", final.Conversation.Title)
	}
}

func TestSendCancellation(t *testing.T) {
	search := &staticTool{name: "web_search", reply: "unused"}
	prov := &fakeProvider{turns: []chat.Message{withToolCall("c1", "web_search")}}

	controller := newTestController(t, prov, search)
	conv := chat.NewConversation("ollama", "llama3.1:latest")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snapshots := collect(t, controller.Send(ctx, conv, "hi"))
	final := snapshots[len(snapshots)-1]

	if !errors.Is(final.Err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", final.Err)
	}
}

func TestSendCancelledMidLoopKeepsToolMessages(t *testing.T) {
	search := &staticTool{name: "web_search", reply: "found it"}
	prov := &fakeProvider{turns: []chat.Message{withToolCall("c1", "web_search")}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// First turn requests the tool; the tool runs and its result message
	// lands in the history. Cancelling during the second model turn must
	// not roll that back.
	prov.onChat = func(call int) {
		if call == 2 {
			cancel()
		}
	}

	controller := newTestController(t, prov, search)
	conv := chat.NewConversation("ollama", "llama3.1:latest")

	snapshots := collect(t, controller.Send(ctx, conv, "find it"))
	final := snapshots[len(snapshots)-1]

	if !errors.Is(final.Err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", final.Err)
	}

	toolMessages := 0
	var roles []string
	for _, msg := range final.Conversation.Messages {
		roles = append(roles, msg.Role)
		if msg.Role == chat.RoleTool {
			toolMessages++
		}
	}
	if toolMessages != 1 {
		t.Fatalf("expected the tool message from the completed round to remain, got %d tool messages (roles %v)", toolMessages, roles)
	}
}

func TestSnapshotsAreIndependentCopies(t *testing.T) {
	prov := &fakeProvider{streamChunks: []string{"chunk1", "chunk2", "chunk3"}}
	controller := newTestController(t, prov)

	conv := chat.NewConversation("ollama", "gemma2:9b")
	snapshots := collect(t, controller.Send(context.Background(), conv, "hi"))

	final := snapshots[len(snapshots)-1]
	finalContent := final.Conversation.Last().Content

	// Mutating the live conversation afterwards must not reach the
	// snapshot the consumer holds.
	conv.Append(chat.NewUserMessage("later"))
	if len(final.Conversation.Messages) == len(conv.Messages) {
		t.Error("snapshot shares message slice with live conversation")
	}
	if final.Conversation.Last().Content != finalContent {
		t.Error("snapshot content changed after the fact")
	}
}
