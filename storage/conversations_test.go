package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"chathub/chat"
)

func newTestStore(t *testing.T) *ConversationStore {
	t.Helper()
	store, err := NewConversationStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleConversation() *chat.Conversation {
	conv := chat.NewConversation("ollama", "llama3.1:latest")
	conv.Title = "weather chat"
	conv.SystemPrompt = "be helpful"
	conv.ToolCallingEnabled = true
	conv.Append(chat.NewUserMessage("what's the weather in Oslo?"))

	assistant := chat.NewAssistantMessage("")
	assistant.ToolCalls = []chat.ToolCall{
		{ID: "call-1", Name: "web_search", Arguments: map[string]any{"query": "Oslo weather"}},
	}
	conv.Append(assistant)
	conv.Append(chat.NewToolMessage("call-1", "12°C, cloudy"))
	conv.Append(chat.NewAssistantMessage("It is 12°C and cloudy in Oslo."))
	return conv
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	conv := sampleConversation()

	if err := store.Save(conv); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.Load(conv.ID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Title != "weather chat" {
		t.Errorf("expected title 'weather chat', got %q", loaded.Title)
	}
	if loaded.Provider != "ollama" || loaded.Model != "llama3.1:latest" {
		t.Errorf("unexpected provider/model: %s/%s", loaded.Provider, loaded.Model)
	}
	if !loaded.ToolCallingEnabled {
		t.Error("tool calling flag should survive the round trip")
	}
	if len(loaded.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(loaded.Messages))
	}

	assistant := loaded.Messages[1]
	if len(assistant.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(assistant.ToolCalls))
	}
	call := assistant.ToolCalls[0]
	if call.ID != "call-1" || call.Name != "web_search" {
		t.Errorf("unexpected tool call: id=%q name=%q", call.ID, call.Name)
	}
	if call.Arguments["query"] != "Oslo weather" {
		t.Errorf("unexpected arguments: %v", call.Arguments)
	}

	toolMsg := loaded.Messages[2]
	if toolMsg.Role != chat.RoleTool || toolMsg.ToolCallID != "call-1" {
		t.Errorf("unexpected tool message: role=%q callID=%q", toolMsg.Role, toolMsg.ToolCallID)
	}
}

func TestSaveReplacesTranscript(t *testing.T) {
	store := newTestStore(t)
	conv := sampleConversation()

	if err := store.Save(conv); err != nil {
		t.Fatal(err)
	}

	conv.Append(chat.NewUserMessage("and tomorrow?"))
	if err := store.Save(conv); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Messages) != 5 {
		t.Errorf("expected 5 messages after resave, got %d", len(loaded.Messages))
	}
}

func TestLoadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := newTestStore(t)

	first := chat.NewConversation("ollama", "llama3.1")
	first.Title = "older"
	if err := store.Save(first); err != nil {
		t.Fatal(err)
	}

	second := chat.NewConversation("ollama", "llama3.1")
	second.Title = "newer"
	if err := store.Save(second); err != nil {
		t.Fatal(err)
	}

	list, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(list))
	}
	if list[0].Title != "newer" {
		t.Errorf("expected newest first, got %q", list[0].Title)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	conv := sampleConversation()
	if err := store.Save(conv); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(conv.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.Load(conv.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	if err := store.Delete(conv.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleting again should report ErrNotFound, got %v", err)
	}
}

func TestRename(t *testing.T) {
	store := newTestStore(t)
	conv := sampleConversation()
	if err := store.Save(conv); err != nil {
		t.Fatal(err)
	}

	if err := store.Rename(conv.ID, "renamed"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}

	loaded, err := store.Load(conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Title != "renamed" {
		t.Errorf("expected title 'renamed', got %q", loaded.Title)
	}

	if err := store.Rename("no-such-id", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	store := newTestStore(t)
	conv := sampleConversation()
	if err := store.Save(conv); err != nil {
		t.Fatal(err)
	}

	matches, err := store.Search("oslo")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) == 0 {
		t.Fatal("expected case-insensitive matches for 'oslo'")
	}
	for _, m := range matches {
		if m.ConversationID != conv.ID {
			t.Errorf("unexpected conversation in results: %s", m.ConversationID)
		}
		if m.Role == chat.RoleSystem {
			t.Error("system messages must be excluded from search")
		}
	}

	matches, err = store.Search("")
	if err != nil {
		t.Fatal(err)
	}
	if matches != nil {
		t.Errorf("empty query should return no matches, got %d", len(matches))
	}
}

func TestLastOpen(t *testing.T) {
	store := newTestStore(t)

	id, err := store.LastOpen()
	if err != nil {
		t.Fatal(err)
	}
	if id != "" {
		t.Errorf("expected empty last-open on fresh store, got %q", id)
	}

	if err := store.SetLastOpen("conv-42"); err != nil {
		t.Fatal(err)
	}
	if err := store.SetLastOpen("conv-43"); err != nil {
		t.Fatal(err)
	}

	id, err = store.LastOpen()
	if err != nil {
		t.Fatal(err)
	}
	if id != "conv-43" {
		t.Errorf("expected 'conv-43', got %q", id)
	}
}

func TestExportToJSON(t *testing.T) {
	store := newTestStore(t)
	conv := sampleConversation()
	if err := store.Save(conv); err != nil {
		t.Fatal(err)
	}

	exportPath := filepath.Join(t.TempDir(), "export", "out.json")
	if err := store.ExportToJSON(conv.ID, exportPath); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("expected a non-empty export file")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain title",
			input: "weather-chat",
			want:  "weather-chat",
		},
		{
			name:  "spaces and slashes",
			input: "what is a/b testing?",
			want:  "what-is-a-b-testing",
		},
		{
			name:  "empty",
			input: "",
			want:  "conversation",
		},
		{
			name:  "only punctuation",
			input: "???",
			want:  "conversation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
