package chat

import (
	"reflect"
	"testing"
)

func TestExtractReferencesFromSearchResults(t *testing.T) {
	result := NewToolMessage("c1",
		"1. The Go Blog (https://go.dev/blog)\n"+
			"   Articles from the Go team.\n"+
			"2. Go Wiki (https://go.dev/wiki)\n"+
			"   Community-maintained pages.\n")

	refs := ExtractReferences([]Message{result})

	want := []Reference{
		{Title: "The Go Blog", URL: "https://go.dev/blog"},
		{Title: "Go Wiki", URL: "https://go.dev/wiki"},
	}
	if !reflect.DeepEqual(refs, want) {
		t.Errorf("ExtractReferences = %+v, want %+v", refs, want)
	}
}

func TestExtractReferencesUntitledAndDeduped(t *testing.T) {
	messages := []Message{
		NewUserMessage("see https://example.com/user-typed"),
		NewAssistantMessage("check https://example.com/model-invented"),
		NewToolMessage("c1", "fetched from https://go.dev/doc, see also https://go.dev/doc."),
		NewToolMessage("c2", "1. Go Documentation (https://go.dev/doc)"),
	}

	refs := ExtractReferences(messages)

	// Only tool-role messages are scanned, the URL appears once, and the
	// first occurrence (untitled) wins.
	want := []Reference{{URL: "https://go.dev/doc"}}
	if !reflect.DeepEqual(refs, want) {
		t.Errorf("ExtractReferences = %+v, want %+v", refs, want)
	}
}
