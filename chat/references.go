package chat

import (
	"regexp"
	"strings"
)

// Reference is a source link surfaced from tool results, shown to the user
// under the final answer.
type Reference struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
}

var (
	urlPattern = regexp.MustCompile(`https?://[^\s<>"'\)\]]+`)

	// Numbered search result lines look like "1. Some Title (https://...)".
	resultLinePattern = regexp.MustCompile(`^\s*\d+\.\s+(.+?)\s+\((https?://[^\s)]+)\)\s*$`)
)

// ExtractReferences collects the distinct URLs mentioned in tool-role
// messages, preserving first-seen order. Tool results are where search
// snippets and fetched pages live, so those are the only messages scanned;
// URLs typed by the user or invented by the model are not references.
// Numbered search result lines carry a title for their URL; URLs found
// anywhere else come through untitled.
func ExtractReferences(messages []Message) []Reference {
	var refs []Reference
	seen := make(map[string]bool)

	add := func(title, url string) {
		url = strings.TrimRight(url, ".,;:")
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		refs = append(refs, Reference{Title: title, URL: url})
	}

	for _, msg := range messages {
		if msg.Role != RoleTool {
			continue
		}
		for _, line := range strings.Split(msg.Content, "\n") {
			if m := resultLinePattern.FindStringSubmatch(line); m != nil {
				add(m[1], m[2])
				continue
			}
			for _, raw := range urlPattern.FindAllString(line, -1) {
				add("", raw)
			}
		}
	}

	return refs
}
