package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"chathub/chat"
)

const (
	defaultSearchEndpoint = "https://google.serper.dev/search"
	defaultMaxResults     = 5
	maxSearchResults      = 10
)

// WebSearch queries a Serper-compatible search API and returns ranked
// results formatted as text for the model.
type WebSearch struct {
	client     *resty.Client
	apiKey     string
	maxResults int
}

// WebSearchConfig configures the search executor.
type WebSearchConfig struct {
	APIKey     string
	Endpoint   string        // defaults to the hosted Serper endpoint
	Timeout    time.Duration // HTTP timeout, defaults to 8s (inside the registry's 10s bound)
	MaxResults int
}

// NewWebSearch creates the web-search executor.
func NewWebSearch(cfg WebSearchConfig) *WebSearch {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultSearchEndpoint
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 8 * time.Second
	}
	maxResults := cfg.MaxResults
	if maxResults < 1 {
		maxResults = defaultMaxResults
	}

	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("X-API-KEY", cfg.APIKey)
	}

	return &WebSearch{
		client:     client,
		apiKey:     cfg.APIKey,
		maxResults: maxResults,
	}
}

func (w *WebSearch) Definition() mcptypes.Tool {
	return mcptypes.Tool{
		Name: "web_search",
		Description: "Search the web for current information. Use this when the user asks about " +
			"recent events, facts you are unsure of, or anything that may have changed since your " +
			"training data. Returns titles, URLs, and snippets of the top results.",
		InputSchema: objectSchema(map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query",
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Maximum number of results to return (default 5, max 10)",
			},
		}, "query"),
	}
}

type searchResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

func (w *WebSearch) Execute(ctx context.Context, args map[string]any) chat.ToolResult {
	query, err := stringArg(args, "query")
	if err != nil {
		return Failure("web_search: %v", err)
	}
	if w.apiKey == "" {
		return Failure("web_search is not configured: no search API key set")
	}

	limit := intArg(args, "max_results", w.maxResults)
	if limit < 1 {
		limit = 1
	}
	if limit > maxSearchResults {
		limit = maxSearchResults
	}

	var parsed searchResponse
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"q": query, "num": limit}).
		SetResult(&parsed).
		Post("")
	if err != nil {
		return Failure("web_search failed for %q: %v", query, err)
	}
	if resp.IsError() {
		return Failure("web_search failed for %q: search API returned %s", query, resp.Status())
	}
	if len(parsed.Organic) == 0 {
		return Success(fmt.Sprintf("No results found for %q.", query))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Search results for %q:\n\n", query)
	for i, r := range parsed.Organic {
		if i >= limit {
			break
		}
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, r.Title, r.Link)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
	}

	return Success(b.String())
}
