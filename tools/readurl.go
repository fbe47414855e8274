package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"chathub/chat"
)

const (
	readURLMaxBody    = 5 * 1024 * 1024 // response size cap
	readURLMaxContent = 20000           // characters of extracted text handed to the model
)

// ReadURL fetches a web page and extracts its readable article text.
type ReadURL struct {
	client *http.Client
}

// NewReadURL creates the URL-reader executor.
func NewReadURL(timeout time.Duration) *ReadURL {
	if timeout == 0 {
		timeout = 8 * time.Second
	}
	return &ReadURL{
		client: &http.Client{Timeout: timeout},
	}
}

func (r *ReadURL) Definition() mcptypes.Tool {
	return mcptypes.Tool{
		Name: "read_url",
		Description: "Fetch a web page and extract its readable text content. Use this to read " +
			"an article or page when you already have its URL, for example from a web_search result.",
		InputSchema: objectSchema(map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The http or https URL to read",
			},
		}, "url"),
	}
}

func (r *ReadURL) Execute(ctx context.Context, args map[string]any) chat.ToolResult {
	rawURL, err := stringArg(args, "url")
	if err != nil {
		return Failure("read_url: %v", err)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Failure("read_url: invalid URL %q: %v", rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Failure("read_url: only http and https URLs are supported, got %q", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return Failure("read_url: %v", err)
	}
	req.Header.Set("User-Agent", "chathub/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return Failure("read_url failed for %s: %v", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Failure("read_url failed for %s: HTTP %d", rawURL, resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, readURLMaxBody)
	article, err := readability.FromReader(body, parsed)
	if err != nil {
		return Failure("read_url: could not extract readable content from %s: %v", rawURL, err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return Failure("read_url: %s contained no readable text", rawURL)
	}
	if len(text) > readURLMaxContent {
		text = text[:readURLMaxContent] + "\n\n[content truncated]"
	}

	if article.Title != "" {
		return Success(fmt.Sprintf("%s\n(%s)\n\n%s", article.Title, rawURL, text))
	}
	return Success(fmt.Sprintf("(%s)\n\n%s", rawURL, text))
}
