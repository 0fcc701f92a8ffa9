// Package fetch implements the fetchUrlContent tool: best-effort retrieval of
// the readable text of a web page.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultProxyURL is the content-extraction proxy tried first.
	DefaultProxyURL = "https://r.jina.ai"

	maxBodyBytes   = 2 << 20
	requestTimeout = 30 * time.Second
	userAgent      = "prospection/1.0 (+fetchUrlContent)"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Fetcher retrieves page text through the proxy, falling back to a direct
// request with tag stripping.
type Fetcher struct {
	proxyURL string
	client   *http.Client
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client (30 s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// New creates a Fetcher. An empty proxyURL selects DefaultProxyURL.
func New(proxyURL string, opts ...Option) *Fetcher {
	if proxyURL == "" {
		proxyURL = DefaultProxyURL
	}
	f := &Fetcher{
		proxyURL: strings.TrimRight(proxyURL, "/"),
		client:   &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type proxyResponse struct {
	Data struct {
		Content string `json:"content"`
	} `json:"data"`
}

// FetchURLContent returns the text content of url. It never fails: every
// problem is reported as a string beginning with "Error:" so that the model
// can read it.
func (f *Fetcher) FetchURLContent(ctx context.Context, url string) string {
	content, err := f.fetch(ctx, url)
	if err != nil {
		slog.Warn("fetch url content failed", "url", url, "error", err)
		return "Error: " + err.Error()
	}
	return content
}

func (f *Fetcher) fetch(ctx context.Context, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("no URL provided")
	}

	resp, err := f.get(ctx, f.proxyURL+"/"+url, "application/json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var body proxyResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
			return "", fmt.Errorf("invalid proxy response: %w", err)
		}
		return body.Data.Content, nil
	}

	slog.Debug("content proxy refused, fetching directly", "url", url, "status", resp.StatusCode)
	return f.fetchDirect(ctx, url)
}

func (f *Fetcher) fetchDirect(ctx context.Context, url string) (string, error) {
	resp, err := f.get(ctx, url, "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("Failed to fetch URL. Status: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return StripTags(string(raw)), nil
}

func (f *Fetcher) get(ctx context.Context, url, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)
	return f.client.Do(req)
}

// StripTags removes anything that looks like a tag, collapses whitespace runs
// to a single space and trims the result. Script and style bodies are not
// removed.
func StripTags(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
