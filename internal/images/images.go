// Package images resolves persona image URLs through the Unsplash search API.
//
// Every persona card carries a portrait; when search fails or no access key is
// configured, callers fall back to FallbackPortraitURL so persona generation
// never fails on images alone.
package images

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// FallbackPortraitURL is substituted whenever portrait resolution fails.
const FallbackPortraitURL = "https://images.unsplash.com/photo-1599566150163-29194dcaad36?q=80&w=300"

const (
	defaultBaseURL = "https://api.unsplash.com"
	defaultTimeout = 15 * time.Second

	// broadKeyword is retried when the derived keyword matches nothing.
	broadKeyword = "person"
)

// Client queries the Unsplash photo search API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	accessKey  string
}

// Opts holds configuration options for the image search client.
type Opts struct {
	httpClient *http.Client
	baseURL    string
	accessKey  string
}

// Option configures the image search client.
type Option func(*Opts)

// WithAccessKey sets the Unsplash access key.
func WithAccessKey(key string) Option {
	return func(o *Opts) { o.accessKey = key }
}

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.httpClient = c }
}

// NewClient creates an image search client. An empty access key is allowed;
// searches then resolve to the fallback portrait without a network call.
func NewClient(opts ...Option) *Client {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.baseURL == "" {
		cfg.baseURL = defaultBaseURL
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{httpClient: cfg.httpClient, baseURL: cfg.baseURL, accessKey: cfg.accessKey}
}

// searchResponse is the subset of the Unsplash search payload we consume.
type searchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
	} `json:"results"`
}

// SearchPortrait resolves a search keyword to a portrait photo URL. If the
// keyword matches nothing, a broader search is tried before giving up.
func (c *Client) SearchPortrait(ctx context.Context, keyword string) (string, error) {
	if c.accessKey == "" {
		slog.Warn("images.SearchPortrait: no access key configured, using fallback portrait")
		return FallbackPortraitURL, nil
	}

	imageURL, err := c.search(ctx, keyword)
	if err != nil {
		return "", err
	}
	if imageURL != "" {
		return imageURL, nil
	}

	slog.Debug("images.SearchPortrait: no results, retrying with broader keyword", "keyword", keyword)
	imageURL, err = c.search(ctx, broadKeyword)
	if err != nil {
		return "", err
	}
	if imageURL == "" {
		return FallbackPortraitURL, nil
	}
	return imageURL, nil
}

func (c *Client) search(ctx context.Context, keyword string) (string, error) {
	q := url.Values{}
	q.Set("query", keyword)
	q.Set("per_page", "1")
	q.Set("orientation", "portrait")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/photos?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("image search returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode image search response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return "", nil
	}
	return parsed.Results[0].URLs.Regular, nil
}
