package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"solana-sales-bot/internal/observability"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 32 << 20
	userAgent      = "solana-sales-bot/1.0"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	// Name labels metrics for this source.
	Name    string
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing calls. Zero disables throttling.
	RequestsPerSecond float64
	Burst             int
	Headers           map[string]string
	HTTPClient        *http.Client
}

// Client is a throttled JSON-over-HTTP client shared by the lookup sources.
type Client struct {
	name    string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	headers map[string]string
}

// NewClient creates a Client.
func NewClient(opts ClientOptions) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		name:    opts.Name,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		limiter: limiter,
		headers: opts.Headers,
	}
}

func (c *Client) resolve(pathOrURL string) string {
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		return pathOrURL
	}
	return c.baseURL + "/" + strings.TrimLeft(pathOrURL, "/")
}

// Get fetches pathOrURL and returns the body and its content type.
func (c *Client) Get(ctx context.Context, pathOrURL string) (body []byte, contentType string, err error) {
	start := time.Now()
	defer func() {
		observability.RecordLookup(c.name, time.Since(start).Seconds(), err)
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("%s: rate limiter: %w", c.name, err)
	}

	url := c.resolve(pathOrURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%s: create request: %w", c.name, err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("%s: read body: %w", c.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, "", &StatusError{Code: resp.StatusCode, URL: url, Body: snippet}
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// GetJSON fetches pathOrURL and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, pathOrURL string, out interface{}) error {
	body, _, err := c.Get(ctx, pathOrURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.name, err)
	}
	return nil
}

// ResolveLocator rewrites ipfs:// and ar:// locators to HTTP gateways.
func ResolveLocator(locator string) string {
	switch {
	case strings.HasPrefix(locator, "ipfs://"):
		return "https://ipfs.io/ipfs/" + strings.TrimPrefix(strings.TrimPrefix(locator, "ipfs://"), "ipfs/")
	case strings.HasPrefix(locator, "ar://"):
		return "https://arweave.net/" + strings.TrimPrefix(locator, "ar://")
	default:
		return locator
	}
}
