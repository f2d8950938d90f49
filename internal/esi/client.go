// Package esi is the authenticated, rate-limited, retrying client for
// the EVE Swagger Interface.
package esi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// UserAgent identifies this trawler to the API operators.
const UserAgent = "esi-market-trawler/2.0 (muscaat@eve-markets.net)"

// Default configuration values.
const (
	DefaultBaseURL       = "https://esi.tech.ccp.is"
	DefaultVersion       = "latest"
	DefaultMaxPerSecond  = 20
	DefaultRetryDelay    = 1 * time.Second
	DefaultMaxRetryDelay = 5 * time.Minute
	DefaultTimeout       = 60 * time.Second
)

// Client performs GET requests against the ESI API with a global
// minimum-interval rate limit and exponential-backoff retry on HTTP
// status errors. One client instance serializes all callers against the
// same clock.
type Client struct {
	baseURL   string
	version   string
	userAgent string
	httpc     *http.Client
	tokens    *TokenSource // optional

	minInterval time.Duration
	retryDelay  time.Duration
	maxDelay    time.Duration
	maxRetries  int // 0 means retry forever

	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	mu           sync.Mutex
	lastDispatch time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithTokenSource attaches bearer authentication to every request.
func WithTokenSource(ts *TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithMaxPerSecond sets the global rate limit.
func WithMaxPerSecond(n int) Option {
	return func(c *Client) { c.minInterval = time.Second / time.Duration(n) }
}

// WithMaxRetries caps the status-error retry loop; zero retries forever.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithRetryDelay sets the initial backoff delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpc = hc }
}

// WithClock overrides the clock and sleeper, for tests.
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		c.now = now
		c.sleep = sleep
	}
}

// New creates a Client. Pass WithTokenSource for authenticated markets.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		version:     DefaultVersion,
		userAgent:   UserAgent,
		httpc:       &http.Client{Timeout: DefaultTimeout},
		minInterval: time.Second / DefaultMaxPerSecond,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxRetryDelay,
		now:         time.Now,
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// sleepCtx blocks for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Get fetches endpoint (optionally with a page number; page 0 omits the
// parameter) and returns the raw JSON body. HTTP status errors retry
// with exponential backoff; transport and auth failures do not.
func (c *Client) Get(ctx context.Context, endpoint string, page int) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	url := fmt.Sprintf("%s/%s/%s", c.baseURL, c.version, endpoint)
	if page > 0 {
		url = fmt.Sprintf("%s?page=%d", url, page)
	}

	delay := c.retryDelay
	for attempt := 0; ; attempt++ {
		if err := c.pace(ctx); err != nil {
			return nil, err
		}

		body, status, err := c.dispatch(ctx, url)
		if err != nil {
			return nil, &FetchError{Endpoint: endpoint, Err: err}
		}
		if status >= 400 {
			if c.maxRetries > 0 && attempt >= c.maxRetries {
				return nil, &FetchError{Endpoint: endpoint, StatusCode: status}
			}
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
			continue
		}

		if !json.Valid(body) {
			return nil, &FetchError{Endpoint: endpoint, Err: fmt.Errorf("response is not valid JSON")}
		}
		return json.RawMessage(body), nil
	}
}

// pace enforces the minimum interval since the last dispatch.
// Caller holds c.mu.
func (c *Client) pace(ctx context.Context) error {
	elapsed := c.now().Sub(c.lastDispatch)
	if wait := c.minInterval - elapsed; wait > 0 {
		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return nil
}

// dispatch performs one GET attempt, recording the dispatch timestamp.
// Returns the body and status; err is set only for non-HTTP failures.
func (c *Client) dispatch(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, 0, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.lastDispatch = c.now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// Order is one market order as returned by the region orders endpoint.
type Order struct {
	OrderID      int64     `json:"order_id"`
	TypeID       int32     `json:"type_id"`
	LocationID   int64     `json:"location_id"`
	VolumeTotal  int64     `json:"volume_total"`
	VolumeRemain int64     `json:"volume_remain"`
	MinVolume    int64     `json:"min_volume"`
	Price        float64   `json:"price"`
	IsBuyOrder   bool      `json:"is_buy_order"`
	Duration     int32     `json:"duration"`
	Issued       time.Time `json:"issued"`
	Range        string    `json:"range"`
}
