package esi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultTokenURL is the EVE SSO token endpoint.
const DefaultTokenURL = "https://login.eveonline.com/oauth/token"

// Credentials holds the OAuth client identity and the long-lived refresh
// token. Immutable once constructed.
type Credentials struct {
	ClientID     string
	Secret       string
	RefreshToken string
}

// TokenSource caches a bearer token and refreshes it on demand when the
// cached expiry has passed. Safe for concurrent use: the refresh runs in
// a single critical section, so racing callers trigger one network
// refresh and never observe a torn token.
type TokenSource struct {
	creds     Credentials
	tokenURL  string
	userAgent string
	httpc     *http.Client
	now       func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// TokenOption configures a TokenSource.
type TokenOption func(*TokenSource)

// WithTokenURL overrides the token endpoint, mainly for tests.
func WithTokenURL(u string) TokenOption {
	return func(ts *TokenSource) { ts.tokenURL = u }
}

// WithTokenHTTPClient sets a custom http.Client for refreshes.
func WithTokenHTTPClient(c *http.Client) TokenOption {
	return func(ts *TokenSource) { ts.httpc = c }
}

// WithTokenClock overrides the clock, for tests.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(ts *TokenSource) { ts.now = now }
}

// NewTokenSource creates a TokenSource with an already-expired cache, so
// the first Token call performs a refresh.
func NewTokenSource(creds Credentials, opts ...TokenOption) *TokenSource {
	ts := &TokenSource{
		creds:     creds,
		tokenURL:  DefaultTokenURL,
		userAgent: UserAgent,
		httpc:     &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(ts)
	}
	return ts
}

// tokenResponse is the OAuth refresh response body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token returns the cached bearer token, refreshing it first if expired.
// A refresh rejected by the authorization server returns *AuthError.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.now().Before(ts.expiry) {
		return ts.token, nil
	}
	if err := ts.refresh(ctx); err != nil {
		return "", err
	}
	return ts.token, nil
}

// refresh performs the OAuth refresh-token grant. Caller holds ts.mu.
func (ts *TokenSource) refresh(ctx context.Context) error {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {ts.creds.RefreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", ts.userAgent)
	req.SetBasicAuth(ts.creds.ClientID, ts.creds.Secret)

	resp, err := ts.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &AuthError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}

	// Replace wholesale: token and expiry move together.
	ts.token = tr.AccessToken
	ts.expiry = ts.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	return nil
}
