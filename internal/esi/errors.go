package esi

import "fmt"

// AuthError reports a rejected token refresh. Callers treat it as fatal
// for the in-flight request; it is never retried by the client.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("token refresh rejected with status %d: %s", e.StatusCode, e.Body)
}

// FetchError reports a failed GET: either a transport/decode failure
// (Err set, StatusCode zero) or an HTTP status error that exhausted the
// configured retries (StatusCode set).
type FetchError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
