package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Error types recorded for failed attempts.
const (
	ErrorTypeForbidden = "http_403"
	ErrorTypeHTTP      = "http_error"
	ErrorTypeTimeout   = "timeout"
	ErrorTypeCanceled  = "canceled"
	ErrorTypeNetwork   = "network_error"
	ErrorTypeNotAudio  = "not_audio"
	ErrorTypeResolve   = "resolve_error"
	ErrorTypeWrite     = "write_error"
)

// ErrIdleTimeout means a response body stopped delivering data.
var ErrIdleTimeout = errors.New("no data received within timeout")

// HTTPError is returned for responses outside the 2xx range.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// Forbidden reports a 403, which usually means the host wants a browser.
func (e *HTTPError) Forbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// ErrorType classifies transport errors. Errors it does not recognise
// are reported as network errors.
func ErrorType(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Forbidden() {
			return ErrorTypeForbidden
		}
		return ErrorTypeHTTP
	}
	if errors.Is(err, ErrIdleTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrorTypeCanceled
	}
	return ErrorTypeNetwork
}
