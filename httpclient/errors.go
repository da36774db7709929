package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// RestError is a structured error document from the server. Msg
// carries the displayMessage when the body had one.
type RestError struct {
	Code  int
	Title string
	Msg   string
}

func (e *RestError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("HTTP error (%d - %s)", e.Code, e.Title)
}

// RateLimitError reports a 429 and the wait the server asked for.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many requests, retry after %d seconds", int(e.RetryAfter.Seconds()))
}

// BadCACertError reports a CA bundle that could not be loaded. The
// connection is refused rather than silently trusting less than the
// administrator configured.
type BadCACertError struct {
	Path  string
	cause error
}

func (e *BadCACertError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("bad CA certificate %s: %v", e.Path, e.cause)
	}
	return fmt.Sprintf("bad CA certificate %s: no certificates found", e.Path)
}

func (e *BadCACertError) Unwrap() error {
	return e.cause
}

// errorBody is the shape of the server's error documents.
type errorBody struct {
	DisplayMessage string `json:"displayMessage"`
	RequestUUID    string `json:"requestUuid"`
}

// responseError converts a non-2xx response into the typed error the
// status calls for.
func responseError(resp *Response) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	restErr := &RestError{
		Code:  resp.StatusCode,
		Title: http.StatusText(resp.StatusCode),
	}
	var body errorBody
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		restErr.Msg = body.DisplayMessage
	}
	return restErr
}

// parseRetryAfter understands both the seconds and the HTTP-date form
// of the Retry-After header. Zero means the header was absent or
// unusable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if wait := time.Until(when); wait > 0 {
			return wait
		}
	}
	return 0
}

// isRetryableError reports whether a transport error is worth another
// attempt. Timeouts and unreachable or refusing hosts are transient,
// anything else is handed to the caller as is.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}

	// Wrapped errors from other stacks do not always expose the
	// syscall, so fall back to the familiar phrasings.
	msg := err.Error()
	for _, phrase := range []string{
		"context deadline exceeded",
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no such host",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
