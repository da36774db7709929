package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient points a client at an httptest TLS server.
func testClient(t *testing.T, server *httptest.Server, opts Options) *Client {
	t.Helper()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	opts.Hostname = u.Hostname()
	opts.Port = u.Port()
	opts.Insecure = true
	if opts.Backoff == 0 {
		opts.Backoff = 10 * time.Millisecond
	}

	client, err := NewClient(opts)
	require.NoError(t, err)
	return client
}

func TestClientExecuteRetryOn5xx(t *testing.T) {
	attemptCount := 0
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attemptCount++
		if attemptCount < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"displayMessage":"internal server error"}`))
		} else {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result":true}`))
		}
	}))
	defer server.Close()

	client := testClient(t, server, Options{Attempts: 3})

	resp, err := client.Execute(context.Background(), RequestOptions{
		Method: http.MethodGet,
		Path:   "status",
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, attemptCount, "should have retried 2 times (3 total attempts)")
}

func TestClientExecuteRetryOnNetworkError(t *testing.T) {
	// TEST-NET-1 address that no route answers.
	client, err := NewClient(Options{
		Hostname: "192.0.2.0",
		Port:     "443",
		Timeout:  1 * time.Second,
		Attempts: 2,
		Backoff:  10 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = client.Execute(context.Background(), RequestOptions{
		Method: http.MethodGet,
		Path:   "status",
	})

	assert.Error(t, err)
}

func TestClientExecuteNoRetryOn4xx(t *testing.T) {
	attemptCount := 0
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attemptCount++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"displayMessage":"bad request"}`))
	}))
	defer server.Close()

	client := testClient(t, server, Options{Attempts: 3})

	resp, err := client.Execute(context.Background(), RequestOptions{
		Method: http.MethodGet,
		Path:   "status",
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 1, attemptCount, "should not retry on 4xx errors")
}

func TestClientExecuteNoRetryOn429(t *testing.T) {
	attemptCount := 0
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attemptCount++
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := testClient(t, server, Options{Attempts: 3})

	resp, err := client.Execute(context.Background(), RequestOptions{
		Method: http.MethodGet,
		Path:   "status",
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, 1, attemptCount, "rate limiting is the caller's problem, not a retry")
}

func TestClientExecuteRetryAfterHeader(t *testing.T) {
	attemptCount := 0
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attemptCount++
		if attemptCount == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := testClient(t, server, Options{Attempts: 2})

	start := time.Now()
	resp, err := client.Execute(context.Background(), RequestOptions{
		Method: http.MethodGet,
		Path:   "status",
	})
	duration := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, attemptCount)
	assert.GreaterOrEqual(t, duration, 1*time.Second, "should have waited out Retry-After")
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "timeout error",
			err:      fmt.Errorf("context deadline exceeded"),
			expected: true,
		},
		{
			name:     "connection refused",
			err:      fmt.Errorf("connection refused"),
			expected: true,
		},
		{
			name:     "network unreachable",
			err:      fmt.Errorf("network is unreachable"),
			expected: true,
		},
		{
			name:     "wrapped syscall",
			err:      fmt.Errorf("dial tcp: %w", syscall.ECONNRESET),
			expected: true,
		},
		{
			name:     "wrapped deadline",
			err:      fmt.Errorf("request: %w", context.DeadlineExceeded),
			expected: true,
		},
		{
			name:     "non-retryable error",
			err:      fmt.Errorf("invalid argument"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isRetryableError(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestClientExecuteResponseSizeLimit(t *testing.T) {
	body := make([]byte, 4096)
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}))
	defer server.Close()

	client := testClient(t, server, Options{Attempts: 1})

	_, err := client.Execute(context.Background(), RequestOptions{
		Method:          http.MethodGet,
		Path:            "status",
		MaxResponseSize: 1024,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum size")
}

func TestClientExecuteResponseSizeWithinLimit(t *testing.T) {
	body := make([]byte, 512)
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}))
	defer server.Close()

	client := testClient(t, server, Options{Attempts: 1})

	resp, err := client.Execute(context.Background(), RequestOptions{
		Method:          http.MethodGet,
		Path:            "status",
		MaxResponseSize: 1024,
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, len(body), len(resp.Body))
}

func TestClientExecuteRetryExponentialBackoff(t *testing.T) {
	attemptCount := 0
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attemptCount++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(t, server, Options{Attempts: 3, Backoff: 50 * time.Millisecond})

	start := time.Now()
	resp, err := client.Execute(context.Background(), RequestOptions{
		Method: http.MethodGet,
		Path:   "status",
	})
	duration := time.Since(start)

	require.NoError(t, err, "a final 5xx is a response, not an error")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, 3, attemptCount)
	assert.GreaterOrEqual(t, duration, 150*time.Millisecond, "50ms then 100ms between attempts")
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "absent", value: "", want: 0},
		{name: "seconds", value: "5", want: 5 * time.Second},
		{name: "negative", value: "-1", want: 0},
		{name: "garbage", value: "soon", want: 0},
		{
			name:  "http date in the past",
			value: time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat),
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRetryAfter(tt.value))
		})
	}

	t.Run("http date in the future", func(t *testing.T) {
		value := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
		got := parseRetryAfter(value)
		assert.Greater(t, got, 59*time.Minute)
		assert.LessOrEqual(t, got, time.Hour)
	})
}

func TestBypassProxy(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		noProxy string
		want    bool
	}{
		{name: "empty list", host: "example.com", noProxy: "", want: false},
		{name: "wildcard", host: "example.com", noProxy: "*", want: true},
		{name: "exact match", host: "example.com", noProxy: "example.com", want: true},
		{name: "suffix match", host: "cdn.example.com", noProxy: "example.com", want: true},
		{name: "no match", host: "example.org", noProxy: "example.com", want: false},
		{name: "list with spaces", host: "internal.lan", noProxy: "example.com, internal.lan", want: true},
		{name: "case folded", host: "CDN.Example.COM", noProxy: "example.com", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bypassProxy(tt.host, tt.noProxy))
		})
	}
}
