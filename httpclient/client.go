// Package httpclient talks to the entitlement server. It builds the
// TLS transport from the client configuration, resolves the proxy with
// the usual precedence (caller options, then rhsm.conf, then the
// environment), retries transient failures, and decodes the server's
// structured error documents into typed errors.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ZuhairORZaki/subscription-manager/config"
	"github.com/ZuhairORZaki/subscription-manager/fileutil"
	"github.com/ZuhairORZaki/subscription-manager/logutil"
	"github.com/ZuhairORZaki/subscription-manager/procutil"
	"github.com/ZuhairORZaki/subscription-manager/proxy"
)

var log = logutil.NewLogger("rhsm.connection")

const (
	// DefaultTimeout matches the stock server_timeout of 180 seconds.
	DefaultTimeout = 180 * time.Second

	// DefaultAttempts is how many times a request is tried in total.
	DefaultAttempts = 3

	// DefaultBackoff is the base delay between retries. Each retry
	// doubles it.
	DefaultBackoff = 500 * time.Millisecond
)

// Options configures a Client. Zero fields fall back to the stock
// entitlement server endpoint and timings.
type Options struct {
	Hostname string
	Port     string
	Prefix   string

	// Insecure disables server certificate verification, the
	// [server] insecure=1 setting.
	Insecure bool

	// CADir is scanned for *.pem bundles to trust in addition to the
	// system roots.
	CADir string

	Timeout  time.Duration
	Attempts int
	Backoff  time.Duration

	// Proxy routes requests when non-empty. The empty Info falls back
	// to the process environment.
	Proxy   proxy.Info
	NoProxy string

	Auth Auth
}

// Client is a connection to one entitlement server.
type Client struct {
	base      *url.URL
	http      *http.Client
	attempts  int
	backoff   time.Duration
	auth      Auth
	userAgent string
}

// NewClient builds a client for the server described by opts.
func NewClient(opts Options) (*Client, error) {
	if opts.Hostname == "" {
		opts.Hostname = config.DefaultHostname
	}
	if opts.Port == "" {
		opts.Port = config.DefaultPort
	}
	if opts.Prefix == "" {
		opts.Prefix = config.DefaultPrefix
	}
	if !strings.HasPrefix(opts.Prefix, "/") {
		opts.Prefix = "/" + opts.Prefix
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Auth == nil {
		opts.Auth = NoAuth{}
	}

	transport, err := buildTransport(opts)
	if err != nil {
		return nil, err
	}

	return &Client{
		base: &url.URL{
			Scheme: "https",
			Host:   net.JoinHostPort(opts.Hostname, opts.Port),
			Path:   opts.Prefix,
		},
		http: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		attempts:  opts.Attempts,
		backoff:   opts.Backoff,
		auth:      opts.Auth,
		userAgent: fmt.Sprintf("RHSM/1.0 (cmd=%s)", procutil.CommandName()),
	}, nil
}

// FromConfig builds a client for the configured entitlement server.
// explicitProxy overrides both the configuration and the environment
// when non-empty.
func FromConfig(cfg *config.Config, explicitProxy proxy.Info, auth Auth) (*Client, error) {
	server := cfg.Section("server")

	insecure, err := server.GetBool("insecure")
	if err != nil {
		return nil, err
	}
	timeoutSecs, err := server.GetInt("server_timeout")
	if err != nil {
		return nil, err
	}

	proxyInfo, err := ResolveProxy(explicitProxy, cfg)
	if err != nil {
		return nil, err
	}

	return NewClient(Options{
		Hostname: server.Get("hostname"),
		Port:     server.Get("port"),
		Prefix:   server.Get("prefix"),
		Insecure: insecure,
		CADir:    cfg.Section("rhsm").Get("ca_cert_dir"),
		Timeout:  time.Duration(timeoutSecs) * time.Second,
		Proxy:    proxyInfo,
		NoProxy:  cfg.NoProxy(),
		Auth:     auth,
	})
}

// ResolveProxy merges the three proxy sources in precedence order:
// explicit caller options, then [server] proxy_* configuration, then
// the process environment.
func ResolveProxy(explicit proxy.Info, cfg *config.Config) (proxy.Info, error) {
	if !explicit.Empty() {
		return explicit, nil
	}
	info, err := cfg.Proxy()
	if err != nil || !info.Empty() {
		return info, err
	}
	return proxy.FromEnvironment()
}

// BaseURL returns the server endpoint including the prefix.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func buildTransport(opts Options) (*http.Transport, error) {
	pool, err := loadCAPool(opts.CADir)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
		RootCAs:    pool,
		// #nosec G402 -- insecure=1 in rhsm.conf is an explicit user choice.
		InsecureSkipVerify: opts.Insecure,
	}
	if err := opts.Auth.configure(tlsConfig); err != nil {
		return nil, err
	}

	transport := &http.Transport{
		TLSClientConfig:   tlsConfig,
		ForceAttemptHTTP2: true,
	}

	if opts.Proxy.Empty() {
		// The transport reads no_proxy itself, so mend the wildcard
		// entries before it does.
		proxy.FixNoProxyEnv()
		transport.Proxy = http.ProxyFromEnvironment
	} else {
		proxyURL := opts.Proxy.URL()
		noProxy := opts.NoProxy
		transport.Proxy = func(req *http.Request) (*url.URL, error) {
			if bypassProxy(req.URL.Hostname(), noProxy) {
				return nil, nil
			}
			return proxyURL, nil
		}
	}

	return transport, nil
}

// loadCAPool builds a root pool from every *.pem bundle in dir on top
// of the system roots. An empty or missing directory keeps the system
// roots alone, signalled by a nil pool.
func loadCAPool(dir string) (*x509.CertPool, error) {
	if dir == "" {
		return nil, nil
	}
	paths, err := fileutil.FilesWithExt(dir, ".pem")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}

	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &BadCACertError{Path: path, cause: err}
		}
		if !pool.AppendCertsFromPEM(data) {
			return nil, &BadCACertError{Path: path}
		}
	}
	return pool, nil
}

// bypassProxy reports whether host matches the no_proxy list. Entries
// are matched as suffixes, the way the original bypass logic did.
func bypassProxy(host, noProxy string) bool {
	if noProxy == "" {
		return false
	}
	if noProxy == "*" {
		return true
	}
	host = strings.ToLower(host)
	for _, entry := range strings.Split(noProxy, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if host == entry || strings.HasSuffix(host, entry) {
			return true
		}
	}
	return false
}

// RequestOptions describes one request below the server prefix.
type RequestOptions struct {
	Method string
	Path   string
	Query  url.Values

	// Body is sent as JSON when non-empty.
	Body []byte

	// MaxResponseSize caps the response body in bytes, 0 means no cap.
	MaxResponseSize int64
}

// Response is a completed exchange. Callers own the status handling;
// Execute only fails on transport problems.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Execute performs one request with retries. Responses with status
// 500 and above are retried with exponential backoff, honoring a
// Retry-After header when the server sends one. Client errors,
// including 429, come back as responses for the caller to interpret.
func (c *Client) Execute(ctx context.Context, opts RequestOptions) (*Response, error) {
	target := c.base.JoinPath(opts.Path)
	if len(opts.Query) > 0 {
		target.RawQuery = opts.Query.Encode()
	}

	correlationID := uuid.New().String()

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay(attempt, lastErr)):
			}
		}

		resp, err := c.do(ctx, opts, target, correlationID)
		if err != nil {
			if !isRetryableError(err) {
				return nil, fmt.Errorf("failed to connect to %s: %w", c.base.Host, err)
			}
			lastErr = err
			log.Debug("retrying request",
				"method", opts.Method, "url", target.Redacted(),
				"attempt", attempt+1, "error", err)
			continue
		}

		// A final 5xx is handed back as a response, not an error.
		if resp.StatusCode >= http.StatusInternalServerError && attempt < c.attempts-1 {
			lastErr = &serverRetry{response: resp}
			log.Debug("retrying request",
				"method", opts.Method, "url", target.Redacted(),
				"attempt", attempt+1, "status", resp.StatusCode)
			continue
		}
		return resp, nil
	}

	return nil, fmt.Errorf("failed to connect to %s: %w", c.base.Host, lastErr)
}

// serverRetry carries a retryable 5xx response through the loop so the
// last one can be handed back when the attempts run out.
type serverRetry struct {
	response *Response
}

func (e *serverRetry) Error() string {
	return fmt.Sprintf("server error %d", e.response.StatusCode)
}

func (c *Client) retryDelay(attempt int, lastErr error) time.Duration {
	if retry, ok := lastErr.(*serverRetry); ok {
		if after := parseRetryAfter(retry.response.Header.Get("Retry-After")); after > 0 {
			return after
		}
	}
	return c.backoff * (1 << (attempt - 1))
}

func (c *Client) do(ctx context.Context, opts RequestOptions, target *url.URL, correlationID string) (*Response, error) {
	var body io.Reader
	if len(opts.Body) > 0 {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Correlation-ID", correlationID)
	if len(opts.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	c.auth.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := readBody(resp.Body, opts.MaxResponseSize)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func readBody(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("response exceeds maximum size of %d bytes", max)
	}
	return data, nil
}
