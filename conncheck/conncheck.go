// Package conncheck answers one question: does an entitlement server
// answer its status endpoint. Probes run under a per-target circuit
// breaker and rate limiter so periodic checking cannot hammer a server
// that is already struggling, and outcomes are recorded as metrics.
package conncheck

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/ZuhairORZaki/subscription-manager/httpclient"
	"github.com/ZuhairORZaki/subscription-manager/logutil"
	"github.com/ZuhairORZaki/subscription-manager/messages"
	"github.com/ZuhairORZaki/subscription-manager/proxy"
)

var log = logutil.NewLogger("rhsm.conncheck")

// maxConcurrentProbes bounds CheckAll parallelism.
const maxConcurrentProbes = 4

// Target is one server endpoint to probe. Empty fields fall back to
// the stock entitlement server endpoint.
type Target struct {
	Hostname string
	Port     string
	Prefix   string
	Insecure bool
	Proxy    proxy.Info
}

// Label renders the target as host:port/prefix for results and metric
// labels.
func (t Target) Label() string {
	prefix := t.Prefix
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return t.Hostname + ":" + t.Port + prefix
}

// Result is the outcome of one probe.
type Result struct {
	Target    string        `json:"target"`
	Reachable bool          `json:"reachable"`
	Version   string        `json:"version,omitempty"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
	CheckedAt time.Time     `json:"checkedAt"`
}

// Checker probes targets under one profile.
type Checker struct {
	profile  Profile
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
	limiters map[string]*rate.Limiter
}

// NewChecker builds a checker for the given profile.
func NewChecker(profile Profile) *Checker {
	metricsEnabled.Store(profile.Metrics)
	return &Checker{
		profile:  profile.withDefaults(),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Check probes one target and summarizes the outcome. Transport
// failures come back with their canonical message, never an error.
func (c *Checker) Check(ctx context.Context, target Target) Result {
	label := target.Label()
	start := time.Now()

	result := Result{Target: label}
	outcome := outcomeOK

	if limiter := c.getLimiter(label); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			result.Error = "rate limit exceeded"
			result.CheckedAt = time.Now()
			recordProbe(label, outcomeRateLimited, 0)
			return result
		}
	}

	var status *httpclient.ServerStatus
	var err error
	if breaker := c.getBreaker(label); breaker != nil {
		var output interface{}
		output, err = breaker.Execute(func() (interface{}, error) {
			return c.probe(ctx, target)
		})
		if err == nil {
			status = output.(*httpclient.ServerStatus)
		}
	} else {
		status, err = c.probe(ctx, target)
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result.Error = "server unavailable, probes suspended"
		outcome = outcomeSuspended
	case err != nil:
		result.Error = messages.FromError(err)
		outcome = outcomeUnreachable
	default:
		result.Reachable = true
		result.Version = status.Version
	}

	result.Latency = time.Since(start)
	result.CheckedAt = time.Now()
	recordProbe(label, outcome, result.Latency)

	log.Debug("probed server",
		"target", label, "reachable", result.Reachable, "latency", result.Latency)
	return result
}

// CheckAll probes targets concurrently, at most maxConcurrentProbes at
// a time, and returns results in target order.
func (c *Checker) CheckAll(ctx context.Context, targets []Target) []Result {
	results := make([]Result, len(targets))
	sem := make(chan struct{}, maxConcurrentProbes)
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target Target) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = c.Check(ctx, target)
		}(i, target)
	}
	wg.Wait()
	return results
}

// Watch probes target on the profile interval until ctx ends. The
// first probe fires immediately. The channel closes when the watch
// stops.
func (c *Checker) Watch(ctx context.Context, target Target) <-chan Result {
	interval := c.profile.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			result := c.Check(ctx, target)
			select {
			case ch <- result:
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// CheckServer reports whether the server at target answers its status
// endpoint. This is the question asked before a new server URL is
// accepted.
func CheckServer(ctx context.Context, target Target) bool {
	return NewChecker(DefaultProfile()).Check(ctx, target).Reachable
}

func (c *Checker) probe(ctx context.Context, target Target) (*httpclient.ServerStatus, error) {
	client, err := httpclient.NewClient(httpclient.Options{
		Hostname: target.Hostname,
		Port:     target.Port,
		Prefix:   target.Prefix,
		Insecure: target.Insecure,
		Proxy:    target.Proxy,
		Timeout:  c.profile.Timeout,
		Attempts: c.profile.Attempts,
	})
	if err != nil {
		return nil, err
	}
	return client.GetStatus(ctx)
}

func (c *Checker) getBreaker(label string) *gobreaker.CircuitBreaker {
	if !c.profile.CircuitBreaker {
		return nil
	}

	c.mu.RLock()
	breaker, exists := c.breakers[label]
	c.mu.RUnlock()
	if exists {
		return breaker
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if breaker, exists := c.breakers[label]; exists {
		return breaker
	}

	breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        label,
		MaxRequests: 1,
		Interval:    c.profile.CircuitTimeout,
		Timeout:     c.profile.CircuitTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(c.profile.CircuitFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("probe circuit state changed",
				"target", name, "from", from.String(), "to", to.String())
			recordCircuitState(name, to)
		},
	})
	c.breakers[label] = breaker
	return breaker
}

func (c *Checker) getLimiter(label string) *rate.Limiter {
	if c.profile.RateLimit <= 0 {
		return nil
	}

	c.mu.RLock()
	limiter, exists := c.limiters[label]
	c.mu.RUnlock()
	if exists {
		return limiter
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if limiter, exists := c.limiters[label]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(c.profile.RateLimit), c.profile.RateLimit*2)
	c.limiters[label] = limiter
	return limiter
}
