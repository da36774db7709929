// Package facts collects the system facts the client reports to the
// entitlement server: distribution, kernel and hardware data, network
// addresses, virtualization, and administrator overrides from
// /etc/rhsm/facts. Every fact is a string key-value pair, which is how
// the server stores them.
package facts

import (
	"context"
	"sync"
	"time"

	"github.com/ZuhairORZaki/subscription-manager/cmdutil"
	"github.com/ZuhairORZaki/subscription-manager/logutil"
)

// DefaultStaleness is how long a collected fact set is reused before a
// read collects again.
const DefaultStaleness = 100 * time.Second

var log = logutil.NewLogger("rhsm.facts")

// Options configures a Collector.
type Options struct {
	Staleness time.Duration  // reuse window, DefaultStaleness when zero
	CustomDir string         // override directory, DefaultCustomDir when empty
	OSRelease string         // os-release path, /etc/os-release when empty
	Runner    cmdutil.Runner // probe runner, cmdutil.ExecRunner when nil
}

// Collector assembles and holds a fact set. Reads within the staleness
// window reuse the held set; every caller gets its own copy. Safe for
// concurrent use.
type Collector struct {
	staleness time.Duration
	customDir string
	osRelease string
	runner    cmdutil.Runner

	mu        sync.RWMutex
	facts     map[string]string
	collected time.Time
}

// NewCollector creates a collector with the given options.
func NewCollector(opts Options) *Collector {
	c := &Collector{
		staleness: opts.Staleness,
		customDir: opts.CustomDir,
		osRelease: opts.OSRelease,
		runner:    opts.Runner,
	}
	if c.staleness == 0 {
		c.staleness = DefaultStaleness
	}
	if c.customDir == "" {
		c.customDir = DefaultCustomDir
	}
	if c.osRelease == "" {
		c.osRelease = "/etc/os-release"
	}
	if c.runner == nil {
		c.runner = cmdutil.ExecRunner{}
	}
	return c
}

// Facts returns the current fact set, collecting first when the held
// set is missing or older than the staleness window.
func (c *Collector) Facts(ctx context.Context) map[string]string {
	c.mu.RLock()
	if c.facts != nil && time.Since(c.collected) < c.staleness {
		defer c.mu.RUnlock()
		return copyFacts(c.facts)
	}
	c.mu.RUnlock()

	return c.Update(ctx)
}

// Update collects a fresh fact set regardless of age and returns it.
func (c *Collector) Update(ctx context.Context) map[string]string {
	collected := c.collect(ctx)

	c.mu.Lock()
	c.facts = collected
	c.collected = time.Now()
	c.mu.Unlock()

	log.Debug("collected system facts", "count", len(collected))
	return copyFacts(collected)
}

// Get returns a single fact by key, collecting when stale.
func (c *Collector) Get(ctx context.Context, key string) (string, bool) {
	value, ok := c.Facts(ctx)[key]
	return value, ok
}

// CollectedAt reports when the held fact set was collected. The zero
// time means nothing has been collected yet.
func (c *Collector) CollectedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collected
}

// collect runs every collector into one map. Individual probes fail
// soft: a fact set with gaps is still worth reporting. Custom overrides
// merge last so administrators win.
func (c *Collector) collect(ctx context.Context) map[string]string {
	facts := make(map[string]string)
	collectDistribution(c.osRelease, facts)
	collectHost(ctx, facts)
	collectCPU(ctx, facts)
	collectMemory(ctx, facts)
	collectNetwork(ctx, facts)
	collectVirt(ctx, c.runner, facts)
	collectCustom(c.customDir, facts)
	return facts
}

func copyFacts(facts map[string]string) map[string]string {
	out := make(map[string]string, len(facts))
	for key, value := range facts {
		out[key] = value
	}
	return out
}
