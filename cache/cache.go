// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

// Package cache persists client state between runs as JSON files under
// /var/lib/rhsm/cache. Entries carry a timestamp and a writer version so
// stale or incompatible state is treated as absent rather than trusted.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/ZuhairORZaki/subscription-manager/fileutil"
	"github.com/ZuhairORZaki/subscription-manager/logutil"
)

var log = logutil.NewLogger("rhsm.cache")

// DefaultDir is where the client keeps cached server state on a
// registered system.
const DefaultDir = "/var/lib/rhsm/cache"

// Well-known cache keys. Each key maps to one file in the cache
// directory.
const (
	// KeyEntitlementStatus holds the last entitlement status response
	// from the server.
	KeyEntitlementStatus = "entitlement_status"
	// KeyUploadedFacts records the fact set most recently sent to the
	// server, so unchanged facts are not re-uploaded.
	KeyUploadedFacts = "facts"
	// KeyValidFields holds the system purpose values the server
	// advertises as valid for this owner.
	KeyValidFields = "valid_fields"
)

// Options configures a cache Manager.
type Options struct {
	Dir     string        // cache directory, DefaultDir when empty
	TTL     time.Duration // entry lifetime, 0 means entries never expire
	Version string        // writer version, entries from other versions are ignored
}

// metadata is stamped on every entry when it is written.
type metadata struct {
	CachedAt time.Time `json:"cached_at"`
	Version  string    `json:"version,omitempty"`
}

// envelope is the on-disk format wrapping cached data.
type envelope struct {
	Metadata metadata        `json:"_cache"`
	Data     json.RawMessage `json:"data"`
}

var keySanitizer = regexp.MustCompile(`[^a-zA-Z0-9_\-.]`)

// Manager reads and writes one directory of cache entries. It is safe
// for concurrent use.
type Manager struct {
	dir     string
	ttl     time.Duration
	version string
	mu      sync.RWMutex
}

// NewManager creates a cache manager for the directory named in opts,
// falling back to DefaultDir.
func NewManager(opts Options) *Manager {
	dir := opts.Dir
	if dir == "" {
		dir = DefaultDir
	}
	return &Manager{
		dir:     dir,
		ttl:     opts.TTL,
		version: opts.Version,
	}
}

// Get loads the entry for key into target, which must be a pointer. It
// returns false without error when the entry is missing, expired, or
// written by a different version. An entry that cannot be decoded is
// removed and reported as missing; everything in the cache can be
// fetched again from the server.
func (m *Manager) Get(key string, target interface{}) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	path := m.keyPath(key)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read cache file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		m.dropCorrupt(key, path, err)
		return false, nil
	}

	if m.version != "" && env.Metadata.Version != m.version {
		log.Debug("ignoring cache entry from another version",
			"key", key, "entry_version", env.Metadata.Version, "version", m.version)
		return false, nil
	}

	if m.ttl > 0 && time.Since(env.Metadata.CachedAt) > m.ttl {
		log.Debug("cache entry expired", "key", key, "cached_at", env.Metadata.CachedAt)
		return false, nil
	}

	if err := json.Unmarshal(env.Data, target); err != nil {
		m.dropCorrupt(key, path, err)
		return false, nil
	}

	return true, nil
}

// dropCorrupt deletes an entry that no longer parses.
func (m *Manager) dropCorrupt(key, path string, err error) {
	log.Warn("dropping corrupt cache entry", "key", key, "error", err)
	if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
		log.Warn("failed to remove corrupt cache entry", "key", key, "error", removeErr)
	}
}

// Set stores a value under key, creating the cache directory if needed.
func (m *Manager) Set(key string, data interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := fileutil.EnsureDir(m.dir); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	rawData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	env := envelope{
		Metadata: metadata{
			CachedAt: time.Now(),
			Version:  m.version,
		},
		Data: rawData,
	}

	path := m.keyPath(key)
	if err := fileutil.AtomicWriteJSON(path, env); err != nil {
		return err
	}
	log.Debug("wrote cache entry", "key", key, "path", path)
	return nil
}

// CachedAt returns when the entry for key was written. It returns false
// when the entry does not exist or cannot be read.
func (m *Manager) CachedAt(key string) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := os.ReadFile(m.keyPath(key))
	if err != nil {
		return time.Time{}, false
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return time.Time{}, false
	}
	return env.Metadata.CachedAt, true
}

// Invalidate removes the entry for key. A missing entry is not an error.
func (m *Manager) Invalidate(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.keyPath(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache entry: %w", err)
	}
	log.Debug("invalidated cache entry", "key", key)
	return nil
}

// Clear removes every cache entry in the directory. Unregistering the
// system clears the cache this way. Files the cache did not write stay
// in place.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(m.dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove cache file %s: %w", entry.Name(), err)
		}
		removed++
	}

	log.Debug("cleared cache", "dir", m.dir, "entries", removed)
	return nil
}

// sanitizeKey replaces characters that are unsafe in a filename.
func sanitizeKey(key string) string {
	return keySanitizer.ReplaceAllString(key, "_")
}

// keyPath returns the file path for a cache key.
func (m *Manager) keyPath(key string) string {
	return filepath.Join(m.dir, sanitizeKey(key)+".json")
}
