package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ZuhairORZaki/subscription-manager/fileutil"
	"github.com/ZuhairORZaki/subscription-manager/logutil"
	"github.com/ZuhairORZaki/subscription-manager/proxy"
	"github.com/ZuhairORZaki/subscription-manager/serverurl"
	"github.com/ZuhairORZaki/subscription-manager/syncutil"
	"gopkg.in/ini.v1"
)

var (
	// ErrNoProperty reports a dotted key that does not name both a
	// section and a property.
	ErrNoProperty = errors.New("key must name both a section and a property")

	// ErrUnknownSection reports an access to a section the configuration
	// does not have.
	ErrUnknownSection = errors.New("unknown configuration section")
)

// UnknownPropertyError reports a property missing from a known section.
type UnknownPropertyError struct {
	Section  string
	Property string
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("section %q has no property %q", e.Section, e.Property)
}

// Config is a parsed rhsm.conf. Option names are case-insensitive and
// stored lowercase; section names are case-sensitive. All methods are
// safe for concurrent use.
type Config struct {
	mu          sync.Mutex
	file        *ini.File
	path        string
	autoPersist bool
}

// Load reads the configuration file at path. A missing file is not an
// error: the result answers lookups from the stock defaults and the
// first Persist creates the file.
func Load(path string) (*Config, error) {
	file, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	return &Config{file: file, path: path}, nil
}

func loadFile(path string) (*ini.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ini.Empty(loadOptions()), nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	file, err := ini.LoadSources(loadOptions(), data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return file, nil
}

// loadOptions tune the INI parser: option names fold to lowercase, '#'
// and ';' comment out whole lines only, and indented continuation lines
// extend the previous value.
func loadOptions() ini.LoadOptions {
	return ini.LoadOptions{
		InsensitiveKeys:            true,
		IgnoreInlineComment:        true,
		AllowPythonMultilineValues: true,
	}
}

var defaultConfig = syncutil.NewLazy(loadDefault)

func loadDefault() *Config {
	cfg, err := Load(Path())
	if err != nil {
		logutil.Warn("failed to load configuration, using defaults", "path", Path(), "error", err)
		return &Config{file: ini.Empty(loadOptions()), path: Path()}
	}
	return cfg
}

// Default returns the process-wide configuration, loaded once from
// Path. A malformed file logs a warning and yields the stock defaults.
func Default() *Config {
	return defaultConfig.Get()
}

// ResetDefault discards the process-wide configuration so the next
// Default call reloads it. Intended for tests that point EnvConfig at a
// scratch file.
func ResetDefault() {
	defaultConfig.Reset()
}

// Path returns the file this configuration persists to.
func (c *Config) Path() string {
	return c.path
}

// Reload re-reads the file, discarding unsaved changes.
func (c *Config) Reload() error {
	file, err := loadFile(c.path)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.file = file
	c.mu.Unlock()
	return nil
}

// Sections returns the section names present in the file, in file order.
// Sections that exist only as stock defaults are not listed.
func (c *Config) Sections() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := c.file.SectionStrings()
	sections := make([]string, 0, len(names))
	for _, name := range names {
		if name == ini.DefaultSection {
			continue
		}
		sections = append(sections, name)
	}
	return sections
}

// KnownSections returns the union of sections present in the file and
// sections carrying stock defaults, sorted. This is the set a
// configuration listing shows.
func (c *Config) KnownSections() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]bool)
	for _, name := range c.file.SectionStrings() {
		if name != ini.DefaultSection {
			seen[name] = true
		}
	}
	for _, name := range defaultSectionNames() {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasSection reports whether the named section is present in the file.
func (c *Config) HasSection(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasSection(name)
}

// hasSection is HasSection without locking. Caller holds mu.
func (c *Config) hasSection(name string) bool {
	if name == "" || name == ini.DefaultSection {
		return false
	}
	_, err := c.file.GetSection(name)
	return err == nil
}

// Section returns a view over the named section. Reads through the view
// never create the section; writes do.
func (c *Config) Section(name string) *Section {
	return &Section{config: c, name: name}
}

// SetSection replaces the named section so it holds exactly the given
// keys. Existing keys not in values are dropped.
func (c *Config) SetSection(name string, values map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.file.DeleteSection(name)
	sec := c.file.Section(name)
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		sec.Key(strings.ToLower(key)).SetValue(values[key])
	}
	return c.persistIfAuto()
}

// DeleteSection removes the named section and its keys from the file
// content. Reports whether the section existed.
func (c *Config) DeleteSection(name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasSection(name) {
		return false, nil
	}
	c.file.DeleteSection(name)
	return true, c.persistIfAuto()
}

// GetProperty resolves a "section.property" key.
func (c *Config) GetProperty(key string) (string, error) {
	section, property, err := splitPropertyKey(key)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasSection(section) {
		return "", ErrUnknownSection
	}
	value, ok := c.lookup(section, strings.ToLower(property))
	if !ok {
		return "", &UnknownPropertyError{Section: section, Property: property}
	}
	return value, nil
}

// SetProperty writes a "section.property" key and persists the file
// immediately. The section must already exist in the file; the property
// may be new.
func (c *Config) SetProperty(key, value string) error {
	section, property, err := splitPropertyKey(key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasSection(section) {
		return ErrUnknownSection
	}
	c.file.Section(section).Key(strings.ToLower(property)).SetValue(value)
	return c.persistLocked()
}

func splitPropertyKey(key string) (section, property string, err error) {
	section, property, ok := strings.Cut(key, ".")
	if !ok || section == "" || property == "" {
		return "", "", ErrNoProperty
	}
	return section, property, nil
}

// Persist writes the configuration back to its file atomically. Only
// sections and keys present in the file or set through the API are
// written; stock defaults stay implicit.
func (c *Config) Persist() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persistLocked()
}

// SetAutoPersist toggles saving the file after every mutation.
func (c *Config) SetAutoPersist(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoPersist = enabled
}

// persistLocked serializes and writes the file. Caller holds mu.
func (c *Config) persistLocked() error {
	var buf bytes.Buffer
	if _, err := c.file.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return fileutil.AtomicWriteFile(c.path, buf.Bytes(), fileutil.FilePermission)
}

// persistIfAuto saves the file when auto persist is on. Caller holds mu.
func (c *Config) persistIfAuto() error {
	if !c.autoPersist {
		return nil
	}
	return c.persistLocked()
}

// ApplyLogging configures the process logger from the [logging] section.
// default_log_level sets the base level; every other key is a
// per-component override, keyed by component name.
func (c *Config) ApplyLogging() {
	logging := c.Section("logging")
	overrides := make(map[string]string)
	for _, key := range logging.Keys() {
		value := logging.Get(key)
		if key == "default_log_level" {
			logutil.SetLevel(logutil.ParseLevel(value))
			continue
		}
		overrides[key] = value
	}
	logutil.ApplyLevels(overrides)
}

// ServerDefaults returns the [server] endpoint for connection string
// parsing: whatever a user leaves out of a server URL falls back to
// these values.
func (c *Config) ServerDefaults() serverurl.Defaults {
	server := c.Section("server")
	return serverurl.Defaults{
		Hostname: server.Get("hostname"),
		Port:     server.Get("port"),
		Prefix:   server.Get("prefix"),
	}
}

// Proxy returns the proxy configured in [server]. A proxy hostname with
// no port gets the standard squid port. The zero Info means no proxy is
// configured; environment variables are the caller's concern and rank
// below explicit configuration.
func (c *Config) Proxy() (proxy.Info, error) {
	server := c.Section("server")
	hostname := server.Get("proxy_hostname")
	port := server.Get("proxy_port")
	if hostname != "" && port == "" {
		port = strconv.Itoa(proxy.DefaultPort)
	}
	return proxy.FromValues(hostname, port, server.Get("proxy_user"), server.Get("proxy_password"))
}

// NoProxy returns the [server] no_proxy list with wildcard entries
// normalized for suffix matching.
func (c *Config) NoProxy() string {
	return proxy.NormalizeNoProxy(c.Section("server").Get("no_proxy"))
}

// ProgressMessages reports whether transient progress output is enabled.
// Only the literal "0" disables it.
func (c *Config) ProgressMessages() bool {
	return c.Section("rhsm").Get("progress_messages") != "0"
}
