package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ZuhairORZaki/subscription-manager/env"
)

// maxInterpolationDepth bounds %(name)s expansion. A reference chain
// deeper than this is left partially expanded.
const maxInterpolationDepth = 10

var interpolationPattern = regexp.MustCompile(`%\(([^)]+)\)s`)

// Section is a view over one configuration section. The zero value is
// not usable; obtain one from Config.Section.
type Section struct {
	config *Config
	name   string
}

// Name returns the section name.
func (s *Section) Name() string {
	return s.name
}

// Lookup returns the value for key and whether the key is known, either
// from the file or from the stock defaults. %(name)s references in the
// value are expanded.
func (s *Section) Lookup(key string) (string, bool) {
	s.config.mu.Lock()
	defer s.config.mu.Unlock()
	return s.config.lookup(s.name, strings.ToLower(key))
}

// Get returns the value for key, or the empty string when the key is
// unknown.
func (s *Section) Get(key string) string {
	value, _ := s.Lookup(key)
	return value
}

// Has reports whether key is known, either from the file or from the
// stock defaults.
func (s *Section) Has(key string) bool {
	_, ok := s.Lookup(key)
	return ok
}

// GetInt converts the value for key to an int. An unknown or empty
// value is 0 with no error.
func (s *Section) GetInt(key string) (int, error) {
	value := s.Get(key)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s.%s is not an integer: %q", s.name, key, value)
	}
	return n, nil
}

// GetBool converts the value for key to a bool, accepting the spellings
// env.ParseBool does. An unknown or empty value is false with no error.
func (s *Section) GetBool(key string) (bool, error) {
	value := s.Get(key)
	if value == "" {
		return false, nil
	}
	b, err := env.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s.%s: %w", s.name, key, err)
	}
	return b, nil
}

// Keys returns the key names visible in the section: the file's keys in
// file order, then defaulted keys the file does not set.
func (s *Section) Keys() []string {
	s.config.mu.Lock()
	defer s.config.mu.Unlock()
	return s.config.keys(s.name)
}

// Map returns the visible keys and their expanded values.
func (s *Section) Map() map[string]string {
	s.config.mu.Lock()
	defer s.config.mu.Unlock()
	result := make(map[string]string)
	for _, key := range s.config.keys(s.name) {
		if value, ok := s.config.lookup(s.name, key); ok {
			result[key] = value
		}
	}
	return result
}

// Set writes value under key, creating the section as needed. With auto
// persist enabled the file is saved immediately.
func (s *Section) Set(key, value string) error {
	s.config.mu.Lock()
	defer s.config.mu.Unlock()
	s.config.file.Section(s.name).Key(strings.ToLower(key)).SetValue(value)
	return s.config.persistIfAuto()
}

// Delete removes key from the section's file content. When the key has
// a stock default the default becomes visible again. Reports whether
// the file actually had the key.
func (s *Section) Delete(key string) (bool, error) {
	s.config.mu.Lock()
	defer s.config.mu.Unlock()
	key = strings.ToLower(key)
	sec, err := s.config.file.GetSection(s.name)
	if err != nil {
		return false, nil
	}
	if !sec.HasKey(key) {
		return false, nil
	}
	sec.DeleteKey(key)
	return true, s.config.persistIfAuto()
}

// lookup resolves key in section, file first and stock defaults second,
// and expands %(name)s references in the result. Caller holds mu and
// passes key lowercased.
func (c *Config) lookup(section, key string) (string, bool) {
	raw, ok := c.rawLookup(section, key)
	if !ok {
		return "", false
	}
	return c.interpolate(section, raw), true
}

// rawLookup is lookup without interpolation. Caller holds mu.
func (c *Config) rawLookup(section, key string) (string, bool) {
	if sec, err := c.file.GetSection(section); err == nil {
		if k, err := sec.GetKey(key); err == nil {
			return k.Value(), true
		}
	}
	return defaultValue(section, key)
}

// interpolate expands %(name)s references against the same section.
// Unresolvable references are left in place. Caller holds mu.
func (c *Config) interpolate(section, value string) string {
	for depth := 0; depth < maxInterpolationDepth; depth++ {
		if !strings.Contains(value, "%(") {
			return value
		}
		expanded := interpolationPattern.ReplaceAllStringFunc(value, func(ref string) string {
			name := strings.ToLower(ref[2 : len(ref)-2])
			if raw, ok := c.rawLookup(section, name); ok {
				return raw
			}
			return ref
		})
		if expanded == value {
			return value
		}
		value = expanded
	}
	return value
}

// inFile reports whether the file itself sets key, as opposed to a
// stock default serving it. Caller holds mu.
func (c *Config) inFile(section, key string) bool {
	sec, err := c.file.GetSection(section)
	if err != nil {
		return false
	}
	return sec.HasKey(key)
}

// keys lists file keys in file order, then defaulted keys not in the
// file. Caller holds mu.
func (c *Config) keys(section string) []string {
	var result []string
	seen := make(map[string]bool)
	if sec, err := c.file.GetSection(section); err == nil {
		for _, name := range sec.KeyStrings() {
			result = append(result, name)
			seen[name] = true
		}
	}
	for _, d := range sectionDefaults(section) {
		if !seen[d.name] {
			result = append(result, d.name)
		}
	}
	return result
}
