package env

import (
	"fmt"
	"os"
	"strings"
)

// Lookup reports the value of a single environment variable and whether it
// is set. It has the shape of os.LookupEnv so the process environment and
// test fixtures are interchangeable.
type Lookup func(name string) (string, bool)

// OS returns a Lookup backed by the process environment.
func OS() Lookup {
	return os.LookupEnv
}

// FromMap returns a Lookup backed by a fixed map. Keys absent from the map
// report as unset.
func FromMap(vars map[string]string) Lookup {
	return func(name string) (string, bool) {
		value, ok := vars[name]
		return value, ok
	}
}

// FirstNonEmpty scans names in order and returns the first variable that is
// set to a non-empty value, together with its name. A variable that is set
// but empty is skipped, the same as an unset one.
func FirstNonEmpty(lookup Lookup, names ...string) (name, value string, ok bool) {
	for _, n := range names {
		if v, set := lookup(n); set && v != "" {
			return n, v, true
		}
	}
	return "", "", false
}

// Truthy reports whether the named variable is set to any non-empty value.
// Debug toggles like SUBMAN_DEBUG_PRINT_REQUEST are tested this way: the
// content does not matter, only that something was exported.
func Truthy(lookup Lookup, name string) bool {
	value, ok := lookup(name)
	return ok && value != ""
}

// ParseBool converts flag-like configuration text into a bool. Accepted
// true spellings are 1, true, yes and on; false spellings are 0, false, no
// and off. Matching is case-insensitive. Anything else is an error that
// names the offending value.
func ParseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value: %q", value)
}

// MapToSlice converts an env map into KEY=VALUE entries.
func MapToSlice(vars map[string]string) []string {
	result := make([]string, 0, len(vars))
	for k, v := range vars {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// SliceToMap converts KEY=VALUE entries into a map, skipping malformed rows.
func SliceToMap(entries []string) map[string]string {
	result := make(map[string]string, len(entries))
	for _, entry := range entries {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		result[parts[0]] = parts[1]
	}
	return result
}

// Snapshot captures the current process environment as a map.
func Snapshot() map[string]string {
	return SliceToMap(os.Environ())
}

// FilterByPrefix returns the variables whose names match a prefix. The
// prefix match is case-insensitive. Returns a new map containing only the
// matching entries.
//
// Example:
//
//	debugVars := env.FilterByPrefix(env.Snapshot(), "SUBMAN_DEBUG")
func FilterByPrefix(vars map[string]string, prefix string) map[string]string {
	result := make(map[string]string)
	prefixUpper := strings.ToUpper(prefix)
	for k, v := range vars {
		if strings.HasPrefix(strings.ToUpper(k), prefixUpper) {
			result[k] = v
		}
	}
	return result
}
