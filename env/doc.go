// Package env provides environment variable utilities shared by the
// subscription-manager tools.
//
// This package includes:
//   - Ordered lookups across alternative variable names (FirstNonEmpty)
//   - Tolerant boolean parsing for flag-like values (ParseBool)
//   - Format conversion (MapToSlice, SliceToMap, Snapshot)
//   - Prefix-based extraction (FilterByPrefix)
//   - KEY=value file parsing in the os-release style (ParseKeyValues, LoadFile)
//
// # Lookups
//
// Functions that consult the environment take a Lookup rather than reading
// the process environment directly, so tests can substitute a fixed map:
//
//	name, value, ok := env.FirstNonEmpty(env.OS(), "HTTPS_PROXY", "https_proxy")
//	if ok {
//		// value came from the variable called name
//	}
//
//	lookup := env.FromMap(map[string]string{"HTTPS_PROXY": "proxy.example.com"})
//	_, value, _ = env.FirstNonEmpty(lookup, "HTTPS_PROXY", "https_proxy")
//
// Variables that are set but empty are treated as unset by FirstNonEmpty.
// This mirrors how proxy variables behave in practice: exporting an empty
// HTTPS_PROXY is how users disable a proxy without unsetting it.
//
// # Boolean Values
//
// ParseBool accepts the spellings commonly found in configuration files and
// environment variables:
//
//	on, err := env.ParseBool("yes") // true
//	on, err = env.ParseBool("0")    // false
//	on, err = env.ParseBool("nah")  // error
//
// Accepted true values are 1, true, yes and on; false values are 0, false,
// no and off. Matching is case-insensitive.
//
// # KEY=value Files
//
// LoadFile reads files in the flat KEY=value format used by /etc/os-release:
// one assignment per line, optional single or double quotes around values,
// and # comments.
//
//	fields, err := env.LoadFile("/etc/os-release")
//	if err != nil {
//		return err
//	}
//	distro := fields["PRETTY_NAME"]
package env
