package config

import (
	"os"
	"sort"
)

// DefaultPath is the stock location of the client configuration file.
const DefaultPath = "/etc/rhsm/rhsm.conf"

// EnvConfig names the environment variable that overrides DefaultPath.
// Pointing it at a scratch file keeps tests and sandboxed runs away from
// the system configuration.
const EnvConfig = "SUBMAN_CONFIG"

// Path returns the configuration file location, honoring the EnvConfig
// override.
func Path() string {
	if path := os.Getenv(EnvConfig); path != "" {
		return path
	}
	return DefaultPath
}

// Stock entitlement server endpoint, exported for callers that need the
// values without loading a Config.
const (
	DefaultHostname = "subscription.rhsm.redhat.com"
	DefaultPort     = "443"
	DefaultPrefix   = "/subscription"
	DefaultBaseURL  = "https://cdn.redhat.com"
	DefaultCADir    = "/etc/rhsm/ca/"
)

// defaultKey is one stock configuration value. Values may reference
// sibling keys in the same section with %(name)s.
type defaultKey struct {
	name  string
	value string
}

// stockDefaults carries the values the client has always shipped in
// rhsm.conf, grouped by section. Lookups fall back here when the file
// does not set a key; Persist never writes them out.
var stockDefaults = map[string][]defaultKey{
	"server": {
		{"hostname", DefaultHostname},
		{"prefix", DefaultPrefix},
		{"port", DefaultPort},
		{"insecure", "0"},
		{"server_timeout", "180"},
		{"proxy_scheme", "http"},
		{"proxy_hostname", ""},
		{"proxy_port", ""},
		{"proxy_user", ""},
		{"proxy_password", ""},
		{"no_proxy", ""},
	},
	"rhsm": {
		{"baseurl", DefaultBaseURL},
		{"repomd_gpg_url", ""},
		{"ca_cert_dir", DefaultCADir},
		{"repo_ca_cert", "%(ca_cert_dir)sredhat-uep.pem"},
		{"productcertdir", "/etc/pki/product"},
		{"entitlementcertdir", "/etc/pki/entitlement"},
		{"consumercertdir", "/etc/pki/consumer"},
		{"manage_repos", "1"},
		{"report_package_profile", "1"},
		{"progress_messages", "1"},
	},
	"rhsmcertd": {
		{"certcheckinterval", "240"},
		{"autoattachinterval", "1440"},
		{"splay", "1"},
		{"auto_registration", "0"},
	},
	"logging": {
		{"default_log_level", "INFO"},
	},
}

// sectionDefaults returns the stock defaults for a section, nil when it
// has none.
func sectionDefaults(section string) []defaultKey {
	return stockDefaults[section]
}

// defaultValue looks up the stock default for a key in a section.
func defaultValue(section, key string) (string, bool) {
	for _, d := range stockDefaults[section] {
		if d.name == key {
			return d.value, true
		}
	}
	return "", false
}

// defaultSectionNames returns the sections carrying stock defaults,
// sorted.
func defaultSectionNames() []string {
	names := make([]string, 0, len(stockDefaults))
	for name := range stockDefaults {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
