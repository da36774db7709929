package conncheck

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ZuhairORZaki/subscription-manager/fileutil"
)

// DefaultProfilesPath is where administrators drop probe profile
// overrides.
const DefaultProfilesPath = "/etc/rhsm/probe-profiles.yaml"

// Profile tunes how a Checker probes. Duration fields accept Go
// duration strings in the profiles file.
type Profile struct {
	Name            string        `yaml:"name"`
	Interval        time.Duration `yaml:"interval"`
	Timeout         time.Duration `yaml:"timeout"`
	Attempts        int           `yaml:"attempts"`
	CircuitBreaker  bool          `yaml:"circuitBreaker"`
	CircuitFailures int           `yaml:"circuitFailures"`
	CircuitTimeout  time.Duration `yaml:"circuitTimeout"`
	RateLimit       int           `yaml:"rateLimit"`
	Metrics         bool          `yaml:"metrics"`
}

func (p Profile) withDefaults() Profile {
	if p.Timeout <= 0 {
		p.Timeout = 10 * time.Second
	}
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.CircuitFailures <= 0 {
		p.CircuitFailures = 5
	}
	if p.CircuitTimeout <= 0 {
		p.CircuitTimeout = time.Minute
	}
	return p
}

// Profiles is a named set of probe profiles.
type Profiles struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// DefaultProfile is the one-shot interactive check.
func DefaultProfile() Profile {
	return defaultProfiles().Profiles["interactive"]
}

func defaultProfiles() *Profiles {
	return &Profiles{
		Profiles: map[string]Profile{
			"interactive": {
				Name:     "interactive",
				Timeout:  10 * time.Second,
				Attempts: 1,
			},
			// The daemon interval matches the stock certcheckinterval
			// of 240 minutes.
			"daemon": {
				Name:            "daemon",
				Interval:        4 * time.Hour,
				Timeout:         30 * time.Second,
				Attempts:        2,
				CircuitBreaker:  true,
				CircuitFailures: 5,
				CircuitTimeout:  10 * time.Minute,
				RateLimit:       1,
				Metrics:         true,
			},
			"aggressive": {
				Name:            "aggressive",
				Interval:        30 * time.Second,
				Timeout:         5 * time.Second,
				Attempts:        3,
				CircuitBreaker:  true,
				CircuitFailures: 3,
				CircuitTimeout:  time.Minute,
				RateLimit:       5,
				Metrics:         true,
			},
		},
	}
}

// LoadProfiles reads probe profiles from path, falling back to
// DefaultProfilesPath when empty. A missing file yields the stock
// profiles; a present file is merged over them.
func LoadProfiles(path string) (*Profiles, error) {
	if path == "" {
		path = DefaultProfilesPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultProfiles(), nil
		}
		return nil, fmt.Errorf("failed to read probe profiles: %w", err)
	}

	var profiles Profiles
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to parse probe profiles: %w", err)
	}
	if profiles.Profiles == nil {
		profiles.Profiles = make(map[string]Profile)
	}

	for name, profile := range defaultProfiles().Profiles {
		if _, exists := profiles.Profiles[name]; !exists {
			profiles.Profiles[name] = profile
		}
	}
	return &profiles, nil
}

// Get returns a profile by name.
func (p *Profiles) Get(name string) (Profile, error) {
	profile, exists := p.Profiles[name]
	if !exists {
		return Profile{}, fmt.Errorf("probe profile %q not found, available: %s",
			name, strings.Join(p.names(), ", "))
	}
	return profile, nil
}

func (p *Profiles) names() []string {
	names := make([]string, 0, len(p.Profiles))
	for name := range p.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteSample writes the stock profiles to path as a starting point.
// Refuses to clobber an existing file.
func WriteSample(path string) error {
	if path == "" {
		path = DefaultProfilesPath
	}
	if fileutil.Exists(path) {
		return fmt.Errorf("probe profiles already exist at %s", path)
	}

	data, err := yaml.Marshal(defaultProfiles())
	if err != nil {
		return fmt.Errorf("failed to encode probe profiles: %w", err)
	}

	header := `# Probe profiles for entitlement server connection checking.
#
# Duration fields accept Go duration strings such as 30s, 10m or 4h.
#
#   interval:        time between probes in watch mode
#   timeout:         per probe time budget
#   attempts:        HTTP attempts per probe
#   circuitBreaker:  suspend probing after repeated failures
#   circuitFailures: consecutive failures before suspending
#   circuitTimeout:  how long probing stays suspended
#   rateLimit:       max probes per second per target (0 = unlimited)
#   metrics:         record Prometheus metrics

`
	return fileutil.AtomicWriteFile(path, []byte(header+string(data)), fileutil.FilePermission)
}
