package env

import (
	"fmt"
	"os"
	"strings"
)

// ParseKeyValues parses KEY=value content, one assignment per line. Empty
// lines and # comments are skipped, as are lines without a key or without
// an = separator. Values surrounded by matching single or double quotes are
// unquoted. This is the flat format of /etc/os-release and of the sysconfig
// files under /etc/sysconfig.
func ParseKeyValues(data []byte) map[string]string {
	values := make(map[string]string)

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:idx])
		if key == "" {
			continue
		}
		value := line[idx+1:]

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values
}

// LoadFile reads a KEY=value file such as /etc/os-release.
func LoadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseKeyValues(data), nil
}
