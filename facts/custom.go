package facts

import (
	"encoding/json"
	"math"
	"os"
	"strconv"

	"github.com/ZuhairORZaki/subscription-manager/fileutil"
)

// DefaultCustomDir holds administrator-supplied fact overrides, one
// JSON object per *.facts file.
const DefaultCustomDir = "/etc/rhsm/facts"

// collectCustom merges *.facts files over the collected set. Files are
// read in sorted order so later files override earlier ones, and an
// unreadable or malformed file is skipped rather than discarding the
// rest.
func collectCustom(dir string, facts map[string]string) {
	paths, err := fileutil.FilesWithExt(dir, ".facts")
	if err != nil {
		log.Warn("cannot read custom facts directory", "dir", dir, "error", err)
		return
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("cannot read custom facts file", "path", path, "error", err)
			continue
		}

		var parsed map[string]interface{}
		if err := json.Unmarshal(data, &parsed); err != nil {
			log.Warn("ignoring malformed custom facts file", "path", path, "error", err)
			continue
		}

		for key, value := range parsed {
			facts[key] = stringifyFact(value)
		}
	}
}

// stringifyFact renders a JSON value the way facts are stored on the
// server, with integral numbers kept free of a trailing ".0".
func stringifyFact(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}
