package serverurl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind identifies why a connection string was rejected.
type Kind int

const (
	// KindEmpty means the input was the empty string.
	KindEmpty Kind = iota
	// KindNone means the input was absent entirely.
	KindNone
	// KindBadScheme means the input matched a disallowed scheme pattern.
	KindBadScheme
	// KindJustScheme means the input was a recognized scheme with nothing
	// following it.
	KindJustScheme
	// KindBadPort means the port segment was non-numeric or structurally
	// invalid.
	KindBadPort
)

// String returns a short description of the error kind.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty server URL"
	case KindNone:
		return "no server URL"
	case KindBadScheme:
		return "unsupported scheme"
	case KindJustScheme:
		return "scheme without host"
	case KindBadPort:
		return "invalid port"
	default:
		return fmt.Sprintf("unknown kind %d", int(k))
	}
}

// ParseError is the only error type returned by this package. It carries
// the original offending input so callers can render precise messages.
type ParseError struct {
	Kind  Kind
	Input string
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("parse server URL %q: %s: %s", e.Input, e.Kind, e.Msg)
	}
	return fmt.Sprintf("parse server URL %q: %s", e.Input, e.Kind)
}

// SchemeClass is the classifier's verdict on a connection string.
type SchemeClass int

const (
	// SchemeNone means no scheme prefix is present; the parser will
	// prepend https:// before splitting.
	SchemeNone SchemeClass = iota
	// SchemeGood means the input starts with http:// or https:// followed
	// by at least one more character.
	SchemeGood
	// SchemeBad means the input matched a disallowed scheme pattern.
	SchemeBad
)

// cutScheme strips a leading http:// or https:// and reports whether one
// was present.
func cutScheme(s string) (rest string, ok bool) {
	if rest, ok = strings.CutPrefix(s, "http://"); ok {
		return rest, true
	}
	return strings.CutPrefix(s, "https://")
}

// hasBadScheme reports whether the input starts with a scheme shape we
// refuse to guess about: http(s) followed by a single : or /, a bare :/,
// or any other <non-whitespace>:// scheme. Callers must exclude the good
// http(s):// case first.
func hasBadScheme(s string) bool {
	if strings.HasPrefix(s, "http:") || strings.HasPrefix(s, "http/") ||
		strings.HasPrefix(s, "https:") || strings.HasPrefix(s, "https/") {
		return true
	}
	if strings.HasPrefix(s, ":/") {
		return true
	}
	if i := strings.Index(s, "://"); i > 0 && !strings.ContainsFunc(s[:i], unicode.IsSpace) {
		return true
	}
	return false
}

// ClassifyScheme decides whether url carries a usable scheme. The good
// pattern is tested first so that http:// prefixes are never reported as
// bad. A scheme prefix with nothing after it returns SchemeGood together
// with a *ParseError of KindJustScheme; a scheme alone is not really a
// good scheme.
func ClassifyScheme(url string) (SchemeClass, error) {
	if rest, ok := cutScheme(url); ok {
		if first, _ := utf8.DecodeRuneInString(rest); rest == "" || unicode.IsSpace(first) {
			return SchemeGood, &ParseError{Kind: KindJustScheme, Input: url}
		}
		return SchemeGood, nil
	}
	if hasBadScheme(url) {
		return SchemeBad, nil
	}
	return SchemeNone, nil
}

// Defaults supplies fallback values for segments that are absent or empty
// in the parsed input. A default never overrides an explicitly parsed
// non-empty value.
type Defaults struct {
	Hostname string
	Port     string
	Prefix   string
	Username string
	Password string
}

// ParsedConnection is the result of a successful Parse. Every field is
// either the parsed value or the caller's default. Port, when non-empty,
// is guaranteed to convert as a base-10 integer but stays text because it
// is re-validated when a connection is built.
type ParsedConnection struct {
	Username string
	Password string
	Hostname string
	Port     string
	Prefix   string
}

// String reconstructs the canonical connection string form, without a
// scheme. Re-parsing the result of a successful Parse yields the same
// field values.
func (c ParsedConnection) String() string {
	var b strings.Builder
	if c.Username != "" || c.Password != "" {
		b.WriteString(c.Username)
		if c.Password != "" {
			b.WriteByte(':')
			b.WriteString(c.Password)
		}
		b.WriteByte('@')
	}
	b.WriteString(c.Hostname)
	if c.Port != "" {
		b.WriteByte(':')
		b.WriteString(c.Port)
	}
	b.WriteString(c.Prefix)
	return b.String()
}

// Parse decomposes a server entry of the form
// [scheme://][username[:password]@]hostname[:port][/prefix] and applies
// defaults to whatever the entry leaves out. The empty string is rejected
// with KindEmpty before any scheme inspection.
func Parse(input string, defaults Defaults) (ParsedConnection, error) {
	if input == "" {
		return ParsedConnection{}, &ParseError{Kind: KindEmpty, Input: input}
	}

	class, err := ClassifyScheme(input)
	if err != nil {
		return ParsedConnection{}, err
	}
	if class == SchemeBad {
		return ParsedConnection{}, &ParseError{Kind: KindBadScheme, Input: input}
	}

	// Prepending a scheme keeps the netloc/path split predictable for
	// entries like "host:8443/prefix".
	normalized := input
	if class == SchemeNone {
		normalized = "https://" + input
	}

	netloc, path := splitNetworkLocation(normalized)

	conn := ParsedConnection{
		Username: defaults.Username,
		Password: defaults.Password,
		Hostname: defaults.Hostname,
		Port:     defaults.Port,
		Prefix:   defaults.Prefix,
	}

	// Credentials sit before the last @ so that passwords containing @
	// stay intact; the remainder is host[:port].
	hostport := netloc
	if at := strings.LastIndex(netloc, "@"); at >= 0 {
		creds := strings.Split(netloc[:at], ":")
		if len(creds) > 1 {
			conn.Password = creds[1]
		}
		if creds[0] != "" {
			conn.Username = creds[0]
		}
		hostport = netloc[at+1:]
	}

	tokens := strings.Split(hostport, ":")
	if len(tokens) > 1 {
		if tokens[1] == "" {
			// "host:" is an explicit, empty port, which is not the same
			// as no port at all.
			return ParsedConnection{}, &ParseError{Kind: KindBadPort, Input: input}
		}
		conn.Port = tokens[1]
	}
	if tokens[0] != "" {
		conn.Hostname = tokens[0]
	}

	if path != "" {
		conn.Prefix = path
	}

	if conn.Port != "" {
		if _, err := strconv.Atoi(conn.Port); err != nil {
			return ParsedConnection{}, &ParseError{Kind: KindBadPort, Input: input}
		}
	}

	return conn, nil
}

// ParseOptional behaves like Parse but models an absent entry: a nil input
// is rejected with KindNone. Configuration lookups that distinguish
// "unset" from "set to empty" should come through here.
func ParseOptional(input *string, defaults Defaults) (ParsedConnection, error) {
	if input != nil && *input == "" {
		return ParsedConnection{}, &ParseError{Kind: KindEmpty, Input: ""}
	}
	if input == nil {
		return ParsedConnection{}, &ParseError{Kind: KindNone, Input: ""}
	}
	return Parse(*input, defaults)
}

// splitNetworkLocation separates the network-location segment from the
// path of a string known to start with http:// or https://. The netloc
// runs to the first /, ? or #; the path keeps its leading slash and drops
// any query or fragment.
func splitNetworkLocation(url string) (netloc, path string) {
	rest, _ := cutScheme(url)
	end := strings.IndexAny(rest, "/?#")
	if end < 0 {
		return rest, ""
	}
	netloc = rest[:end]
	if rest[end] != '/' {
		return netloc, ""
	}
	path = rest[end:]
	if cut := strings.IndexAny(path, "?#"); cut >= 0 {
		path = path[:cut]
	}
	return netloc, path
}

// schemePattern matches one leading URI scheme, per the RFC 3986 scheme
// grammar rather than the narrow http(s) set Parse accepts.
var schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+\-.]*://`)

// RemoveScheme strips a leading scheme:// component from a URI, if one is
// present.
func RemoveScheme(uri string) string {
	return schemePattern.ReplaceAllString(uri, "")
}
