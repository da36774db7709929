// Package serverurl parses the server and proxy connection strings a user
// hands to the subscription client.
//
// The accepted shape is a constrained, historically compatible subset of a
// URL rather than full RFC 3986:
//
//	[scheme://][username[:password]@]hostname[:port][/prefix]
//
// where scheme, when present, must be exactly http or https. Anything that
// looks like a different or mistyped scheme (ftp://, https:/host, :/host)
// is rejected instead of normalized, so that a typo never silently sends
// traffic somewhere unexpected.
//
// # Parsing
//
// Parse decomposes an entry into username, password, hostname, port and
// prefix, applying caller-supplied defaults to any segment that is absent
// or empty. Defaults never override a value that was explicitly present:
//
//	conn, err := serverurl.Parse("host:8443", serverurl.Defaults{
//		Port:   "443",
//		Prefix: "/subscription",
//	})
//	// conn.Hostname == "host", conn.Port == "8443", conn.Prefix == "/subscription"
//
// The port is kept as text because callers re-validate it when building a
// connection; it is guaranteed to convert as a base-10 integer.
//
// # Errors
//
// Every rejection is a *ParseError carrying the original input and one of
// the closed set of kinds: KindEmpty, KindNone, KindBadScheme,
// KindJustScheme or KindBadPort. Callers that need user-facing text should
// map the kind through the messages package rather than showing
// Error() output directly.
//
// # Scheme classification
//
// ClassifyScheme exposes the decision Parse uses internally: whether an
// entry carries a usable http(s) scheme, no scheme at all (Parse will
// prepend https://), or a malformed one. A scheme with nothing after it
// ("http://") is its own error, KindJustScheme, rather than being treated
// as either good or missing.
//
// All functions are pure and safe for concurrent use.
package serverurl
