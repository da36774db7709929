// Package proxy resolves HTTP proxy settings from the process environment
// and from configuration, in the precedence order the subscription tools
// have always used.
package proxy

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/ZuhairORZaki/subscription-manager/env"
	"github.com/ZuhairORZaki/subscription-manager/serverurl"
)

// DefaultPort is the proxy port assumed when a proxy location does not
// name one. Squid's default, which is what sits in front of most
// entitlement servers.
const DefaultPort = 3128

// environmentVariables is the resolution order. Uppercase HTTPS wins over
// lowercase, and HTTPS over HTTP. The names are matched case-sensitively;
// mixed-case spellings like Https_Proxy are ignored.
var environmentVariables = []string{"HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy"}

// Info describes one resolved proxy. The zero value means no proxy. Port
// is a pointer so that "no port resolved" and a real port stay distinct; a
// resolved port is never 0 unless a user literally configured port 0.
type Info struct {
	Username string
	Password string
	Hostname string
	Port     *int
}

// Empty reports whether no proxy was resolved.
func (i Info) Empty() bool {
	return i.Hostname == "" && i.Username == "" && i.Password == "" && i.Port == nil
}

// URL renders the proxy as an *url.URL suitable for http.Transport.Proxy.
// Returns nil when no proxy host is present.
func (i Info) URL() *url.URL {
	if i.Hostname == "" {
		return nil
	}
	u := &url.URL{Scheme: "http", Host: i.Hostname}
	if i.Port != nil {
		u.Host = net.JoinHostPort(i.Hostname, strconv.Itoa(*i.Port))
	}
	if i.Username != "" || i.Password != "" {
		if i.Password != "" {
			u.User = url.UserPassword(i.Username, i.Password)
		} else {
			u.User = url.User(i.Username)
		}
	}
	return u
}

// ResolveEnv finds the first proxy variable set to a non-empty value and
// parses it as a connection string, filling in defaultPort when the value
// does not name a port. No variable set is not an error; the zero Info
// comes back. A variable that is set but unparseable is an error, and the
// *serverurl.ParseError carries the offending value.
func ResolveEnv(lookup env.Lookup, defaultPort int) (Info, error) {
	_, raw, ok := env.FirstNonEmpty(lookup, environmentVariables...)
	if !ok {
		return Info{}, nil
	}

	conn, err := serverurl.Parse(raw, serverurl.Defaults{Port: strconv.Itoa(defaultPort)})
	if err != nil {
		return Info{}, err
	}

	info := Info{
		Username: conn.Username,
		Password: conn.Password,
		Hostname: conn.Hostname,
	}
	if conn.Port != "" {
		// Parse validated the port already.
		port, _ := strconv.Atoi(conn.Port)
		info.Port = &port
	}
	return info, nil
}

// FromEnvironment resolves the proxy from the process environment with the
// standard default port.
func FromEnvironment() (Info, error) {
	return ResolveEnv(env.OS(), DefaultPort)
}

// FromValues builds an Info from configuration fields. An empty hostname
// means no proxy is configured and yields the zero Info regardless of the
// other fields. An empty port leaves Port unset.
func FromValues(hostname, port, username, password string) (Info, error) {
	if hostname == "" {
		return Info{}, nil
	}

	info := Info{
		Username: username,
		Password: password,
		Hostname: hostname,
	}
	if port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return Info{}, fmt.Errorf("invalid proxy port %q: %w", port, err)
		}
		info.Port = &p
	}
	return info, nil
}

// NormalizeNoProxy rewrites a no_proxy value so that entries like
// *.example.com become example.com. Proxy bypass matching is suffix based
// and chokes on the leading asterisks users habitually write. The single
// wildcard "*" is understood by the bypass logic and passes through
// untouched.
func NormalizeNoProxy(value string) string {
	if value == "*" {
		return value
	}
	items := strings.Split(value, ",")
	for i, item := range items {
		items[i] = strings.TrimLeft(item, " *")
	}
	return strings.Join(items, ",")
}

// FixNoProxyEnv normalizes the no_proxy environment in place and mirrors
// the result to both the lowercase and uppercase spellings. A non-empty
// lowercase no_proxy wins over NO_PROXY. When neither is usable nothing is
// written.
func FixNoProxyEnv() {
	value, ok := os.LookupEnv("no_proxy")
	if value == "" {
		value, ok = os.LookupEnv("NO_PROXY")
	}
	if !ok || value == "*" {
		return
	}

	normalized := NormalizeNoProxy(value)
	os.Setenv("no_proxy", normalized)
	os.Setenv("NO_PROXY", normalized)
}
