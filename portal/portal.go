// Package portal opens Red Hat subscription sites in the user's
// browser. A browser that will not start is not fatal, the URL is
// shown so the user can open it somewhere else.
package portal

import (
	"fmt"
	"io"
	"net/url"

	"github.com/pkg/browser"

	"github.com/ZuhairORZaki/subscription-manager/cliout"
	"github.com/ZuhairORZaki/subscription-manager/logutil"
)

var log = logutil.NewLogger("rhsm.portal")

// Well known subscription management sites.
const (
	CustomerPortalURL = "https://access.redhat.com"
	SubscriptionsURL  = "https://access.redhat.com/management"
	ConsoleURL        = "https://console.redhat.com"
)

// openURL is swapped in tests.
var openURL = browser.OpenURL

func init() {
	// xdg-open chatter is not part of our UI.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// Validate rejects anything that is not a web URL. file: paths and
// javascript: strings must never reach the browser launcher.
func Validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme %q: only http and https can be opened", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL %q: missing host", rawURL)
	}
	return nil
}

// Open launches rawURL in the default browser. An invalid URL is an
// error; a launch failure prints the URL for the user instead.
func Open(rawURL string) error {
	if err := Validate(rawURL); err != nil {
		return err
	}
	if err := openURL(rawURL); err != nil {
		log.Debug("browser launch failed", "url", rawURL, "error", err)
		cliout.Warning("Could not open a browser. Visit %s instead.", cliout.URL(rawURL))
	}
	return nil
}

// OpenCustomerPortal opens the Red Hat Customer Portal.
func OpenCustomerPortal() error { return Open(CustomerPortalURL) }

// OpenSubscriptions opens the subscription management page of the
// Customer Portal.
func OpenSubscriptions() error { return Open(SubscriptionsURL) }

// OpenConsole opens the Hybrid Cloud Console.
func OpenConsole() error { return Open(ConsoleURL) }
