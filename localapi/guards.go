// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

package localapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ZuhairORZaki/subscription-manager/httpclient"
	"github.com/ZuhairORZaki/subscription-manager/identity"
	"github.com/ZuhairORZaki/subscription-manager/messages"
	"github.com/ZuhairORZaki/subscription-manager/procutil"
	"github.com/ZuhairORZaki/subscription-manager/proxy"
	"github.com/ZuhairORZaki/subscription-manager/security"
)

// Canonical guard messages. Existing clients match on the exact text,
// typos included.
const (
	msgMissingPermissions = "This call requires root permisisons."
	msgNotRegistered      = "This action requires the system to be registered."
	msgRegistered         = "This action requires the system not to be registered."
	msgValidationFailed   = "Validation failed."
)

func (s *Server) isRoot() bool {
	if s.Config.IsRoot != nil {
		return s.Config.IsRoot()
	}
	return procutil.IsRoot()
}

func (s *Server) registered() bool {
	return s.identity.Valid()
}

// ensureRoot answers 403 and reports false when the server process
// lacks root.
func (s *Server) ensureRoot(w http.ResponseWriter) bool {
	if !s.isRoot() {
		writeError(w, http.StatusForbidden, msgMissingPermissions)
		return false
	}
	return true
}

// ensureRegistered gates operations that only make sense on a
// registered system. Privilege is checked before registration, so an
// unprivileged caller learns nothing about the system's state.
func (s *Server) ensureRegistered(w http.ResponseWriter) bool {
	if !s.ensureRoot(w) {
		return false
	}
	if !s.registered() {
		writeError(w, http.StatusConflict, msgNotRegistered)
		return false
	}
	return true
}

// liveIdentity loads the consumer identity for a server call. A
// certificate past its validity window is rejected here with the
// canonical text; the server would only refuse the TLS handshake.
func (s *Server) liveIdentity(w http.ResponseWriter) (*identity.Identity, bool) {
	id, err := s.identity.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if id.Expired() {
		writeError(w, http.StatusUnauthorized, messages.ExpiredIDCert)
		return nil, false
	}
	return id, true
}

// proxyOnlyInfo builds the per-request proxy override from options,
// rejecting any key that is not proxy related.
func proxyOnlyInfo(options map[string]string) (proxy.Info, error) {
	if err := security.ValidateProxyOptions(options); err != nil {
		return proxy.Info{}, err
	}
	return proxy.FromValues(
		options["proxy_hostname"],
		options["proxy_port"],
		options["proxy_user"],
		options["proxy_password"],
	)
}

// prepareConnection builds the entitlement server connection for one
// request.
func (s *Server) prepareConnection(proxyInfo proxy.Info, auth httpclient.Auth) (httpclient.UEP, error) {
	if s.Config.Factory != nil {
		return s.Config.Factory(s.conf, proxyInfo, auth)
	}
	return httpclient.FromConfig(s.conf, proxyInfo, auth)
}

// connectionAuth picks request credentials. A registered system always
// presents its consumer certificate; otherwise portal credentials are
// used when given.
func (s *Server) connectionAuth(username, password string) httpclient.Auth {
	if s.registered() {
		return httpclient.CertAuth{
			CertPath: s.identity.CertPath(),
			KeyPath:  s.identity.KeyPath(),
		}
	}
	if username != "" && password != "" {
		return httpclient.BasicAuth{Username: username, Password: password}
	}
	return httpclient.NoAuth{}
}

// writeUpstreamError renders a failure from the entitlement server.
// Rate limiting passes through as 429 with the wait the server asked
// for. Other upstream verdicts about the request keep their status;
// everything else is a gateway failure. The body always carries the
// canonical human text.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var rateErr *httpclient.RateLimitError
	if errors.As(err, &rateErr) {
		if rateErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(rateErr.RetryAfter.Seconds())))
		}
		writeError(w, http.StatusTooManyRequests, messages.FromError(err))
		return
	}

	status := http.StatusBadGateway
	var restErr *httpclient.RestError
	if errors.As(err, &restErr) && restErr.Code >= 400 && restErr.Code < 500 {
		status = restErr.Code
	}
	writeError(w, status, messages.FromError(err))
}
