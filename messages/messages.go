// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

// Package messages renders errors as the canonical user-facing text.
// The wording is load bearing: tools and people grep logs and screens
// for these exact strings, so they change for no reason.
package messages

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/ZuhairORZaki/subscription-manager/httpclient"
	"github.com/ZuhairORZaki/subscription-manager/serverurl"
)

const (
	Socket       = "Network error, unable to connect to server. Please see /var/log/rhsm/rhsm.log for more information."
	Network      = "Network error. Please check the connection details, or see /var/log/rhsm/rhsm.log for more information."
	Proxy        = "Proxy error, unable to connect to proxy server."
	Unauthorized = "Unauthorized: Invalid credentials for request."
	Forbidden    = "Forbidden: Invalid credentials for request."
	RemoteServer = "Remote server error. Please check the connection details, or see /var/log/rhsm/rhsm.log for more information."

	// BadCACert and SSL carry a %s for the offending path or the
	// verification failure.
	BadCACert     = "Bad CA certificate: %s"
	SSL           = "Unable to verify server's identity: %s"
	ExpiredIDCert = "Your identity certificate has expired"

	EmptyServerURL      = "Server URL can not be empty"
	NoneServerURL       = "Server URL can not be None"
	JustSchemeServerURL = "Server URL is just a schema. Should include hostname, and/or port and path"
	PortServerURL       = "Server URL port should be numeric"
	SchemeServerURL     = "Server URL has an invalid scheme. http:// and https:// are supported"

	RateLimit           = "The server rate limit has been exceeded, please try again later."
	RateLimitExpiration = "The server rate limit has been exceeded, please try again later. (Expires in %s seconds)"

	// restFormat example: "You don't have permission to perform this
	// action (HTTP error code 403: Forbidden)". The part before the
	// bracket originates on the server.
	restFormat = "%s (HTTP error code %d: %s)"
)

// FromError maps an error to its canonical text. Errors without a
// canonical form fall back to their own Error string.
func FromError(err error) string {
	if err == nil {
		return ""
	}

	var rateErr *httpclient.RateLimitError
	if errors.As(err, &rateErr) {
		if rateErr.RetryAfter > 0 {
			seconds := strconv.Itoa(int(rateErr.RetryAfter.Seconds()))
			return fmt.Sprintf(RateLimitExpiration, seconds)
		}
		return RateLimit
	}

	var restErr *httpclient.RestError
	if errors.As(err, &restErr) {
		return fromRest(restErr)
	}

	var caErr *httpclient.BadCACertError
	if errors.As(err, &caErr) {
		return fmt.Sprintf(BadCACert, caErr.Path)
	}

	var parseErr *serverurl.ParseError
	if errors.As(err, &parseErr) {
		return fromParse(parseErr)
	}

	if msg, ok := fromTLS(err); ok {
		return msg
	}
	if msg, ok := fromNet(err); ok {
		return msg
	}

	return err.Error()
}

// fromRest renders a structured server error. A server-sent message is
// shown with its code and title; bare statuses fall back to the
// matching credential or availability text.
func fromRest(err *httpclient.RestError) string {
	if err.Msg != "" {
		return fmt.Sprintf(restFormat, err.Msg, err.Code, err.Title)
	}
	switch {
	case err.Code == http.StatusUnauthorized:
		return Unauthorized
	case err.Code == http.StatusForbidden:
		return Forbidden
	case err.Code >= http.StatusInternalServerError:
		return RemoteServer
	default:
		return Network
	}
}

func fromParse(err *serverurl.ParseError) string {
	switch err.Kind {
	case serverurl.KindEmpty:
		return EmptyServerURL
	case serverurl.KindNone:
		return NoneServerURL
	case serverurl.KindJustScheme:
		return JustSchemeServerURL
	case serverurl.KindBadPort:
		return PortServerURL
	case serverurl.KindBadScheme:
		return SchemeServerURL
	default:
		return err.Error()
	}
}

func fromTLS(err error) (string, bool) {
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return fmt.Sprintf(SSL, verifyErr), true
	}
	var authorityErr x509.UnknownAuthorityError
	if errors.As(err, &authorityErr) {
		return fmt.Sprintf(SSL, authorityErr), true
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return fmt.Sprintf(SSL, hostnameErr), true
	}
	var invalidErr x509.CertificateInvalidError
	if errors.As(err, &invalidErr) {
		return fmt.Sprintf(SSL, invalidErr), true
	}
	return "", false
}

func fromNet(err error) (string, bool) {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		// The transport labels CONNECT failures with this op.
		if opErr.Op == "proxyconnect" {
			return Proxy, true
		}
		return Socket, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Socket, true
	}
	return "", false
}
