package httpclient

import (
	"crypto/tls"
	"fmt"
	"net/http"
)

// Auth supplies request credentials. The three ways the client talks
// to the server: anonymously for /status and activation key
// registration, with portal credentials for registration, and with the
// consumer identity certificate for everything after.
type Auth interface {
	configure(tlsConfig *tls.Config) error
	decorate(req *http.Request)
}

// NoAuth sends no credentials.
type NoAuth struct{}

func (NoAuth) configure(*tls.Config) error { return nil }
func (NoAuth) decorate(*http.Request)      {}

// BasicAuth authenticates with portal username and password.
type BasicAuth struct {
	Username string
	Password string
}

func (BasicAuth) configure(*tls.Config) error { return nil }

func (a BasicAuth) decorate(req *http.Request) {
	req.SetBasicAuth(a.Username, a.Password)
}

// CertAuth presents the consumer identity certificate as the TLS
// client certificate.
type CertAuth struct {
	CertPath string
	KeyPath  string
}

func (a CertAuth) configure(tlsConfig *tls.Config) error {
	cert, err := tls.LoadX509KeyPair(a.CertPath, a.KeyPath)
	if err != nil {
		return fmt.Errorf("failed to load identity certificate: %w", err)
	}
	tlsConfig.Certificates = []tls.Certificate{cert}
	return nil
}

func (CertAuth) decorate(*http.Request) {}
