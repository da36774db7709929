// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

// Package identity reads and writes the consumer identity the system
// receives at registration: the certificate and key pair under
// /etc/pki/consumer that prove to the entitlement server who this
// system is. The certificate CN carries the consumer UUID and the
// subject alternative name carries the display name.
package identity

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ZuhairORZaki/subscription-manager/fileutil"
	"github.com/ZuhairORZaki/subscription-manager/logutil"
	"github.com/ZuhairORZaki/subscription-manager/security"
)

// DefaultDir is where the consumer identity pair lives.
const DefaultDir = "/etc/pki/consumer"

const (
	certFile = "cert.pem"
	keyFile  = "key.pem"
)

var log = logutil.NewLogger("rhsm.identity")

// Identity is the parsed consumer identity certificate.
type Identity struct {
	UUID      string
	Name      string
	NotBefore time.Time
	NotAfter  time.Time
}

// Expired reports whether the certificate is past its validity window.
func (i *Identity) Expired() bool {
	return time.Now().After(i.NotAfter)
}

// Store reads and writes the identity pair in one directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore returns a store over dir, falling back to DefaultDir.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{dir: dir}
}

// CertPath returns the identity certificate location.
func (s *Store) CertPath() string {
	return filepath.Join(s.dir, certFile)
}

// KeyPath returns the identity key location.
func (s *Store) KeyPath() string {
	return filepath.Join(s.dir, keyFile)
}

// Load parses the identity certificate. The error wraps fs.ErrNotExist
// when the system is not registered.
func (s *Store) Load() (*Identity, error) {
	data, err := os.ReadFile(s.CertPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read identity certificate: %w", err)
	}

	id, err := parseIdentity(data)
	if err != nil {
		return nil, err
	}

	if err := security.ValidateKeyPermissions(s.KeyPath()); errors.Is(err, security.ErrInsecureFilePermissions) {
		log.Warn("identity key is readable by other users", "path", s.KeyPath())
	}

	return id, nil
}

// Valid reports whether a usable identity is present: both halves of
// the pair exist and the certificate parses with a UUID. This is the
// registered check every guarded operation performs.
func (s *Store) Valid() bool {
	id, err := s.Load()
	if err != nil || id.UUID == "" {
		return false
	}
	return fileutil.Exists(s.KeyPath())
}

// Write stores a new identity pair atomically, key first so a readable
// certificate never exists without its key.
func (s *Store) Write(certPEM, keyPEM []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := parseIdentity(certPEM); err != nil {
		return err
	}
	if block, _ := pem.Decode(keyPEM); block == nil {
		return errors.New("identity key is not PEM encoded")
	}

	if err := fileutil.EnsureDir(s.dir); err != nil {
		return err
	}
	if err := fileutil.AtomicWriteFile(s.KeyPath(), keyPEM, fileutil.KeyPermission); err != nil {
		return fmt.Errorf("failed to write identity key: %w", err)
	}
	if err := fileutil.AtomicWriteFile(s.CertPath(), certPEM, fileutil.FilePermission); err != nil {
		return fmt.Errorf("failed to write identity certificate: %w", err)
	}

	log.Info("wrote consumer identity", "path", s.CertPath())
	return nil
}

// Delete removes the identity pair. Unregistering ends here; missing
// files are not an error.
func (s *Store) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fileutil.RemoveIfExists(s.CertPath()); err != nil {
		return err
	}
	return fileutil.RemoveIfExists(s.KeyPath())
}

func parseIdentity(certPEM []byte) (*Identity, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("identity certificate is not PEM encoded")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse identity certificate: %w", err)
	}

	id := &Identity{
		UUID:      cert.Subject.CommonName,
		NotBefore: cert.NotBefore,
		NotAfter:  cert.NotAfter,
	}
	if len(cert.DNSNames) > 0 {
		id.Name = cert.DNSNames[0]
	}

	if err := security.ValidateUUID(id.UUID); err != nil {
		// Tolerated: the server owns the CN format, we only report it.
		log.Warn("identity certificate CN is not a consumer UUID", "cn", id.UUID)
	}

	return id, nil
}
