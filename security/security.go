// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrInvalidPath indicates a path that contains invalid characters or
	// patterns.
	ErrInvalidPath = errors.New("invalid path")
	// ErrPathTraversal indicates a path that escapes its intended
	// directory.
	ErrPathTraversal = errors.New("path traversal detected")
	// ErrInvalidName indicates a system name or organization key the
	// server would reject.
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidUUID indicates a malformed consumer UUID.
	ErrInvalidUUID = errors.New("invalid UUID")
	// ErrInsecureFilePermissions indicates a file whose permissions are
	// looser than its contents allow.
	ErrInsecureFilePermissions = errors.New("insecure file permissions")

	// namePattern matches the names the entitlement server accepts for
	// consumers and owners: alphanumeric start, then alphanumeric,
	// underscore, hyphen, dot, or colon.
	namePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._:-]*$`)
)

// maxNameLength caps consumer names and owner keys at the length the
// server stores.
const maxNameLength = 250

// ValidatePath checks that a path is safe to open. It rejects parent
// directory references and resolves symbolic links, so a link cannot
// point the caller somewhere it does not expect.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	if strings.Contains(path, "..") {
		return fmt.Errorf("%w: path contains parent directory reference", ErrPathTraversal)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: cannot resolve path: %w", ErrInvalidPath, err)
	}

	cleanPath := filepath.Clean(absPath)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("%w: cleaned path contains parent directory reference", ErrPathTraversal)
	}

	resolvedPath, err := filepath.EvalSymlinks(cleanPath)
	if err != nil {
		// A path that does not exist yet still has a checkable structure.
		if !os.IsNotExist(err) {
			return fmt.Errorf("%w: cannot resolve symbolic links: %w", ErrInvalidPath, err)
		}
		resolvedPath = cleanPath
	}

	if strings.Contains(resolvedPath, "..") {
		return fmt.Errorf("%w: resolved path contains parent directory reference", ErrPathTraversal)
	}

	return nil
}

// ValidatePathWithinBases validates a path and ensures it resolves to a
// location under one of the allowed base directories, following
// symbolic links on both sides of the comparison. It returns the
// resolved absolute path. With no bases it only validates structure.
func ValidatePathWithinBases(path string, allowedBases ...string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: cannot resolve path: %w", ErrInvalidPath, err)
	}
	absPath = filepath.Clean(absPath)

	realPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("%w: cannot resolve symbolic links: %w", ErrInvalidPath, err)
		}
		realPath = absPath
	}

	if len(allowedBases) > 0 {
		allowed := false
		for _, base := range allowedBases {
			absBase, err := filepath.Abs(base)
			if err != nil {
				continue
			}
			absBase = filepath.Clean(absBase)

			realBase, err := filepath.EvalSymlinks(absBase)
			if err != nil {
				if !os.IsNotExist(err) {
					continue
				}
				realBase = absBase
			}

			if strings.HasPrefix(realPath, realBase+string(filepath.Separator)) || realPath == realBase {
				allowed = true
				break
			}
		}
		if !allowed {
			return "", fmt.Errorf("%w: path is outside allowed directories", ErrPathTraversal)
		}
	}

	return realPath, nil
}

// ValidateConsumerName checks a system name before it is sent to the
// server. If allowEmpty is true, the empty string is accepted.
func ValidateConsumerName(name string, allowEmpty bool) error {
	if name == "" {
		if allowEmpty {
			return nil
		}
		return fmt.Errorf("%w: system name can not be empty", ErrInvalidName)
	}
	return validateName("system name", name)
}

// ValidateOwnerKey checks an organization key before it is used in a
// server request path.
func ValidateOwnerKey(key string, allowEmpty bool) error {
	if key == "" {
		if allowEmpty {
			return nil
		}
		return fmt.Errorf("%w: organization key can not be empty", ErrInvalidName)
	}
	return validateName("organization key", key)
}

func validateName(kind string, name string) error {
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrInvalidName, kind, maxNameLength)
	}

	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %s may only contain alphanumeric characters, underscore, hyphen, dot, or colon", ErrInvalidName, kind)
	}

	// Names end up as URL path segments in server requests.
	if strings.Contains(name, "..") {
		return fmt.Errorf("%w: %s contains parent directory reference", ErrInvalidName, kind)
	}

	return nil
}

// ValidateUUID checks a consumer UUID before it is used in a server
// request path.
func ValidateUUID(value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidUUID, value)
	}
	return nil
}

// proxyOptionKeys are the connection overrides a caller may supply on
// operations that accept only proxy settings.
var proxyOptionKeys = map[string]bool{
	"proxy_hostname": true,
	"proxy_port":     true,
	"proxy_user":     true,
	"proxy_password": true,
	"no_proxy":       true,
}

// InvalidProxyOptionError reports an option key that is not a proxy
// setting.
type InvalidProxyOptionError struct {
	Option string
}

func (e *InvalidProxyOptionError) Error() string {
	return fmt.Sprintf("%s is not a valid proxy option.", e.Option)
}

// ValidateProxyOptions checks that every key in options names a proxy
// override. Unknown keys are rejected rather than silently ignored, so
// a misspelled option cannot pass as a no-op.
func ValidateProxyOptions(options map[string]string) error {
	keys := make([]string, 0, len(options))
	for key := range options {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !proxyOptionKeys[key] {
			return &InvalidProxyOptionError{Option: key}
		}
	}
	return nil
}

// ValidateFilePermissions checks that a file is not writable by group
// or others.
func ValidateFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if info.Mode().Perm()&0o022 != 0 {
		return ErrInsecureFilePermissions
	}

	return nil
}

// ValidateKeyPermissions checks that private key material is accessible
// by its owner alone.
func ValidateKeyPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if info.Mode().Perm()&0o077 != 0 {
		return ErrInsecureFilePermissions
	}

	return nil
}

// containerMarkers exist only inside container filesystems.
var containerMarkers = []string{"/.dockerenv", "/run/.containerenv"}

// InContainer reports whether the client is running inside a container.
// Entitlement state inside a container comes from the host, so some
// operations warn or refuse when this is true.
func InContainer() bool {
	for _, marker := range containerMarkers {
		if _, err := os.Stat(marker); err == nil {
			return true
		}
	}
	return false
}
