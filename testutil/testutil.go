// Package testutil provides common testing utilities for the
// subscription-manager packages. It includes helpers for capturing output,
// temporary directories, and a canonical configuration fixture.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CaptureOutput captures stdout during function execution.
// It redirects os.Stdout to a pipe, executes the function, and returns the
// captured output. The original stdout is always restored, even if the
// function returns an error.
//
// Example:
//
//	output := testutil.CaptureOutput(t, func() error {
//	    fmt.Println("test output")
//	    return nil
//	})
//	if !strings.Contains(output, "test output") {
//	    t.Error("expected output not found")
//	}
func CaptureOutput(t *testing.T, fn func() error) string {
	t.Helper()

	origStdout := os.Stdout

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}

	os.Stdout = w

	// Buffered so the reader goroutine never leaks.
	outCh := make(chan string, 1)
	go func() {
		var output strings.Builder
		buf := make([]byte, 1024)
		for {
			n, readErr := r.Read(buf)
			if n > 0 {
				output.Write(buf[:n])
			}
			if readErr != nil {
				break
			}
		}
		outCh <- output.String()
	}()

	fnErr := fn()

	if err := w.Close(); err != nil {
		t.Logf("Failed to close pipe writer: %v", err)
	}
	os.Stdout = origStdout

	output := <-outCh

	if fnErr != nil {
		t.Logf("Command error: %v", fnErr)
	}

	return output
}

// TempDir creates a temporary directory for testing with automatic
// cleanup via t.Cleanup().
func TempDir(t *testing.T) string {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "subman-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}

	t.Cleanup(func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			t.Logf("Failed to clean up temp directory %s: %v", tmpDir, err)
		}
	})

	return tmpDir
}

// WriteFile writes content to path, creating parent directories as needed,
// and fails the test on error.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// Contains checks if a string contains a substring.
func Contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

// configFixture mirrors the configuration file the service-level tests
// have always run against: a throwaway [foo] section, a populated
// [server] section, interpolated rhsm paths, and a non-default logging
// level.
const configFixture = `[foo]
bar =
quux = baz
bigger_than_32_bit = 21474836470
bigger_than_64_bit = 123456789009876543211234567890

[server]
hostname = server.example.com
prefix = /candlepin
port = 8443
insecure = 1
proxy_hostname =
proxy_port =
proxy_user =
proxy_password =

[rhsm]
ca_cert_dir = /etc/rhsm/ca-test/
baseurl = https://content.example.com
repomd_gpg_url =
repo_ca_cert = %(ca_cert_dir)sredhat-uep-non-default.pem
productCertDir = /etc/pki/product
entitlementCertDir = /etc/pki/entitlement
consumerCertDir = /etc/pki/consumer
report_package_profile = 1
pluginDir = /usr/lib/rhsm-plugins
some_option = %(repo_ca_cert)stest
manage_repos =

[rhsmcertd]
certCheckInterval = 245

[logging]
default_log_level = DEBUG
`

// ConfigFixture writes the canonical test configuration into a temporary
// directory and returns its path. The file disappears with the test.
func ConfigFixture(t *testing.T) string {
	t.Helper()

	path := filepath.Join(TempDir(t), "rhsm.conf")
	WriteFile(t, path, configFixture)
	return path
}
