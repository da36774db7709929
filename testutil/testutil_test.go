package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCaptureOutput(t *testing.T) {
	output := CaptureOutput(t, func() error {
		fmt.Println("captured line")
		return nil
	})

	if !strings.Contains(output, "captured line") {
		t.Errorf("CaptureOutput() = %q, want to contain %q", output, "captured line")
	}
}

func TestCaptureOutputRestoresStdout(t *testing.T) {
	orig := os.Stdout
	CaptureOutput(t, func() error { return nil })
	if os.Stdout != orig {
		t.Error("CaptureOutput() did not restore os.Stdout")
	}
}

func TestCaptureOutputWithError(t *testing.T) {
	output := CaptureOutput(t, func() error {
		fmt.Println("before failure")
		return fmt.Errorf("deliberate failure")
	})

	if !strings.Contains(output, "before failure") {
		t.Errorf("CaptureOutput() lost output on error: %q", output)
	}
	if os.Stdout == nil {
		t.Error("os.Stdout not restored after error")
	}
}

func TestTempDir(t *testing.T) {
	dir := TempDir(t)

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("TempDir() path not usable: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("TempDir() = %q, not a directory", dir)
	}
	if !strings.Contains(filepath.Base(dir), "subman-test-") {
		t.Errorf("TempDir() = %q, want subman-test- prefix", dir)
	}
}

func TestWriteFile(t *testing.T) {
	dir := TempDir(t)
	path := filepath.Join(dir, "nested", "file.txt")

	WriteFile(t, path, "content")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("WriteFile() result unreadable: %v", err)
	}
	if string(data) != "content" {
		t.Errorf("WriteFile() wrote %q, want %q", string(data), "content")
	}
}

func TestConfigFixture(t *testing.T) {
	path := ConfigFixture(t)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ConfigFixture() unreadable: %v", err)
	}

	content := string(data)
	for _, want := range []string{
		"[server]",
		"hostname = server.example.com",
		"port = 8443",
		"[rhsm]",
		"repo_ca_cert = %(ca_cert_dir)sredhat-uep-non-default.pem",
		"[logging]",
		"default_log_level = DEBUG",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("fixture missing %q", want)
		}
	}
}
