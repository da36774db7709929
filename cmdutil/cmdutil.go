// Package cmdutil runs the external probes the client depends on, such
// as virt-what for guest detection, with timeouts and captured output.
package cmdutil

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single probe. Hardware probes that hang, as
// virt-what can on some hypervisors, must not stall fact collection.
const DefaultTimeout = 30 * time.Second

// Runner executes an external command and returns its stdout.
// Collectors take a Runner so tests can substitute canned output.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner is the Runner used outside tests.
type ExecRunner struct {
	Timeout time.Duration // per-command limit, DefaultTimeout when zero
}

// Output runs the command and returns its stdout. On failure the error
// carries the command name and any stderr the command produced, and
// whatever stdout was captured is still returned.
func (r ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	timeout := r.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return stdout.Bytes(), fmt.Errorf("%s timed out: %w", name, ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return stdout.Bytes(), fmt.Errorf("%s: %w", name, err)
	}

	return stdout.Bytes(), nil
}

// Exists reports whether name resolves to an executable on PATH.
func Exists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// OutputLines runs the command and splits its stdout into trimmed,
// non-empty lines. Probes report one fact per line.
func OutputLines(ctx context.Context, r Runner, name string, args ...string) ([]string, error) {
	out, err := r.Output(ctx, name, args...)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
