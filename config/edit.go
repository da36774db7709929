package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// EditOptions configures Edit.
type EditOptions struct {
	// Editor overrides detection. When empty the EDITOR and VISUAL
	// environment variables are consulted, then editorCandidates.
	Editor string
}

// editorCandidates is the fallback order when no environment variable
// names a usable editor. vi ships even on minimal installs.
var editorCandidates = []string{"vi", "vim", "nano"}

// editorNamePattern restricts bare editor names to alphanumerics, dash,
// underscore, and dot.
var editorNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// Edit opens the configuration file in the user's editor, blocks until
// the editor exits, and reloads the file.
func (c *Config) Edit(ctx context.Context) error {
	return c.EditWith(ctx, EditOptions{})
}

// EditWith opens the configuration file with explicit options.
func (c *Config) EditWith(ctx context.Context, opts EditOptions) error {
	editor := opts.Editor
	if editor == "" {
		editor = detectEditor()
	}
	if editor == "" {
		return errors.New("no editor found; set EDITOR or VISUAL")
	}

	cmd := exec.CommandContext(ctx, editor, c.path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %s: %w", editor, err)
	}
	return c.Reload()
}

// detectEditor picks an editor from the environment, falling back to
// whatever common terminal editor is installed.
func detectEditor() string {
	for _, variable := range []string{"EDITOR", "VISUAL"} {
		if editor := validateEditor(os.Getenv(variable)); editor != "" {
			return editor
		}
	}
	for _, candidate := range editorCandidates {
		if _, err := exec.LookPath(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// validateEditor vets an editor value taken from the environment. Bare
// names must match editorNamePattern and resolve in PATH; anything with
// a path separator must be an absolute path to an executable. Shell
// fragments and relative paths are rejected.
func validateEditor(editor string) string {
	if editor == "" {
		return ""
	}

	if !strings.ContainsRune(editor, filepath.Separator) {
		if editorNamePattern.MatchString(editor) {
			if _, err := exec.LookPath(editor); err == nil {
				return editor
			}
		}
		return ""
	}

	if !filepath.IsAbs(editor) {
		return ""
	}
	if _, err := exec.LookPath(editor); err == nil {
		return editor
	}
	return ""
}
