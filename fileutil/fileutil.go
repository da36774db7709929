// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

package fileutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// File permissions
const (
	// DirPermission is the default permission for creating directories (rwxr-x---)
	DirPermission = 0o750
	// FilePermission is the default permission for creating files (rw-r--r--)
	FilePermission = 0o644
	// KeyPermission is the permission for private key material (rw-------)
	KeyPermission = 0o600
)

const renameAttempts = 5

// AtomicWriteFile writes raw bytes to a file atomically. It writes to a
// temporary file in the target directory first, then renames it into place,
// so readers never observe a partial file.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	// A unique temp name in the same directory keeps the rename on one
	// filesystem and keeps concurrent writers out of each other's way.
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() { _ = tmpFile.Close() }()

	if _, err := tmpFile.Write(data); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// The temp file must carry the final permissions before the rename
	// makes it visible.
	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set file permissions: %w", err)
	}

	// Rename is atomic on the filesystems we care about. Retry a few
	// times with backoff to ride out transient races.
	var renameErr error
	for attempt := 0; attempt < renameAttempts; attempt++ {
		renameErr = os.Rename(tmpPath, path)
		if renameErr == nil {
			return nil
		}
		if attempt < renameAttempts-1 {
			time.Sleep(time.Duration(20*(attempt+1)) * time.Millisecond)
		}
	}
	_ = os.Remove(tmpPath)
	return fmt.Errorf("failed to rename temp file: %w", renameErr)
}

// AtomicWriteJSON writes data as indented JSON to a file atomically.
func AtomicWriteJSON(path string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return AtomicWriteFile(path, jsonData, FilePermission)
}

// ReadJSON reads JSON from a file into the target. A missing file is not
// an error; the target is left unchanged.
func ReadJSON(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// EnsureDir creates a directory, including parents, if it does not exist.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, DirPermission); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// Exists reports whether the path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FileExists reports whether filename exists inside dir.
func FileExists(dir string, filename string) bool {
	return Exists(filepath.Join(dir, filename))
}

// RemoveIfExists deletes the file at path. A missing file is not an error.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// FilesWithExt returns the sorted paths of regular files in dir carrying
// the given extension. ext includes the dot, e.g. ".pem". A missing
// directory yields an empty result.
func FilesWithExt(dir string, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) != ext {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
