// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

package procutil

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/ZuhairORZaki/subscription-manager/fileutil"
)

// DefaultPIDPath is where the local API daemon records its pid.
const DefaultPIDPath = "/run/rhsm/rhsm.pid"

// IsProcessRunning reports whether a process with the given pid exists.
func IsProcessRunning(pid int) bool {
	if pid <= 0 || pid > math.MaxInt32 {
		return false
	}

	running, err := process.PidExists(int32(pid))
	if err != nil {
		return false
	}
	return running
}

// IsRoot reports whether the process runs with root privileges. State
// changing operations require it.
func IsRoot() bool {
	return os.Getuid() == 0
}

// CommandName returns the basename of the invoking command, used to
// prefix log lines and notifications.
func CommandName() string {
	if len(os.Args) == 0 || os.Args[0] == "" {
		return "rhsm"
	}
	return filepath.Base(os.Args[0])
}

// AlreadyRunningError reports that another instance holds the pid file.
type AlreadyRunningError struct {
	PID int
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("already running as pid %d", e.PID)
}

// PIDFile serializes daemon instances through a pid file. A file left
// behind by a dead process counts as stale and is replaced.
type PIDFile struct {
	path string
}

// NewPIDFile returns a PIDFile at path, falling back to DefaultPIDPath.
func NewPIDFile(path string) *PIDFile {
	if path == "" {
		path = DefaultPIDPath
	}
	return &PIDFile{path: path}
}

// Path returns the pid file location.
func (p *PIDFile) Path() string {
	return p.path
}

// Acquire claims the pid file for the current process. It fails with
// AlreadyRunningError when the file names another live process.
func (p *PIDFile) Acquire() error {
	if pid, err := p.Read(); err == nil && pid != os.Getpid() && IsProcessRunning(pid) {
		return &AlreadyRunningError{PID: pid}
	}

	if err := fileutil.EnsureDir(filepath.Dir(p.path)); err != nil {
		return err
	}

	data := []byte(strconv.Itoa(os.Getpid()) + "\n")
	return fileutil.AtomicWriteFile(p.path, data, fileutil.FilePermission)
}

// Read returns the pid recorded in the file.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid pid file %s: %w", p.path, err)
	}
	return pid, nil
}

// Release removes the pid file. A missing file is not an error.
func (p *PIDFile) Release() error {
	return fileutil.RemoveIfExists(p.path)
}
