// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

package procutil

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestIsProcessRunningCurrentProcess(t *testing.T) {
	pid := os.Getpid()
	if !IsProcessRunning(pid) {
		t.Errorf("IsProcessRunning(%d) = false for current process, want true", pid)
	}
}

func TestIsProcessRunningInvalidPID(t *testing.T) {
	tests := []struct {
		name string
		pid  int
	}{
		{"zero pid", 0},
		{"negative pid", -1},
		{"very negative pid", -999},
		{"beyond int32", 1 << 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if IsProcessRunning(tt.pid) {
				t.Errorf("IsProcessRunning(%d) = true, want false", tt.pid)
			}
		})
	}
}

func TestIsProcessRunningExitedProcess(t *testing.T) {
	cmd := exec.Command("sleep", "60")
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start test process: %v", err)
	}
	pid := cmd.Process.Pid

	if !IsProcessRunning(pid) {
		t.Errorf("IsProcessRunning(%d) = false for live process, want true", pid)
	}

	if err := cmd.Process.Kill(); err != nil {
		t.Fatalf("failed to kill test process: %v", err)
	}
	_ = cmd.Wait()

	// The pid may linger briefly while the kernel reaps it.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !IsProcessRunning(pid) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Errorf("IsProcessRunning(%d) = true after process exit, want false", pid)
}

func TestCommandName(t *testing.T) {
	if got := CommandName(); got == "" {
		t.Error("CommandName() = empty string")
	}

	savedArgs := os.Args
	defer func() { os.Args = savedArgs }()

	os.Args = []string{"/usr/sbin/subscription-manager", "status"}
	if got := CommandName(); got != "subscription-manager" {
		t.Errorf("CommandName() = %q, want %q", got, "subscription-manager")
	}

	os.Args = []string{""}
	if got := CommandName(); got != "rhsm" {
		t.Errorf("CommandName() = %q, want %q", got, "rhsm")
	}
}

func TestPIDFileAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rhsm.pid")
	pf := NewPIDFile(path)

	if err := pf.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	pid, err := pf.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("Read() = %d, want %d", pid, os.Getpid())
	}

	// Acquiring our own pid file again is not a conflict.
	if err := pf.Acquire(); err != nil {
		t.Errorf("Acquire() reacquire error = %v", err)
	}

	if err := pf.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := pf.Read(); err == nil {
		t.Error("Read() succeeded after Release, want error")
	}

	// Releasing twice is fine.
	if err := pf.Release(); err != nil {
		t.Errorf("Release() second call error = %v", err)
	}
}

func TestPIDFileAcquireConflict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rhsm.pid")

	// PID 1 is always alive and never us.
	if err := os.WriteFile(path, []byte("1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	pf := NewPIDFile(path)
	err := pf.Acquire()
	var running *AlreadyRunningError
	if !errors.As(err, &running) {
		t.Fatalf("Acquire() error = %v, want AlreadyRunningError", err)
	}
	if running.PID != 1 {
		t.Errorf("PID = %d, want 1", running.PID)
	}
}

func TestPIDFileAcquireStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rhsm.pid")

	// Find a pid that is not running.
	stale := 0
	for candidate := 1 << 21; candidate > 1<<20; candidate-- {
		if !IsProcessRunning(candidate) {
			stale = candidate
			break
		}
	}
	if stale == 0 {
		t.Skip("no free pid found")
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(stale)+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	pf := NewPIDFile(path)
	if err := pf.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v for stale pid file", err)
	}

	pid, err := pf.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("Read() = %d, want %d", pid, os.Getpid())
	}
}

func TestPIDFileReadGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rhsm.pid")
	if err := os.WriteFile(path, []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	pf := NewPIDFile(path)
	if _, err := pf.Read(); err == nil {
		t.Error("Read() error = nil for garbage pid file, want error")
	}

	// Garbage counts as stale, Acquire replaces it.
	if err := pf.Acquire(); err != nil {
		t.Errorf("Acquire() error = %v for garbage pid file", err)
	}
}

func TestNewPIDFileDefaultPath(t *testing.T) {
	pf := NewPIDFile("")
	if pf.Path() != DefaultPIDPath {
		t.Errorf("Path() = %q, want %q", pf.Path(), DefaultPIDPath)
	}
}
