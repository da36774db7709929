// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

// Package procutil answers process questions the client keeps asking:
// whether a pid is alive (github.com/shirou/gopsutil reads /proc, which
// avoids the stale-pid pitfalls of Signal(0)), whether the current
// process is root, and what command name to stamp on log lines.
//
// PIDFile serializes daemon instances the way rhsmcertd does, through a
// pid file under /run/rhsm whose stale entries are replaced rather than
// honored.
//
//	pf := procutil.NewPIDFile("")
//	if err := pf.Acquire(); err != nil {
//	    var running *procutil.AlreadyRunningError
//	    if errors.As(err, &running) {
//	        log.Fatalf("another instance is running as pid %d", running.PID)
//	    }
//	    log.Fatal(err)
//	}
//	defer pf.Release()
package procutil
