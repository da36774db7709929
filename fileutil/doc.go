// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

// Package fileutil provides the file primitives shared by the
// configuration, identity and cache layers.
//
// # Atomic Writes
//
// AtomicWriteFile and AtomicWriteJSON never leave a partial file behind:
// content goes to a uniquely named temporary file in the target directory,
// is synced and chmodded there, and is renamed into place. The rename is
// retried with a short backoff to ride out transient races with other
// writers.
//
//	if err := fileutil.AtomicWriteJSON("/var/lib/rhsm/cache/status.json", status); err != nil {
//		return err
//	}
//
// # Missing Files
//
// ReadJSON treats a missing file as empty input rather than an error, and
// RemoveIfExists treats a missing file as already removed. Callers that
// need to distinguish use Exists first.
//
// # Permissions
//
// Directories are created 0o750 and files 0o644 by default. KeyPermission
// (0o600) is for private key material such as the consumer identity key.
package fileutil
