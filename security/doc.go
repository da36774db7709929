// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

// Package security validates untrusted input before it reaches the
// filesystem or the entitlement server.
//
// Certificate directories and CA bundle locations come out of
// rhsm.conf, which is root-editable but still worth defending:
// ValidatePath and ValidatePathWithinBases reject parent directory
// references and resolve symbolic links so a crafted value cannot walk
// reads or writes out of /etc/rhsm and /etc/pki. Consumer names,
// organization keys, and consumer UUIDs become URL path segments in
// server requests and are checked against what the server accepts
// before a request is built from them.
//
// The package also carries the proxy override whitelist shared by
// operations that accept only connection options, permission checks
// for identity key material, and the container detection used to warn
// that entitlement state belongs to the host.
package security
