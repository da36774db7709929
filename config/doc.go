// Package config reads and writes rhsm.conf, the INI file that drives
// every other part of the client.
//
// A Config is a thin view over the file: lookups consult the file first
// and fall back to the stock defaults, so a missing or sparse file still
// answers every known key. Values may reference sibling keys in the same
// section as %(name)s; references resolve against the file first and the
// defaults second:
//
//	cfg, err := config.Load(config.Path())
//	if err != nil {
//		return err
//	}
//	caCert := cfg.Section("rhsm").Get("repo_ca_cert")
//
// # Persistence
//
// Mutations happen in memory until Persist writes the file back
// atomically; SetAutoPersist(true) saves after every mutation instead.
// Only sections and keys that came from the file or were set through the
// API are written out, so a persisted file stays minimal and the stock
// defaults remain implicit.
//
// # The process-wide configuration
//
// Default returns a shared Config loaded once from Path, which honors
// the SUBMAN_CONFIG environment variable. Tests point SUBMAN_CONFIG at a
// scratch file and call ResetDefault to pick it up.
package config
