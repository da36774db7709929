// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

// Package logutil provides a structured logging abstraction built on top of slog.
//
// This package gives the subscription-manager tools one consistent logging
// surface. It wraps the standard library's slog package with convenience
// functions, per-component level overrides, and environment-aware
// configuration.
//
// # Basic Usage
//
//	// Initialize logging (typically in main.go)
//	logutil.SetupLogger(debug, structured)
//
//	// Log messages at different levels
//	logutil.Debug("parsing server entry", "input", entry)
//	logutil.Info("registration complete", "uuid", consumerUUID)
//	logutil.Warn("proxy variable ignored", "name", varName)
//	logutil.Error("connection failed", "error", err, "host", hostname)
//
// # Debug Mode
//
// Debug logging can be enabled in two ways:
//   - Pass debug=true to SetupLogger
//   - Set the SUBMAN_DEBUG environment variable to any non-empty value
//
// # Per-Component Levels
//
// The [logging] section of rhsm.conf can raise or lower the level for one
// component without touching the rest. ApplyLevels installs those
// overrides, and loggers created with NewLogger honor them:
//
//	logutil.SetLevel(logutil.ParseLevel(conf.DefaultLogLevel))
//	logutil.ApplyLevels(conf.ComponentLevels)
//
//	log := logutil.NewLogger("httpclient")
//	log.Debug("request prepared", "method", "GET") // emitted only if httpclient is at DEBUG
//
// # Structured Logging
//
// When structured=true is passed to SetupLogger, logs are output as JSON:
//
//	{"time":"2026-01-15T10:30:00Z","level":"INFO","msg":"registration complete","uuid":"..."}
//
// Otherwise, logs use a human-readable text format:
//
//	time=2026-01-15T10:30:00Z level=INFO msg="registration complete" uuid=...
package logutil
