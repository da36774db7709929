// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

package logutil

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level represents the logging level.
type Level int

const (
	// LevelDebug is for debug messages.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warnings.
	LevelWarn
	// LevelError is for errors.
	LevelError
)

// Environment variable names for logging configuration.
const (
	// EnvDebug enables debug logging when set to any non-empty value.
	EnvDebug = "SUBMAN_DEBUG"
)

var (
	mu           sync.RWMutex
	globalLogger *slog.Logger

	currentLevel    = LevelInfo
	componentLevels = map[string]Level{}
	isStructured    = false

	outputWriter io.Writer = os.Stderr
)

func init() {
	SetupLogger(false, false)
}

// SetupLogger configures the global logger.
//
// Parameters:
//   - debug: When true, enables debug-level logging
//   - structured: When true, outputs JSON-formatted logs; otherwise uses text format
//
// The SUBMAN_DEBUG environment variable also enables debug-level logging.
// The logger writes to stderr by default.
// This function is safe for concurrent use.
func SetupLogger(debug, structured bool) {
	mu.Lock()
	defer mu.Unlock()

	if debug || envDebug() {
		currentLevel = LevelDebug
	} else {
		currentLevel = LevelInfo
	}
	isStructured = structured
	outputWriter = os.Stderr

	rebuildLogger()
}

// SetupLoggerWithWriter configures the logger with a custom writer.
// This is useful for testing or redirecting logs.
// This function is safe for concurrent use.
func SetupLoggerWithWriter(w io.Writer, debug, structured bool) {
	mu.Lock()
	defer mu.Unlock()

	if debug || envDebug() {
		currentLevel = LevelDebug
	} else {
		currentLevel = LevelInfo
	}
	isStructured = structured
	outputWriter = w

	rebuildLogger()
}

// SetOutput sets the output writer for the logger.
// This function is safe for concurrent use.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	outputWriter = w
	rebuildLogger()
}

// rebuildLogger recreates the handler from the current state. Caller must
// hold mu. The handler is built at the most verbose configured level so
// that component overrides below the global level still reach the writer;
// the package functions and ComponentLogger do the per-call filtering.
func rebuildLogger() {
	level := currentLevel
	for _, lvl := range componentLevels {
		if lvl < level {
			level = lvl
		}
	}

	opts := &slog.HandlerOptions{Level: slogLevel(level)}

	var handler slog.Handler
	if isStructured {
		handler = slog.NewJSONHandler(outputWriter, opts)
	} else {
		handler = slog.NewTextHandler(outputWriter, opts)
	}

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}

func slogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envDebug() bool {
	return os.Getenv(EnvDebug) != ""
}

// IsDebugEnabled returns true if debug logging is enabled, either through
// configuration or through the SUBMAN_DEBUG environment variable.
// This function is safe for concurrent use.
func IsDebugEnabled() bool {
	mu.RLock()
	level := currentLevel
	mu.RUnlock()
	return level == LevelDebug || envDebug()
}

// Debug logs a debug message with optional key-value pairs.
// Debug messages are only logged when debug mode is enabled.
//
// Example:
//
//	logutil.Debug("resolving proxy", "variable", "HTTPS_PROXY")
func Debug(msg string, args ...any) {
	if IsDebugEnabled() {
		Logger().Debug(msg, args...)
	}
}

// Info logs an info message with optional key-value pairs.
//
// Example:
//
//	logutil.Info("server configured", "hostname", hostname, "port", port)
func Info(msg string, args ...any) {
	if enabled(LevelInfo) {
		Logger().Info(msg, args...)
	}
}

// Warn logs a warning message with optional key-value pairs.
//
// Example:
//
//	logutil.Warn("insecure mode enabled", "section", "server")
func Warn(msg string, args ...any) {
	if enabled(LevelWarn) {
		Logger().Warn(msg, args...)
	}
}

// Error logs an error message with optional key-value pairs.
//
// Example:
//
//	logutil.Error("failed to connect", "error", err, "host", hostname)
func Error(msg string, args ...any) {
	if enabled(LevelError) {
		Logger().Error(msg, args...)
	}
}

func enabled(level Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return level >= currentLevel
}

// ParseLevel parses a string into a Level.
// Valid values are: "debug", "info", "warn", "warning", "error", matched
// case-insensitively so the uppercase spellings from rhsm.conf work
// unchanged. Returns LevelInfo for unrecognized values.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// GetLevel returns the current logging level.
// This function is safe for concurrent use.
func GetLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

// SetLevel sets the logging level programmatically.
// This function is safe for concurrent use.
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()

	currentLevel = level
	rebuildLogger()
}

// SetComponentLevel overrides the level for a single named component.
// Loggers created with NewLogger for that component honor the override;
// everything else stays at the global level.
// This function is safe for concurrent use.
func SetComponentLevel(component string, level Level) {
	mu.Lock()
	defer mu.Unlock()

	componentLevels[component] = level
	rebuildLogger()
}

// ApplyLevels replaces all component overrides in one call. The map keys
// are component names, the values level spellings as accepted by
// ParseLevel. Used when the [logging] configuration section is loaded or
// reloaded.
// This function is safe for concurrent use.
func ApplyLevels(levels map[string]string) {
	mu.Lock()
	defer mu.Unlock()

	componentLevels = make(map[string]Level, len(levels))
	for component, spelling := range levels {
		componentLevels[component] = ParseLevel(spelling)
	}
	rebuildLogger()
}

// EffectiveLevel returns the level that applies to a component: its
// override when one is installed, the global level otherwise.
// This function is safe for concurrent use.
func EffectiveLevel(component string) Level {
	mu.RLock()
	defer mu.RUnlock()
	if level, ok := componentLevels[component]; ok {
		return level
	}
	return currentLevel
}

// Logger returns the underlying slog.Logger for advanced usage.
// This function is safe for concurrent use.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}
