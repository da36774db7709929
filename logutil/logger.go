// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

package logutil

import "log/slog"

// ComponentLogger provides component-scoped structured logging.
// It wraps slog.Logger with context chaining and honors per-component
// level overrides from ApplyLevels.
type ComponentLogger struct {
	slogger   *slog.Logger
	component string
}

// NewLogger creates a Logger scoped to a named component.
func NewLogger(component string) *ComponentLogger {
	return &ComponentLogger{
		slogger:   Logger().With("component", component),
		component: component,
	}
}

// WithOperation returns a new Logger with the operation context added.
func (l *ComponentLogger) WithOperation(name string) *ComponentLogger {
	return &ComponentLogger{
		slogger:   l.slogger.With("operation", name),
		component: l.component,
	}
}

// WithFields returns a new Logger with additional fields.
// Fields are provided as alternating key-value pairs.
func (l *ComponentLogger) WithFields(fields ...any) *ComponentLogger {
	return &ComponentLogger{
		slogger:   l.slogger.With(fields...),
		component: l.component,
	}
}

// Component returns the component name for this logger.
func (l *ComponentLogger) Component() string {
	return l.component
}

func (l *ComponentLogger) enabled(level Level) bool {
	return level >= EffectiveLevel(l.component)
}

// Debug logs a message at debug level.
func (l *ComponentLogger) Debug(msg string, args ...any) {
	if l.enabled(LevelDebug) {
		l.slogger.Debug(msg, args...)
	}
}

// Info logs a message at info level.
func (l *ComponentLogger) Info(msg string, args ...any) {
	if l.enabled(LevelInfo) {
		l.slogger.Info(msg, args...)
	}
}

// Warn logs a message at warn level.
func (l *ComponentLogger) Warn(msg string, args ...any) {
	if l.enabled(LevelWarn) {
		l.slogger.Warn(msg, args...)
	}
}

// Error logs a message at error level.
func (l *ComponentLogger) Error(msg string, args ...any) {
	if l.enabled(LevelError) {
		l.slogger.Error(msg, args...)
	}
}
