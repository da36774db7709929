// Package cliout provides structured output formatting for CLI commands.
// It supports human-readable text and JSON output, with consistent styling
// using ANSI colors and Unicode symbols that degrade to ASCII on terminals
// without UTF-8 locales.
package cliout

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Format represents the output format.
type Format string

const (
	// FormatDefault is the default human-readable format.
	FormatDefault Format = "default"
	// FormatJSON is JSON format.
	FormatJSON Format = "json"
)

// ANSI escape codes for consistent styling
const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Dim     = "\033[2m"
	Cursive = "\033[3m"

	// Foreground colors
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	Gray    = "\033[90m"

	// Bright foreground colors
	BrightRed    = "\033[91m"
	BrightGreen  = "\033[92m"
	BrightYellow = "\033[93m"
	BrightBlue   = "\033[94m"
)

// Unicode symbols for terminal output
const (
	SymbolCheck   = "✓"
	SymbolCross   = "✗"
	SymbolWarning = "⚠"
	SymbolInfo    = "ℹ"
	SymbolDot     = "•"
)

// ASCII fallback symbols for terminals without UTF-8 locales
const (
	ASCIICheck   = "[+]"
	ASCIICross   = "[-]"
	ASCIIWarning = "[!]"
	ASCIIInfo    = "[i]"
	ASCIIDot     = "*"
)

var (
	mu sync.RWMutex

	globalFormat   = FormatDefault
	noColor        = false
	unicodeEnabled = detectUnicodeSupport()

	out io.Writer = os.Stdout
)

// detectUnicodeSupport checks whether the locale advertises UTF-8. The
// LC_ALL, LC_CTYPE, LANG precedence follows POSIX: the first variable that
// is set decides. No locale at all means the C locale, which is ASCII.
func detectUnicodeSupport() bool {
	for _, name := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		if value := os.Getenv(name); value != "" {
			upper := strings.ToUpper(value)
			return strings.Contains(upper, "UTF-8") || strings.Contains(upper, "UTF8")
		}
	}
	return false
}

// SupportsUnicode reports whether Unicode symbols will be used.
func SupportsUnicode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return unicodeEnabled
}

// ForceColor enables color output regardless of prior NoColor calls.
func ForceColor() {
	mu.Lock()
	noColor = false
	mu.Unlock()
}

// NoColor disables color output.
func NoColor() {
	mu.Lock()
	noColor = true
	mu.Unlock()
}

// SetWriter redirects output, primarily for tests. Pass os.Stdout to
// restore the default.
func SetWriter(w io.Writer) {
	mu.Lock()
	out = w
	mu.Unlock()
}

func writer() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return out
}

// paint wraps text in a color code unless colors are disabled.
func paint(color, text string) string {
	mu.RLock()
	disabled := noColor
	mu.RUnlock()
	if disabled || color == "" {
		return text
	}
	return color + text + Reset
}

// symbol picks the Unicode or ASCII variant of a marker.
func symbol(unicode, ascii string) string {
	mu.RLock()
	enabled := unicodeEnabled
	mu.RUnlock()
	if enabled {
		return unicode
	}
	return ascii
}

// SetFormat sets the global output format.
func SetFormat(format string) error {
	mu.Lock()
	defer mu.Unlock()
	switch format {
	case "default", "":
		globalFormat = FormatDefault
	case "json":
		globalFormat = FormatJSON
	default:
		return fmt.Errorf("invalid output format: %s (valid options: default, json)", format)
	}
	return nil
}

// GetFormat returns the current output format.
func GetFormat() Format {
	mu.RLock()
	defer mu.RUnlock()
	return globalFormat
}

// IsJSON returns true if the output format is JSON.
func IsJSON() bool {
	return GetFormat() == FormatJSON
}

// PrintJSON prints data as indented JSON.
func PrintJSON(data interface{}) error {
	encoder := json.NewEncoder(writer())
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Print outputs data in the configured format. For default format, the
// formatter function runs; for JSON format, the data object is marshaled.
func Print(data interface{}, formatter func()) error {
	if IsJSON() {
		return PrintJSON(data)
	}
	formatter()
	return nil
}

// Header prints a bold header with a divider.
func Header(text string) {
	fmt.Fprintf(writer(), "\n%s\n", paint(Bold, text))
	fmt.Fprintln(writer(), strings.Repeat("=", len(text)))
}

// CommandHeader prints a minimal command header. Skipped in JSON mode.
func CommandHeader(command string) {
	if IsJSON() {
		return
	}
	w := writer()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s\n", paint(Bold, "subscription-manager "+command))
	fmt.Fprintln(w, strings.Repeat("─", 30))
	fmt.Fprintln(w)
}

// Success prints a success message with a green checkmark.
func Success(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(writer(), "%s %s\n", paint(BrightGreen, symbol(SymbolCheck, ASCIICheck)), msg)
}

// Error prints an error message with a red cross.
func Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(writer(), "%s %s\n", paint(BrightRed, symbol(SymbolCross, ASCIICross)), msg)
}

// Warning prints a warning message with a yellow marker.
func Warning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(writer(), "%s  %s\n", paint(BrightYellow, symbol(SymbolWarning, ASCIIWarning)), msg)
}

// Info prints an info message with a blue marker.
func Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(writer(), "%s  %s\n", paint(BrightBlue, symbol(SymbolInfo, ASCIIInfo)), msg)
}

// Item prints an indented item.
func Item(format string, args ...interface{}) {
	fmt.Fprintf(writer(), "   %s\n", fmt.Sprintf(format, args...))
}

// Bullet prints a bulleted list item.
func Bullet(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(writer(), "  %s %s\n", symbol(SymbolDot, ASCIIDot), msg)
}

// ItemSuccess prints an indented success item.
func ItemSuccess(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(writer(), "   %s %s\n", paint(Green, symbol(SymbolCheck, ASCIICheck)), msg)
}

// ItemError prints an indented error item.
func ItemError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(writer(), "   %s %s\n", paint(Red, symbol(SymbolCross, ASCIICross)), msg)
}

// Divider prints a horizontal divider.
func Divider() {
	fmt.Fprintf(writer(), "\n%s\n", paint(Dim, strings.Repeat("─", 50)))
}

// Newline prints a blank line.
func Newline() {
	fmt.Fprintln(writer())
}

// Plain prints plain text without any formatting.
func Plain(format string, args ...interface{}) {
	fmt.Fprintf(writer(), format+"\n", args...)
}

// Label prints a label and value pair in the two-column style the status
// and config listings use.
func Label(label, value string) {
	fmt.Fprintf(writer(), "   %s %s\n", paint(Dim, fmt.Sprintf("%-18s", label+":")), value)
}

// Emphasize returns bolded text.
func Emphasize(format string, args ...interface{}) string {
	return paint(Bold, fmt.Sprintf(format, args...))
}

// Muted returns dimmed text.
func Muted(format string, args ...interface{}) string {
	return paint(Dim, fmt.Sprintf(format, args...))
}

// URL returns a URL in bright blue.
func URL(url string) string {
	return paint(BrightBlue, url)
}

// Status colors a status word the way the CLI renders entitlement and
// connection states.
func Status(status string) string {
	switch strings.ToLower(status) {
	case "valid", "registered", "subscribed", "ok", "connected":
		return paint(BrightGreen, status)
	case "partial", "insufficient", "degraded":
		return paint(BrightYellow, status)
	case "invalid", "expired", "unregistered", "error", "failed":
		return paint(BrightRed, status)
	case "unknown", "disabled":
		return paint(BrightBlue, status)
	default:
		return status
	}
}

// Confirm prompts the user for confirmation and returns true if they
// confirm. Returns true immediately in JSON mode, which is treated as
// non-interactive.
func Confirm(message string) bool {
	if IsJSON() {
		return true
	}
	fmt.Fprintf(writer(), "%s [y/N]: ", paint(BrightYellow, message))
	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

// TableRow represents a row in a table as a map of column header to value.
type TableRow map[string]string

// Table prints a simple table with the given headers and rows.
func Table(headers []string, rows []TableRow) {
	if len(rows) == 0 {
		return
	}

	widths := make(map[string]int)
	for _, header := range headers {
		widths[header] = len(header)
	}
	for _, row := range rows {
		for _, header := range headers {
			if len(row[header]) > widths[header] {
				widths[header] = len(row[header])
			}
		}
	}

	w := writer()
	fmt.Fprint(w, "   ")
	for _, header := range headers {
		fmt.Fprintf(w, "%s  ", paint(Bold, fmt.Sprintf("%-*s", widths[header], header)))
	}
	fmt.Fprintln(w)

	fmt.Fprint(w, "   ")
	for _, header := range headers {
		fmt.Fprint(w, strings.Repeat("─", widths[header])+"  ")
	}
	fmt.Fprintln(w)

	for _, row := range rows {
		fmt.Fprint(w, "   ")
		for _, header := range headers {
			fmt.Fprintf(w, "%-*s  ", widths[header], row[header])
		}
		fmt.Fprintln(w)
	}
}
