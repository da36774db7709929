// Package progress renders transient status messages for long-running
// operations, with an optional spinner animation. Messages overwrite
// themselves with carriage returns and are wiped when the operation ends,
// so stale text never lingers in front of real output.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ZuhairORZaki/subscription-manager/cliout"
	"github.com/ZuhairORZaki/subscription-manager/env"
	"golang.org/x/term"
)

// DefaultDescription is shown when the caller supplies no message text.
const DefaultDescription = "Transmitting data"

// EnvPrintRequest is the debug toggle that dumps HTTP traffic to the
// terminal. Status messages stay quiet while it is on so the dump remains
// readable.
const EnvPrintRequest = "SUBMAN_DEBUG_PRINT_REQUEST"

const defaultInterval = 150 * time.Millisecond

// Cursor visibility escape sequences.
const (
	cursorHide = "\033[?25l"
	cursorShow = "\033[?25h"
)

// SpinnerStyle is a cycle of animation frames rendered next to a live
// status message.
type SpinnerStyle []string

// Line is the default style. It is one ASCII character wide and has a
// short cycle, so it renders on any TTY and several consecutive messages
// read as a single continuous spinner.
var (
	Line        = SpinnerStyle{"|", "/", "-", "\\"}
	Braille     = SpinnerStyle{"⠋", "⠙", "⠸", "⠴", "⠦", "⠇"}
	WideBraille = SpinnerStyle{"⠧ ", "⠏ ", "⠋⠁", "⠉⠉", "⠈⠙", " ⠹", " ⠼", "⠠⠴", "⠤⠤", "⠦⠄"}
	BarForward  = SpinnerStyle{"[    ]", "[=   ]", "[==  ]", "[=== ]", "[====]", "[ ===]", "[  ==]", "[   =]"}
	BarBackward = SpinnerStyle{"[    ]", "[   =]", "[  ==]", "[ ===]", "[====]", "[=== ]", "[==  ]", "[=   ]"}
	BarBounce   = append(append(SpinnerStyle{}, BarForward...), BarBackward...)
)

// maxWidth returns the display width of the widest frame in the style.
func (s SpinnerStyle) maxWidth() int {
	widest := 0
	for _, frame := range s {
		if n := utf8.RuneCountInString(frame); n > widest {
			widest = n
		}
	}
	return widest
}

// Placement selects which side of the text the spinner renders on.
type Placement int

const (
	// Before renders the spinner frame ahead of the text.
	Before Placement = iota
	// After renders the spinner frame behind the text.
	After
)

// Options control whether and where status output is rendered.
type Options struct {
	// Disabled suppresses the message entirely. Callers thread the
	// rhsm progress_messages configuration value through here.
	Disabled bool

	// Writer receives the output. Defaults to os.Stdout. Messages stay
	// quiet unless the writer is a terminal.
	Writer io.Writer

	// Env overrides the process environment for the debug toggle.
	Env env.Lookup
}

// LiveOptions extend Options with animation settings.
type LiveOptions struct {
	Options

	// Style selects the frame set. Defaults to Line.
	Style SpinnerStyle

	// Placement puts the spinner before or after the text.
	Placement Placement

	// Interval is the delay between frames. Defaults to 150ms.
	Interval time.Duration
}

// StatusMessage is a transient single-line message. Print renders it over
// the current line and Clean blanks it again, so the message disappears
// once it is no longer true.
type StatusMessage struct {
	raw   string
	text  string
	quiet bool
	out   io.Writer
}

// New builds a StatusMessage for description. An empty description renders
// the default "Transmitting data" text.
func New(description string, opts Options) *StatusMessage {
	raw := description
	if raw == "" {
		raw = DefaultDescription
	}
	out := opts.Writer
	if out == nil {
		out = os.Stdout
	}
	lookup := opts.Env
	if lookup == nil {
		lookup = env.OS()
	}
	return &StatusMessage{
		raw:   raw,
		text:  cliout.Cursive + raw + cliout.Reset,
		quiet: opts.Disabled || !isTerminal(out) || printRequestEnabled(lookup),
		out:   out,
	}
}

// Print writes the message and returns the cursor to the start of the
// line, so the next write lands on top of it.
func (m *StatusMessage) Print() {
	if m.quiet {
		return
	}
	fmt.Fprint(m.out, m.text+"\r")
}

// Clean blanks the message so later output starts on an empty line.
func (m *StatusMessage) Clean() {
	if m.quiet {
		return
	}
	fmt.Fprint(m.out, strings.Repeat(" ", utf8.RuneCountInString(m.raw))+"\r")
}

// Run shows description while fn executes and clears it before returning.
// The error from fn passes through unchanged.
func Run(description string, opts Options, fn func() error) error {
	m := New(description, opts)
	m.Print()
	defer m.Clean()
	return fn()
}

// LiveStatusMessage is a transient message with a spinner animation. Start
// launches the animation goroutine and Stop tears it down, clearing the
// line and restoring the cursor.
type LiveStatusMessage struct {
	raw       string
	quiet     bool
	out       io.Writer
	frames    SpinnerStyle
	placement Placement
	interval  time.Duration

	mu      sync.Mutex
	loops   int
	running bool
	done    chan struct{}
	stopped chan struct{}
}

// NewLive builds an animated status message. Zero-valued options select
// the Line style, Before placement and the default frame interval. The
// text renders without cursive styling; the spinner already sets the line
// apart from real output.
func NewLive(description string, opts LiveOptions) *LiveStatusMessage {
	base := New(description, opts.Options)
	style := opts.Style
	if len(style) == 0 {
		style = Line
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &LiveStatusMessage{
		raw:       base.raw,
		quiet:     base.quiet,
		out:       base.out,
		frames:    style,
		placement: opts.Placement,
		interval:  interval,
	}
}

// Start hides the cursor and begins the animation. Starting a quiet or
// already running message does nothing.
func (m *LiveStatusMessage) Start() {
	if m.quiet {
		return
	}
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.done = make(chan struct{})
	m.stopped = make(chan struct{})
	m.mu.Unlock()

	fmt.Fprint(m.out, cursorHide)
	go m.loop()
}

// Stop ends the animation, clears the line and restores the cursor. It
// waits for the animation goroutine to exit before returning.
func (m *LiveStatusMessage) Stop() {
	if m.quiet {
		return
	}
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	done := m.done
	stopped := m.stopped
	m.mu.Unlock()

	close(done)
	<-stopped
	fmt.Fprint(m.out, cursorShow)
}

func (m *LiveStatusMessage) loop() {
	defer close(m.stopped)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.printFrame()
		select {
		case <-m.done:
			m.clean()
			return
		case <-ticker.C:
			m.clean()
		}
	}
}

func (m *LiveStatusMessage) printFrame() {
	frame := m.frames[m.loops%len(m.frames)]
	m.loops++

	var line string
	if m.placement == After {
		line = m.raw + " " + frame
	} else {
		line = frame + " " + m.raw
	}
	fmt.Fprint(m.out, line+"\r")
}

// clean blanks the widest line the animation can render, so no frame
// leaves residue behind.
func (m *LiveStatusMessage) clean() {
	width := utf8.RuneCountInString(m.raw) + m.frames.maxWidth() + 1
	fmt.Fprint(m.out, strings.Repeat(" ", width)+"\r")
}

// RunLive animates description while fn executes, then clears the line.
// The error from fn passes through unchanged.
func RunLive(description string, opts LiveOptions, fn func() error) error {
	m := NewLive(description, opts)
	m.Start()
	defer m.Stop()
	return fn()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func printRequestEnabled(lookup env.Lookup) bool {
	value, ok := lookup(EnvPrintRequest)
	if !ok {
		return false
	}
	enabled, err := env.ParseBool(value)
	return err == nil && enabled
}
