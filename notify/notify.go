// Package notify raises desktop notifications for subscription state
// changes. Machines without a desktop degrade to log lines.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZuhairORZaki/subscription-manager/logutil"
	"github.com/ZuhairORZaki/subscription-manager/procutil"
)

var log = logutil.NewLogger("rhsm.notify")

// Severity selects how insistently the desktop shows a notification.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Notification is one message for the desktop notification area.
type Notification struct {
	Title     string
	Message   string
	Severity  Severity
	Timestamp time.Time
}

// Notifier is the interface to the desktop notification system.
type Notifier interface {
	// Send shows the notification.
	Send(ctx context.Context, notification Notification) error

	// IsAvailable reports whether the desktop can show notifications
	// at all. Headless machines and containers report false.
	IsAvailable() bool

	// Close releases notification system resources.
	Close() error
}

// Config tunes the notifier.
type Config struct {
	// AppName is shown as the notification source.
	AppName string

	// Timeout bounds a single Send.
	Timeout time.Duration
}

// DefaultConfig names notifications after the invoking command.
func DefaultConfig() Config {
	return Config{
		AppName: procutil.CommandName(),
		Timeout: 5 * time.Second,
	}
}

// New creates the desktop notifier.
func New(config Config) (Notifier, error) {
	return newBeeepNotifier(config)
}

// Muted returns a notifier that drops everything. Used when the
// administrator disabled notifications.
func Muted() Notifier {
	return mutedNotifier{}
}

var (
	ErrNotAvailable = errors.New("desktop notifications not available")
	ErrSendFailed   = errors.New("failed to send desktop notification")
)

// Post sends notification and swallows failures. Subscription state
// changes must never fail because a desktop is absent, so problems are
// logged and the caller moves on.
func Post(ctx context.Context, notifier Notifier, notification Notification) {
	if notifier == nil || !notifier.IsAvailable() {
		log.Debug("desktop notifications unavailable, dropping",
			"title", notification.Title)
		return
	}
	if err := notifier.Send(ctx, notification); err != nil {
		log.Warn("failed to send desktop notification",
			"title", notification.Title, "error", err)
	}
}

// SubscriptionsInvalid is raised when the entitlement status check
// reports the system is no longer covered.
func SubscriptionsInvalid() Notification {
	return Notification{
		Title:     "Invalid subscriptions",
		Message:   "This system is missing one or more subscriptions.",
		Severity:  SeverityCritical,
		Timestamp: time.Now(),
	}
}

// SubscriptionsExpiring warns that entitlement certificates approach
// their end date.
func SubscriptionsExpiring(days int) Notification {
	message := fmt.Sprintf("This system's subscriptions expire in %d days.", days)
	if days <= 1 {
		message = "This system's subscriptions expire within a day."
	}
	return Notification{
		Title:     "Subscriptions expiring",
		Message:   message,
		Severity:  SeverityWarning,
		Timestamp: time.Now(),
	}
}

// IdentityExpired is raised when the consumer identity certificate has
// passed its end date and the server will reject the system.
func IdentityExpired() Notification {
	return Notification{
		Title:     "Registration expired",
		Message:   "Your identity certificate has expired. The system must be registered again.",
		Severity:  SeverityCritical,
		Timestamp: time.Now(),
	}
}

type mutedNotifier struct{}

func (mutedNotifier) Send(context.Context, Notification) error { return nil }
func (mutedNotifier) IsAvailable() bool                        { return false }
func (mutedNotifier) Close() error                             { return nil }
