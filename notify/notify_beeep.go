package notify

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/gen2brain/beeep"
)

// beeepNotifier shows notifications through the beeep library, which
// talks to the session bus on Linux and the native notification APIs
// elsewhere.
type beeepNotifier struct {
	config Config
}

func newBeeepNotifier(config Config) (Notifier, error) {
	return &beeepNotifier{config: config}, nil
}

// Send shows the notification. Critical notifications use the alert
// variant so they stay visible until dismissed.
func (n *beeepNotifier) Send(_ context.Context, notification Notification) error {
	if !n.IsAvailable() {
		return ErrNotAvailable
	}

	var err error
	if notification.Severity == SeverityCritical {
		err = beeep.Alert(notification.Title, notification.Message, "")
	} else {
		err = beeep.Notify(notification.Title, notification.Message, "")
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// IsAvailable reports whether the desktop can show notifications. On
// Linux that requires a session bus, which headless machines and the
// daemon's system context do not have.
func (n *beeepNotifier) IsAvailable() bool {
	if runtime.GOOS == "linux" {
		return os.Getenv("DBUS_SESSION_BUS_ADDRESS") != ""
	}
	return true
}

func (n *beeepNotifier) Close() error {
	return nil
}
