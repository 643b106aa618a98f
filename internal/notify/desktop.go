package notify

import (
	"context"
	"runtime"

	"github.com/hochfrequenz/npm-release/internal/shell"
)

// appleScript reads title and message from argv so that neither is ever
// parsed as script source
var appleScript = []string{
	"-e", "on run argv",
	"-e", "display notification (item 2 of argv) with title (item 1 of argv)",
	"-e", "end run",
}

// DesktopNotifier shows a desktop notification through the platform tool
type DesktopNotifier struct {
	enabled bool
	runner  shell.Runner
	goos    string
}

// NewDesktopNotifier creates a desktop notifier
func NewDesktopNotifier(enabled bool, runner shell.Runner) *DesktopNotifier {
	return &DesktopNotifier{enabled: enabled, runner: runner, goos: runtime.GOOS}
}

// Send shows the notification; unsupported platforms are ignored
func (d *DesktopNotifier) Send(ctx context.Context, n Notification) error {
	if !d.enabled {
		return nil
	}

	cmd, ok := desktopCommand(d.goos, n)
	if !ok {
		return nil
	}
	_, err := d.runner.Run(ctx, cmd, shell.Options{Quiet: true})
	return err
}

func desktopCommand(goos string, n Notification) (shell.Command, bool) {
	switch goos {
	case "darwin":
		args := append(append([]string{}, appleScript...), n.Title, n.Message)
		return shell.Command{Name: "osascript", Args: args}, true
	case "linux":
		return shell.Command{Name: "notify-send", Args: []string{"--icon", iconFor(n.Level), "--", n.Title, n.Message}}, true
	default:
		return shell.Command{}, false
	}
}

func iconFor(l Level) string {
	switch l {
	case LevelSuccess:
		return "dialog-positive"
	case LevelWarning:
		return "dialog-warning"
	case LevelError:
		return "dialog-error"
	default:
		return "dialog-information"
	}
}
