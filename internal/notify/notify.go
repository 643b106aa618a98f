// Package notify announces release outcomes outside the terminal
package notify

import (
	"context"

	"go.uber.org/multierr"
)

// Level is the severity of a notification
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// Notification describes a finished release
type Notification struct {
	Title   string
	Message string
	Level   Level

	// Release coordinates, empty when unknown
	Package  string // name@version
	Branch   string
	Tag      string
	Identity string
}

// Notifier delivers notifications
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// MultiNotifier delivers to every notifier, even when some fail
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier combines notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send returns the combined errors of all notifiers
func (m *MultiNotifier) Send(ctx context.Context, n Notification) error {
	var errs error
	for _, notifier := range m.notifiers {
		errs = multierr.Append(errs, notifier.Send(ctx, n))
	}
	return errs
}

// NoopNotifier is used when no notification channel is configured
type NoopNotifier struct{}

func (NoopNotifier) Send(ctx context.Context, n Notification) error { return nil }
