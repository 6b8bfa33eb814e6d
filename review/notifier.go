package review

import "log/slog"

// Notifier surfaces operation failures to the user. The view layer
// supplies an implementation backed by its toast system.
type Notifier interface {
	Error(message string)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Error(string) {}

// LogNotifier writes notifications to a structured logger. It is the
// default when no UI notifier is wired in.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) Error(message string) {
	log := n.Log
	if log == nil {
		log = slog.Default()
	}
	log.Error("review_notification", "message", message)
}
