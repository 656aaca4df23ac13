package engine

import (
	"log/slog"

	"github.com/roach88/bpsync/internal/event"
)

// NotificationKind names what a Notification reports.
type NotificationKind int

const (
	// NotifyStarted is sent once before the root state is computed.
	NotifyStarted NotificationKind = iota + 1
	// NotifyEventSelected is sent when the strategy picks an event.
	NotifyEventSelected
	// NotifyThreadsAdded lists threads that became live.
	NotifyThreadsAdded
	// NotifyThreadsRemoved lists threads that finished or were killed.
	NotifyThreadsRemoved
	// NotifyEnded carries the final status.
	NotifyEnded
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyStarted:
		return "started"
	case NotifyEventSelected:
		return "event-selected"
	case NotifyThreadsAdded:
		return "threads-added"
	case NotifyThreadsRemoved:
		return "threads-removed"
	case NotifyEnded:
		return "ended"
	}
	return "unknown"
}

// Notification is a named notification with payload. Fields not relevant to
// Kind are zero.
type Notification struct {
	Seq       int64
	Kind      NotificationKind
	RunID     string
	Program   string
	Iteration int
	Event     event.Event
	Threads   []string
	Status    RunStatus
	Violation Violation
}

// Listener observes a live run. Notify is called synchronously from the
// run loop and must not block for long.
type Listener interface {
	Notify(n Notification)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(n Notification)

// Notify calls f(n).
func (f ListenerFunc) Notify(n Notification) {
	f(n)
}

// LogListener writes one structured record per notification.
type LogListener struct {
	Logger *slog.Logger
}

// Notify implements Listener.
func (l LogListener) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		"seq", n.Seq,
		"run_id", n.RunID,
	}
	switch n.Kind {
	case NotifyStarted:
		logger.Info("run started", append(attrs, "program", n.Program)...)
	case NotifyEventSelected:
		logger.Info("event selected", append(attrs, "iteration", n.Iteration, "event", n.Event.String())...)
	case NotifyThreadsAdded:
		logger.Debug("threads added", append(attrs, "threads", n.Threads)...)
	case NotifyThreadsRemoved:
		logger.Debug("threads removed", append(attrs, "threads", n.Threads)...)
	case NotifyEnded:
		attrs = append(attrs, "status", n.Status.String(), "iteration", n.Iteration)
		if n.Violation.Found() {
			logger.Warn("run ended", append(attrs, "violation", n.Violation.String())...)
			return
		}
		logger.Info("run ended", attrs...)
	}
}
