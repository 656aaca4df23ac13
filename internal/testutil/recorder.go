package testutil

import (
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/bpsync/internal/engine"
	"github.com/roach88/bpsync/internal/event"
)

// Recorder is an engine.Listener that keeps every notification it receives.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Recorder struct {
	mu    sync.Mutex
	notes []engine.Notification
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify implements engine.Listener.
func (r *Recorder) Notify(n engine.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

// Notifications returns a copy of everything recorded so far.
func (r *Recorder) Notifications() []engine.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]engine.Notification, len(r.notes))
	copy(out, r.notes)
	return out
}

// Kinds returns the kinds of the recorded notifications in order.
func (r *Recorder) Kinds() []engine.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]engine.NotificationKind, len(r.notes))
	for i, n := range r.notes {
		out[i] = n.Kind
	}
	return out
}

// Selected returns the events of NotifyEventSelected notifications.
func (r *Recorder) Selected() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.Event
	for _, n := range r.notes {
		if n.Kind == engine.NotifyEventSelected {
			out = append(out, n.Event)
		}
	}
	return out
}

// Reset drops everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = nil
}

// DiscardLogger returns a logger that drops all records.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
