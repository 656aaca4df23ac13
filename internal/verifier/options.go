package verifier

import (
	"log/slog"

	"github.com/roach88/bpsync/internal/visited"
)

// DefaultMaxTraceLength bounds the number of events in any explored path.
const DefaultMaxTraceLength = 100

// DefaultProgressEvery is how many new states pass between progress
// notifications.
const DefaultProgressEvery = 1000

// Options configures a verification.
type Options struct {
	// CheckDeadlocks reports Stuck states as Deadlock. When false they are
	// ordinary leaves.
	CheckDeadlocks bool

	// Store selects the visited-state store.
	Store visited.Kind

	// MaxTraceLength bounds path length in events. <= 0 means unbounded.
	MaxTraceLength int

	// StopAtFirst ends the search at the first violation. When false the
	// search continues past violations (without expanding them) and the
	// first counterexample found is reported.
	StopAtFirst bool

	// ProgressEvery is the notification interval in states. <= 0 disables
	// progress notifications.
	ProgressEvery int
}

// DefaultOptions returns deadlock checking on, the exact store, the default
// max trace length, and stop at first violation.
func DefaultOptions() Options {
	return Options{
		CheckDeadlocks: true,
		Store:          visited.Exact,
		MaxTraceLength: DefaultMaxTraceLength,
		StopAtFirst:    true,
		ProgressEvery:  DefaultProgressEvery,
	}
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithDeadlockCheck enables or disables deadlock detection.
func WithDeadlockCheck(on bool) Option {
	return func(v *Verifier) {
		v.opts.CheckDeadlocks = on
	}
}

// WithStore selects the visited-state store kind.
func WithStore(k visited.Kind) Option {
	return func(v *Verifier) {
		v.opts.Store = k
	}
}

// WithMaxTraceLength sets the trace length bound.
func WithMaxTraceLength(n int) Option {
	return func(v *Verifier) {
		v.opts.MaxTraceLength = n
	}
}

// WithStopAtFirst controls whether the search ends at the first violation.
func WithStopAtFirst(stop bool) Option {
	return func(v *Verifier) {
		v.opts.StopAtFirst = stop
	}
}

// WithProgressEvery sets the progress notification interval.
func WithProgressEvery(n int) Option {
	return func(v *Verifier) {
		v.opts.ProgressEvery = n
	}
}

// WithOptions replaces all options at once.
func WithOptions(o Options) Option {
	return func(v *Verifier) {
		v.opts = o
	}
}

// WithListener adds a verification listener.
func WithListener(l Listener) Option {
	return func(v *Verifier) {
		v.listeners = append(v.listeners, l)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = l
	}
}
