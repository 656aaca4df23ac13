// Package event defines behavioral-programming events and event sets.
//
// An Event is an immutable labeled value with an optional payload. A Set is
// a membership predicate: sets compose (union, intersection, complement,
// difference) without ever enumerating their members, because wait-for and
// block sets are routinely infinite ("everything except X").
//
// Every Set renders a canonical String. Snapshot equality compares sets by
// that string, so two sets with the same String must accept the same events.
package event

import (
	"fmt"

	"github.com/roach88/bpsync/internal/ir"
)

// Event is a named occurrence with an optional payload.
// Equality is by name and canonical payload.
type Event struct {
	Name string
	Data ir.IRValue
}

// New creates an event without payload.
func New(name string) Event {
	return Event{Name: name}
}

// WithData creates an event carrying a payload.
func WithData(name string, data ir.IRValue) Event {
	return Event{Name: name, Data: data}
}

// HasData reports whether the event carries a non-null payload.
func (e Event) HasData() bool {
	if e.Data == nil {
		return false
	}
	_, isNull := e.Data.(ir.IRNull)
	return !isNull
}

// Equal reports whether two events have the same name and payload.
// A missing payload and an explicit null payload are the same.
func (e Event) Equal(o Event) bool {
	if e.Name != o.Name || e.HasData() != o.HasData() {
		return false
	}
	if !e.HasData() {
		return true
	}
	return ir.Equal(e.Data, o.Data)
}

// Key returns a string that is equal for equal events. Suitable as a map key.
func (e Event) Key() string {
	if !e.HasData() {
		return e.Name
	}
	return e.Name + "\x00" + string(ir.MustMarshalCanonical(e.Data))
}

// Contains makes every event a singleton set over itself.
func (e Event) Contains(o Event) bool {
	return e.Equal(o)
}

// String renders the event as [name] or [name data].
func (e Event) String() string {
	if !e.HasData() {
		return fmt.Sprintf("[%s]", e.Name)
	}
	return fmt.Sprintf("[%s %s]", e.Name, ir.MustMarshalCanonical(e.Data))
}

// IR returns the event as an IR object for canonical encoding.
func (e Event) IR() ir.IRObject {
	obj := ir.IRObject{"name": ir.IRString(e.Name)}
	if e.HasData() {
		obj["data"] = e.Data
	}
	return obj
}

// FromIR decodes an event produced by IR.
func FromIR(v ir.IRValue) (Event, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return Event{}, fmt.Errorf("event: expected object, got %T", v)
	}
	name, ok := obj["name"].(ir.IRString)
	if !ok || name == "" {
		return Event{}, fmt.Errorf("event: missing name")
	}
	return Event{Name: string(name), Data: obj["data"]}, nil
}

// Dedup returns events with duplicates removed, keeping first occurrences
// in order.
func Dedup(events []Event) []Event {
	seen := make(map[string]bool, len(events))
	out := make([]Event, 0, len(events))
	for _, e := range events {
		k := e.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}
