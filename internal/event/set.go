package event

import (
	"strings"

	"github.com/roach88/bpsync/internal/ir"
)

// Set is a predicate over events. Contains must be pure and must accept any
// event, including ones never seen before.
type Set interface {
	Contains(e Event) bool
	String() string
}

type allSet struct{}

func (allSet) Contains(Event) bool { return true }
func (allSet) String() string      { return "{AllEvents}" }

type noneSet struct{}

func (noneSet) Contains(Event) bool { return false }
func (noneSet) String() string      { return "{none}" }

var (
	// All contains every event (and, through Includes, every set).
	All Set = allSet{}

	// None contains nothing.
	None Set = noneSet{}
)

// Includes reports whether x belongs to s, where x is an Event or a Set used
// as a member value. The universal set includes both events and sets; any
// other set includes only events. Statement wait and block checks go through
// Includes, so it is the membership rule the engine selects events by.
func Includes(s Set, x any) bool {
	switch v := x.(type) {
	case Event:
		return s.Contains(v)
	case Set:
		_, universal := s.(allSet)
		return universal
	default:
		return false
	}
}

// OrNone returns s, or None when s is nil.
func OrNone(s Set) Set {
	if s == nil {
		return None
	}
	return s
}

type listSet struct {
	events []Event
}

// Of returns the finite set holding exactly the given events.
func Of(events ...Event) Set {
	switch len(events) {
	case 0:
		return None
	case 1:
		return events[0]
	}
	return listSet{events: Dedup(events)}
}

func (s listSet) Contains(e Event) bool {
	for _, m := range s.events {
		if m.Equal(e) {
			return true
		}
	}
	return false
}

func (s listSet) String() string {
	parts := make([]string, len(s.events))
	for i, e := range s.events {
		parts[i] = e.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

type nameSet struct {
	names []string
}

// ByName matches events by name, regardless of payload.
func ByName(names ...string) Set {
	if len(names) == 0 {
		return None
	}
	return nameSet{names: names}
}

func (s nameSet) Contains(e Event) bool {
	for _, n := range s.names {
		if n == e.Name {
			return true
		}
	}
	return false
}

func (s nameSet) String() string {
	return "name(" + strings.Join(s.names, ",") + ")"
}

type namedSet struct {
	name string
	pred func(Event) bool
}

// Named wraps a predicate under a name. The name is the set's identity:
// two named sets with the same name are treated as the same set.
func Named(name string, pred func(Event) bool) Set {
	return namedSet{name: name, pred: pred}
}

func (s namedSet) Contains(e Event) bool { return s.pred(e) }
func (s namedSet) String() string        { return s.name }

type unionSet struct {
	sets []Set
}

// AnyOf is the union of sets.
func AnyOf(sets ...Set) Set {
	switch len(sets) {
	case 0:
		return None
	case 1:
		return sets[0]
	}
	return unionSet{sets: sets}
}

func (s unionSet) Contains(e Event) bool {
	for _, m := range s.sets {
		if m.Contains(e) {
			return true
		}
	}
	return false
}

func (s unionSet) String() string {
	return "anyOf(" + joinSets(s.sets) + ")"
}

type intersectionSet struct {
	sets []Set
}

// AllOf is the intersection of sets. AllOf() with no arguments is All.
func AllOf(sets ...Set) Set {
	switch len(sets) {
	case 0:
		return All
	case 1:
		return sets[0]
	}
	return intersectionSet{sets: sets}
}

func (s intersectionSet) Contains(e Event) bool {
	for _, m := range s.sets {
		if !m.Contains(e) {
			return false
		}
	}
	return true
}

func (s intersectionSet) String() string {
	return "allOf(" + joinSets(s.sets) + ")"
}

type complementSet struct {
	set Set
}

// Not is the complement of s.
func Not(s Set) Set {
	return complementSet{set: s}
}

func (s complementSet) Contains(e Event) bool { return !s.set.Contains(e) }
func (s complementSet) String() string        { return "not(" + s.set.String() + ")" }

// Minus is the difference a \ b.
func Minus(a, b Set) Set {
	return AllOf(a, Not(b))
}

func joinSets(sets []Set) string {
	parts := make([]string, len(sets))
	for i, s := range sets {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}

// SetIR returns the canonical identity of s. Unlike String, which is for
// display, every member name is kept as its own IR string, so distinct sets
// built from this package never encode alike. Other Set implementations
// are identified by their String.
func SetIR(s Set) ir.IRValue {
	switch v := OrNone(s).(type) {
	case allSet:
		return ir.IRObject{"all": ir.IRBool(true)}
	case noneSet:
		return ir.IRObject{"none": ir.IRBool(true)}
	case Event:
		return ir.IRObject{"event": v.IR()}
	case listSet:
		members := make(ir.IRArray, len(v.events))
		for i, e := range v.events {
			members[i] = e.IR()
		}
		return ir.IRObject{"of": members}
	case nameSet:
		names := make(ir.IRArray, len(v.names))
		for i, n := range v.names {
			names[i] = ir.IRString(n)
		}
		return ir.IRObject{"name": names}
	case namedSet:
		return ir.IRObject{"named": ir.IRString(v.name)}
	case unionSet:
		return ir.IRObject{"anyOf": setsIR(v.sets)}
	case intersectionSet:
		return ir.IRObject{"allOf": setsIR(v.sets)}
	case complementSet:
		return ir.IRObject{"not": SetIR(v.set)}
	default:
		return ir.IRObject{"set": ir.IRString(v.String())}
	}
}

func setsIR(sets []Set) ir.IRArray {
	out := make(ir.IRArray, len(sets))
	for i, s := range sets {
		out[i] = SetIR(s)
	}
	return out
}
