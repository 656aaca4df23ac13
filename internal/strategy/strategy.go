// Package strategy provides event selection strategies for engine.Runner.
//
// A strategy is pure policy: given the live snapshots and the non-empty
// admissible list, it returns one admissible event. Decorators (Logging,
// Observe) wrap another strategy and never change its choice.
package strategy

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/exp/rand"

	"github.com/roach88/bpsync/internal/bthread"
	"github.com/roach88/bpsync/internal/engine"
	"github.com/roach88/bpsync/internal/event"
)

// Simple picks the first admissible event: thread order, then request order.
type Simple struct{}

// Select implements engine.Strategy.
func (Simple) Select(_ []*bthread.Snapshot, admissible []event.Event) (event.Event, bool) {
	if len(admissible) == 0 {
		return event.Event{}, false
	}
	return admissible[0], true
}

// Random picks uniformly among admissible events using a seeded source, so
// a run is reproducible from its seed.
type Random struct {
	mu   sync.Mutex
	rand *rand.Rand
	seed uint64
}

// NewRandom creates a Random strategy seeded with seed.
func NewRandom(seed uint64) *Random {
	return &Random{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the seed the strategy was created with.
func (r *Random) Seed() uint64 {
	return r.seed
}

// Select implements engine.Strategy.
func (r *Random) Select(_ []*bthread.Snapshot, admissible []event.Event) (event.Event, bool) {
	if len(admissible) == 0 {
		return event.Event{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return admissible[r.rand.Intn(len(admissible))], true
}

// Priority picks the admissible event with the highest weight, by event
// name. Unlisted events weigh 0. Ties go to the earlier event.
type Priority struct {
	Weights map[string]int
}

// Select implements engine.Strategy.
func (p Priority) Select(_ []*bthread.Snapshot, admissible []event.Event) (event.Event, bool) {
	if len(admissible) == 0 {
		return event.Event{}, false
	}
	best := 0
	for i := 1; i < len(admissible); i++ {
		if p.Weights[admissible[i].Name] > p.Weights[admissible[best].Name] {
			best = i
		}
	}
	return admissible[best], true
}

// Replay picks events from a recorded sequence. When the sequence runs out,
// or the next recorded event is not admissible, it hands over to Fallback;
// with no Fallback it stops the run.
type Replay struct {
	mu       sync.Mutex
	events   []event.Event
	pos      int
	Fallback engine.Strategy
}

// NewReplay creates a Replay strategy over events.
func NewReplay(events []event.Event, fallback engine.Strategy) *Replay {
	return &Replay{events: events, Fallback: fallback}
}

// Position returns how many recorded events have been replayed.
func (r *Replay) Position() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}

// Select implements engine.Strategy.
func (r *Replay) Select(snaps []*bthread.Snapshot, admissible []event.Event) (event.Event, bool) {
	r.mu.Lock()
	if r.pos < len(r.events) {
		want := r.events[r.pos]
		for _, e := range admissible {
			if e.Equal(want) {
				r.pos++
				r.mu.Unlock()
				return e, true
			}
		}
	}
	r.mu.Unlock()

	if r.Fallback == nil {
		return event.Event{}, false
	}
	return r.Fallback.Select(snaps, admissible)
}

// Observer is told about every choice a decorated strategy makes.
type Observer func(admissible []event.Event, chosen event.Event, ok bool)

type observed struct {
	inner    engine.Strategy
	observer Observer
}

// Observe wraps inner so that observer sees each choice. The choice itself
// is inner's.
func Observe(inner engine.Strategy, observer Observer) engine.Strategy {
	return observed{inner: inner, observer: observer}
}

func (o observed) Select(snaps []*bthread.Snapshot, admissible []event.Event) (event.Event, bool) {
	e, ok := o.inner.Select(snaps, admissible)
	o.observer(admissible, e, ok)
	return e, ok
}

// Logging wraps inner and logs every choice at debug level.
func Logging(inner engine.Strategy, logger *slog.Logger) engine.Strategy {
	return Observe(inner, func(admissible []event.Event, chosen event.Event, ok bool) {
		if !ok {
			logger.Debug("strategy declined", "admissible", len(admissible))
			return
		}
		logger.Debug("event chosen",
			"event", chosen.String(),
			"admissible", len(admissible),
		)
	})
}

// Names lists the strategies ByName knows, default first.
var Names = []string{"simple", "random", "priority"}

// ByName builds a named strategy. seed is used by "random" and weights by
// "priority"; an empty name means "simple".
func ByName(name string, seed uint64, weights map[string]int) (engine.Strategy, error) {
	switch name {
	case "", "simple":
		return Simple{}, nil
	case "random":
		return NewRandom(seed), nil
	case "priority":
		return Priority{Weights: weights}, nil
	}
	return nil, fmt.Errorf("unknown strategy %q: must be one of %v", name, Names)
}
