package engine

import (
	"github.com/roach88/bpsync/internal/bthread"
	"github.com/roach88/bpsync/internal/event"
)

// Admissible returns the events requested by some snapshot and blocked by
// none, in snapshot order then request order, without duplicates.
func Admissible(snaps []*bthread.Snapshot) []event.Event {
	var out []event.Event
	seen := make(map[string]bool)
	for _, snap := range snaps {
		for _, e := range snap.Statement().Request {
			k := e.Key()
			if seen[k] {
				continue
			}
			seen[k] = true
			if !blocked(snaps, e) {
				out = append(out, e)
			}
		}
	}
	return out
}

// IsAdmissible reports whether e is admissible among snaps.
func IsAdmissible(snaps []*bthread.Snapshot, e event.Event) bool {
	requested := false
	for _, snap := range snaps {
		if snap.Statement().Requests(e) {
			requested = true
			break
		}
	}
	return requested && !blocked(snaps, e)
}

func blocked(snaps []*bthread.Snapshot, e event.Event) bool {
	for _, snap := range snaps {
		if snap.Statement().Blocks(e) {
			return true
		}
	}
	return false
}
