// Package visited provides the verifier's visited-state stores.
//
// Two stores share one interface and differ in their equivalence:
//
//   - Exact keeps every state's full canonical encoding and never merges two
//     distinct states.
//   - Hash keeps a 64-bit digest per state. It uses far less memory, but two
//     distinct states with the same digest are merged, and the search may
//     then skip a branch that holds a violation. Choosing Hash accepts that
//     unsoundness.
package visited

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/roach88/bpsync/internal/engine"
	"github.com/roach88/bpsync/internal/ir"
)

// Store records states the verifier has explored.
//
// Thread-safety: implementations are safe for concurrent use.
type Store interface {
	// HasVisited reports whether s (or, for Hash, a state with the same
	// digest) was marked.
	HasVisited(s *engine.State) bool

	// MarkVisited records s as reached at depth 0.
	MarkVisited(s *engine.State)

	// Reach records that s was reached at depth. expand reports whether s
	// was never reached before, or only at a greater depth, and so must be
	// (re-)expanded. known reports whether s was reached before at all.
	Reach(s *engine.State, depth int) (expand, known bool)

	// Len returns the number of distinct entries.
	Len() int

	// Kind reports the equivalence this store uses.
	Kind() Kind
}

// Kind selects a store implementation.
type Kind int

const (
	// Exact dedups by full structural equality.
	Exact Kind = iota
	// Hash dedups by a 64-bit digest. Unsound on collision.
	Hash
)

func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Hash:
		return "hash"
	}
	return "unknown"
}

// ParseKind parses "exact" or "hash".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "exact", "":
		return Exact, nil
	case "hash":
		return Hash, nil
	}
	return Exact, fmt.Errorf("unknown visited store kind %q (want exact or hash)", s)
}

// New creates an empty store of the given kind.
func New(k Kind) Store {
	if k == Hash {
		return NewHashStore()
	}
	return NewExactStore()
}

// ExactStore buckets canonical encodings by their SHA-256 digest and
// compares full bytes within a bucket, so even a digest collision cannot
// merge two states.
type ExactStore struct {
	mu      sync.Mutex
	buckets map[string][]exactEntry // map[digest]entries
	n       int
}

type exactEntry struct {
	canonical []byte
	depth     int
}

// NewExactStore creates an empty ExactStore.
func NewExactStore() *ExactStore {
	return &ExactStore{buckets: make(map[string][]exactEntry)}
}

// HasVisited implements Store.
func (x *ExactStore) HasVisited(s *engine.State) bool {
	canonical := s.Canonical()
	digest := s.Digest()

	x.mu.Lock()
	defer x.mu.Unlock()

	return x.find(digest, canonical) != nil
}

// MarkVisited implements Store. Marking a state twice is a no-op.
func (x *ExactStore) MarkVisited(s *engine.State) {
	x.Reach(s, 0)
}

// Reach implements Store.
func (x *ExactStore) Reach(s *engine.State, depth int) (expand, known bool) {
	canonical := s.Canonical()
	digest := s.Digest()

	x.mu.Lock()
	defer x.mu.Unlock()

	if e := x.find(digest, canonical); e != nil {
		if depth >= e.depth {
			return false, true
		}
		e.depth = depth
		return true, true
	}
	x.buckets[digest] = append(x.buckets[digest], exactEntry{canonical: canonical, depth: depth})
	x.n++
	return true, false
}

// find must be called with mu held.
func (x *ExactStore) find(digest string, canonical []byte) *exactEntry {
	bucket := x.buckets[digest]
	for i := range bucket {
		if bytes.Equal(bucket[i].canonical, canonical) {
			return &bucket[i]
		}
	}
	return nil
}

// Len implements Store.
func (x *ExactStore) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.n
}

// Kind implements Store.
func (x *ExactStore) Kind() Kind { return Exact }

// HashStore keeps only a 64-bit digest per state, with the smallest depth
// it was reached at.
type HashStore struct {
	mu   sync.Mutex
	seen map[uint64]int // map[digest]depth
	key  func(*engine.State) uint64
}

// NewHashStore creates an empty HashStore keyed by ir.ShortDigest of the
// state's canonical form.
func NewHashStore() *HashStore {
	return NewHashStoreFunc(func(s *engine.State) uint64 {
		return ir.ShortDigest(ir.DomainState, s.Canonical())
	})
}

// NewHashStoreFunc creates a HashStore with a custom digest. Tests use it to
// force collisions.
func NewHashStoreFunc(key func(*engine.State) uint64) *HashStore {
	return &HashStore{seen: make(map[uint64]int), key: key}
}

// HasVisited implements Store.
func (h *HashStore) HasVisited(s *engine.State) bool {
	k := h.key(s)

	h.mu.Lock()
	defer h.mu.Unlock()

	_, ok := h.seen[k]
	return ok
}

// MarkVisited implements Store.
func (h *HashStore) MarkVisited(s *engine.State) {
	h.Reach(s, 0)
}

// Reach implements Store.
func (h *HashStore) Reach(s *engine.State, depth int) (expand, known bool) {
	k := h.key(s)

	h.mu.Lock()
	defer h.mu.Unlock()

	prev, ok := h.seen[k]
	if ok && depth >= prev {
		return false, true
	}
	h.seen[k] = depth
	return true, ok
}

// Len implements Store.
func (h *HashStore) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

// Kind implements Store.
func (h *HashStore) Kind() Kind { return Hash }
