// Package cacheset implements SetCache: one set-associative cache of N
// sets by W ways, each way holding a {tag, coherence state} line, with
// true per-set LRU.
//
// Two backing implementations satisfy the same Cache interface. SliceSet is
// the default (an ordered slice beats a hash-indexed LRU in constants for
// the W <= 64 typical case); HashSet trades that constant-factor win for
// O(1)-amortized lookups when W is large.
package cacheset

import "fmt"

// State is a cache line's MOESI coherence state.
type State int

const (
	// Invalid means the line is absent (or present but stale; the two
	// are indistinguishable by design).
	Invalid State = iota
	Shared
	Exclusive
	Owned
	Modified
)

func (s State) String() string {
	switch s {
	case Invalid:
		return "I"
	case Shared:
		return "S"
	case Exclusive:
		return "E"
	case Owned:
		return "O"
	case Modified:
		return "M"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Cache is the operations SetCache exposes, scoped to a single set index.
// Every operation runs in O(W). Implementations are owned exclusively by
// one domain and are never mutated concurrently; neither implementation
// takes a lock.
type Cache interface {
	// FindTag returns the state of the entry whose tag equals tag and
	// whose state is not Invalid, or Invalid if no such entry exists.
	FindTag(set uint64, tag uint64) State

	// ChangeState sets the state of the non-Invalid entry with the given
	// tag, if one exists. It is a no-op otherwise. Setting Invalid is how
	// lines are downgraded/invalidated.
	ChangeState(set uint64, tag uint64, state State)

	// UpdateLRU moves the entry with the given tag to the MRU position.
	// The tag must already be present and non-Invalid.
	UpdateLRU(set uint64, tag uint64)

	// CheckWriteback reports whether the current LRU entry of set is in
	// state Modified or Owned, and always returns its tag.
	CheckWriteback(set uint64) (needed bool, evictedTag uint64)

	// InsertLine evicts the current LRU entry (without re-checking
	// writeback) and inserts {tag, state} at the MRU position. tag must
	// not already be present with a non-Invalid state.
	InsertLine(set uint64, tag uint64, state State)

	// NumSets returns the number of sets.
	NumSets() uint64

	// Assoc returns the number of ways per set.
	Assoc() uint64
}
