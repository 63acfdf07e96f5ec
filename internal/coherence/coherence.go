// Package coherence implements the CoherenceEngine: the peer-cache scan
// and MOESI transition table that decide how a miss resolves across a
// fleet of per-domain SetCaches.
//
// The single-cache case is not special-cased here; with zero peers the
// scan always returns cacheset.Invalid and the table collapses on its
// own to Read->Exclusive / Write->Modified, the MESI fast path.
package coherence

import "memtrace/internal/cacheset"

// AccessType is the kind of access driving a transition. The prefetcher
// only ever issues Read; "is this a prefetch" is tracked separately by
// the engine for stats suppression, not by this package.
type AccessType int

const (
	Read AccessType = iota
	Write
)

// ScanPeers looks up (set, tag) in every cache except peers[localIdx],
// in index order, and classifies the result with priority
// Owned > Exclusive > Modified > Shared.
//
// Modified, Exclusive, and Owned all short-circuit the scan immediately
// on the first sighting: invariant 1 (at most one peer ever holds one of
// those three states for a given line) guarantees that whichever of the
// three is seen first is the only one present, so there is no need to
// keep looking for a higher-priority state among the remaining peers.
// Shared does not short-circuit, because a Shared peer can coexist with
// a distinct Owned peer elsewhere in the fleet (invariant 2); scanning
// continues in case a later peer holds Owned.
func ScanPeers(peers []cacheset.Cache, localIdx int, set, tag uint64) (state cacheset.State, peerIdx int) {
	remote := 0
	for i, peer := range peers {
		if i == localIdx {
			continue
		}
		switch peer.FindTag(set, tag) {
		case cacheset.Owned:
			return cacheset.Owned, i
		case cacheset.Exclusive:
			return cacheset.Exclusive, i
		case cacheset.Modified:
			return cacheset.Modified, i
		case cacheset.Shared:
			state = cacheset.Shared
			remote = i
		}
	}
	return state, remote
}

// Effect describes what a transition does to the rest of the fleet,
// beyond the new state the local cache should insert.
type Effect struct {
	// NewLocalState is the state InsertLine should use for the local
	// miss.
	NewLocalState cacheset.State

	// InvalidatePeers, when true, means every peer must have (set, tag)
	// set to Invalid (a write producing a unique Modified holder).
	InvalidatePeers bool

	// HolderState, when HasHolderUpdate is true, is the new state the
	// peer at peerIdx (as returned by ScanPeers) must transition to.
	HolderState    cacheset.State
	HasHolderUpdate bool

	// OtherCacheRead reports whether this transition should count
	// against stats.othercache_reads: every transition with a peer
	// holding the line except a Read against Shared peers, which counts
	// as a memory read instead. That includes the Owned-read case, where
	// the holder stays Owned but the transfer is still coherence traffic.
	OtherCacheRead bool
}

// Transition applies the MOESI table to (peerState, access) and reports
// the resulting local state plus any side effects on peer caches. The
// caller (internal/engine) applies Effect to the peer fleet and to
// stats; Transition itself does not mutate anything.
//
// Prefetches are always Read as far as this table is concerned. The
// engine is responsible for suppressing the prefetch's user-visible
// counters, not this function, which is why Effect carries
// OtherCacheRead unconditionally rather than folding in an is-prefetch
// flag.
func Transition(peerState cacheset.State, access AccessType) Effect {
	switch {
	case peerState == cacheset.Invalid && access == Read:
		return Effect{NewLocalState: cacheset.Exclusive}
	case peerState == cacheset.Invalid && access == Write:
		return Effect{NewLocalState: cacheset.Modified}
	case peerState == cacheset.Shared && access == Read:
		return Effect{NewLocalState: cacheset.Shared}
	case peerState == cacheset.Shared && access == Write:
		return Effect{NewLocalState: cacheset.Modified, InvalidatePeers: true, OtherCacheRead: true}
	case peerState == cacheset.Modified && access == Read:
		return Effect{NewLocalState: cacheset.Shared, HolderState: cacheset.Owned, HasHolderUpdate: true, OtherCacheRead: true}
	case peerState == cacheset.Owned && access == Read:
		// The holder is already Owned; no mutation needed, but it's
		// still coherence traffic.
		return Effect{NewLocalState: cacheset.Shared, OtherCacheRead: true}
	case peerState == cacheset.Exclusive && access == Read:
		return Effect{NewLocalState: cacheset.Shared, HolderState: cacheset.Shared, HasHolderUpdate: true, OtherCacheRead: true}
	case (peerState == cacheset.Modified || peerState == cacheset.Owned || peerState == cacheset.Exclusive) && access == Write:
		return Effect{NewLocalState: cacheset.Modified, InvalidatePeers: true, OtherCacheRead: true}
	default:
		panic("coherence: incomplete MOESI transition table")
	}
}

// Apply mutates the peer fleet according to Effect: invalidating every
// peer at (set, tag) or updating the single scanned holder, whichever
// the table called for. localIdx is excluded from InvalidatePeers the
// same way ScanPeers excludes it from the scan.
func Apply(peers []cacheset.Cache, localIdx int, set, tag uint64, peerIdx int, eff Effect) {
	if eff.InvalidatePeers {
		for i, peer := range peers {
			if i != localIdx {
				peer.ChangeState(set, tag, cacheset.Invalid)
			}
		}
		return
	}
	if eff.HasHolderUpdate {
		peers[peerIdx].ChangeState(set, tag, eff.HolderState)
	}
}
