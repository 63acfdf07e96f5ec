// Package engine implements AccessEngine: the orchestrator that decodes
// one memory access, looks it up in its owning domain's SetCache, walks
// the hit or miss path, consults CoherenceEngine and PageMap, and
// updates StatsBlock, recursing into itself for any prefetches the
// configured Prefetcher chooses to issue.
package engine

import (
	"fmt"

	"memtrace/internal/addr"
	"memtrace/internal/cacheset"
	"memtrace/internal/coherence"
	"memtrace/internal/firstseen"
	"memtrace/internal/pagemap"
	"memtrace/internal/prefetch"
	"memtrace/internal/simerr"
	"memtrace/internal/stats"
)

// AccessType is the kind of access memAccess resolves. It is the same
// enum internal/coherence uses; the engine re-exports it so callers
// don't need to import coherence directly.
type AccessType = coherence.AccessType

const (
	Read  = coherence.Read
	Write = coherence.Write
)

// CacheFactory builds one domain's SetCache. cacheset.NewSlice and
// cacheset.NewHash both satisfy this signature.
type CacheFactory func(numSets, assoc uint64) cacheset.Cache

// Config describes everything needed to construct an Engine. Geometry,
// NumDomains, and TidToDomain are required; the rest have usable zero
// values (no compulsory counting, no address translation, no
// prefetching, slice-backed caches, unbounded physical page budget).
type Config struct {
	Geometry        *addr.Geometry
	NumDomains      int
	TidToDomain     []int
	CountCompulsory bool
	AddrTranslation bool
	Prefetcher      prefetch.Prefetcher
	CacheFactory    CacheFactory
	PhysPageBudget  int64
}

// Engine is a single AccessEngine: a fleet of per-domain SetCaches, one
// PageMap, one Prefetcher, and the StatsBlock they all feed. It is driven
// from exactly one goroutine and holds no locks.
type Engine struct {
	geom            *addr.Geometry
	caches          []cacheset.Cache
	pages           *pagemap.PageMap
	tidToDomain     []int
	countCompulsory bool
	addrTranslation bool
	prefetcher      prefetch.Prefetcher
	seen            *firstseen.Set
	missesBySet     map[uint64]int64

	// Stats accumulates every counter a non-prefetch access touches, plus
	// the narrow set of counters a prefetch touches too (OthercacheReads).
	Stats stats.Block
}

// New validates cfg and returns a ready Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Geometry == nil {
		return nil, fmt.Errorf("%w: geometry is required", simerr.ConfigInvalid)
	}
	if cfg.NumDomains <= 0 {
		return nil, fmt.Errorf("%w: num_domains must be positive", simerr.ConfigInvalid)
	}
	if len(cfg.TidToDomain) == 0 {
		return nil, fmt.Errorf("%w: tid_to_domain must not be empty", simerr.ConfigInvalid)
	}
	for tid, dom := range cfg.TidToDomain {
		if dom < 0 || dom >= cfg.NumDomains {
			return nil, fmt.Errorf("%w: tid_to_domain[%d]=%d out of range [0,%d)", simerr.ConfigInvalid, tid, dom, cfg.NumDomains)
		}
	}

	factory := cfg.CacheFactory
	if factory == nil {
		factory = cacheset.NewSlice
	}
	pf := cfg.Prefetcher
	if pf == nil {
		pf = prefetch.Null{}
	}

	caches := make([]cacheset.Cache, cfg.NumDomains)
	for i := range caches {
		caches[i] = factory(cfg.Geometry.NumSets, cfg.Geometry.Assoc)
	}

	return &Engine{
		geom:            cfg.Geometry,
		caches:          caches,
		pages:           pagemap.New(cfg.Geometry.PageShift(), cfg.PhysPageBudget),
		tidToDomain:     append([]int(nil), cfg.TidToDomain...),
		countCompulsory: cfg.CountCompulsory,
		addrTranslation: cfg.AddrTranslation,
		prefetcher:      pf,
		seen:            firstseen.New(),
		missesBySet:     make(map[uint64]int64),
	}, nil
}

// MissesBySet reports, for every set index that has ever recorded a
// miss, how many misses it has taken. It is intended for profile export
// (internal/profile), not for trace-accuracy checks.
func (e *Engine) MissesBySet() map[uint64]int64 {
	return e.missesBySet
}

// MemAccess resolves one non-prefetch access from thread tid. It is the
// engine's only public entry point; everything else (LRU maintenance,
// coherence transitions, NUMA classification, prefetch re-entry) is an
// internal consequence of this one call and never fails on its own
// account: the only error this returns is TidOutOfRange, caught before
// any state is touched.
func (e *Engine) MemAccess(address uint64, access AccessType, tid int) error {
	if tid < 0 || tid >= len(e.tidToDomain) {
		return simerr.TidOutOfRange
	}
	e.memAccess(address, access, tid, false)
	return nil
}

// IssuePrefetch satisfies prefetch.Issuer: it re-enters memAccess as a
// suppressed-stats Read. tid is always one the triggering MemAccess call
// already validated, so this never fails.
func (e *Engine) IssuePrefetch(address uint64, tid int) {
	e.memAccess(address, Read, tid, true)
}

func (e *Engine) memAccess(address uint64, access AccessType, tid int, isPrefetch bool) {
	if e.addrTranslation {
		address = e.pages.VirtToPhys(address)
	}
	if !isPrefetch {
		e.Stats.Accesses++
	}

	local := e.tidToDomain[tid]
	page := e.geom.Page(address)
	e.pages.RecordFirstTouch(page, local)

	set, tag, _ := e.geom.Decode(address)
	state := e.caches[local].FindTag(set, tag)
	hit := state != cacheset.Invalid

	if e.countCompulsory && !isPrefetch {
		if e.seen.Touch(e.geom.Line(address)) {
			e.Stats.Compulsory++
		}
	}

	if hit {
		e.resolveHit(set, tag, address, access, tid, local, isPrefetch)
		return
	}
	e.resolveMiss(set, tag, address, access, tid, local, isPrefetch)
}

func (e *Engine) resolveHit(set, tag, address uint64, access AccessType, tid, local int, isPrefetch bool) {
	if access == Write {
		e.caches[local].ChangeState(set, tag, cacheset.Modified)
		for i, c := range e.caches {
			if i != local {
				c.ChangeState(set, tag, cacheset.Invalid)
			}
		}
	}
	e.caches[local].UpdateLRU(set, tag)

	if !isPrefetch {
		e.Stats.Hits++
		e.Stats.Prefetched += int64(e.prefetcher.OnHit(address, tid, e))
	}
}

func (e *Engine) resolveMiss(set, tag, address uint64, access AccessType, tid, local int, isPrefetch bool) {
	e.missesBySet[set]++

	peerState, peerIdx := coherence.ScanPeers(e.caches, local, set, tag)

	if needed, evictedTag := e.caches[local].CheckWriteback(set); needed && !isPrefetch {
		evictedAddr := evictedTag | (set << e.geom.SetShift())
		evictedPage := e.geom.Page(evictedAddr)
		if e.pages.DomainOf(evictedPage) == local {
			e.Stats.LocalWrites++
		} else {
			e.Stats.RemoteWrites++
		}
	}

	localTraffic := e.pages.DomainOf(e.geom.Page(address)) == local

	eff := coherence.Transition(peerState, access)
	coherence.Apply(e.caches, local, set, tag, peerIdx, eff)

	// othercache_reads is the one counter prefetches still bump: a
	// prefetch-induced peer transition is real coherence traffic even
	// though the prefetch itself stays invisible everywhere else.
	if eff.OtherCacheRead {
		e.Stats.OthercacheReads++
	} else if !isPrefetch {
		if localTraffic {
			e.Stats.LocalReads++
		} else {
			e.Stats.RemoteReads++
		}
	}

	e.caches[local].InsertLine(set, tag, eff.NewLocalState)

	if !isPrefetch {
		e.Stats.Prefetched += int64(e.prefetcher.OnMiss(address, tid, e))
	}
}

// NumDomains reports how many per-domain caches this engine owns.
func (e *Engine) NumDomains() int {
	return len(e.caches)
}

// Geometry returns the address geometry the engine decodes with.
func (e *Engine) Geometry() *addr.Geometry {
	return e.geom
}
