// Package prefetch implements the Prefetcher variants: null, adjacent-line,
// and a sequential-stream model of AMD's L1 prefetcher.
//
// A Prefetcher never calls back into the full AccessEngine type directly;
// that would make this package import internal/engine, which imports this
// one. Instead each callback is handed a narrow Issuer through which it
// re-enters memAccess; internal/engine satisfies Issuer. The engine owns
// the prefetcher, never the reverse.
package prefetch

import "memtrace/internal/addr"

// Issuer is how a Prefetcher re-enters the engine. The only access type a
// prefetcher ever issues is a Read; is_prefetch is implied (always true)
// by the fact that this is the only way a Prefetcher can call in.
type Issuer interface {
	IssuePrefetch(address uint64, tid int)
}

// Prefetcher consumes hit/miss notifications for a single engine and may
// synthesize further accesses through Issuer. Implementations are
// stateful across calls: state lives per-engine, not per-thread.
type Prefetcher interface {
	// OnHit is called after a non-prefetch hit resolves. It returns the
	// number of prefetches issued.
	OnHit(address uint64, tid int, eng Issuer) int

	// OnMiss is called after a non-prefetch miss resolves (after the new
	// line has been inserted). It returns the number of prefetches
	// issued.
	OnMiss(address uint64, tid int, eng Issuer) int
}

// Null issues no prefetches.
type Null struct{}

func (Null) OnHit(uint64, int, Issuer) int  { return 0 }
func (Null) OnMiss(uint64, int, Issuer) int { return 0 }

// Adjacent issues one prefetch to the next line on every hit and every
// miss.
type Adjacent struct {
	geom *addr.Geometry
}

// NewAdjacent returns an adjacent-line prefetcher for the given geometry.
func NewAdjacent(geom *addr.Geometry) *Adjacent {
	return &Adjacent{geom: geom}
}

func (a *Adjacent) OnHit(address uint64, tid int, eng Issuer) int {
	eng.IssuePrefetch(address+a.geom.LineStep(), tid)
	return 1
}

func (a *Adjacent) OnMiss(address uint64, tid int, eng Issuer) int {
	eng.IssuePrefetch(address+a.geom.LineStep(), tid)
	return 1
}

// sequentialDepth is the number of lines the sequential-stream
// prefetcher issues on a confirmed miss streak.
const sequentialDepth = 3

// Sequential models AMD's L1 prefetcher: a sequential-line stream
// detector. On a miss that continues the same tag's set index by
// exactly one, it fires sequentialDepth prefetches ahead; a later hit
// that lands on the prefetched line advances the stream by one more.
type Sequential struct {
	geom         *addr.Geometry
	lastMiss     uint64
	lastPrefetch uint64
}

// NewSequential returns a sequential-stream prefetcher for the given
// geometry, with its history initialized to address 0 (matching the
// reference simulator, which never special-cases the very first access).
func NewSequential(geom *addr.Geometry) *Sequential {
	return &Sequential{geom: geom}
}

func (s *Sequential) OnMiss(address uint64, tid int, eng Issuer) int {
	set, tag, _ := s.geom.Decode(address)
	lastSet, lastTag, _ := s.geom.Decode(s.lastMiss)

	issued := 0
	if tag == lastTag && lastSet+1 == set {
		step := s.geom.LineStep()
		for k := uint64(1); k <= sequentialDepth; k++ {
			eng.IssuePrefetch(address+k*step, tid)
			issued++
		}
		s.lastPrefetch = address + step
	}
	s.lastMiss = address
	return issued
}

func (s *Sequential) OnHit(address uint64, tid int, eng Issuer) int {
	set, tag, _ := s.geom.Decode(address)
	lastSet, lastTag, _ := s.geom.Decode(s.lastPrefetch)

	if tag != lastTag || set != lastSet {
		return 0
	}
	step := s.geom.LineStep()
	eng.IssuePrefetch(address+sequentialDepth*step, tid)
	s.lastPrefetch += step
	return 1
}
