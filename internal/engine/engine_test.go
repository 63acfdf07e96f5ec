package engine

import (
	"testing"

	"memtrace/internal/addr"
	"memtrace/internal/cacheset"
	"memtrace/internal/prefetch"
)

// geometry shared by every scenario below: line_size=64, num_lines=128,
// assoc=4 => 32 sets, set_shift=6.
func testGeometry(t *testing.T) *addr.Geometry {
	t.Helper()
	g, err := addr.New(64, 128, 4, addr.Page4KiB)
	if err != nil {
		t.Fatalf("addr.New: %v", err)
	}
	return g
}

func mustEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// Scenario 1: W@0x0 -> R@0x0.
func TestScenario1WriteThenReadSameLine(t *testing.T) {
	e := mustEngine(t, Config{Geometry: testGeometry(t), NumDomains: 1, TidToDomain: []int{0}})

	must(t, e.MemAccess(0x0, Write, 0))
	must(t, e.MemAccess(0x0, Read, 0))

	want := stat{accesses: 2, hits: 1, localReads: 1, localWrites: 0}
	checkStats(t, e, want)
}

// Scenario 2: continuing (1), three more writes all mapping to set 0.
func TestScenario2ThreeMoreWritesSameSet(t *testing.T) {
	e := mustEngine(t, Config{Geometry: testGeometry(t), NumDomains: 1, TidToDomain: []int{0}})

	must(t, e.MemAccess(0x0, Write, 0))
	must(t, e.MemAccess(0x0, Read, 0))
	must(t, e.MemAccess(0x0001000000000000, Write, 0))
	must(t, e.MemAccess(0x0002000000000000, Write, 0))
	must(t, e.MemAccess(0x0003000000000000, Write, 0))

	checkStats(t, e, stat{accesses: 5, hits: 1, localReads: 4})
}

// Scenario 3: continuing (2), a fifth unique tag evicts the set's LRU
// (the original 0x0 line), which then misses on re-access.
func TestScenario3FifthTagEvictsOriginal(t *testing.T) {
	e := mustEngine(t, Config{Geometry: testGeometry(t), NumDomains: 1, TidToDomain: []int{0}})

	must(t, e.MemAccess(0x0, Write, 0))
	must(t, e.MemAccess(0x0, Read, 0))
	must(t, e.MemAccess(0x0001000000000000, Write, 0))
	must(t, e.MemAccess(0x0002000000000000, Write, 0))
	must(t, e.MemAccess(0x0003000000000000, Write, 0))

	must(t, e.MemAccess(0x0004000000000000, Write, 0))
	must(t, e.MemAccess(0x0, Read, 0))

	checkStats(t, e, stat{localReads: 6, hits: 1})
}

// Scenario 4: continuing (2), an LRU-bumping read of 0x0 protects it from
// the next eviction; some other line is evicted instead.
func TestScenario4LRUBumpProtectsLine(t *testing.T) {
	e := mustEngine(t, Config{Geometry: testGeometry(t), NumDomains: 1, TidToDomain: []int{0}})

	must(t, e.MemAccess(0x0, Write, 0))
	must(t, e.MemAccess(0x0, Read, 0))
	must(t, e.MemAccess(0x0001000000000000, Write, 0))
	must(t, e.MemAccess(0x0002000000000000, Write, 0))
	must(t, e.MemAccess(0x0003000000000000, Write, 0))

	must(t, e.MemAccess(0x0, Read, 0))
	must(t, e.MemAccess(0x0004000000000000, Write, 0))
	must(t, e.MemAccess(0x0, Read, 0))

	checkStats(t, e, stat{hits: 3, localReads: 5})
}

// Scenario 5: two domains. tid 0 writes a line, tid 1 reads it: the
// domain-0 holder drops to Owned, domain 1 gets Shared, and exactly one
// othercache_reads is recorded.
func TestScenario5TwoDomainWriteThenRemoteRead(t *testing.T) {
	e := mustEngine(t, Config{Geometry: testGeometry(t), NumDomains: 2, TidToDomain: []int{0, 1}})

	must(t, e.MemAccess(0xA000, Write, 0))
	must(t, e.MemAccess(0xA000, Read, 1))

	set, tag, _ := e.geom.Decode(0xA000)
	if got := e.caches[0].FindTag(set, tag); got != cacheset.Owned {
		t.Fatalf("domain 0 state = %v, want Owned", got)
	}
	if got := e.caches[1].FindTag(set, tag); got != cacheset.Shared {
		t.Fatalf("domain 1 state = %v, want Shared", got)
	}
	if e.Stats.OthercacheReads != 1 {
		t.Fatalf("othercache_reads = %d, want 1", e.Stats.OthercacheReads)
	}
	if e.Stats.LocalReads != 1 {
		t.Fatalf("local_reads = %d, want 1", e.Stats.LocalReads)
	}
	if e.Stats.RemoteWrites != 0 {
		t.Fatalf("remote_writes = %d, want 0", e.Stats.RemoteWrites)
	}
}

// Scenario 6: the sequential prefetcher fires three prefetches on a miss
// that continues the previous miss's set by exactly one.
func TestScenario6SequentialStreamPrefetch(t *testing.T) {
	geom := testGeometry(t)
	e := mustEngine(t, Config{
		Geometry:    geom,
		NumDomains:  1,
		TidToDomain: []int{0},
		Prefetcher:  prefetch.NewSequential(geom),
	})

	must(t, e.MemAccess(0x1000, Read, 0))
	must(t, e.MemAccess(0x1040, Read, 0))

	if e.Stats.Prefetched != 3 {
		t.Fatalf("prefetched = %d, want 3", e.Stats.Prefetched)
	}
	if e.Stats.Accesses != 2 {
		t.Fatalf("accesses = %d, want 2 (prefetches must not count)", e.Stats.Accesses)
	}
	for _, want := range []uint64{0x1080, 0x10C0, 0x1100} {
		set, tag, _ := geom.Decode(want)
		if got := e.caches[0].FindTag(set, tag); got == cacheset.Invalid {
			t.Fatalf("expected prefetched line at %#x to be present, got Invalid", want)
		}
	}
}

func TestCompulsoryOffStaysZero(t *testing.T) {
	e := mustEngine(t, Config{Geometry: testGeometry(t), NumDomains: 1, TidToDomain: []int{0}})
	must(t, e.MemAccess(0x0, Write, 0))
	must(t, e.MemAccess(0x1000, Read, 0))
	if e.Stats.Compulsory != 0 {
		t.Fatalf("compulsory = %d, want 0 when disabled", e.Stats.Compulsory)
	}
}

func TestCompulsoryCountsFirstTouchOnly(t *testing.T) {
	e := mustEngine(t, Config{Geometry: testGeometry(t), NumDomains: 1, TidToDomain: []int{0}, CountCompulsory: true})
	must(t, e.MemAccess(0x0, Write, 0))
	must(t, e.MemAccess(0x0, Read, 0))
	must(t, e.MemAccess(0x1000, Read, 0))
	if e.Stats.Compulsory != 2 {
		t.Fatalf("compulsory = %d, want 2", e.Stats.Compulsory)
	}
	if e.Stats.Compulsory > e.Stats.Misses() {
		t.Fatalf("compulsory %d exceeds misses %d", e.Stats.Compulsory, e.Stats.Misses())
	}
}

func TestRepeatedAccessSecondIsAlwaysHit(t *testing.T) {
	e := mustEngine(t, Config{Geometry: testGeometry(t), NumDomains: 1, TidToDomain: []int{0}})
	must(t, e.MemAccess(0x1234, Read, 0))
	must(t, e.MemAccess(0x1234, Read, 0))
	if e.Stats.Hits != 1 || e.Stats.Misses() != 1 {
		t.Fatalf("hits=%d misses=%d, want 1 and 1", e.Stats.Hits, e.Stats.Misses())
	}
}

func TestSingleCacheNoPrefetcherReadsWritesSumToMisses(t *testing.T) {
	e := mustEngine(t, Config{Geometry: testGeometry(t), NumDomains: 1, TidToDomain: []int{0}})
	must(t, e.MemAccess(0x0, Write, 0))
	must(t, e.MemAccess(0x1000, Read, 0))
	must(t, e.MemAccess(0x0, Read, 0))
	must(t, e.MemAccess(0x2000, Write, 0))

	sum := e.Stats.LocalReads + e.Stats.LocalWrites
	if sum != e.Stats.Misses() {
		t.Fatalf("local_reads+local_writes=%d, misses=%d", sum, e.Stats.Misses())
	}
}

func TestMemAccessRejectsOutOfRangeTid(t *testing.T) {
	e := mustEngine(t, Config{Geometry: testGeometry(t), NumDomains: 1, TidToDomain: []int{0}})
	if err := e.MemAccess(0x1000, Read, 5); err == nil {
		t.Fatalf("expected TidOutOfRange, got nil")
	}
}

func TestNewRejectsBadDomainAssignment(t *testing.T) {
	_, err := New(Config{Geometry: testGeometry(t), NumDomains: 1, TidToDomain: []int{0, 2}})
	if err == nil {
		t.Fatalf("expected ConfigInvalid for out-of-range domain")
	}
}

type stat struct {
	accesses, hits, localReads, localWrites int64
}

func checkStats(t *testing.T, e *Engine, want stat) {
	t.Helper()
	if want.accesses != 0 && e.Stats.Accesses != want.accesses {
		t.Errorf("accesses = %d, want %d", e.Stats.Accesses, want.accesses)
	}
	if e.Stats.Hits != want.hits {
		t.Errorf("hits = %d, want %d", e.Stats.Hits, want.hits)
	}
	if e.Stats.LocalReads != want.localReads {
		t.Errorf("local_reads = %d, want %d", e.Stats.LocalReads, want.localReads)
	}
	if want.localWrites != 0 && e.Stats.LocalWrites != want.localWrites {
		t.Errorf("local_writes = %d, want %d", e.Stats.LocalWrites, want.localWrites)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
