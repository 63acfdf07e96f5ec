// Command membench drives AccessEngine with a synthetic pseudo-random
// address stream instead of a recorded trace, reporting throughput and
// the resulting StatsBlock. It exercises nothing but the public
// engine.MemAccess entry point, the same way the reference simulator's
// own drivers never reach past memAccess into engine internals.
package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"memtrace/internal/addr"
	"memtrace/internal/engine"
	"memtrace/internal/prefetch"
	"memtrace/internal/simerr"
	"memtrace/internal/stats"
	"memtrace/internal/util"
)

func run() error {
	lineSize := flag.Uint64("line-size", 64, "cache line size in bytes (power of two)")
	numLines := flag.Uint64("num-lines", 1024, "total cache lines (multiple of -assoc)")
	assoc := flag.Uint64("assoc", 8, "set associativity")
	workingSet := flag.Uint64("working-set", 1<<24, "span of addresses drawn from, in bytes")
	accesses := flag.Uint64("accesses", 1_000_000, "number of accesses to issue")
	writeFraction := flag.Float64("write-fraction", 0.3, "fraction of accesses that are writes, in [0,1]")
	seed := flag.Uint64("seed", 1, "PRNG seed")
	prefetcher := flag.String("prefetcher", "none", "none|adjacent|sequential")
	flag.Parse()

	geom, err := addr.New(*lineSize, *numLines, *assoc, addr.Page4KiB)
	if err != nil {
		return err
	}
	if *workingSet == 0 || !util.IsPow2(*workingSet) {
		return fmt.Errorf("%w: -working-set %d is not a power of two", simerr.ConfigInvalid, *workingSet)
	}

	var pf prefetch.Prefetcher
	switch *prefetcher {
	case "none":
		pf = prefetch.Null{}
	case "adjacent":
		pf = prefetch.NewAdjacent(geom)
	case "sequential":
		pf = prefetch.NewSequential(geom)
	default:
		return fmt.Errorf("%w: unrecognized prefetcher %q", simerr.ConfigInvalid, *prefetcher)
	}

	eng, err := engine.New(engine.Config{
		Geometry:    geom,
		NumDomains:  1,
		TidToDomain: []int{0},
		Prefetcher:  pf,
	})
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9E3779B97F4A7C15))
	mask := *workingSet - 1

	start := time.Now()
	for i := uint64(0); i < *accesses; i++ {
		address := rng.Uint64() & mask
		access := engine.Read
		if rng.Float64() < *writeFraction {
			access = engine.Write
		}
		if err := eng.MemAccess(address, access, 0); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("Issued %d accesses in %s (%.0f accesses/sec)\n",
		*accesses, elapsed, float64(*accesses)/elapsed.Seconds())
	stats.Fprint(os.Stdout, "StatsBlock", &eng.Stats)
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "membench: %v\n", err)
		os.Exit(1)
	}
}
