// Package parallel implements an experimental sharded driver: input is
// split across workers by cache-set index, each worker owns a private
// Engine, and per-shard StatsBlocks are summed after the batch
// completes. This approximates, but does not reproduce, the sequential
// engine, because a peer invalidation triggered by one set never
// reaches a different worker's private cache fleet. Use it only where
// that approximation is acceptable; the sequential engine
// (internal/engine) remains the reference behavior.
package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"

	"memtrace/internal/engine"
	"memtrace/internal/stats"
	"memtrace/internal/tracefmt"
)

// Driver runs Shards independent engines, each built from the same
// Config, sharded by address-derived set index modulo Shards.
type Driver struct {
	Config engine.Config
	Shards int
}

// New returns a Driver. Shards must be at least 1; 1 makes this
// equivalent to (but slower than) running engine.Engine directly.
func New(cfg engine.Config, shards int) *Driver {
	if shards < 1 {
		shards = 1
	}
	return &Driver{Config: cfg, Shards: shards}
}

// Run drains recs, dispatching each record to the shard owning its
// address's set index, and returns the merged StatsBlock once every
// shard has drained its channel or an error/cancellation occurs. Every
// record is replayed under the same tid, matching the reference
// drivers, which never vary it mid-trace.
func (d *Driver) Run(ctx context.Context, recs <-chan tracefmt.Record, tid int) (stats.Block, error) {
	shardChans := make([]chan tracefmt.Record, d.Shards)
	for i := range shardChans {
		shardChans[i] = make(chan tracefmt.Record, 256)
	}
	results := make([]stats.Block, d.Shards)

	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < d.Shards; i++ {
		i := i
		g.Go(func() error {
			eng, err := engine.New(d.Config)
			if err != nil {
				return err
			}
			for rec := range shardChans[i] {
				if err := eng.MemAccess(rec.Address, rec.Access, tid); err != nil {
					return err
				}
			}
			results[i] = eng.Stats
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, ch := range shardChans {
				close(ch)
			}
		}()
		geom := d.Config.Geometry
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rec, ok := <-recs:
				if !ok {
					return nil
				}
				shard := geom.Set(rec.Address) % uint64(d.Shards)
				select {
				case shardChans[shard] <- rec:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		return stats.Block{}, err
	}

	var total stats.Block
	for _, r := range results {
		total.Merge(r)
	}
	return total, nil
}
