package parallel

import (
	"context"
	"testing"
	"time"

	"memtrace/internal/addr"
	"memtrace/internal/engine"
	"memtrace/internal/tracefmt"
)

func TestRunMergesShardStats(t *testing.T) {
	geom, err := addr.New(64, 128, 4, addr.Page4KiB)
	if err != nil {
		t.Fatalf("addr.New: %v", err)
	}
	cfg := engine.Config{Geometry: geom, NumDomains: 1, TidToDomain: []int{0}}
	d := New(cfg, 4)

	recs := make(chan tracefmt.Record, 8)
	recs <- tracefmt.Record{Access: tracefmt.Write, Address: 0x1000}
	recs <- tracefmt.Record{Access: tracefmt.Read, Address: 0x1000}
	recs <- tracefmt.Record{Access: tracefmt.Write, Address: 0x2000}
	close(recs)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	total, err := d.Run(ctx, recs, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if total.Accesses != 3 {
		t.Fatalf("accesses = %d, want 3", total.Accesses)
	}
	if total.Hits != 1 {
		t.Fatalf("hits = %d, want 1", total.Hits)
	}
}

func TestRunPropagatesEngineConstructionError(t *testing.T) {
	d := New(engine.Config{}, 2)
	recs := make(chan tracefmt.Record)
	close(recs)

	if _, err := d.Run(context.Background(), recs, 0); err == nil {
		t.Fatalf("expected error from invalid shard config")
	}
}
