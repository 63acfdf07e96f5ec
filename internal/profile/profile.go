// Package profile exports per-set miss counts as a pprof profile, so a
// hot-set skew in a trace can be inspected with `go tool pprof` instead
// of squinting at a StatsBlock dump. Each run is stamped with a uuid so
// successive exports from the same scenario never collide on disk.
package profile

import (
	"fmt"
	"io"
	"sort"

	"github.com/google/pprof/profile"
	"github.com/google/uuid"
)

// SetMisses maps a cache-set index to the number of misses recorded
// against it over a run.
type SetMisses map[uint64]int64

// NewRunID returns a fresh identifier for one export, suitable for use
// in a file name.
func NewRunID() string {
	return uuid.NewString()
}

// Export encodes misses as a pprof profile with one synthetic location
// per set, each carrying a single "misses" sample value, and writes the
// gzip-compressed proto to w. runID is stamped into the profile's
// Comments field so exports from distinct runs of the same scenario
// stay distinguishable after the fact.
func Export(w io.Writer, runID string, misses SetMisses) error {
	sets := make([]uint64, 0, len(misses))
	for set := range misses {
		sets = append(sets, set)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i] < sets[j] })

	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "misses", Unit: "count"}},
		PeriodType: &profile.ValueType{Type: "misses", Unit: "count"},
		Period:     1,
		Comments:   []string{"run: " + runID},
	}

	for i, set := range sets {
		id := uint64(i + 1)
		fn := &profile.Function{ID: id, Name: fmt.Sprintf("set[%d]", set)}
		loc := &profile.Location{ID: id, Line: []profile.Line{{Function: fn, Line: 1}}}
		p.Function = append(p.Function, fn)
		p.Location = append(p.Location, loc)
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{misses[set]},
		})
	}

	return p.Write(w)
}
