// Package stats implements StatsBlock: the monotonic counters the engine
// maintains while replaying a trace, plus a pretty-printer.
//
// The printer walks a counters struct with reflection and renders every
// int64 counter field found, unconditionally: unlike an in-kernel stats
// block compiled out by default to avoid instrumenting hot paths, a
// StatsBlock here *is* the point of the run, so there is no flag gating
// it. golang.org/x/text/message groups large counters for readability.
package stats

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Block holds every counter StatsBlock defines. Only non-prefetch
// operations increment any counter here except Prefetched (which counts
// prefetch issuances) and OthercacheReads, which also rises for prefetch-
// induced peer transitions (see internal/engine).
type Block struct {
	Accesses        int64
	Hits            int64
	LocalReads      int64
	RemoteReads     int64
	OthercacheReads int64
	LocalWrites     int64
	RemoteWrites    int64
	Compulsory      int64
	Prefetched      int64
}

// Merge adds other's counters into b, the way biscuit/src/accnt.Accnt_t.Add
// folds one process's accounting into another's. Used by the experimental
// parallel driver to sum per-shard stats after a batch completes, never
// while shards are still running.
func (b *Block) Merge(other Block) {
	b.Accesses += other.Accesses
	b.Hits += other.Hits
	b.LocalReads += other.LocalReads
	b.RemoteReads += other.RemoteReads
	b.OthercacheReads += other.OthercacheReads
	b.LocalWrites += other.LocalWrites
	b.RemoteWrites += other.RemoteWrites
	b.Compulsory += other.Compulsory
	b.Prefetched += other.Prefetched
}

// Misses is a derived quantity, not a counter: Accesses - Hits.
func (b *Block) Misses() int64 {
	return b.Accesses - b.Hits
}

var printer = message.NewPrinter(language.English)

// Render walks st (expected to be a Block or a struct embedding one) with
// reflection and renders every int64 field as "Name: grouped-value",
// one per line, the same shape as Stats2String.
func Render(st any) string {
	v := reflect.ValueOf(st)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := v.Type()
	var b strings.Builder
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() == reflect.Struct && t.Field(i).Anonymous && f.CanInterface() {
			b.WriteString(Render(f.Interface()))
			continue
		}
		if f.Kind() != reflect.Int64 {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", t.Field(i).Name, printer.Sprintf("%d", f.Int()))
	}
	return b.String()
}

// Fprint writes Render(st) to w, preceded by a title line.
func Fprint(w io.Writer, title string, st any) {
	fmt.Fprintf(w, "%s\n", title)
	fmt.Fprint(w, Render(st))
}
