// Package addr implements the AddressDecoder: a pure function of cache
// geometry that splits a memory address into its set index, tag, and
// NUMA page number.
package addr

import (
	"fmt"

	"memtrace/internal/simerr"
	"memtrace/internal/util"
)

// PageSize selects the granularity of the first-touch NUMA page map.
type PageSize int

const (
	// Page4KiB selects standard 4 KiB pages.
	Page4KiB PageSize = iota
	// Page2MiB selects huge 2 MiB pages.
	Page2MiB
)

func (p PageSize) shift() uint {
	switch p {
	case Page2MiB:
		return 21
	default:
		return 12
	}
}

// Geometry holds the derived masks and shifts for one cache's address
// layout. It is computed once at construction and never mutated.
//
// tag strips both the line-offset bits and the set-index bits, the
// standard cache-tag definition: two addresses that differ only in their
// set-index bits have equal tags. A cache line is identified by the
// (set, tag) pair together, never by tag alone, which is why every
// Cache method takes both.
type Geometry struct {
	LineSize uint64
	NumSets  uint64
	Assoc    uint64

	lineMask  uint64
	setShift  uint
	setMask   uint64
	tagMask   uint64
	pageMask  uint64
	pageShift uint
}

// New derives a Geometry from line_size (bytes, power of two), num_lines
// (total lines, a multiple of assoc), assoc, and the page granularity used
// by the NUMA page map. It returns simerr.ConfigInvalid if any constraint
// is violated.
func New(lineSize, numLines, assoc uint64, pageSize PageSize) (*Geometry, error) {
	if lineSize == 0 || !util.IsPow2(lineSize) {
		return nil, fmt.Errorf("%w: line_size %d is not a power of two", simerr.ConfigInvalid, lineSize)
	}
	if assoc == 0 || numLines%assoc != 0 {
		return nil, fmt.Errorf("%w: num_lines %d is not a multiple of assoc %d", simerr.ConfigInvalid, numLines, assoc)
	}
	numSets := numLines / assoc
	if !util.IsPow2(numSets) {
		return nil, fmt.Errorf("%w: num_lines/assoc %d is not a power of two", simerr.ConfigInvalid, numSets)
	}

	setShift := util.Log2(lineSize)
	g := &Geometry{
		LineSize:  lineSize,
		NumSets:   numSets,
		Assoc:     assoc,
		lineMask:  lineSize - 1,
		setShift:  setShift,
		setMask:   (numSets - 1) << setShift,
		pageShift: pageSize.shift(),
	}
	g.pageMask = ^uint64(0) << g.pageShift
	g.tagMask = ^(g.setMask | g.lineMask)
	return g, nil
}

// SetShift returns the number of offset bits stripped to reach the first
// set-index bit; it also doubles as the "line step" used by prefetchers to
// advance to the next line.
func (g *Geometry) SetShift() uint {
	return g.setShift
}

// LineStep is the address delta between consecutive cache lines.
func (g *Geometry) LineStep() uint64 {
	return 1 << g.setShift
}

// Decode splits addr into its set index, tag, and containing page.
func (g *Geometry) Decode(address uint64) (set, tag, page uint64) {
	set = (address & g.setMask) >> g.setShift
	tag = address & g.tagMask
	page = address & g.pageMask
	return
}

// Set returns just the set index of address.
func (g *Geometry) Set(address uint64) uint64 {
	return (address & g.setMask) >> g.setShift
}

// Tag returns just the tag of address.
func (g *Geometry) Tag(address uint64) uint64 {
	return address & g.tagMask
}

// Page returns just the containing page of address.
func (g *Geometry) Page(address uint64) uint64 {
	return address & g.pageMask
}

// Line returns the line-aligned address (address with offset bits cleared),
// used to key the compulsory-miss set.
func (g *Geometry) Line(address uint64) uint64 {
	return address &^ g.lineMask
}

// PageShift returns the log2 of the page size used by the NUMA page map.
func (g *Geometry) PageShift() uint {
	return g.pageShift
}
