package cacheset

// line is one way within a set.
type line struct {
	tag   uint64
	state State
}

// SliceSet is the default SetCache backing: each set is a small ordered
// slice, index 0 is most-recently-used and index len-1 is
// least-recently-used. This mirrors the reference simulator's
// std::list<cacheLine> per set (front = LRU, back = MRU in the C++
// original; the convention is flipped here only because prepending to a
// Go slice reads more naturally as "move to the front").
type SliceSet struct {
	sets  [][]line
	assoc uint64
}

// NewSlice allocates a SliceSet with numSets sets of assoc ways each,
// every way starting Invalid with a distinct placeholder tag.
func NewSlice(numSets, assoc uint64) *SliceSet {
	sc := &SliceSet{
		sets:  make([][]line, numSets),
		assoc: assoc,
	}
	for s := range sc.sets {
		ways := make([]line, assoc)
		for w := range ways {
			ways[w] = line{tag: uint64(w), state: Invalid}
		}
		sc.sets[s] = ways
	}
	return sc
}

func (sc *SliceSet) NumSets() uint64 { return uint64(len(sc.sets)) }
func (sc *SliceSet) Assoc() uint64   { return sc.assoc }

func (sc *SliceSet) FindTag(set, tag uint64) State {
	for _, l := range sc.sets[set] {
		if l.tag == tag && l.state != Invalid {
			return l.state
		}
	}
	return Invalid
}

func (sc *SliceSet) ChangeState(set, tag uint64, state State) {
	ways := sc.sets[set]
	for i := range ways {
		if ways[i].tag == tag && ways[i].state != Invalid {
			ways[i].state = state
			return
		}
	}
}

func (sc *SliceSet) UpdateLRU(set, tag uint64) {
	ways := sc.sets[set]
	for i := range ways {
		if ways[i].tag == tag && ways[i].state != Invalid {
			l := ways[i]
			copy(ways[1:i+1], ways[0:i])
			ways[0] = l
			return
		}
	}
	panic("cacheset: UpdateLRU of absent tag")
}

func (sc *SliceSet) CheckWriteback(set uint64) (needed bool, evictedTag uint64) {
	lru := sc.sets[set][sc.assoc-1]
	return lru.state == Modified || lru.state == Owned, lru.tag
}

func (sc *SliceSet) InsertLine(set, tag uint64, state State) {
	ways := sc.sets[set]
	last := sc.assoc - 1
	copy(ways[1:], ways[:last])
	ways[0] = line{tag: tag, state: state}
}
