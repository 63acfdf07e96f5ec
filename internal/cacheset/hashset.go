package cacheset

import "container/list"

// HashSet is the large-associativity SetCache backing: each set pairs a
// map[tag]*list.Element with a doubly-linked list for O(1) lookup and
// O(1) LRU maintenance, at the cost of the constant-factor overhead a
// plain slice scan avoids for small W.
//
// This adapts the bucket/chain shape of biscuit's hashtable.Hashtable_t
// to a single-owner structure: SetCache is never shared across
// goroutines, so the bucket locks and atomic pointer loads that made
// the original lock-free for concurrent readers are dropped entirely;
// container/list plus a plain map is enough.
type HashSet struct {
	sets  []hashSetEntry
	assoc uint64
}

type hashSetEntry struct {
	order *list.List // front = MRU, back = LRU
	index map[uint64]*list.Element
}

func (e *hashSetEntry) get(tag uint64) (*line, bool) {
	el, ok := e.index[tag]
	if !ok {
		return nil, false
	}
	return el.Value.(*line), true
}

// NewHash allocates a HashSet with numSets sets of assoc ways each, every
// way starting Invalid with a distinct placeholder tag.
func NewHash(numSets, assoc uint64) *HashSet {
	hc := &HashSet{
		sets:  make([]hashSetEntry, numSets),
		assoc: assoc,
	}
	for s := range hc.sets {
		e := hashSetEntry{order: list.New(), index: make(map[uint64]*list.Element, assoc)}
		for w := uint64(0); w < assoc; w++ {
			l := &line{tag: w, state: Invalid}
			el := e.order.PushBack(l)
			e.index[w] = el
		}
		hc.sets[s] = e
	}
	return hc
}

func (hc *HashSet) NumSets() uint64 { return uint64(len(hc.sets)) }
func (hc *HashSet) Assoc() uint64   { return hc.assoc }

func (hc *HashSet) FindTag(set, tag uint64) State {
	l, ok := hc.sets[set].get(tag)
	if !ok || l.state == Invalid {
		return Invalid
	}
	return l.state
}

func (hc *HashSet) ChangeState(set, tag uint64, state State) {
	if l, ok := hc.sets[set].get(tag); ok && l.state != Invalid {
		l.state = state
	}
}

func (hc *HashSet) UpdateLRU(set, tag uint64) {
	e := &hc.sets[set]
	el, ok := e.index[tag]
	if !ok || el.Value.(*line).state == Invalid {
		panic("cacheset: UpdateLRU of absent tag")
	}
	e.order.MoveToFront(el)
}

func (hc *HashSet) CheckWriteback(set uint64) (needed bool, evictedTag uint64) {
	lru := hc.sets[set].order.Back().Value.(*line)
	return lru.state == Modified || lru.state == Owned, lru.tag
}

func (hc *HashSet) InsertLine(set, tag uint64, state State) {
	e := &hc.sets[set]
	back := e.order.Back()
	evicted := back.Value.(*line)
	// A placeholder or stale way can carry the same tag as a live line
	// inserted later; only drop the index entry if it points at this way.
	if e.index[evicted.tag] == back {
		delete(e.index, evicted.tag)
	}

	evicted.tag = tag
	evicted.state = state
	e.order.MoveToFront(back)
	e.index[tag] = back
}
