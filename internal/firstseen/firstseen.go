// Package firstseen tracks whether a key has ever been touched before,
// adapted from biscuit/src/caller.Distinct_caller_t, which detects the
// first call along each distinct ancestor-caller path. Here the same
// "have I seen this exact key before" shape tracks compulsory misses: a
// line address is compulsory the first time any non-prefetch access
// touches it.
package firstseen

// Set records which keys have been touched at least once. The engine
// owns one Set per run and mutates it only from the goroutine driving
// MemAccess, so unlike Distinct_caller_t, which guards concurrent
// kernel callers with a mutex, no locking is needed here.
type Set struct {
	seen map[uint64]struct{}
}

// New returns an empty Set.
func New() *Set {
	return &Set{seen: make(map[uint64]struct{})}
}

// Touch reports whether key has never been seen before, and records it
// as seen either way.
func (s *Set) Touch(key uint64) bool {
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Len returns the number of distinct keys recorded.
func (s *Set) Len() int {
	return len(s.seen)
}
