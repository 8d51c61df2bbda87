package update

import (
	"bytes"
	"sort"
)

// skipSet is the ordered byte-set keyed by the storage comparator that
// spec §4.3 step 4 uses to remember keys an update moved forward in the
// same scan: once a row's key sorts higher than the cursor's current
// position, the updater would otherwise observe it a second time later in
// the same scan. evalRow consults this set and rejects any row whose key
// is in it.
//
// The set is held entirely in memory as a sorted slice. It has no size
// bound and no spill-to-disk policy: it grows with every key added, and
// len reports how many keys it holds.
type skipSet struct {
	keys [][]byte
}

// add inserts key, maintaining sorted order. Returns false if already
// present.
func (s *skipSet) add(key []byte) bool {
	i, ok := s.search(key)
	if ok {
		return false
	}
	s.keys = append(s.keys, nil)
	copy(s.keys[i+1:], s.keys[i:])
	s.keys[i] = append([]byte(nil), key...)
	return true
}

// remove deletes key if present. deleteInsert uses it to take back a
// skip-set insertion when exiting the update's nested scope fails.
func (s *skipSet) remove(key []byte) {
	i, ok := s.search(key)
	if !ok {
		return
	}
	s.keys = append(s.keys[:i], s.keys[i+1:]...)
}

// contains reports whether key is in the set.
func (s *skipSet) contains(key []byte) bool {
	_, ok := s.search(key)
	return ok
}

func (s *skipSet) search(key []byte) (int, bool) {
	i := sort.Search(len(s.keys), func(i int) bool {
		return bytes.Compare(s.keys[i], key) >= 0
	})
	return i, i < len(s.keys) && bytes.Equal(s.keys[i], key)
}

// len reports the number of keys currently being skipped.
func (s *skipSet) len() int { return len(s.keys) }
