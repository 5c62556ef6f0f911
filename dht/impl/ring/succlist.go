package ring

import (
	"sync"

	"github.com/nettlebay/seeks/dht/impl/key"
)

// DefaultSuccListLength is the successor list length used when the
// configuration does not override it.
const DefaultSuccListLength = 8

// SuccessorList is the ordered list of up to max consecutive successors of
// the owning virtual node, clockwise. The head is the direct successor and
// always equals the owner's successor slot. Under churn the tail is eagerly
// refreshed from the head's own successor list.
type SuccessorList struct {
	mu   sync.Mutex
	self key.DHTKey
	max  int
	keys []key.DHTKey
}

// NewSuccessorList returns a new empty list owned by self.
func NewSuccessorList(self key.DHTKey, max int) *SuccessorList {
	if max <= 0 {
		max = DefaultSuccListLength
	}
	return &SuccessorList{self: self, max: max}
}

// SetHead installs k as the direct successor. Called on every successor
// change. The owner never appears in its own list.
func (s *SuccessorList) SetHead(k key.DHTKey) {
	if k.Equal(s.self) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.keys) == 0 {
		s.keys = []key.DHTKey{k}
		return
	}
	if s.keys[0].Equal(k) {
		return
	}

	keys := make([]key.DHTKey, 0, s.max)
	keys = append(keys, k)
	for _, o := range s.keys {
		if len(keys) == s.max {
			break
		}
		if !o.Equal(k) && !o.Equal(s.self) {
			keys = append(keys, o)
		}
	}
	s.keys = keys
}

// RefreshTail replaces everything after the head with the head's reported
// successor list, shifted by one and truncated to the list length.
func (s *SuccessorList) RefreshTail(headList []key.DHTKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.keys) == 0 {
		return
	}

	head := s.keys[0]
	keys := make([]key.DHTKey, 0, s.max)
	keys = append(keys, head)
	for _, o := range headList {
		if len(keys) == s.max {
			break
		}
		if o.Equal(s.self) || o.Equal(head) || o.Count() == 0 {
			continue
		}
		keys = append(keys, o)
	}
	s.keys = keys
}

// RemoveKey removes one entry from the list.
func (s *SuccessorList) RemoveKey(k key.DHTKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, o := range s.keys {
		if o.Equal(k) {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			return
		}
	}
}

// Head returns the direct successor.
func (s *SuccessorList) Head() (key.DHTKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.keys) == 0 {
		return key.DHTKey{}, false
	}
	return s.keys[0], true
}

// Keys returns a copy of the list.
func (s *SuccessorList) Keys() []key.DHTKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]key.DHTKey, len(s.keys))
	copy(res, s.keys)
	return res
}

// Len returns the number of entries.
func (s *SuccessorList) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}
