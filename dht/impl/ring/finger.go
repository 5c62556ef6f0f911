package ring

import (
	"sync"

	"github.com/nettlebay/seeks/dht/impl/key"
)

// FingerTable holds key.Bits pointers spaced by powers of two on the ring.
// Slot i points at the node responsible for self + 2^i; slot 0 aliases the
// direct successor and must always equal the successor list's head. The
// owner's successor path writes slot 0 under its successor lock;
// RemoveLocation may also rewrite it during ordered removal.
type FingerTable struct {
	mu   sync.RWMutex
	self *Location
	locs [key.Bits]*Location
}

// NewFingerTable returns a finger table owned by the virtual node whose own
// location is self.
func NewFingerTable(self *Location) *FingerTable {
	return &FingerTable{self: self}
}

// FindClosestPredecessor scans the slots from the highest to the lowest
// index and returns the first entry whose key lies strictly between self
// and target on the ring. If no entry qualifies it returns the owner's own
// location.
func (f *FingerTable) FindClosestPredecessor(target key.DHTKey) *Location {
	f.mu.RLock()
	defer f.mu.RUnlock()

	selfKey := f.self.Key()
	if target.Equal(selfKey) {
		// The arc (self, self) is empty here: the owner is its own
		// closest predecessor
		return f.self
	}
	for i := key.Bits - 1; i >= 0; i-- {
		loc := f.locs[i]
		if loc == nil {
			continue
		}
		if loc.Key().Between(selfKey, target) {
			return loc
		}
	}
	return f.self
}

// SetSlot points slot i at the location. A nil location clears the slot.
func (f *FingerTable) SetSlot(i int, loc *Location) {
	if i < 0 || i >= key.Bits {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locs[i] = loc
}

// Slot returns the location slot i points at, or nil.
func (f *FingerTable) Slot(i int) *Location {
	if i < 0 || i >= key.Bits {
		return nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.locs[i]
}

// RemoveLocation replaces every slot pointing at loc with the replacement.
// Called as the first step of the ordered-removal protocol, before the
// entry leaves the location table. The replacement is the table's clockwise
// successor of the removed key, falling back to the owner's own location.
func (f *FingerTable) RemoveLocation(loc, replacement *Location) {
	if loc == nil {
		return
	}
	if replacement == nil || replacement.Key().Equal(loc.Key()) {
		replacement = f.self
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.locs {
		if f.locs[i] == loc {
			if replacement == f.self {
				// Self never appears in its own finger table
				f.locs[i] = nil
			} else {
				f.locs[i] = replacement
			}
		}
	}
}

// Locations returns a copy of the slots. Used by the CLI ring view and by
// invariant checks.
func (f *FingerTable) Locations() []*Location {
	f.mu.RLock()
	defer f.mu.RUnlock()

	res := make([]*Location, key.Bits)
	copy(res[:], f.locs[:])
	return res
}
