package vnode

import (
	"github.com/nettlebay/seeks/dht/impl/key"
	"github.com/nettlebay/seeks/dht/impl/ring"
)

// Successor returns the direct successor, or false while the virtual node
// has not joined a ring.
func (v *VirtualNode) Successor() (key.DHTKey, bool) {
	v.succMu.Lock()
	defer v.succMu.Unlock()

	if v.successor == nil {
		return key.DHTKey{}, false
	}
	return *v.successor, true
}

// Predecessor returns the predecessor, or false when unknown.
func (v *VirtualNode) Predecessor() (key.DHTKey, bool) {
	v.predMu.Lock()
	defer v.predMu.Unlock()

	if v.predecessor == nil {
		return key.DHTKey{}, false
	}
	return *v.predecessor, true
}

// IsPredecessorEqual returns true iff a predecessor is set and equals k.
func (v *VirtualNode) IsPredecessorEqual(k key.DHTKey) bool {
	v.predMu.Lock()
	defer v.predMu.Unlock()

	return v.predecessor != nil && v.predecessor.Equal(k)
}

// SuccList returns the successor list keys.
func (v *VirtualNode) SuccList() []key.DHTKey {
	return v.succs.Keys()
}

// FingerLocations returns the finger table slots.
func (v *VirtualNode) FingerLocations() []*ring.Location {
	return v.fgt.Locations()
}

// SetSuccessor installs the successor under the successor lock. When the
// key already is the successor only its address is refreshed and finger
// slot 0 rebound; otherwise the successor is replaced, finger slot 0
// repointed, and the new head pushed onto the successor list.
func (v *VirtualNode) SetSuccessor(k key.DHTKey, na ring.NetAddress) {
	v.succMu.Lock()
	defer v.succMu.Unlock()

	v.setSuccessorLocked(k, na)
}

func (v *VirtualNode) setSuccessorLocked(k key.DHTKey, na ring.NetAddress) {
	if k.Count() == 0 {
		v.invariant("setSuccessor called with an unset key")
		return
	}

	if k.Equal(v.idKey) {
		// A ring of one: the successor slot points back at ourselves, but
		// self never enters the finger table or the successor list.
		self := v.idKey
		v.successor = &self
		v.fgt.SetSlot(0, nil)
		return
	}

	loc := v.table.AddOrFind(k, na)

	if v.successor != nil && v.successor.Equal(k) {
		// Same successor: the address refresh happened in AddOrFind, in
		// case we are talking to another node with the same key or the
		// com port has changed. Re-bind finger slot 0.
		v.fgt.SetSlot(0, loc)
		return
	}

	succ := k
	v.successor = &succ
	v.fgt.SetSlot(0, loc)
	v.succs.SetHead(k)
}

// SetPredecessor installs the predecessor under the predecessor lock,
// refreshing the location's address.
func (v *VirtualNode) SetPredecessor(k key.DHTKey, na ring.NetAddress) {
	v.predMu.Lock()
	defer v.predMu.Unlock()

	if k.Count() == 0 || k.Equal(v.idKey) {
		v.invariant("setPredecessor called with %s", k)
		return
	}

	v.table.AddOrFind(k, na)

	pred := k
	v.predecessor = &pred
}

func (v *VirtualNode) clearPredecessor() {
	v.predMu.Lock()
	defer v.predMu.Unlock()
	v.predecessor = nil
}

// RemoveLocation removes a confirmed-dead peer. The removal order is
// normative: finger table first, then successor list, then the predecessor
// slot, and the location table last, so no structure is left holding a
// handle into a table entry that is already gone.
func (v *VirtualNode) RemoveLocation(loc *ring.Location) {
	if loc == nil || loc == v.selfLoc {
		return
	}
	removed := loc.Key()

	// Finger slots pointing at the removed entry move to the table's
	// clockwise successor of the removed key, falling back to ourselves.
	replacement, ok := v.table.ClosestSuccessor(removed)
	if !ok || replacement.Key().Equal(removed) {
		replacement = nil
	}
	v.fgt.RemoveLocation(loc, replacement)

	v.succs.RemoveKey(removed)

	// Read the promotion candidate before taking the slot locks
	head, hasNext := v.succs.Head()
	headNa := ring.NetAddress{}
	if hasNext {
		if headLoc, found := v.table.Find(head); found {
			headNa = headLoc.NetAddress()
		}
	}

	v.predMu.Lock()
	if v.predecessor != nil && v.predecessor.Equal(removed) {
		v.predecessor = nil
	}
	v.predMu.Unlock()

	v.succMu.Lock()
	if v.successor != nil && v.successor.Equal(removed) {
		if hasNext {
			// Promote the next entry of the successor list
			v.setSuccessorLocked(head, headNa)
		} else {
			// Nobody left: a ring of one
			v.setSuccessorLocked(v.idKey, v.na)
		}
	}
	v.succMu.Unlock()

	v.table.Remove(loc)
	v.logger.Info().Msgf("removed dead peer %s", removed)
}

// addrOf returns the cached address for the key, or our own address when
// the key is our own.
func (v *VirtualNode) addrOf(k key.DHTKey) ring.NetAddress {
	if k.Equal(v.idKey) {
		return v.na
	}
	if loc, ok := v.table.Find(k); ok {
		return loc.NetAddress()
	}
	return ring.NetAddress{}
}
