package vnode

import (
	"sync/atomic"

	"github.com/nettlebay/seeks/dht/impl/key"
	"github.com/nettlebay/seeks/types"
)

// StabilizeOnce runs one stabilization round: ask the successor for its
// predecessor p, adopt p when it sits between us and the successor, notify
// the (possibly new) successor, and refresh the successor list from its
// list.
func (v *VirtualNode) StabilizeOnce() {
	succ, ok := v.Successor()
	if !ok {
		// Not joined yet: retry a pending join, if any
		v.retryJoin()
		return
	}
	succNa := v.addrOf(succ)

	pred, predNa, status, err := v.getPredecessorOf(succ, succNa)
	if err != nil {
		// The successor does not answer: confirm and drop it, the
		// successor list promotes the next one
		if v.IsDead(succ, succNa) {
			if loc, found := v.table.Find(succ); found {
				v.RemoveLocation(loc)
			}
		}
		return
	}
	if status != types.StatusOk {
		v.logger.Warn().Msgf("stabilize: successor %s answered %v", succ, status)
		return
	}

	if pred.Count() > 0 && !pred.Equal(v.idKey) && pred.Between(v.idKey, succ) {
		// A node slid in between us and our successor
		v.SetSuccessor(pred, predNa)
		succ, succNa = pred, predNa
	} else if pred.Equal(v.idKey) && !predNa.Equal(v.na) && !predNa.Empty() {
		// The successor knows us under a stale address: it will refresh
		// through the notify below
		v.logger.Info().Msgf("successor %s sees our old address %s", succ, predNa)
	}

	if !succ.Equal(v.idKey) {
		_, err = v.notifyPeer(succ, succNa)
		if err != nil {
			v.logger.Debug().Msgf("stabilize: notify %s failed: %v", succ, err)
			return
		}

		entries, status, err := v.getSuccListOf(succ, succNa)
		if err == nil && status == types.StatusOk {
			keys := make([]key.DHTKey, 0, len(entries))
			for _, e := range entries {
				if e.Key.Count() == 0 || e.Key.Equal(v.idKey) {
					continue
				}
				v.table.AddOrFind(e.Key, e.Addr)
				keys = append(keys, e.Key)
			}
			v.succs.RefreshTail(keys)
		}
	}
}

// FixFingerOnce repairs one finger table slot and advances the cursor.
// Slot 0 is managed by the successor path and skipped here.
func (v *VirtualNode) FixFingerOnce() {
	i := 1 + int(atomic.AddUint32(&v.fingerCursor, 1)%uint32(key.Bits-1))

	target := v.idKey.Add(uint(i))
	resolved, resolvedNa, err := v.FindSuccessor(target)
	if err != nil {
		v.logger.Debug().Msgf("fix finger %d failed: %v", i, err)
		return
	}

	if resolved.Equal(v.idKey) {
		// We are responsible for the slot's base ourselves: self never
		// appears in its own finger table
		v.fgt.SetSlot(i, nil)
		return
	}

	cur := v.fgt.Slot(i)
	if cur != nil && cur.Key().Equal(resolved) {
		cur.Update(resolvedNa)
		return
	}
	v.fgt.SetSlot(i, v.table.AddOrFind(resolved, resolvedNa))
}

// CheckPredecessorOnce pings the predecessor and clears it on failure. A
// confirmed-dead predecessor is removed from every structure through the
// ordered removal.
func (v *VirtualNode) CheckPredecessorOnce() {
	pred, ok := v.Predecessor()
	if !ok {
		return
	}

	loc, found := v.table.Find(pred)
	if !found {
		v.invariant("predecessor %s not in location table", pred)
		v.clearPredecessor()
		return
	}

	if v.IsDead(pred, loc.NetAddress()) {
		v.logger.Info().Msgf("predecessor %s is dead", pred)
		v.RemoveLocation(loc)
	}
}

func (v *VirtualNode) retryJoin() {
	v.succMu.Lock()
	target := v.joinTarget
	v.succMu.Unlock()

	if target == nil {
		return
	}
	err := v.Join(target.k, target.na)
	if err != nil {
		v.logger.Debug().Msgf("join retry via %s failed: %v", target.na, err)
	}
}
