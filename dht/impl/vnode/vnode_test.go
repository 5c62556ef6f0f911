package vnode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nettlebay/seeks/dht"
	"github.com/nettlebay/seeks/dht/impl/key"
	"github.com/nettlebay/seeks/dht/impl/ring"
	"github.com/nettlebay/seeks/types"
)

func nibbleKey(n byte) key.DHTKey {
	var k key.DHTKey
	k[0] = n << 4
	return k
}

func addr(port int) ring.NetAddress {
	return ring.NetAddress{Host: "127.0.0.1", Port: port}
}

func testConf() *dht.Configuration {
	return &dht.Configuration{
		SuccListLength:  4,
		RetryBudget:     2,
		CheckInvariants: false,
	}
}

// fakeDispatcher serves the owning virtual node locally and reports
// everybody else as unknown, like a single-vnode process.
type fakeDispatcher struct {
	vn *VirtualNode
}

func (d *fakeDispatcher) local(recipient key.DHTKey) bool {
	return d.vn != nil && recipient.Equal(d.vn.Key())
}

func (d *fakeDispatcher) IsLocal(k key.DHTKey) bool {
	return d.local(k)
}

func (d *fakeDispatcher) FindClosestPredecessorCb(recipient key.DHTKey, target key.DHTKey) (
	key.DHTKey, ring.NetAddress, key.DHTKey, ring.NetAddress, types.Status, error) {
	if !d.local(recipient) {
		return key.DHTKey{}, ring.NetAddress{}, key.DHTKey{}, ring.NetAddress{},
			types.StatusUnknownPeer, dht.ErrUnknownPeer
	}
	p, pna, ps, psna, status := d.vn.FindClosestPredecessor(target)
	return p, pna, ps, psna, status, nil
}

func (d *fakeDispatcher) GetSuccessorCb(recipient key.DHTKey) (key.DHTKey, ring.NetAddress, types.Status, error) {
	if !d.local(recipient) {
		return key.DHTKey{}, ring.NetAddress{}, types.StatusUnknownPeer, dht.ErrUnknownPeer
	}
	s, sna, status := d.vn.GetSuccessor()
	return s, sna, status, nil
}

func (d *fakeDispatcher) GetPredecessorCb(recipient key.DHTKey) (key.DHTKey, ring.NetAddress, types.Status, error) {
	if !d.local(recipient) {
		return key.DHTKey{}, ring.NetAddress{}, types.StatusUnknownPeer, dht.ErrUnknownPeer
	}
	p, pna, status := d.vn.GetPredecessor()
	return p, pna, status, nil
}

func (d *fakeDispatcher) GetSuccListCb(recipient key.DHTKey) ([]types.LocationInfo, types.Status, error) {
	if !d.local(recipient) {
		return nil, types.StatusUnknownPeer, dht.ErrUnknownPeer
	}
	entries, status := d.vn.GetSuccList()
	return entries, status, nil
}

func (d *fakeDispatcher) NotifyCb(recipient key.DHTKey, sender key.DHTKey, senderNa ring.NetAddress) (types.Status, error) {
	if !d.local(recipient) {
		return types.StatusUnknownPeer, dht.ErrUnknownPeer
	}
	return d.vn.Notify(sender, senderNa), nil
}

func (d *fakeDispatcher) PingCb(recipient key.DHTKey) (types.Status, error) {
	if !d.local(recipient) {
		return types.StatusUnknownPeer, dht.ErrUnknownPeer
	}
	return d.vn.Ping(), nil
}

// fakeRing is a scripted remote side: it answers the typed RPC surface
// from a global view of the live ring members. Dead members fail every
// call with dht.ErrCall. A member may temporarily answer from a stale
// view of the membership; the first failed call heals every stale view,
// playing the role of the background repair.
type fakeRing struct {
	live      []key.DHTKey
	dead      map[key.DHTKey]bool
	staleView map[key.DHTKey][]key.DHTKey
	noPiggy   map[key.DHTKey]bool
}

func (r *fakeRing) members(recipient key.DHTKey) []key.DHTKey {
	if view, ok := r.staleView[recipient]; ok {
		return view
	}
	return r.live
}

func (r *fakeRing) succOf(view []key.DHTKey, k key.DHTKey) key.DHTKey {
	best := key.DHTKey{}
	min := key.DHTKey{}
	for _, o := range view {
		if min.Count() == 0 || o.Cmp(min) < 0 {
			min = o
		}
		if o.Cmp(k) > 0 && (best.Count() == 0 || o.Cmp(best) < 0) {
			best = o
		}
	}
	if best.Count() == 0 {
		return min
	}
	return best
}

func (r *fakeRing) closestPred(view []key.DHTKey, from key.DHTKey, target key.DHTKey) key.DHTKey {
	best := from
	for _, o := range view {
		if o.Between(best, target) {
			best = o
		}
	}
	return best
}

func (r *fakeRing) check(recipient key.DHTKey) error {
	if r.dead[recipient] {
		// The failure is observed: the survivors repair their views
		r.staleView = nil
		return dht.ErrCall
	}
	return nil
}

func (r *fakeRing) JoinGetSucc(recipient key.DHTKey, _ ring.NetAddress,
	sender key.DHTKey, _ ring.NetAddress) (key.DHTKey, ring.NetAddress, types.Status, error) {
	if err := r.check(recipient); err != nil {
		return key.DHTKey{}, ring.NetAddress{}, types.StatusCall, err
	}
	succ := r.succOf(r.members(recipient), sender)
	return succ, addr(int(succ[0])), types.StatusOk, nil
}

func (r *fakeRing) FindClosestPredecessor(recipient key.DHTKey, _ ring.NetAddress,
	_ key.DHTKey, _ ring.NetAddress, target key.DHTKey) (
	key.DHTKey, ring.NetAddress, key.DHTKey, ring.NetAddress, types.Status, error) {
	if err := r.check(recipient); err != nil {
		return key.DHTKey{}, ring.NetAddress{}, key.DHTKey{}, ring.NetAddress{}, types.StatusCall, err
	}
	view := r.members(recipient)
	pred := r.closestPred(view, recipient, target)
	if r.noPiggy[recipient] {
		return pred, addr(int(pred[0])), key.DHTKey{}, ring.NetAddress{}, types.StatusOk, nil
	}
	predSucc := r.succOf(view, pred)
	return pred, addr(int(pred[0])), predSucc, addr(int(predSucc[0])), types.StatusOk, nil
}

func (r *fakeRing) GetSuccessor(recipient key.DHTKey, _ ring.NetAddress,
	_ key.DHTKey, _ ring.NetAddress) (key.DHTKey, ring.NetAddress, types.Status, error) {
	if err := r.check(recipient); err != nil {
		return key.DHTKey{}, ring.NetAddress{}, types.StatusCall, err
	}
	succ := r.succOf(r.members(recipient), recipient)
	return succ, addr(int(succ[0])), types.StatusOk, nil
}

func (r *fakeRing) GetPredecessor(recipient key.DHTKey, _ ring.NetAddress,
	_ key.DHTKey, _ ring.NetAddress) (key.DHTKey, ring.NetAddress, types.Status, error) {
	if err := r.check(recipient); err != nil {
		return key.DHTKey{}, ring.NetAddress{}, types.StatusCall, err
	}
	return key.DHTKey{}, ring.NetAddress{}, types.StatusOk, nil
}

func (r *fakeRing) GetSuccList(recipient key.DHTKey, _ ring.NetAddress,
	_ key.DHTKey, _ ring.NetAddress) ([]types.LocationInfo, types.Status, error) {
	if err := r.check(recipient); err != nil {
		return nil, types.StatusCall, err
	}
	return nil, types.StatusOk, nil
}

func (r *fakeRing) Ping(recipient key.DHTKey, _ ring.NetAddress,
	_ key.DHTKey, _ ring.NetAddress) (types.Status, error) {
	if err := r.check(recipient); err != nil {
		return types.StatusCall, err
	}
	return types.StatusOk, nil
}

func (r *fakeRing) Notify(recipient key.DHTKey, _ ring.NetAddress,
	_ key.DHTKey, _ ring.NetAddress) (types.Status, error) {
	if err := r.check(recipient); err != nil {
		return types.StatusCall, err
	}
	return types.StatusOk, nil
}

func newTestVNode(id byte, r *fakeRing) *VirtualNode {
	d := &fakeDispatcher{}
	v := NewVirtualNode(testConf(), nibbleKey(id), addr(int(nibbleKey(id)[0])), d, r)
	d.vn = v
	return v
}

// Test_VNode_Create_Single_Ring tests that a ring of one resolves every
// key to itself
func Test_VNode_Create_Single_Ring(t *testing.T) {
	v := newTestVNode(4, &fakeRing{})
	v.Create()

	pred, predNa, err := v.FindPredecessor(nibbleKey(9))
	require.NoError(t, err)
	require.Equal(t, v.Key(), pred)
	require.Equal(t, v.NetAddress(), predNa)

	succ, succNa, err := v.FindSuccessor(nibbleKey(9))
	require.NoError(t, err)
	require.Equal(t, v.Key(), succ)
	require.Equal(t, v.NetAddress(), succNa)
}

// Test_VNode_Lookup_Not_Joined tests that lookups fail before a join
func Test_VNode_Lookup_Not_Joined(t *testing.T) {
	v := newTestVNode(4, &fakeRing{})

	_, _, err := v.FindPredecessor(nibbleKey(9))
	require.ErrorIs(t, err, dht.ErrNotJoined)
}

// Test_VNode_Set_Successor_Idempotent tests that re-installing the same
// successor with a new address refreshes one location in place
func Test_VNode_Set_Successor_Idempotent(t *testing.T) {
	v := newTestVNode(2, &fakeRing{})

	v.SetSuccessor(nibbleKey(6), addr(4006))
	v.SetSuccessor(nibbleKey(6), addr(5006))

	// Exactly one location, carrying the second address
	loc, ok := v.Table().Find(nibbleKey(6))
	require.True(t, ok)
	require.Equal(t, addr(5006), loc.NetAddress())
	require.Equal(t, 2, v.Table().Len()) // self + successor

	// finger[0] == successor == successor list head
	succ, ok := v.Successor()
	require.True(t, ok)
	require.Equal(t, nibbleKey(6), succ)
	require.Same(t, loc, v.FingerLocations()[0])
	require.Equal(t, []key.DHTKey{nibbleKey(6)}, v.SuccList())
}

// Test_VNode_Set_Successor_Replace tests a successor change
func Test_VNode_Set_Successor_Replace(t *testing.T) {
	v := newTestVNode(2, &fakeRing{})

	v.SetSuccessor(nibbleKey(6), addr(4006))
	v.SetSuccessor(nibbleKey(4), addr(4004))

	succ, ok := v.Successor()
	require.True(t, ok)
	require.Equal(t, nibbleKey(4), succ)
	require.Equal(t, nibbleKey(4), v.FingerLocations()[0].Key())
	require.Equal(t, []key.DHTKey{nibbleKey(4), nibbleKey(6)}, v.SuccList())
}

// Test_VNode_Notify tests the predecessor acceptance rules
func Test_VNode_Notify(t *testing.T) {
	r := &fakeRing{dead: map[key.DHTKey]bool{}}
	v := newTestVNode(10, r)
	v.SetSuccessor(nibbleKey(2), addr(4002))

	// No predecessor: accept
	require.Equal(t, types.StatusOk, v.Notify(nibbleKey(2), addr(4002)))
	require.True(t, v.IsPredecessorEqual(nibbleKey(2)))

	// 6 is in (2, 10): accept
	require.Equal(t, types.StatusOk, v.Notify(nibbleKey(6), addr(4006)))
	require.True(t, v.IsPredecessorEqual(nibbleKey(6)))

	// 4 is not in (6, 10) and 6 is alive: reject
	require.Equal(t, types.StatusOk, v.Notify(nibbleKey(4), addr(4004)))
	require.False(t, v.IsPredecessorEqual(nibbleKey(4)))

	// Two notifies from the same sender are idempotent
	require.Equal(t, types.StatusOk, v.Notify(nibbleKey(6), addr(4006)))
	require.True(t, v.IsPredecessorEqual(nibbleKey(6)))
	require.Equal(t, 1, countKey(v.Table().Keys(), nibbleKey(6)))

	// The predecessor dies: any claimer is accepted
	r.dead[nibbleKey(6)] = true
	require.Equal(t, types.StatusOk, v.Notify(nibbleKey(4), addr(4004)))
	require.True(t, v.IsPredecessorEqual(nibbleKey(4)))
}

func countKey(keys []key.DHTKey, k key.DHTKey) int {
	count := 0
	for _, o := range keys {
		if o.Equal(k) {
			count++
		}
	}
	return count
}

// Test_VNode_Remove_Location_Ordered tests that the ordered removal leaves
// no dangling handle behind
func Test_VNode_Remove_Location_Ordered(t *testing.T) {
	v := newTestVNode(2, &fakeRing{})

	v.SetSuccessor(nibbleKey(6), addr(4006))
	l6, _ := v.Table().Find(nibbleKey(6))
	l10 := v.Table().AddOrFind(nibbleKey(10), addr(4010))
	v.Table().AddOrFind(nibbleKey(14), addr(4014))
	v.SetPredecessor(nibbleKey(14), addr(4014))

	v.succs.RefreshTail([]key.DHTKey{nibbleKey(10), nibbleKey(14)})

	v.RemoveLocation(l6)

	// The table entry is gone
	_, ok := v.Table().Find(nibbleKey(6))
	require.False(t, ok)

	// The successor promoted the next list entry
	succ, ok := v.Successor()
	require.True(t, ok)
	require.Equal(t, nibbleKey(10), succ)
	require.Same(t, l10, v.FingerLocations()[0])
	require.NotContains(t, v.SuccList(), nibbleKey(6))

	// No finger slot still points at the removed handle
	for _, loc := range v.FingerLocations() {
		require.NotSame(t, l6, loc)
	}

	// Removing the predecessor clears the slot
	l14, _ := v.Table().Find(nibbleKey(14))
	v.RemoveLocation(l14)
	_, ok = v.Predecessor()
	require.False(t, ok)
}

// Test_VNode_Closest_Predecessor_Piggyback tests the successor piggyback
// on the callee side
func Test_VNode_Closest_Predecessor_Piggyback(t *testing.T) {
	v := newTestVNode(2, &fakeRing{})
	v.SetSuccessor(nibbleKey(6), addr(4006))
	v.Table().AddOrFind(nibbleKey(10), addr(4010))
	v.succs.RefreshTail([]key.DHTKey{nibbleKey(10)})

	// We are the candidate: our own successor rides along
	pred, _, psKey, psNa, status := v.FindClosestPredecessor(nibbleKey(4))
	require.Equal(t, types.StatusOk, status)
	require.Equal(t, nibbleKey(2), pred)
	require.Equal(t, nibbleKey(6), psKey)
	require.Equal(t, addr(4006), psNa)

	// The candidate is our successor: its successor comes from our list
	pred, _, psKey, _, _ = v.FindClosestPredecessor(nibbleKey(8))
	require.Equal(t, nibbleKey(6), pred)
	require.Equal(t, nibbleKey(10), psKey)
}

// Test_VNode_Lookup_Remote tests the iterative lookup against a scripted
// four-node ring
func Test_VNode_Lookup_Remote(t *testing.T) {
	r := &fakeRing{
		live: []key.DHTKey{nibbleKey(2), nibbleKey(6), nibbleKey(10), nibbleKey(14)},
		dead: map[key.DHTKey]bool{},
	}
	v := newTestVNode(2, r)
	v.SetSuccessor(nibbleKey(6), addr(4006))

	succ, succNa, err := v.FindSuccessor(nibbleKey(7))
	require.NoError(t, err)
	require.Equal(t, nibbleKey(10), succ)
	require.Equal(t, addr(int(nibbleKey(10)[0])), succNa)

	// Wrap: nothing above 14, the lookup comes back around
	succ, _, err = v.FindSuccessor(nibbleKey(15))
	require.NoError(t, err)
	require.Equal(t, nibbleKey(2), succ)
}

// Test_VNode_Lookup_Undershoot tests the fault-tolerant rerouting through
// past hops when a forward hop is dead
func Test_VNode_Lookup_Undershoot(t *testing.T) {
	// 10 died; 6 still routes through it until the failure is observed,
	// and piggybacks nothing, so the lookup has to contact 10 itself
	r := &fakeRing{
		live:      []key.DHTKey{nibbleKey(2), nibbleKey(6), nibbleKey(14)},
		dead:      map[key.DHTKey]bool{nibbleKey(10): true},
		staleView: map[key.DHTKey][]key.DHTKey{nibbleKey(6): {nibbleKey(2), nibbleKey(6), nibbleKey(10)}},
		noPiggy:   map[key.DHTKey]bool{nibbleKey(6): true},
	}
	v := newTestVNode(2, r)
	v.SetSuccessor(nibbleKey(6), addr(4006))

	// Route: 6 forwards us to the dead 10; the follow-up call to 10 fails;
	// the undershoot reroutes through hop 6, whose repaired view then
	// reports 14 as the closest predecessor's successor.
	succ, _, err := v.FindSuccessor(nibbleKey(12))
	require.NoError(t, err)
	require.Equal(t, nibbleKey(14), succ)
}
