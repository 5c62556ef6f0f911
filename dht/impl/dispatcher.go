package impl

import (
	"time"

	"github.com/nettlebay/seeks/dht"
	"github.com/nettlebay/seeks/dht/impl/key"
	"github.com/nettlebay/seeks/dht/impl/ring"
	"github.com/nettlebay/seeks/dht/impl/vnode"
	"github.com/nettlebay/seeks/types"
)

const defaultRPCTimeout = time.Second * 5

// recipient resolves the recipient key among the hosted virtual nodes. A
// zero key picks any virtual node. dht.ErrUnknownPeer tells the caller to
// fall back to the RPC client.
func (n *node) recipient(k key.DHTKey) (*vnode.VirtualNode, error) {
	if k.Count() == 0 {
		if v := n.anyVNode(); v != nil {
			return v, nil
		}
		return nil, dht.ErrUnknownPeer
	}
	if v := n.findVNode(k); v != nil {
		return v, nil
	}
	return nil, dht.ErrUnknownPeer
}

// IsLocal implements vnode.Dispatcher
func (n *node) IsLocal(k key.DHTKey) bool {
	return n.findVNode(k) != nil
}

// JoinGetSuccCb implements rpc.Dispatcher
func (n *node) JoinGetSuccCb(recipient key.DHTKey, joiner key.DHTKey) (
	key.DHTKey, key.DHTKey, ring.NetAddress, types.Status, error) {

	v, err := n.recipient(recipient)
	if err != nil {
		return key.DHTKey{}, key.DHTKey{}, ring.NetAddress{}, types.StatusUnknownPeer, err
	}
	succ, succNa, status := v.JoinGetSucc(joiner)
	return v.Key(), succ, succNa, status, nil
}

// FindClosestPredecessorCb implements rpc.Dispatcher and vnode.Dispatcher
func (n *node) FindClosestPredecessorCb(recipient key.DHTKey, target key.DHTKey) (
	key.DHTKey, ring.NetAddress, key.DHTKey, ring.NetAddress, types.Status, error) {

	v, err := n.recipient(recipient)
	if err != nil {
		return key.DHTKey{}, ring.NetAddress{}, key.DHTKey{}, ring.NetAddress{}, types.StatusUnknownPeer, err
	}
	pred, predNa, psKey, psNa, status := v.FindClosestPredecessor(target)
	return pred, predNa, psKey, psNa, status, nil
}

// GetSuccessorCb implements rpc.Dispatcher and vnode.Dispatcher
func (n *node) GetSuccessorCb(recipient key.DHTKey) (key.DHTKey, ring.NetAddress, types.Status, error) {
	v, err := n.recipient(recipient)
	if err != nil {
		return key.DHTKey{}, ring.NetAddress{}, types.StatusUnknownPeer, err
	}
	succ, succNa, status := v.GetSuccessor()
	return succ, succNa, status, nil
}

// GetPredecessorCb implements rpc.Dispatcher and vnode.Dispatcher
func (n *node) GetPredecessorCb(recipient key.DHTKey) (key.DHTKey, ring.NetAddress, types.Status, error) {
	v, err := n.recipient(recipient)
	if err != nil {
		return key.DHTKey{}, ring.NetAddress{}, types.StatusUnknownPeer, err
	}
	pred, predNa, status := v.GetPredecessor()
	return pred, predNa, status, nil
}

// GetSuccListCb implements rpc.Dispatcher and vnode.Dispatcher
func (n *node) GetSuccListCb(recipient key.DHTKey) ([]types.LocationInfo, types.Status, error) {
	v, err := n.recipient(recipient)
	if err != nil {
		return nil, types.StatusUnknownPeer, err
	}
	entries, status := v.GetSuccList()
	return entries, status, nil
}

// NotifyCb implements rpc.Dispatcher and vnode.Dispatcher
func (n *node) NotifyCb(recipient key.DHTKey, sender key.DHTKey, senderNa ring.NetAddress) (types.Status, error) {
	v, err := n.recipient(recipient)
	if err != nil {
		return types.StatusUnknownPeer, err
	}
	return v.Notify(sender, senderNa), nil
}

// PingCb implements rpc.Dispatcher and vnode.Dispatcher
func (n *node) PingCb(recipient key.DHTKey) (types.Status, error) {
	v, err := n.recipient(recipient)
	if err != nil {
		return types.StatusUnknownPeer, err
	}
	return v.Ping(), nil
}

// RefreshCallerLocation implements rpc.Dispatcher
func (n *node) RefreshCallerLocation(recipient key.DHTKey, sender key.DHTKey, senderNa ring.NetAddress) {
	if sender.Count() == 0 || senderNa.Empty() {
		return
	}
	v, err := n.recipient(recipient)
	if err != nil {
		return
	}
	v.Table().AddOrFind(sender, senderNa)
}
