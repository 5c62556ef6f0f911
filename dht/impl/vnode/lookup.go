package vnode

import (
	"errors"

	"golang.org/x/xerrors"

	"github.com/nettlebay/seeks/dht"
	"github.com/nettlebay/seeks/dht/impl/key"
	"github.com/nettlebay/seeks/dht/impl/ring"
	"github.com/nettlebay/seeks/types"
)

// routeHop is one visited location on a lookup's route trail.
type routeHop struct {
	k  key.DHTKey
	na ring.NetAddress
}

func retryable(err error) bool {
	return errors.Is(err, dht.ErrCall) || errors.Is(err, dht.ErrTimeout)
}

// FindSuccessor resolves the target to the node responsible for it: the
// successor of the target's closest predecessor on the ring. When the last
// findClosestPredecessor piggybacked the predecessor's successor, the
// terminal getSuccessor round trip is skipped.
func (v *VirtualNode) FindSuccessor(target key.DHTKey) (key.DHTKey, ring.NetAddress, error) {
	pred, predSucc, err := v.findPredecessor(target)
	if err != nil {
		v.logger.Debug().Msgf("find_successor failed on getting predecessor: %v", err)
		return key.DHTKey{}, ring.NetAddress{}, err
	}

	if predSucc.k.Count() > 0 && !predSucc.na.Empty() {
		return predSucc.k, predSucc.na, nil
	}

	succ, succNa, status, err := v.getSuccessorOf(pred.k, pred.na)
	if err != nil {
		return key.DHTKey{}, ring.NetAddress{}, err
	}
	if status != types.StatusOk {
		return key.DHTKey{}, ring.NetAddress{},
			xerrors.Errorf("%w: getSuccessor on %s returned %v", dht.ErrUnreachable, pred.k, status)
	}
	return succ, succNa, nil
}

// FindPredecessor locates the node immediately preceding the target.
func (v *VirtualNode) FindPredecessor(target key.DHTKey) (key.DHTKey, ring.NetAddress, error) {
	pred, _, err := v.findPredecessor(target)
	return pred.k, pred.na, err
}

// findPredecessor is the iterative lookup. The route trail of visited hops
// backs the undershoot recovery: when a forward hop is unreachable, either
// on findClosestPredecessor or on the follow-up getSuccessor, the lookup
// reroutes through previously visited nodes, bounded by the retry budget.
// It also returns the predecessor's successor as far as it is known.
func (v *VirtualNode) findPredecessor(target key.DHTKey) (routeHop, routeHop, error) {
	succ, ok := v.Successor()
	if !ok {
		return routeHop{}, routeHop{}, dht.ErrNotJoined
	}

	cur := routeHop{k: v.idKey, na: v.na}
	curSucc := routeHop{k: succ, na: v.addrOf(succ)}
	hops := []routeHop{cur}
	retries := 0

	for !target.BetweenRightIncl(cur.k, curSucc.k) {
		next, piggy, status, err := v.stepForward(cur, target)
		if err != nil {
			if !retryable(err) || retries >= v.conf.RetryBudget {
				return routeHop{}, routeHop{}, err
			}
			// The forward hop is dead: undershoot by routing through past
			// hops towards the dead candidate.
			next, piggy, status, hops, err = v.undershoot(hops, cur.k, target)
			if err != nil {
				return routeHop{}, routeHop{}, err
			}
			retries++
		}

		if status != types.StatusOk {
			return routeHop{}, routeHop{},
				xerrors.Errorf("%w: findClosestPredecessor on %s returned %v", dht.ErrUnreachable, cur.k, status)
		}
		if next.k.Count() == 0 {
			v.invariant("findClosestPredecessor on %s returned an unset key", cur.k)
			return routeHop{}, routeHop{},
				xerrors.Errorf("%w: unset candidate from %s", dht.ErrUnreachable, cur.k)
		}

		if next.k.Equal(cur.k) {
			// The candidate considers itself the closest predecessor. Take
			// its successor view and either terminate or give up: pushing
			// further cannot make progress, the ring repairs in the
			// background.
			curSucc, err = v.resolveSuccessor(cur, piggy)
			if err != nil {
				return routeHop{}, routeHop{}, err
			}
			if !target.BetweenRightIncl(cur.k, curSucc.k) {
				v.logger.Warn().Msgf("lookup of %s stalled at %s, returning it as predecessor", target, cur.k)
				return cur, curSucc, nil
			}
			continue
		}

		cur = next
		hops = append(hops, cur)

		// Learn the adopted hop's successor. The hop itself may turn out
		// dead here when no piggyback came along: recover the same way.
		for {
			curSucc, err = v.resolveSuccessor(cur, piggy)
			if err == nil {
				break
			}
			if !retryable(err) || retries >= v.conf.RetryBudget {
				return routeHop{}, routeHop{}, err
			}

			next, piggy, status, hops, err = v.undershoot(hops, cur.k, target)
			if err != nil {
				return routeHop{}, routeHop{}, err
			}
			if status != types.StatusOk {
				return routeHop{}, routeHop{},
					xerrors.Errorf("%w: undershoot answered %v", dht.ErrUnreachable, status)
			}
			retries++

			cur = next
			hops = append(hops, cur)
		}
	}

	return cur, curSucc, nil
}

// stepForward asks the current candidate for the closest predecessor of
// the target, local virtual nodes first.
func (v *VirtualNode) stepForward(cur routeHop, target key.DHTKey) (routeHop, routeHop, types.Status, error) {
	predKey, predNa, psKey, psNa, status, err := v.callFindClosestPredecessor(cur.k, cur.na, target)
	return routeHop{k: predKey, na: predNa}, routeHop{k: psKey, na: psNa}, status, err
}

// undershoot walks the route trail backwards looking for a live node able
// to route around the dead candidate. On success the trail is truncated to
// the recovery point and the recovered candidate is returned.
func (v *VirtualNode) undershoot(hops []routeHop, dead key.DHTKey, target key.DHTKey) (
	routeHop, routeHop, types.Status, []routeHop, error) {

	for i := len(hops) - 1; i >= 0; i-- {
		past := hops[i]
		if past.k.Equal(dead) {
			continue
		}

		// Locate the closest live predecessor of the dead node
		next, piggy, status, err := v.stepForward(past, dead)
		if err != nil {
			continue
		}
		if status != types.StatusOk {
			continue
		}

		v.logger.Info().Msgf("undershoot recovered through hop %s while looking up %s", past.k, target)
		return next, piggy, status, hops[:i+1], nil
	}

	return routeHop{}, routeHop{}, types.StatusCall, hops,
		xerrors.Errorf("%w: no live hop left on the route trail", dht.ErrCall)
}

// resolveSuccessor returns the candidate's successor: the piggybacked one
// when present, otherwise obtained with a getSuccessor call.
func (v *VirtualNode) resolveSuccessor(cur routeHop, piggyback routeHop) (routeHop, error) {
	if piggyback.k.Count() > 0 {
		return piggyback, nil
	}

	succ, succNa, status, err := v.getSuccessorOf(cur.k, cur.na)
	if err != nil {
		return routeHop{}, err
	}
	if status != types.StatusOk {
		return routeHop{},
			xerrors.Errorf("%w: getSuccessor on %s returned %v", dht.ErrUnreachable, cur.k, status)
	}
	if succ.Count() == 0 {
		v.invariant("getSuccessor on %s returned an unset key", cur.k)
		return routeHop{}, xerrors.Errorf("%w: unset successor from %s", dht.ErrUnreachable, cur.k)
	}
	return routeHop{k: succ, na: succNa}, nil
}

// callFindClosestPredecessor makes a local call to virtual nodes first, and
// a remote call if needed.
func (v *VirtualNode) callFindClosestPredecessor(recipient key.DHTKey, recipientNa ring.NetAddress,
	target key.DHTKey) (key.DHTKey, ring.NetAddress, key.DHTKey, ring.NetAddress, types.Status, error) {

	predKey, predNa, psKey, psNa, status, err := v.dispatcher.FindClosestPredecessorCb(recipient, target)
	if errors.Is(err, dht.ErrUnknownPeer) {
		return v.client.FindClosestPredecessor(recipient, recipientNa, v.idKey, v.na, target)
	}
	return predKey, predNa, psKey, psNa, status, err
}

// getSuccessorOf makes a local call to virtual nodes first, and a remote
// call if needed.
func (v *VirtualNode) getSuccessorOf(recipient key.DHTKey, recipientNa ring.NetAddress) (
	key.DHTKey, ring.NetAddress, types.Status, error) {

	succ, succNa, status, err := v.dispatcher.GetSuccessorCb(recipient)
	if errors.Is(err, dht.ErrUnknownPeer) {
		return v.client.GetSuccessor(recipient, recipientNa, v.idKey, v.na)
	}
	return succ, succNa, status, err
}

// getPredecessorOf makes a local call to virtual nodes first, and a remote
// call if needed.
func (v *VirtualNode) getPredecessorOf(recipient key.DHTKey, recipientNa ring.NetAddress) (
	key.DHTKey, ring.NetAddress, types.Status, error) {

	pred, predNa, status, err := v.dispatcher.GetPredecessorCb(recipient)
	if errors.Is(err, dht.ErrUnknownPeer) {
		return v.client.GetPredecessor(recipient, recipientNa, v.idKey, v.na)
	}
	return pred, predNa, status, err
}

// getSuccListOf makes a local call to virtual nodes first, and a remote
// call if needed.
func (v *VirtualNode) getSuccListOf(recipient key.DHTKey, recipientNa ring.NetAddress) (
	[]types.LocationInfo, types.Status, error) {

	entries, status, err := v.dispatcher.GetSuccListCb(recipient)
	if errors.Is(err, dht.ErrUnknownPeer) {
		return v.client.GetSuccList(recipient, recipientNa, v.idKey, v.na)
	}
	return entries, status, err
}

// notifyPeer makes a local call to virtual nodes first, and a remote call
// if needed.
func (v *VirtualNode) notifyPeer(recipient key.DHTKey, recipientNa ring.NetAddress) (types.Status, error) {
	status, err := v.dispatcher.NotifyCb(recipient, v.idKey, v.na)
	if errors.Is(err, dht.ErrUnknownPeer) {
		return v.client.Notify(recipient, recipientNa, v.idKey, v.na)
	}
	return status, err
}
