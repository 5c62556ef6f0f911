package vnode

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"

	"github.com/nettlebay/seeks/dht"
	"github.com/nettlebay/seeks/dht/impl/key"
	"github.com/nettlebay/seeks/dht/impl/ring"
	"github.com/nettlebay/seeks/types"
)

// Client is the remote call surface a virtual node uses when the recipient
// is not hosted by its own process.
//
// - implemented by rpc.Client
type Client interface {
	JoinGetSucc(recipient key.DHTKey, recipientNa ring.NetAddress,
		sender key.DHTKey, senderNa ring.NetAddress) (key.DHTKey, ring.NetAddress, types.Status, error)

	FindClosestPredecessor(recipient key.DHTKey, recipientNa ring.NetAddress,
		sender key.DHTKey, senderNa ring.NetAddress, target key.DHTKey) (
		key.DHTKey, ring.NetAddress, key.DHTKey, ring.NetAddress, types.Status, error)

	GetSuccessor(recipient key.DHTKey, recipientNa ring.NetAddress,
		sender key.DHTKey, senderNa ring.NetAddress) (key.DHTKey, ring.NetAddress, types.Status, error)

	GetPredecessor(recipient key.DHTKey, recipientNa ring.NetAddress,
		sender key.DHTKey, senderNa ring.NetAddress) (key.DHTKey, ring.NetAddress, types.Status, error)

	GetSuccList(recipient key.DHTKey, recipientNa ring.NetAddress,
		sender key.DHTKey, senderNa ring.NetAddress) ([]types.LocationInfo, types.Status, error)

	Ping(recipient key.DHTKey, recipientNa ring.NetAddress,
		sender key.DHTKey, senderNa ring.NetAddress) (types.Status, error)

	Notify(recipient key.DHTKey, recipientNa ring.NetAddress,
		sender key.DHTKey, senderNa ring.NetAddress) (types.Status, error)
}

// Dispatcher tries the process's own virtual nodes before any call goes
// remote. It returns dht.ErrUnknownPeer when the recipient key is not
// hosted locally, in which case the caller falls back to the Client.
//
// - implemented by the node container
type Dispatcher interface {
	FindClosestPredecessorCb(recipient key.DHTKey, target key.DHTKey) (
		key.DHTKey, ring.NetAddress, key.DHTKey, ring.NetAddress, types.Status, error)

	GetSuccessorCb(recipient key.DHTKey) (key.DHTKey, ring.NetAddress, types.Status, error)

	GetPredecessorCb(recipient key.DHTKey) (key.DHTKey, ring.NetAddress, types.Status, error)

	GetSuccListCb(recipient key.DHTKey) ([]types.LocationInfo, types.Status, error)

	NotifyCb(recipient key.DHTKey, sender key.DHTKey, senderNa ring.NetAddress) (types.Status, error)

	PingCb(recipient key.DHTKey) (types.Status, error)

	// IsLocal returns true when the key is hosted by this process.
	IsLocal(k key.DHTKey) bool
}

// NewVirtualNode creates a virtual node with the given key. The node's own
// location is registered in its location table at creation.
func NewVirtualNode(conf *dht.Configuration, idKey key.DHTKey, na ring.NetAddress,
	dispatcher Dispatcher, client Client) *VirtualNode {

	table := ring.NewLocationTable()
	if conf.SnapshotPath != "" {
		// Snapshot entries are hints only, the stabilizer confirms liveness
		err := table.LoadSnapshot(snapshotFile(conf.SnapshotPath, idKey))
		if err != nil {
			log.Debug().Msgf("no location snapshot for %s: %v", idKey, err)
		}
	}
	selfLoc := table.AddOrFind(idKey, na)

	return &VirtualNode{
		conf:       conf,
		idKey:      idKey,
		na:         na,
		selfLoc:    selfLoc,
		table:      table,
		fgt:        ring.NewFingerTable(selfLoc),
		succs:      ring.NewSuccessorList(idKey, conf.SuccListLength),
		dispatcher: dispatcher,
		client:     client,
		logger:     log.With().Str("mod", "vnode").Str("key", idKey.String()[:8]).Logger(),
	}
}

// VirtualNode is one independently addressable point on the ring. Several
// virtual nodes may share one process; each owns its complete ring state.
type VirtualNode struct {
	conf    *dht.Configuration
	idKey   key.DHTKey
	na      ring.NetAddress
	selfLoc *ring.Location

	table *ring.LocationTable
	fgt   *ring.FingerTable
	succs *ring.SuccessorList

	// The successor and predecessor slots have one lock each. The ring
	// structures (table, fingers, successor list) carry their own leaf
	// locks and never wait on the slot locks.
	succMu sync.Mutex
	predMu sync.Mutex

	successor   *key.DHTKey // guarded by succMu
	predecessor *key.DHTKey // guarded by predMu

	// joinTarget remembers the bootstrap peer while a join has not
	// succeeded, so the stabilizer can retry it. Guarded by succMu.
	joinTarget *routeHop

	// fingerCursor drives the fix-finger rotation, advanced atomically
	// because maintenance rounds may overlap.
	fingerCursor uint32

	dispatcher Dispatcher
	client     Client
	logger     zerolog.Logger
}

func snapshotFile(dir string, k key.DHTKey) string {
	return filepath.Join(dir, k.String()+".json")
}

// Key returns the virtual node's own key.
func (v *VirtualNode) Key() key.DHTKey {
	return v.idKey
}

// NetAddress returns the process's address.
func (v *VirtualNode) NetAddress() ring.NetAddress {
	return v.na
}

// Table returns the owning location table.
func (v *VirtualNode) Table() *ring.LocationTable {
	return v.table
}

// Create makes this virtual node a ring of its own: its successor is
// itself. Lookups terminate locally until somebody joins.
func (v *VirtualNode) Create() {
	v.clearPredecessor()
	v.SetSuccessor(v.idKey, v.na)
}

// Join makes this virtual node join an existing ring through the bootstrap
// peer. The predecessor is cleared; the successor is seeded from the
// bootstrap's view. On transport failure the error propagates and the
// stabilizer retries in the background.
func (v *VirtualNode) Join(bootstrap key.DHTKey, bootstrapNa ring.NetAddress) error {
	v.clearPredecessor()

	v.succMu.Lock()
	v.joinTarget = &routeHop{k: bootstrap, na: bootstrapNa}
	v.succMu.Unlock()

	succ, succNa, status, err := v.client.JoinGetSucc(bootstrap, bootstrapNa, v.idKey, v.na)
	if err != nil {
		return err
	}
	if status != types.StatusOk {
		return xerrors.Errorf("join refused by %s: %v", bootstrapNa, status)
	}

	v.SetSuccessor(succ, succNa)

	v.succMu.Lock()
	v.joinTarget = nil
	v.succMu.Unlock()

	v.logger.Info().Msgf("joined ring via %s, successor %s", bootstrapNa, succ)
	return nil
}

// JoinGetSucc answers a joiner: it resolves the joiner's key to its
// successor on the ring.
func (v *VirtualNode) JoinGetSucc(joiner key.DHTKey) (key.DHTKey, ring.NetAddress, types.Status) {
	succ, succNa, err := v.FindSuccessor(joiner)
	if err != nil {
		if errors.Is(err, dht.ErrNotJoined) {
			return key.DHTKey{}, ring.NetAddress{}, types.StatusBootstrap
		}
		return key.DHTKey{}, ring.NetAddress{}, types.StatusRetry
	}
	return succ, succNa, types.StatusOk
}

// FindClosestPredecessor scans the finger table from the highest slot down
// and returns the first entry strictly between this node and the target,
// falling back to this node itself. When the candidate's own successor is
// known it is piggybacked, saving the caller a round trip when the
// candidate turns out to be the final predecessor.
func (v *VirtualNode) FindClosestPredecessor(target key.DHTKey) (
	key.DHTKey, ring.NetAddress, key.DHTKey, ring.NetAddress, types.Status) {

	loc := v.fgt.FindClosestPredecessor(target)
	predKey := loc.Key()
	predNa := loc.NetAddress()

	var psKey key.DHTKey
	var psNa ring.NetAddress

	if predKey.Equal(v.idKey) {
		// We are the candidate: piggyback our own successor
		if succ, ok := v.Successor(); ok {
			psKey = succ
			psNa = v.addrOf(succ)
		}
	} else if succ, ok := v.Successor(); ok && predKey.Equal(succ) {
		// The candidate is our direct successor: its successor is the
		// second entry of our successor list, when we track it
		keys := v.succs.Keys()
		if len(keys) >= 2 {
			if l, found := v.table.Find(keys[1]); found {
				psKey = keys[1]
				psNa = l.NetAddress()
			}
		}
	}

	return predKey, predNa, psKey, psNa, types.StatusOk
}

// GetSuccessor returns this virtual node's direct successor.
func (v *VirtualNode) GetSuccessor() (key.DHTKey, ring.NetAddress, types.Status) {
	succ, ok := v.Successor()
	if !ok {
		return key.DHTKey{}, ring.NetAddress{}, types.StatusBootstrap
	}
	return succ, v.addrOf(succ), types.StatusOk
}

// GetPredecessor returns this virtual node's predecessor; a zero key means
// none is set.
func (v *VirtualNode) GetPredecessor() (key.DHTKey, ring.NetAddress, types.Status) {
	pred, ok := v.Predecessor()
	if !ok {
		return key.DHTKey{}, ring.NetAddress{}, types.StatusOk
	}
	return pred, v.addrOf(pred), types.StatusOk
}

// GetSuccList returns this virtual node's successor list with addresses.
func (v *VirtualNode) GetSuccList() ([]types.LocationInfo, types.Status) {
	keys := v.succs.Keys()
	entries := make([]types.LocationInfo, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, types.LocationInfo{Key: k, Addr: v.addrOf(k)})
	}
	return entries, types.StatusOk
}

// Notify handles a peer claiming to be our predecessor. The claim is
// accepted iff no predecessor is set, the current predecessor is dead, or
// the sender lies strictly between the current predecessor and us.
func (v *VirtualNode) Notify(senderKey key.DHTKey, senderNa ring.NetAddress) types.Status {
	if senderKey.Equal(v.idKey) {
		return types.StatusOk
	}

	resetPred := false
	pred, ok := v.Predecessor()
	if !ok {
		resetPred = true
	} else {
		predLoc, found := v.table.Find(pred)
		if !found {
			// A set predecessor must be in the location table
			v.invariant("predecessor %s not in location table", pred)
			resetPred = true
		} else if v.IsDead(pred, predLoc.NetAddress()) {
			// A node failed between the sender and us: the dead node must
			// not stay our predecessor
			resetPred = true
		} else if senderKey.Between(pred, v.idKey) {
			resetPred = true
		}
	}

	if resetPred {
		v.SetPredecessor(senderKey, senderNa)
	}
	return types.StatusOk
}

// Ping answers a liveness probe. A successful response means this virtual
// node was alive at call time.
func (v *VirtualNode) Ping() types.Status {
	// TODO: throttle pings per peer once the location entries track an
	// alive timestamp.
	return types.StatusOk
}

// IsDead reports whether the peer is considered dead. A locally hosted key
// is alive by definition; anybody else is pinged.
func (v *VirtualNode) IsDead(k key.DHTKey, na ring.NetAddress) bool {
	if v.dispatcher.IsLocal(k) {
		return false
	}
	status, err := v.client.Ping(k, na, v.idKey, v.na)
	return err != nil || status != types.StatusOk
}

// invariant reports a broken local invariant. With CheckInvariants set the
// process aborts: continuing on inconsistent ring state risks silent data
// loss.
func (v *VirtualNode) invariant(format string, args ...interface{}) {
	if v.conf.CheckInvariants {
		v.logger.Fatal().Msgf("invariant violation: "+format, args...)
	}
	v.logger.Error().Msgf("invariant violation: "+format, args...)
}

// Close persists the location table snapshot when configured.
func (v *VirtualNode) Close() {
	if v.conf.SnapshotPath != "" {
		err := v.table.SaveSnapshot(snapshotFile(v.conf.SnapshotPath, v.idKey))
		if err != nil {
			v.logger.Error().Msgf("failed to save location snapshot: %v", err)
		}
	}
}
