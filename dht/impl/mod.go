package impl

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"

	"github.com/nettlebay/seeks/dht"
	"github.com/nettlebay/seeks/dht/impl/key"
	"github.com/nettlebay/seeks/dht/impl/messaging"
	"github.com/nettlebay/seeks/dht/impl/ring"
	"github.com/nettlebay/seeks/dht/impl/rpc"
	"github.com/nettlebay/seeks/dht/impl/stabilizer"
	"github.com/nettlebay/seeks/dht/impl/vnode"
	"github.com/nettlebay/seeks/types"
)

// node is a process-level container of virtual nodes. It dispatches calls
// to the virtual node hosting the recipient key when there is one, so
// single-process multi-vnode deployments never loop through the network.
//
// - implements dht.DHT
// - implements rpc.Dispatcher
// - implements vnode.Dispatcher
type node struct {
	address string
	na      ring.NetAddress
	conf    *dht.Configuration

	msg    *messaging.Messaging
	client *rpc.Client
	server *rpc.Server
	stab   *stabilizer.Stabilizer

	// vnodeMu guards vnodes; registration with the stabilizer happens
	// under it so no maintenance round started after a removal picks the
	// removed virtual node up.
	vnodeMu sync.RWMutex
	vnodes  map[key.DHTKey]*vnode.VirtualNode

	logger zerolog.Logger
}

// NewDHT creates a new node hosting the configured number of virtual
// nodes.
//
// - implements dht.Factory
func NewDHT(conf dht.Configuration) dht.DHT {
	applyDefaults(&conf)

	address := conf.Socket.GetAddress()
	na, err := ring.ParseNetAddress(address)
	if err != nil {
		log.Fatal().Msgf("invalid socket address %s: %v", address, err)
	}

	msg := messaging.NewMessaging(&conf)
	client := rpc.NewClient(&conf, msg)

	n := node{
		address: address,
		na:      na,
		conf:    &conf,
		msg:     msg,
		client:  client,
		stab:    stabilizer.NewStabilizer(&conf),
		vnodes:  make(map[key.DHTKey]*vnode.VirtualNode),
		logger:  log.With().Str("mod", "node").Str("addr", address).Logger(),
	}
	n.server = rpc.NewServer(&conf, msg, &n)

	n.vnodeMu.Lock()
	for i := 0; i < conf.NumVirtualNodes; i++ {
		k := key.Random()
		if i < len(conf.VNodeKeys) {
			k = conf.VNodeKeys[i]
		}
		v := vnode.NewVirtualNode(&conf, k, na, &n, client)
		n.vnodes[k] = v
		n.stab.Register(v)
	}
	n.vnodeMu.Unlock()

	return &n
}

func applyDefaults(conf *dht.Configuration) {
	if conf.NumVirtualNodes <= 0 {
		conf.NumVirtualNodes = 1
	}
	if conf.RetryBudget <= 0 {
		conf.RetryBudget = 2
	}
	if conf.RPCTimeout == 0 {
		conf.RPCTimeout = defaultRPCTimeout
	}
}

// Start implements dht.Service
func (n *node) Start() error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	n.msg.Start()
	n.stab.Start()
	return nil
}

// Stop implements dht.Service
func (n *node) Stop() error {
	n.stab.Stop()
	n.msg.Stop()

	n.vnodeMu.Lock()
	for _, v := range n.vnodes {
		v.Close()
	}
	n.vnodeMu.Unlock()

	return n.conf.Socket.Close()
}

// GetAddr implements dht.DHT
func (n *node) GetAddr() string {
	return n.address
}

// Create implements dht.DHT. With several virtual nodes hosted, they are
// linked into one ring in clockwise order; a single one points at itself.
func (n *node) Create() {
	vnodes := n.allVNodes()
	sort.Slice(vnodes, func(i, j int) bool {
		return vnodes[i].Key().Cmp(vnodes[j].Key()) < 0
	})

	if len(vnodes) == 1 {
		vnodes[0].Create()
		return
	}
	for i, v := range vnodes {
		next := vnodes[(i+1)%len(vnodes)]
		v.Create()
		v.SetSuccessor(next.Key(), n.na)
	}
}

// Join implements dht.DHT
func (n *node) Join(remoteAddr string) error {
	bootstrapNa, err := ring.ParseNetAddress(remoteAddr)
	if err != nil {
		return err
	}

	// A zero bootstrap key lets the remote process pick any of its own
	// virtual nodes to answer.
	var firstErr error
	for _, v := range n.allVNodes() {
		err := v.Join(key.DHTKey{}, bootstrapNa)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// FindSuccessor implements dht.DHT
func (n *node) FindSuccessor(k key.DHTKey) (key.DHTKey, ring.NetAddress, error) {
	v := n.anyVNode()
	if v == nil {
		return key.DHTKey{}, ring.NetAddress{}, xerrors.New("no virtual node hosted")
	}
	return v.FindSuccessor(k)
}

// AddVirtualNode implements dht.DHT
func (n *node) AddVirtualNode() (key.DHTKey, error) {
	k := key.Random()
	v := vnode.NewVirtualNode(n.conf, k, n.na, n, n.client)

	existing := n.anyVNode()
	if existing == nil {
		v.Create()
	} else {
		succ, succNa, status := existing.JoinGetSucc(k)
		if status != types.StatusOk {
			return key.DHTKey{}, xerrors.Errorf("failed to seed virtual node: %v", status)
		}
		v.SetSuccessor(succ, succNa)
	}

	n.vnodeMu.Lock()
	n.vnodes[k] = v
	n.stab.Register(v)
	n.vnodeMu.Unlock()

	n.logger.Info().Msgf("added virtual node %s", k)
	return k, nil
}

// RemoveVirtualNode implements dht.DHT
func (n *node) RemoveVirtualNode(k key.DHTKey) error {
	n.vnodeMu.Lock()
	v, ok := n.vnodes[k]
	if ok {
		// The virtual node leaves the maintenance set in the same
		// critical section as the container, so no round started after
		// this point picks it up. A round already in flight may still
		// finish on it.
		delete(n.vnodes, k)
		n.stab.Deregister(k)
	}
	n.vnodeMu.Unlock()

	if !ok {
		return xerrors.Errorf("unknown virtual node: %s", k)
	}
	v.Close()
	return nil
}

// VirtualNodeKeys implements dht.DHT
func (n *node) VirtualNodeKeys() []key.DHTKey {
	n.vnodeMu.RLock()
	defer n.vnodeMu.RUnlock()

	res := make([]key.DHTKey, 0, len(n.vnodes))
	for k := range n.vnodes {
		res = append(res, k)
	}
	return res
}

// GetSuccessor implements dht.DHT
func (n *node) GetSuccessor(vn key.DHTKey) (key.DHTKey, bool) {
	v := n.findVNode(vn)
	if v == nil {
		return key.DHTKey{}, false
	}
	return v.Successor()
}

// GetPredecessor implements dht.DHT
func (n *node) GetPredecessor(vn key.DHTKey) (key.DHTKey, bool) {
	v := n.findVNode(vn)
	if v == nil {
		return key.DHTKey{}, false
	}
	return v.Predecessor()
}

// GetFingerKeys implements dht.DHT
func (n *node) GetFingerKeys(vn key.DHTKey) []key.DHTKey {
	v := n.findVNode(vn)
	if v == nil {
		return nil
	}

	locs := v.FingerLocations()
	res := make([]key.DHTKey, len(locs))
	for i, loc := range locs {
		if loc != nil {
			res[i] = loc.Key()
		}
	}
	return res
}

// GetSuccList implements dht.DHT
func (n *node) GetSuccList(vn key.DHTKey) []key.DHTKey {
	v := n.findVNode(vn)
	if v == nil {
		return nil
	}
	return v.SuccList()
}

func (n *node) findVNode(k key.DHTKey) *vnode.VirtualNode {
	n.vnodeMu.RLock()
	defer n.vnodeMu.RUnlock()
	return n.vnodes[k]
}

func (n *node) anyVNode() *vnode.VirtualNode {
	n.vnodeMu.RLock()
	defer n.vnodeMu.RUnlock()
	for _, v := range n.vnodes {
		return v
	}
	return nil
}

func (n *node) allVNodes() []*vnode.VirtualNode {
	n.vnodeMu.RLock()
	defer n.vnodeMu.RUnlock()

	res := make([]*vnode.VirtualNode, 0, len(n.vnodes))
	for _, v := range n.vnodes {
		res = append(res, v)
	}
	return res
}
