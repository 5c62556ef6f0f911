package dht

import (
	"github.com/nettlebay/seeks/dht/impl/key"
	"github.com/nettlebay/seeks/dht/impl/ring"
)

// Service describes a node's lifecycle.
type Service interface {
	// Start starts the node: the socket listener and the maintenance
	// daemons.
	Start() error

	// Stop stops the node. The maintenance daemons and the listener stop
	// before the socket closes.
	Stop() error
}

// DHT is the public surface of a node on the overlay. A node hosts one or
// more virtual nodes on the ring; co-hosted applications resolve keys with
// FindSuccessor and may register additional virtual nodes.
type DHT interface {
	Service

	// GetAddr returns the node's socket address.
	GetAddr() string

	// Create makes this node a ring of its own: a single virtual node
	// points at itself, several are linked into one ring in clockwise
	// order. Lookups work immediately; other nodes join through it.
	Create()

	// Join joins an existing ring through the bootstrap peer at the given
	// address. On transport failure the error is returned and the
	// stabilizer keeps retrying in the background.
	Join(remoteAddr string) error

	// FindSuccessor resolves the key to the virtual node currently
	// responsible for it. The error, when set, is either temporary
	// (IsTemporary) or permanent for this target.
	FindSuccessor(k key.DHTKey) (key.DHTKey, ring.NetAddress, error)

	// AddVirtualNode registers one more virtual node with a fresh random
	// key and joins it to the ring through the local ones. It returns the
	// new key.
	AddVirtualNode() (key.DHTKey, error)

	// RemoveVirtualNode tears one virtual node down, dropping it from the
	// maintenance set atomically.
	RemoveVirtualNode(k key.DHTKey) error

	// VirtualNodeKeys returns the keys of the hosted virtual nodes.
	VirtualNodeKeys() []key.DHTKey

	// GetSuccessor returns the successor of the given hosted virtual node,
	// or false when unset or the virtual node is unknown.
	GetSuccessor(vnode key.DHTKey) (key.DHTKey, bool)

	// GetPredecessor returns the predecessor of the given hosted virtual
	// node, or false when unset or the virtual node is unknown.
	GetPredecessor(vnode key.DHTKey) (key.DHTKey, bool)

	// GetFingerKeys returns the finger table of the given hosted virtual
	// node, one entry per slot, zero keys for empty slots.
	GetFingerKeys(vnode key.DHTKey) []key.DHTKey

	// GetSuccList returns the successor list of the given hosted virtual
	// node.
	GetSuccList(vnode key.DHTKey) []key.DHTKey
}

// Factory is the type of function we are using to create new instances of
// nodes.
type Factory func(Configuration) DHT
