package testing

import (
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nettlebay/seeks/dht"
	"github.com/nettlebay/seeks/dht/impl/key"
	"github.com/nettlebay/seeks/registry/standard"
	"github.com/nettlebay/seeks/transport"
)

// TestNode wraps a DHT node with its socket so tests can inspect traffic.
type TestNode struct {
	dht.DHT

	t      require.TestingT
	socket transport.ClosableSocket
	config dht.Configuration
}

// NewTestNode creates a started node with the given options.
func NewTestNode(t require.TestingT, f dht.Factory, trans transport.Transport,
	addr string, opts ...Option) TestNode {

	template := newConfigTemplate()
	for _, opt := range opts {
		opt(&template)
	}

	socket, err := trans.CreateSocket(addr)
	require.NoError(t, err)

	config := template.config
	config.Socket = socket
	config.MessageRegistry = standard.NewRegistry()

	node := f(config)

	err = node.Start()
	require.NoError(t, err)

	return TestNode{
		DHT:    node,
		t:      t,
		socket: socket,
		config: config,
	}
}

// GetIns returns all the packets the node's socket received.
func (n TestNode) GetIns() []transport.Packet {
	return n.socket.GetIns()
}

// GetOuts returns all the packets the node's socket sent.
func (n TestNode) GetOuts() []transport.Packet {
	return n.socket.GetOuts()
}

// CountOuts returns the number of sent packets of the given message type.
func (n TestNode) CountOuts(msgType string) int {
	count := 0
	for _, pkt := range n.socket.GetOuts() {
		if pkt.Msg.Type == msgType {
			count++
		}
	}
	return count
}

// VNodeKey returns the key of the node's first virtual node. Most tests
// host exactly one virtual node per node.
func (n TestNode) VNodeKey() key.DHTKey {
	keys := n.VirtualNodeKeys()
	require.NotEmpty(n.t, keys)
	return keys[0]
}

type configTemplate struct {
	config dht.Configuration
}

func newConfigTemplate() configTemplate {
	return configTemplate{
		config: dht.Configuration{
			NumVirtualNodes:        1,
			SuccListLength:         8,
			RPCTimeout:             time.Second * 2,
			RetryBudget:            2,
			StabilizeInterval:      0,
			FixFingerInterval:      0,
			CheckPredInterval:      0,
			MaintenanceParallelism: 4,
			CheckInvariants:        true,
		},
	}
}

// Option transforms a config template.
type Option func(*configTemplate)

// WithVNodeKeys fixes the keys of the initial virtual nodes.
func WithVNodeKeys(keys ...key.DHTKey) Option {
	return func(c *configTemplate) {
		c.config.VNodeKeys = keys
		if c.config.NumVirtualNodes < len(keys) {
			c.config.NumVirtualNodes = len(keys)
		}
	}
}

// WithNumVirtualNodes sets the number of virtual nodes created at startup.
func WithNumVirtualNodes(n int) Option {
	return func(c *configTemplate) {
		c.config.NumVirtualNodes = n
	}
}

// WithStabilizeInterval sets the stabilize interval. 0 disables it.
func WithStabilizeInterval(d time.Duration) Option {
	return func(c *configTemplate) {
		c.config.StabilizeInterval = d
	}
}

// WithFixFingerInterval sets the fix-finger interval. 0 disables it.
func WithFixFingerInterval(d time.Duration) Option {
	return func(c *configTemplate) {
		c.config.FixFingerInterval = d
	}
}

// WithCheckPredInterval sets the predecessor check interval. 0 disables it.
func WithCheckPredInterval(d time.Duration) Option {
	return func(c *configTemplate) {
		c.config.CheckPredInterval = d
	}
}

// WithRPCTimeout sets the reply wait timeout.
func WithRPCTimeout(d time.Duration) Option {
	return func(c *configTemplate) {
		c.config.RPCTimeout = d
	}
}

// WithRetryBudget sets the undershoot retry budget.
func WithRetryBudget(n int) Option {
	return func(c *configTemplate) {
		c.config.RetryBudget = n
	}
}

// WithSuccListLength sets the successor list length.
func WithSuccListLength(n int) Option {
	return func(c *configTemplate) {
		c.config.SuccListLength = n
	}
}

// WithSnapshotPath sets the location table snapshot directory.
func WithSnapshotPath(path string) Option {
	return func(c *configTemplate) {
		c.config.SnapshotPath = path
	}
}
