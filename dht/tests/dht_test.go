package tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nettlebay/seeks/dht"
	"github.com/nettlebay/seeks/dht/impl"
	"github.com/nettlebay/seeks/dht/impl/key"
	z "github.com/nettlebay/seeks/internal/testing"
	"github.com/nettlebay/seeks/transport"
	"github.com/nettlebay/seeks/transport/channel"
)

var nodeFac dht.Factory = impl.NewDHT

// nibbleKey places a small literal in the top four bits of a key, so the
// classic 4-bit ring examples keep their clockwise order.
func nibbleKey(n byte) key.DHTKey {
	var k key.DHTKey
	k[0] = n << 4
	return k
}

// Test_DHT_Single_Node_Ring tests that a lone node resolves every key to
// itself
func Test_DHT_Single_Node_Ring(t *testing.T) {
	transp := channel.NewTransport()

	node := z.NewTestNode(t, nodeFac, transp, "127.0.0.1:0", z.WithVNodeKeys(nibbleKey(4)))
	defer node.Stop()

	node.Create()

	k, na, err := node.FindSuccessor(nibbleKey(9))
	require.NoError(t, err)
	require.Equal(t, nibbleKey(4), k)
	require.Equal(t, node.GetAddr(), na.String())

	// Everything stayed in process
	require.Empty(t, node.GetOuts())
}

// Test_DHT_Join_Seeds_Successor tests that a join installs the
// bootstrap's view of the successor, and nothing else yet
func Test_DHT_Join_Seeds_Successor(t *testing.T) {
	transp := channel.NewTransport()

	node1 := z.NewTestNode(t, nodeFac, transp, "127.0.0.1:0", z.WithVNodeKeys(nibbleKey(4)))
	defer node1.Stop()
	node2 := z.NewTestNode(t, nodeFac, transp, "127.0.0.1:0", z.WithVNodeKeys(nibbleKey(12)))
	defer node2.Stop()

	node1.Create()
	require.NoError(t, node2.Join(node1.GetAddr()))

	succ, ok := node2.GetSuccessor(nibbleKey(12))
	require.True(t, ok)
	require.Equal(t, nibbleKey(4), succ)

	// Predecessors stay unset until stabilization runs
	_, ok = node1.GetPredecessor(nibbleKey(4))
	require.False(t, ok)
	_, ok = node2.GetPredecessor(nibbleKey(12))
	require.False(t, ok)
}

// Test_DHT_Two_Node_Stabilize tests that two nodes converge to a complete
// ring and route across it
func Test_DHT_Two_Node_Stabilize(t *testing.T) {
	transp := channel.NewTransport()

	node1 := z.NewTestNode(t, nodeFac, transp, "127.0.0.1:0",
		z.WithVNodeKeys(nibbleKey(4)), z.WithStabilizeInterval(time.Millisecond*100))
	defer node1.Stop()
	node2 := z.NewTestNode(t, nodeFac, transp, "127.0.0.1:0",
		z.WithVNodeKeys(nibbleKey(12)), z.WithStabilizeInterval(time.Millisecond*100))
	defer node2.Stop()

	node1.Create()
	require.NoError(t, node2.Join(node1.GetAddr()))

	time.Sleep(time.Second * 2)

	succ, ok := node1.GetSuccessor(nibbleKey(4))
	require.True(t, ok)
	require.Equal(t, nibbleKey(12), succ)

	pred, ok := node1.GetPredecessor(nibbleKey(4))
	require.True(t, ok)
	require.Equal(t, nibbleKey(12), pred)

	succ, ok = node2.GetSuccessor(nibbleKey(12))
	require.True(t, ok)
	require.Equal(t, nibbleKey(4), succ)

	pred, ok = node2.GetPredecessor(nibbleKey(12))
	require.True(t, ok)
	require.Equal(t, nibbleKey(4), pred)

	// A key behind the origin wraps to node1
	k, na, err := node2.FindSuccessor(nibbleKey(2))
	require.NoError(t, err)
	require.Equal(t, nibbleKey(4), k)
	require.Equal(t, node1.GetAddr(), na.String())
}

func fourNodeRing(t *testing.T, transp transport.Transport) []z.TestNode {
	nodes := make([]z.TestNode, 0, 4)
	for _, n := range []byte{2, 6, 10, 14} {
		node := z.NewTestNode(t, nodeFac, transp, "127.0.0.1:0",
			z.WithVNodeKeys(nibbleKey(n)), z.WithStabilizeInterval(time.Millisecond*100))
		nodes = append(nodes, node)
	}

	nodes[0].Create()
	for _, node := range nodes[1:] {
		require.NoError(t, node.Join(nodes[0].GetAddr()))
	}

	// Let the ring converge: successors, predecessors and successor lists
	time.Sleep(time.Second * 3)
	return nodes
}

// Test_DHT_Four_Node_Lookup tests the hop bound and the piggyback on a
// converged four-node ring
func Test_DHT_Four_Node_Lookup(t *testing.T) {
	transp := channel.NewTransport()
	nodes := fourNodeRing(t, transp)
	defer func() {
		for _, n := range nodes {
			n.Stop()
		}
	}()

	fcpBefore := nodes[0].CountOuts("dhtfindclosestpred")
	getSuccBefore := nodes[0].CountOuts("dhtgetsucc")

	k, na, err := nodes[0].FindSuccessor(nibbleKey(13))
	require.NoError(t, err)
	require.Equal(t, nibbleKey(14), k)
	require.Equal(t, nodes[3].GetAddr(), na.String())

	// At most ceil(log2(4)) = 2 remote hops, and the piggybacked
	// successor saves the terminal getSuccessor
	require.LessOrEqual(t, nodes[0].CountOuts("dhtfindclosestpred")-fcpBefore, 2)
	require.Equal(t, 0, nodes[0].CountOuts("dhtgetsucc")-getSuccBefore)
}

// Test_DHT_Notify_Reassigns_Predecessor tests that a node sliding between
// two ring members becomes the predecessor of its successor
func Test_DHT_Notify_Reassigns_Predecessor(t *testing.T) {
	transp := channel.NewTransport()

	node2 := z.NewTestNode(t, nodeFac, transp, "127.0.0.1:0",
		z.WithVNodeKeys(nibbleKey(2)), z.WithStabilizeInterval(time.Millisecond*100))
	defer node2.Stop()
	node10 := z.NewTestNode(t, nodeFac, transp, "127.0.0.1:0",
		z.WithVNodeKeys(nibbleKey(10)), z.WithStabilizeInterval(time.Millisecond*100))
	defer node10.Stop()

	node2.Create()
	require.NoError(t, node10.Join(node2.GetAddr()))
	time.Sleep(time.Second * 2)

	pred, ok := node10.GetPredecessor(nibbleKey(10))
	require.True(t, ok)
	require.Equal(t, nibbleKey(2), pred)

	// 6 appears: 10 accepts it because 6 is in (2, 10)
	node6 := z.NewTestNode(t, nodeFac, transp, "127.0.0.1:0",
		z.WithVNodeKeys(nibbleKey(6)), z.WithStabilizeInterval(time.Millisecond*100))
	defer node6.Stop()

	require.NoError(t, node6.Join(node2.GetAddr()))
	time.Sleep(time.Second * 2)

	pred, ok = node10.GetPredecessor(nibbleKey(10))
	require.True(t, ok)
	require.Equal(t, nibbleKey(6), pred)
}

// Test_DHT_Dead_Node_Recovery tests that lookups keep completing after a
// ring member crashes, once its neighbors repaired around it
func Test_DHT_Dead_Node_Recovery(t *testing.T) {
	transp := channel.NewTransport()
	nodes := fourNodeRing(t, transp)
	defer func() {
		for i, n := range nodes {
			if i != 2 {
				n.Stop()
			}
		}
	}()

	// 10 crashes mid-ring
	require.NoError(t, nodes[2].Stop())

	// 6 observes the death on its next stabilize round and promotes 14
	// from its successor list
	time.Sleep(time.Second * 2)

	succ, ok := nodes[1].GetSuccessor(nibbleKey(6))
	require.True(t, ok)
	require.Equal(t, nibbleKey(14), succ)

	// A key 10 used to be responsible for now resolves to 14
	k, na, err := nodes[0].FindSuccessor(nibbleKey(11))
	require.NoError(t, err)
	require.Equal(t, nibbleKey(14), k)
	require.Equal(t, nodes[3].GetAddr(), na.String())
}

// Test_DHT_Multi_VNode_Local_Dispatch tests that virtual nodes of one
// process route through the dispatcher, never through the network
func Test_DHT_Multi_VNode_Local_Dispatch(t *testing.T) {
	transp := channel.NewTransport()

	node := z.NewTestNode(t, nodeFac, transp, "127.0.0.1:0",
		z.WithVNodeKeys(nibbleKey(4), nibbleKey(12)))
	defer node.Stop()

	node.Create()

	k, _, err := node.FindSuccessor(nibbleKey(9))
	require.NoError(t, err)
	require.Equal(t, nibbleKey(12), k)

	k, _, err = node.FindSuccessor(nibbleKey(13))
	require.NoError(t, err)
	require.Equal(t, nibbleKey(4), k)

	require.Empty(t, node.GetOuts())
}

// Test_DHT_Add_Virtual_Node tests dynamic virtual node registration
func Test_DHT_Add_Virtual_Node(t *testing.T) {
	transp := channel.NewTransport()

	node := z.NewTestNode(t, nodeFac, transp, "127.0.0.1:0", z.WithVNodeKeys(nibbleKey(4)))
	defer node.Stop()

	node.Create()

	k, err := node.AddVirtualNode()
	require.NoError(t, err)
	require.Contains(t, node.VirtualNodeKeys(), k)

	// The new virtual node is seeded with a successor right away
	_, ok := node.GetSuccessor(k)
	require.True(t, ok)

	require.NoError(t, node.RemoveVirtualNode(k))
	require.NotContains(t, node.VirtualNodeKeys(), k)
	require.Error(t, node.RemoveVirtualNode(k))
}
