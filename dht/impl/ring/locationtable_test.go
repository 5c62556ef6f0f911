package ring

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nettlebay/seeks/dht/impl/key"
)

func nibbleKey(n byte) key.DHTKey {
	var k key.DHTKey
	k[0] = n << 4
	return k
}

func addr(port int) NetAddress {
	return NetAddress{Host: "127.0.0.1", Port: port}
}

// Test_LocationTable_Add tests insertion and the duplicate-key failure
func Test_LocationTable_Add(t *testing.T) {
	table := NewLocationTable()

	loc, err := table.Add(nibbleKey(4), addr(4001))
	require.NoError(t, err)
	require.Equal(t, nibbleKey(4), loc.Key())

	_, err = table.Add(nibbleKey(4), addr(4002))
	require.ErrorIs(t, err, ErrDuplicateKey)

	// The failed insert did not touch the stored address
	found, ok := table.Find(nibbleKey(4))
	require.True(t, ok)
	require.Equal(t, addr(4001), found.NetAddress())
}

// Test_LocationTable_Find_Handle_Identity tests that every lookup of a key
// returns the same handle, for as long as the entry is in the table
func Test_LocationTable_Find_Handle_Identity(t *testing.T) {
	table := NewLocationTable()

	loc := table.AddOrFind(nibbleKey(4), addr(4001))

	found, ok := table.Find(nibbleKey(4))
	require.True(t, ok)
	require.Same(t, loc, found)

	again := table.AddOrFind(nibbleKey(4), addr(4001))
	require.Same(t, loc, again)
}

// Test_LocationTable_AddOrFind_Refresh tests the in-place address refresh
func Test_LocationTable_AddOrFind_Refresh(t *testing.T) {
	table := NewLocationTable()

	loc := table.AddOrFind(nibbleKey(10), addr(4001))
	require.Equal(t, addr(4001), loc.NetAddress())

	// Same key, new address: the entry is refreshed, not recreated
	same := table.AddOrFind(nibbleKey(10), addr(4009))
	require.Same(t, loc, same)
	require.Equal(t, addr(4009), loc.NetAddress())
	require.Equal(t, 1, table.Len())
}

// Test_LocationTable_Remove tests removal and its no-op on absent handles
func Test_LocationTable_Remove(t *testing.T) {
	table := NewLocationTable()

	loc := table.AddOrFind(nibbleKey(4), addr(4001))
	table.Remove(loc)
	require.Equal(t, 0, table.Len())

	_, ok := table.Find(nibbleKey(4))
	require.False(t, ok)

	// Removing an absent handle is a no-op
	table.Remove(loc)
	table.Remove(nil)
}

// Test_LocationTable_Closest_Successor tests the clockwise scan, wrap
// included
func Test_LocationTable_Closest_Successor(t *testing.T) {
	table := NewLocationTable()
	for _, n := range []byte{2, 6, 10, 14} {
		table.AddOrFind(nibbleKey(n), addr(4000+int(n)))
	}

	succ, ok := table.ClosestSuccessor(nibbleKey(6))
	require.True(t, ok)
	require.Equal(t, nibbleKey(10), succ.Key())

	// Between entries
	succ, ok = table.ClosestSuccessor(nibbleKey(7))
	require.True(t, ok)
	require.Equal(t, nibbleKey(10), succ.Key())

	// Wrap across zero
	succ, ok = table.ClosestSuccessor(nibbleKey(14))
	require.True(t, ok)
	require.Equal(t, nibbleKey(2), succ.Key())

	_, ok = NewLocationTable().ClosestSuccessor(nibbleKey(0))
	require.False(t, ok)
}

// Test_LocationTable_Keys_Ordered tests the clockwise iteration order
func Test_LocationTable_Keys_Ordered(t *testing.T) {
	table := NewLocationTable()
	for _, n := range []byte{10, 2, 14, 6} {
		table.AddOrFind(nibbleKey(n), addr(4000+int(n)))
	}

	keys := table.Keys()
	require.Equal(t, []key.DHTKey{nibbleKey(2), nibbleKey(6), nibbleKey(10), nibbleKey(14)}, keys)
}

// Test_LocationTable_Snapshot tests the save/load round trip used for
// cold-start hints
func Test_LocationTable_Snapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.json")

	table := NewLocationTable()
	table.AddOrFind(nibbleKey(2), addr(4002))
	table.AddOrFind(nibbleKey(10), addr(4010))
	require.NoError(t, table.SaveSnapshot(path))

	loaded := NewLocationTable()
	// An existing entry keeps its live address over the snapshot hint
	loaded.AddOrFind(nibbleKey(2), addr(5002))
	require.NoError(t, loaded.LoadSnapshot(path))

	require.Equal(t, 2, loaded.Len())
	loc, ok := loaded.Find(nibbleKey(2))
	require.True(t, ok)
	require.Equal(t, addr(5002), loc.NetAddress())
	loc, ok = loaded.Find(nibbleKey(10))
	require.True(t, ok)
	require.Equal(t, addr(4010), loc.NetAddress())

	require.Error(t, loaded.LoadSnapshot(filepath.Join(t.TempDir(), "missing.json")))
}
