package ring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nettlebay/seeks/dht/impl/key"
)

// Test_SuccList_Set_Head tests head installation and self exclusion
func Test_SuccList_Set_Head(t *testing.T) {
	s := NewSuccessorList(nibbleKey(2), 4)

	_, ok := s.Head()
	require.False(t, ok)

	s.SetHead(nibbleKey(6))
	head, ok := s.Head()
	require.True(t, ok)
	require.Equal(t, nibbleKey(6), head)

	// A new head pushes the old one down
	s.SetHead(nibbleKey(4))
	require.Equal(t, []key.DHTKey{nibbleKey(4), nibbleKey(6)}, s.Keys())

	// Setting the same head again changes nothing
	s.SetHead(nibbleKey(4))
	require.Equal(t, []key.DHTKey{nibbleKey(4), nibbleKey(6)}, s.Keys())

	// The owner never appears in its own list
	s.SetHead(nibbleKey(2))
	require.Equal(t, []key.DHTKey{nibbleKey(4), nibbleKey(6)}, s.Keys())
}

// Test_SuccList_Refresh_Tail tests the shift-by-one refresh from the
// head's reported list
func Test_SuccList_Refresh_Tail(t *testing.T) {
	s := NewSuccessorList(nibbleKey(2), 3)

	// Refreshing an empty list is a no-op
	s.RefreshTail([]key.DHTKey{nibbleKey(10)})
	require.Empty(t, s.Keys())

	s.SetHead(nibbleKey(6))

	// The head's list starts with the head's own successor, which becomes
	// our second entry
	s.RefreshTail([]key.DHTKey{nibbleKey(10), nibbleKey(14), nibbleKey(2)})

	// Truncated to 3, the owner excluded
	require.Equal(t, []key.DHTKey{nibbleKey(6), nibbleKey(10), nibbleKey(14)}, s.Keys())
}

// Test_SuccList_Remove_Key tests single-entry removal under churn
func Test_SuccList_Remove_Key(t *testing.T) {
	s := NewSuccessorList(nibbleKey(2), 4)
	s.SetHead(nibbleKey(6))
	s.RefreshTail([]key.DHTKey{nibbleKey(10), nibbleKey(14)})

	s.RemoveKey(nibbleKey(6))
	require.Equal(t, []key.DHTKey{nibbleKey(10), nibbleKey(14)}, s.Keys())

	head, ok := s.Head()
	require.True(t, ok)
	require.Equal(t, nibbleKey(10), head)

	// Removing an absent key is a no-op
	s.RemoveKey(nibbleKey(6))
	require.Equal(t, 2, s.Len())
}
