package ring

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"golang.org/x/xerrors"

	"github.com/nettlebay/seeks/dht/impl/key"
)

// ErrDuplicateKey is returned by Add when the key is already present.
var ErrDuplicateKey = xerrors.New("duplicate key in location table")

// LocationTable owns all Location storage of a virtual node. Keys are
// unique. The table is ordered clockwise from zero, which gives the
// clockwise-successor scan used by finger repair and ordered removal.
//
// Entries may only be removed through the ordered-removal protocol of the
// virtual node: finger table first, then successor list, then the
// predecessor slot, and the table last. Removing an entry while a live
// handle exists elsewhere leaves that handle dangling.
type LocationTable struct {
	mu   sync.Mutex
	locs *treemap.Map // string(raw key bytes) -> *Location
}

// NewLocationTable returns a new empty location table.
func NewLocationTable() *LocationTable {
	return &LocationTable{
		// Raw big-endian key bytes compare lexicographically in ring order
		locs: treemap.NewWith(utils.StringComparator),
	}
}

// Find returns the handle for the key, or false. It never creates.
func (t *LocationTable) Find(k key.DHTKey) (*Location, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.find(k)
}

func (t *LocationTable) find(k key.DHTKey) (*Location, bool) {
	v, ok := t.locs.Get(string(k[:]))
	if !ok {
		return nil, false
	}
	return v.(*Location), true
}

// Add inserts a new location. It fails with ErrDuplicateKey when the key is
// already present.
func (t *LocationTable) Add(k key.DHTKey, na NetAddress) (*Location, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.find(k); ok {
		return nil, ErrDuplicateKey
	}

	loc := NewLocation(k, na)
	t.locs.Put(string(k[:]), loc)
	return loc, nil
}

// AddOrFind returns the existing handle for the key, refreshing its stored
// address if it changed, or creates a new one.
func (t *LocationTable) AddOrFind(k key.DHTKey, na NetAddress) *Location {
	t.mu.Lock()
	defer t.mu.Unlock()

	if loc, ok := t.find(k); ok {
		if !na.Empty() {
			loc.Update(na)
		}
		return loc
	}

	loc := NewLocation(k, na)
	t.locs.Put(string(k[:]), loc)
	return loc
}

// Remove removes the location by key. Removing a handle not in the table is
// a no-op.
func (t *LocationTable) Remove(loc *Location) {
	if loc == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	k := loc.Key()
	t.locs.Remove(string(k[:]))
}

// ClosestSuccessor returns the entry with the smallest key strictly
// clockwise of k, wrapping across zero. The entry for k itself, if any, is
// only returned when it is the sole entry left on the ring.
func (t *LocationTable) ClosestSuccessor(k key.DHTKey) (*Location, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := k.Successor()
	if fk, fv := t.locs.Ceiling(string(next[:])); fk != nil {
		return fv.(*Location), true
	}
	// Wrap across zero
	if fk, fv := t.locs.Min(); fk != nil {
		return fv.(*Location), true
	}
	return nil, false
}

// Len returns the number of entries.
func (t *LocationTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.locs.Size()
}

// Keys returns all keys in clockwise order from zero.
func (t *LocationTable) Keys() []key.DHTKey {
	t.mu.Lock()
	defer t.mu.Unlock()

	res := make([]key.DHTKey, 0, t.locs.Size())
	it := t.locs.Iterator()
	for it.Next() {
		res = append(res, it.Value().(*Location).Key())
	}
	return res
}

// locationSnapshot is the serialized form of one table entry.
type locationSnapshot struct {
	Key  key.DHTKey
	Addr NetAddress
}

// SaveSnapshot serializes the table to the given path. Snapshots reduce
// cold-start lookup latency; loaded entries are hints only, their liveness
// is confirmed by the stabilizer.
func (t *LocationTable) SaveSnapshot(path string) error {
	t.mu.Lock()
	entries := make([]locationSnapshot, 0, t.locs.Size())
	it := t.locs.Iterator()
	for it.Next() {
		loc := it.Value().(*Location)
		entries = append(entries, locationSnapshot{Key: loc.Key(), Addr: loc.NetAddress()})
	}
	t.mu.Unlock()

	buf, err := json.Marshal(entries)
	if err != nil {
		return xerrors.Errorf("failed to marshal location snapshot: %v", err)
	}
	return os.WriteFile(path, buf, 0o600)
}

// LoadSnapshot merges a serialized table into this one. Existing entries
// keep their current address.
func (t *LocationTable) LoadSnapshot(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return xerrors.Errorf("failed to read location snapshot: %v", err)
	}

	var entries []locationSnapshot
	err = json.Unmarshal(buf, &entries)
	if err != nil {
		return xerrors.Errorf("failed to unmarshal location snapshot: %v", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range entries {
		if _, ok := t.find(e.Key); !ok {
			t.locs.Put(string(e.Key[:]), NewLocation(e.Key, e.Addr))
		}
	}
	return nil
}
