package key

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"math/bits"

	"golang.org/x/xerrors"
)

// Bytes is the width of a DHT key in bytes. Keys are 160-bit identifiers on
// the Chord ring, the same width as a SHA-1 digest.
const Bytes = 20

// Bits is the width of a DHT key in bits. It is also the number of slots in
// a finger table.
const Bits = Bytes * 8

// DHTKey is a fixed-width identifier on the circular key space. The zero
// value is the "unset key" sentinel, see Count.
type DHTKey [Bytes]byte

// Random returns a fresh key drawn from a cryptographically seeded source.
// Uniqueness on the ring is probabilistic.
func Random() DHTKey {
	var k DHTKey
	_, err := rand.Read(k[:])
	if err != nil {
		panic(err)
	}
	return k
}

// FromString parses a key from its hex representation.
func FromString(s string) (DHTKey, error) {
	var k DHTKey
	buf, err := hex.DecodeString(s)
	if err != nil {
		return k, xerrors.Errorf("failed to decode key %s: %v", s, err)
	}
	if len(buf) != Bytes {
		return k, xerrors.Errorf("wrong key length: %d", len(buf))
	}
	copy(k[:], buf)
	return k, nil
}

// Equal returns true iff both keys are identical.
func (k DHTKey) Equal(o DHTKey) bool {
	return k == o
}

// Cmp compares two keys in the total order from zero, like bytes.Compare.
func (k DHTKey) Cmp(o DHTKey) int {
	return bytes.Compare(k[:], o[:])
}

// Count returns the number of set bits. A count of zero distinguishes an
// unset key from a real one; random keys are never all-zero in practice.
func (k DHTKey) Count() int {
	n := 0
	for _, b := range k {
		n += bits.OnesCount8(b)
	}
	return n
}

// Between returns true iff the key lies on the open clockwise arc (lo, hi),
// wrapping across zero. Endpoints are excluded. When lo == hi the arc is the
// entire ring minus lo.
func (k DHTKey) Between(lo, hi DHTKey) bool {
	cmp := lo.Cmp(hi)
	if cmp < 0 {
		return k.Cmp(lo) > 0 && k.Cmp(hi) < 0
	}
	if cmp > 0 {
		// The arc wraps across zero
		return k.Cmp(lo) > 0 || k.Cmp(hi) < 0
	}
	return !k.Equal(lo)
}

// BetweenRightIncl returns true iff the key lies on the arc (lo, hi], the
// variant used by the lookup termination test and by stabilization. When
// lo == hi the arc covers the whole ring.
func (k DHTKey) BetweenRightIncl(lo, hi DHTKey) bool {
	return k.Equal(hi) || k.Between(lo, hi)
}

// Add returns k + 2^idx mod 2^Bits, the base of finger number idx.
func (k DHTKey) Add(idx uint) DHTKey {
	if idx >= Bits {
		return k
	}
	res := k

	// Keys are big-endian: byte 0 carries the most significant bits.
	i := Bytes - 1 - int(idx>>3)
	r := uint16(res[i]) + uint16(1)<<(idx&7)
	res[i] = uint8(r)
	if r <= 0xff {
		return res
	}
	for i--; i >= 0; i-- {
		res[i]++
		if res[i] != 0 {
			break
		}
	}
	return res
}

// Successor returns k + 1 mod 2^Bits.
func (k DHTKey) Successor() DHTKey {
	return k.Add(0)
}

// String returns the hex representation of the key.
func (k DHTKey) String() string {
	return hex.EncodeToString(k[:])
}

// MarshalText implements encoding.TextMarshaler so keys can travel inside
// json wire messages.
func (k DHTKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *DHTKey) UnmarshalText(text []byte) error {
	parsed, err := FromString(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
