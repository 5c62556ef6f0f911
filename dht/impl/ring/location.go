package ring

import (
	"fmt"
	"net"
	"strconv"
	"sync"

	"golang.org/x/xerrors"

	"github.com/nettlebay/seeks/dht/impl/key"
)

// NetAddress is a transport endpoint. A node's address may change while its
// key stays stable, so addresses are mutable wherever they are cached.
type NetAddress struct {
	Host string
	Port int
}

// ParseNetAddress parses an address of the form "host:port".
func ParseNetAddress(s string) (NetAddress, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return NetAddress{}, xerrors.Errorf("invalid net address %s: %v", s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port >= 65536 {
		return NetAddress{}, xerrors.Errorf("invalid port in net address %s", s)
	}
	return NetAddress{Host: host, Port: port}, nil
}

// Equal returns true iff both addresses denote the same endpoint.
func (na NetAddress) Equal(o NetAddress) bool {
	return na.Host == o.Host && na.Port == o.Port
}

// Empty returns true for the zero address.
func (na NetAddress) Empty() bool {
	return na.Host == "" && na.Port == 0
}

// String returns the "host:port" form.
func (na NetAddress) String() string {
	return fmt.Sprintf("%s:%d", na.Host, na.Port)
}

// MarshalText implements encoding.TextMarshaler.
func (na NetAddress) MarshalText() ([]byte, error) {
	if na.Empty() {
		return []byte(""), nil
	}
	return []byte(na.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (na *NetAddress) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*na = NetAddress{}
		return nil
	}
	parsed, err := ParseNetAddress(string(text))
	if err != nil {
		return err
	}
	*na = parsed
	return nil
}

// Location is a cached (key, address) binding with stable identity. The
// location table owns every Location; the finger table, the successor list
// and the successor/predecessor slots hold non-owning handles into it.
type Location struct {
	key key.DHTKey

	mu sync.RWMutex
	na NetAddress
}

// NewLocation returns a location binding the key to the address.
func NewLocation(k key.DHTKey, na NetAddress) *Location {
	return &Location{key: k, na: na}
}

// Key returns the location's key. The key never changes.
func (l *Location) Key() key.DHTKey {
	return l.key
}

// NetAddress returns the current address.
func (l *Location) NetAddress() NetAddress {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.na
}

// Update refreshes the address in place when it changed.
func (l *Location) Update(na NetAddress) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.na.Equal(na) {
		l.na = na
	}
}

// String returns a short representation for logs.
func (l *Location) String() string {
	return fmt.Sprintf("%s@%s", l.key, l.NetAddress())
}
