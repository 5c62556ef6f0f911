package transport

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
)

// Transport is the network abstraction. An implementation provides sockets
// bound to an address.
type Transport interface {
	CreateSocket(address string) (ClosableSocket, error)
}

// Factory describes a function to create a new transport instance.
type Factory func() Transport

// Socket describes the primitives of a network socket.
type Socket interface {
	// Send sends a packet to the destination address. A timeout of 0 means
	// no timeout.
	Send(dest string, pkt Packet, timeout time.Duration) error

	// Recv blocks until a packet is received, or the timeout is reached. In
	// the case the timeout is reached, it returns a TimeoutError.
	Recv(timeout time.Duration) (Packet, error)

	// GetAddress returns the address assigned to the socket.
	GetAddress() string

	// GetIns returns all the packets received so far.
	GetIns() []Packet

	// GetOuts returns all the packets sent so far.
	GetOuts() []Packet
}

// ClosableSocket augments a socket with a close operation.
type ClosableSocket interface {
	Socket

	// Close closes the socket. It returns an error if already closed.
	Close() error
}

// TimeoutError is a type of error used by the socket when the timeout of a
// Recv or Send is reached.
type TimeoutError time.Duration

// Error implements error. Returns the error string.
func (err TimeoutError) Error() string {
	return fmt.Sprintf("timeout reached after %d", time.Duration(err))
}

// Is implements error.
func (err TimeoutError) Is(other error) bool {
	_, ok := other.(TimeoutError)
	return ok
}

// Packet is a type of message sent over the network.
type Packet struct {
	Header *Header

	Msg *Message
}

// Marshal transforms the packet to something that can be sent over the
// network.
func (p Packet) Marshal() ([]byte, error) {
	return json.Marshal(&p)
}

// Unmarshal transforms a marshaled packet to an actual packet. Example:
//
//	var pkt Packet
//	err := pkt.Unmarshal(buf)
func (p *Packet) Unmarshal(buf []byte) error {
	return json.Unmarshal(buf, p)
}

// Copy returns a deep copy of the packet.
func (p Packet) Copy() Packet {
	h := p.Header.Copy()
	m := p.Msg.Copy()

	return Packet{
		Header: &h,
		Msg:    &m,
	}
}

// NewHeader returns a new header with initialized fields.
func NewHeader(source, relay, destination string, ttl uint) Header {
	return Header{
		PacketID:    xid.New().String(),
		TTL:         ttl,
		Timestamp:   time.Now().UnixNano(),
		Source:      source,
		RelayedBy:   relay,
		Destination: destination,
	}
}

// Header contains the metadata of a packet.
type Header struct {
	// PacketID is a unique packet identifier.
	PacketID string

	// TTL is the remaining time to live. Not used by the DHT, which routes
	// at the application layer.
	TTL uint

	// Timestamp is the creation timestamp, in unix nanoseconds.
	Timestamp int64

	Source      string
	RelayedBy   string
	Destination string
}

// Copy returns the copy of the header.
func (h Header) Copy() Header {
	return h
}

// String returns a string representation of the header.
func (h Header) String() string {
	return fmt.Sprintf("<%s> %s -> %s (relayed by %s)",
		h.PacketID, h.Source, h.Destination, h.RelayedBy)
}

// Message defines the type of message sent over the network. Payload should
// be a json marshaled representation of a types.Message, and Type the
// message's name.
type Message struct {
	Type    string
	Payload json.RawMessage
}

// Copy returns a copy of the message.
func (m Message) Copy() Message {
	payload := make([]byte, len(m.Payload))
	copy(payload, m.Payload)

	return Message{
		Type:    m.Type,
		Payload: payload,
	}
}

// Packets is a thread-safe list of packets, used by sockets to record their
// traffic.
type Packets struct {
	sync.Mutex
	data []Packet
}

// Add appends a copy of the packet to the list.
func (p *Packets) Add(pkt Packet) {
	p.Lock()
	defer p.Unlock()

	p.data = append(p.data, pkt.Copy())
}

// GetAll returns a copy of all recorded packets.
func (p *Packets) GetAll() []Packet {
	p.Lock()
	defer p.Unlock()

	res := make([]Packet, len(p.data))
	copy(res, p.data)

	return res
}
