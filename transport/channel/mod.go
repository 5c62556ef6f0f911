package channel

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/xerrors"

	"github.com/nettlebay/seeks/transport"
)

const bufferSize = 200

// NewTransport returns an in-memory transport implementation, where sockets
// exchange packets over buffered channels. Used by tests and the simulation
// mode: a "dead" peer is one whose socket has been closed, in which case a
// Send to it fails with a connection error, like a crashed process would.
func NewTransport() transport.Transport {
	return &Transport{
		incomings: make(map[string]chan transport.Packet),
	}
}

// Transport is an implementation of transport
//
// - implements transport.Transport
type Transport struct {
	sync.RWMutex
	incomings map[string]chan transport.Packet
}

// CreateSocket implements transport.Transport
func (t *Transport) CreateSocket(address string) (transport.ClosableSocket, error) {
	t.Lock()
	defer t.Unlock()

	if address == "" {
		address = "127.0.0.1:0"
	}

	// A port of 0 means a random free port
	if address[len(address)-2:] == ":0" {
		for {
			address = address[:len(address)-1] + randomPort()
			if _, ok := t.incomings[address]; !ok {
				break
			}
		}
	}

	if _, ok := t.incomings[address]; ok {
		return nil, xerrors.Errorf("address already in use: %s", address)
	}

	t.incomings[address] = make(chan transport.Packet, bufferSize)

	return &Socket{
		transport: t,
		address:   address,
		ins:       transport.Packets{},
		outs:      transport.Packets{},
	}, nil
}

func randomPort() string {
	const digits = "123456789"
	res := make([]byte, 4)
	for i := range res {
		res[i] = digits[rand.Intn(len(digits))]
	}
	return string(res)
}

// Socket provides a network layer using in-memory channels.
//
// - implements transport.Socket
// - implements transport.ClosableSocket
type Socket struct {
	transport *Transport
	address   string
	ins       transport.Packets
	outs      transport.Packets
}

// Close implements transport.Socket. A closed socket is unreachable: peers
// sending to it get a connection error.
func (s *Socket) Close() error {
	s.transport.Lock()
	defer s.transport.Unlock()

	if _, ok := s.transport.incomings[s.address]; !ok {
		return xerrors.Errorf("socket already closed: %s", s.address)
	}

	delete(s.transport.incomings, s.address)
	return nil
}

// Send implements transport.Socket
func (s *Socket) Send(dest string, pkt transport.Packet, timeout time.Duration) error {
	s.transport.RLock()
	in, ok := s.transport.incomings[dest]
	s.transport.RUnlock()

	if !ok {
		return xerrors.Errorf("socket unreachable: %s", dest)
	}

	if timeout == 0 {
		timeout = math.MaxInt64
	}

	select {
	case in <- pkt.Copy():
	case <-time.After(timeout):
		return transport.TimeoutError(timeout)
	}

	s.outs.Add(pkt)
	return nil
}

// Recv implements transport.Socket
func (s *Socket) Recv(timeout time.Duration) (transport.Packet, error) {
	s.transport.RLock()
	in, ok := s.transport.incomings[s.address]
	s.transport.RUnlock()

	if !ok {
		return transport.Packet{}, xerrors.Errorf("socket closed: %s", s.address)
	}

	if timeout == 0 {
		timeout = math.MaxInt64
	}

	select {
	case pkt := <-in:
		s.ins.Add(pkt)
		return pkt, nil
	case <-time.After(timeout):
		return transport.Packet{}, transport.TimeoutError(timeout)
	}
}

// GetAddress implements transport.Socket
func (s *Socket) GetAddress() string {
	return s.address
}

// GetIns implements transport.Socket
func (s *Socket) GetIns() []transport.Packet {
	return s.ins.GetAll()
}

// GetOuts implements transport.Socket
func (s *Socket) GetOuts() []transport.Packet {
	return s.outs.GetAll()
}
