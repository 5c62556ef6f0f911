package messaging

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"

	"github.com/nettlebay/seeks/dht"
	"github.com/nettlebay/seeks/transport"
)

// NewMessaging returns a messaging module bound to the configuration's
// socket.
func NewMessaging(conf *dht.Configuration) *Messaging {
	address := conf.Socket.GetAddress()
	return &Messaging{
		address:        address,
		conf:           conf,
		stopListenChan: make(chan bool, 1),
		logger:         log.With().Str("mod", "messaging").Str("addr", address).Logger(),
	}
}

// Messaging sends wire messages point-to-point and feeds received packets
// into the registry. The DHT routes at the application layer, so there is
// no relaying: packets addressed to somebody else are dropped.
type Messaging struct {
	address        string
	conf           *dht.Configuration
	stopListenChan chan bool
	logger         zerolog.Logger
}

// Unicast sends the message directly to the destination address.
func (m *Messaging) Unicast(dest string, msg transport.Message) error {
	header := transport.NewHeader(
		m.address, // source
		m.address, // relay
		dest,      // destination
		0,         // TTL
	)
	pkt := transport.Packet{
		Header: &header,
		Msg:    &msg,
	}

	err := m.conf.Socket.Send(dest, pkt, m.conf.RPCTimeout)
	if err != nil {
		return xerrors.Errorf("unicast to %s failed: %v", dest, err)
	}
	return nil
}

// Start starts the socket listener.
func (m *Messaging) Start() {
	go m.listenDaemon()
}

// Stop stops the socket listener.
func (m *Messaging) Stop() {
	m.stopListenChan <- true
}

func (m *Messaging) listenDaemon() {
	for {
		select {
		case <-m.stopListenChan:
			/* The node receives the stop message from the Stop() function,
			exit from the goroutine */
			return
		default:
			pkt, err := m.conf.Socket.Recv(time.Second * 1)
			if errors.Is(err, transport.TimeoutError(0)) {
				/* The socket is unable to receive a message within the
				specified duration. It should continue listening. */
				continue
			}
			if err != nil {
				// The socket is gone, the node is shutting down
				m.logger.Debug().Msgf("listen daemon exits: %v", err)
				return
			}

			if pkt.Header.Destination != m.address {
				m.logger.Warn().Msgf("dropping packet addressed to %s", pkt.Header.Destination)
				continue
			}

			go func() {
				err := m.conf.MessageRegistry.ProcessPacket(pkt)
				if err != nil {
					m.logger.Error().Msgf("failed to process packet: %v", err)
				}
			}()
		}
	}
}
