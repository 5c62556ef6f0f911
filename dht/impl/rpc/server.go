package rpc

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"

	"github.com/nettlebay/seeks/dht"
	"github.com/nettlebay/seeks/dht/impl/key"
	"github.com/nettlebay/seeks/dht/impl/messaging"
	"github.com/nettlebay/seeks/dht/impl/ring"
	"github.com/nettlebay/seeks/transport"
	"github.com/nettlebay/seeks/types"
)

// Dispatcher routes an incoming request to the virtual node hosting the
// recipient key. It returns dht.ErrUnknownPeer when the key is not hosted
// by this process.
type Dispatcher interface {
	// JoinGetSuccCb resolves a joiner's successor. A zero recipient key
	// picks any hosted virtual node; the serving key is returned so the
	// reply identifies the callee.
	JoinGetSuccCb(recipient key.DHTKey, joiner key.DHTKey) (
		served key.DHTKey, succ key.DHTKey, succNa ring.NetAddress, status types.Status, err error)

	FindClosestPredecessorCb(recipient key.DHTKey, target key.DHTKey) (
		pred key.DHTKey, predNa ring.NetAddress,
		predSucc key.DHTKey, predSuccNa ring.NetAddress, status types.Status, err error)

	GetSuccessorCb(recipient key.DHTKey) (key.DHTKey, ring.NetAddress, types.Status, error)

	GetPredecessorCb(recipient key.DHTKey) (key.DHTKey, ring.NetAddress, types.Status, error)

	GetSuccListCb(recipient key.DHTKey) ([]types.LocationInfo, types.Status, error)

	NotifyCb(recipient key.DHTKey, sender key.DHTKey, senderNa ring.NetAddress) (types.Status, error)

	PingCb(recipient key.DHTKey) (types.Status, error)

	// RefreshCallerLocation records the caller's (key, address) binding in
	// the recipient virtual node's location table. Every request carries
	// the caller's identity for this purpose.
	RefreshCallerLocation(recipient key.DHTKey, sender key.DHTKey, senderNa ring.NetAddress)
}

// NewServer returns a server answering the DHT wire surface, and registers
// its request callbacks on the registry.
func NewServer(conf *dht.Configuration, msg *messaging.Messaging, dispatcher Dispatcher) *Server {
	address := conf.Socket.GetAddress()
	s := Server{
		address:    address,
		conf:       conf,
		msg:        msg,
		dispatcher: dispatcher,
		logger:     log.With().Str("mod", "rpc-server").Str("addr", address).Logger(),
	}

	conf.MessageRegistry.RegisterMessageCallback(types.DHTJoinGetSuccMessage{}, s.execJoinGetSucc)
	conf.MessageRegistry.RegisterMessageCallback(types.DHTFindClosestPredMessage{}, s.execFindClosestPred)
	conf.MessageRegistry.RegisterMessageCallback(types.DHTGetSuccessorMessage{}, s.execGetSuccessor)
	conf.MessageRegistry.RegisterMessageCallback(types.DHTGetPredecessorMessage{}, s.execGetPredecessor)
	conf.MessageRegistry.RegisterMessageCallback(types.DHTGetSuccListMessage{}, s.execGetSuccList)
	conf.MessageRegistry.RegisterMessageCallback(types.DHTPingMessage{}, s.execPing)
	conf.MessageRegistry.RegisterMessageCallback(types.DHTNotifyMessage{}, s.execNotify)

	return &s
}

// Server answers the five lookup/membership request types plus the
// stabilizer's predecessor and successor list queries.
type Server struct {
	address    string
	conf       *dht.Configuration
	msg        *messaging.Messaging
	dispatcher Dispatcher
	logger     zerolog.Logger
}

// statusOf folds a dispatcher error into the wire status.
func statusOf(status types.Status, err error) types.Status {
	if err == nil {
		return status
	}
	if errors.Is(err, dht.ErrUnknownPeer) {
		return types.StatusUnknownPeer
	}
	return types.StatusMaintenance
}

func (s *Server) reply(dest ring.NetAddress, m types.Message) error {
	trans, err := s.conf.MessageRegistry.MarshalMessage(m)
	if err != nil {
		return xerrors.Errorf("failed to marshal %s: %v", m.Name(), err)
	}
	return s.msg.Unicast(dest.String(), trans)
}

func (s *Server) execJoinGetSucc(msg types.Message, pkt transport.Packet) error {
	m, ok := msg.(*types.DHTJoinGetSuccMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	served, succ, succNa, status, err := s.dispatcher.JoinGetSuccCb(m.RecipientKey, m.SenderKey)
	if err == nil {
		s.dispatcher.RefreshCallerLocation(served, m.SenderKey, m.SenderAddr)
	}

	return s.reply(m.SenderAddr, types.DHTJoinGetSuccReplyMessage{
		ReplyPacketID: m.RequestID,
		Status:        statusOf(status, err),
		SenderKey:     served,
		SenderAddr:    s.selfNa(),
		SuccKey:       succ,
		SuccAddr:      succNa,
	})
}

func (s *Server) execFindClosestPred(msg types.Message, pkt transport.Packet) error {
	m, ok := msg.(*types.DHTFindClosestPredMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	pred, predNa, predSucc, predSuccNa, status, err :=
		s.dispatcher.FindClosestPredecessorCb(m.RecipientKey, m.Target)
	if err == nil {
		s.dispatcher.RefreshCallerLocation(m.RecipientKey, m.SenderKey, m.SenderAddr)
	}

	return s.reply(m.SenderAddr, types.DHTFindClosestPredReplyMessage{
		ReplyPacketID: m.RequestID,
		Status:        statusOf(status, err),
		SenderKey:     m.RecipientKey,
		SenderAddr:    s.selfNa(),
		PredKey:       pred,
		PredAddr:      predNa,
		PredSuccKey:   predSucc,
		PredSuccAddr:  predSuccNa,
	})
}

func (s *Server) execGetSuccessor(msg types.Message, pkt transport.Packet) error {
	m, ok := msg.(*types.DHTGetSuccessorMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	succ, succNa, status, err := s.dispatcher.GetSuccessorCb(m.RecipientKey)
	if err == nil {
		s.dispatcher.RefreshCallerLocation(m.RecipientKey, m.SenderKey, m.SenderAddr)
	}

	return s.reply(m.SenderAddr, types.DHTGetSuccessorReplyMessage{
		ReplyPacketID: m.RequestID,
		Status:        statusOf(status, err),
		SenderKey:     m.RecipientKey,
		SenderAddr:    s.selfNa(),
		SuccKey:       succ,
		SuccAddr:      succNa,
	})
}

func (s *Server) execGetPredecessor(msg types.Message, pkt transport.Packet) error {
	m, ok := msg.(*types.DHTGetPredecessorMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	pred, predNa, status, err := s.dispatcher.GetPredecessorCb(m.RecipientKey)
	if err == nil {
		s.dispatcher.RefreshCallerLocation(m.RecipientKey, m.SenderKey, m.SenderAddr)
	}

	return s.reply(m.SenderAddr, types.DHTGetPredecessorReplyMessage{
		ReplyPacketID: m.RequestID,
		Status:        statusOf(status, err),
		SenderKey:     m.RecipientKey,
		SenderAddr:    s.selfNa(),
		PredKey:       pred,
		PredAddr:      predNa,
	})
}

func (s *Server) execGetSuccList(msg types.Message, pkt transport.Packet) error {
	m, ok := msg.(*types.DHTGetSuccListMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	entries, status, err := s.dispatcher.GetSuccListCb(m.RecipientKey)
	if err == nil {
		s.dispatcher.RefreshCallerLocation(m.RecipientKey, m.SenderKey, m.SenderAddr)
	}

	return s.reply(m.SenderAddr, types.DHTGetSuccListReplyMessage{
		ReplyPacketID: m.RequestID,
		Status:        statusOf(status, err),
		SenderKey:     m.RecipientKey,
		SenderAddr:    s.selfNa(),
		Entries:       entries,
	})
}

func (s *Server) execPing(msg types.Message, pkt transport.Packet) error {
	m, ok := msg.(*types.DHTPingMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	status, err := s.dispatcher.PingCb(m.RecipientKey)
	if err == nil {
		s.dispatcher.RefreshCallerLocation(m.RecipientKey, m.SenderKey, m.SenderAddr)
	}

	return s.reply(m.SenderAddr, types.DHTPingReplyMessage{
		ReplyPacketID: m.RequestID,
		Status:        statusOf(status, err),
		SenderKey:     m.RecipientKey,
		SenderAddr:    s.selfNa(),
	})
}

func (s *Server) execNotify(msg types.Message, pkt transport.Packet) error {
	m, ok := msg.(*types.DHTNotifyMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	status, err := s.dispatcher.NotifyCb(m.RecipientKey, m.SenderKey, m.SenderAddr)
	if err == nil {
		s.dispatcher.RefreshCallerLocation(m.RecipientKey, m.SenderKey, m.SenderAddr)
	}

	return s.reply(m.SenderAddr, types.DHTNotifyReplyMessage{
		ReplyPacketID: m.RequestID,
		Status:        statusOf(status, err),
		SenderKey:     m.RecipientKey,
		SenderAddr:    s.selfNa(),
	})
}

func (s *Server) selfNa() ring.NetAddress {
	na, err := ring.ParseNetAddress(s.address)
	if err != nil {
		s.logger.Error().Msgf("invalid own address %s: %v", s.address, err)
		return ring.NetAddress{}
	}
	return na
}
