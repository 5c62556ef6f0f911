package rpc

import (
	"sync"
	"time"

	"github.com/rs/xid"
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

// NewClient returns a typed RPC client and registers its reply callbacks on
// the registry.
func NewClient(conf *dht.Configuration, msg *messaging.Messaging) *Client {
	address := conf.Socket.GetAddress()
	c := Client{
		address: address,
		conf:    conf,
		msg:     msg,
		logger:  log.With().Str("mod", "rpc-client").Str("addr", address).Logger(),
	}

	/* Register the reply callbacks: each one wakes the caller waiting on
	the matching request ID */
	conf.MessageRegistry.RegisterMessageCallback(types.DHTJoinGetSuccReplyMessage{}, c.execReply)
	conf.MessageRegistry.RegisterMessageCallback(types.DHTFindClosestPredReplyMessage{}, c.execReply)
	conf.MessageRegistry.RegisterMessageCallback(types.DHTGetSuccessorReplyMessage{}, c.execReply)
	conf.MessageRegistry.RegisterMessageCallback(types.DHTGetPredecessorReplyMessage{}, c.execReply)
	conf.MessageRegistry.RegisterMessageCallback(types.DHTGetSuccListReplyMessage{}, c.execReply)
	conf.MessageRegistry.RegisterMessageCallback(types.DHTPingReplyMessage{}, c.execReply)
	conf.MessageRegistry.RegisterMessageCallback(types.DHTNotifyReplyMessage{}, c.execReply)

	return &c
}

// Client is the typed remote call surface. Every call returns the remote
// status alongside a local error: the local error classifies the transport
// outcome (dht.ErrCall, dht.ErrTimeout), the status carries the callee's
// domain verdict. Callers must inspect both.
type Client struct {
	address   string
	conf      *dht.Configuration
	msg       *messaging.Messaging
	logger    zerolog.Logger
	replyChan sync.Map // RequestID -> chan types.Message
}

// call sends the request and waits for the matching reply until the RPC
// timeout.
func (c *Client) call(dest ring.NetAddress, requestID string, m types.Message) (types.Message, error) {
	trans, err := c.conf.MessageRegistry.MarshalMessage(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal %s: %v", m.Name(), err)
	}

	replyChan := make(chan types.Message, 1)
	c.replyChan.Store(requestID, replyChan)
	defer c.replyChan.Delete(requestID)

	err = c.msg.Unicast(dest.String(), trans)
	if err != nil {
		return nil, xerrors.Errorf("%w: %v", dht.ErrCall, err)
	}

	select {
	case reply := <-replyChan:
		return reply, nil
	case <-time.After(c.conf.RPCTimeout):
		return nil, xerrors.Errorf("%w: no reply from %s for %s", dht.ErrTimeout, dest, m.Name())
	}
}

// execReply wakes the thread waiting on the reply's request ID, if it is
// still waiting.
func (c *Client) execReply(msg types.Message, pkt transport.Packet) error {
	var replyID string
	switch m := msg.(type) {
	case *types.DHTJoinGetSuccReplyMessage:
		replyID = m.ReplyPacketID
	case *types.DHTFindClosestPredReplyMessage:
		replyID = m.ReplyPacketID
	case *types.DHTGetSuccessorReplyMessage:
		replyID = m.ReplyPacketID
	case *types.DHTGetPredecessorReplyMessage:
		replyID = m.ReplyPacketID
	case *types.DHTGetSuccListReplyMessage:
		replyID = m.ReplyPacketID
	case *types.DHTPingReplyMessage:
		replyID = m.ReplyPacketID
	case *types.DHTNotifyReplyMessage:
		replyID = m.ReplyPacketID
	default:
		return xerrors.Errorf("wrong type: %T", msg)
	}

	ch, ok := c.replyChan.Load(replyID)
	if ok {
		ch.(chan types.Message) <- msg
	}
	return nil
}

func (c *Client) header(recipient key.DHTKey, sender key.DHTKey, senderNa ring.NetAddress) types.DHTHeader {
	return types.DHTHeader{
		RequestID:    xid.New().String(),
		SenderKey:    sender,
		SenderAddr:   senderNa,
		RecipientKey: recipient,
	}
}

// JoinGetSucc asks the bootstrap node for the sender's successor. A zero
// recipient key lets the bootstrap pick any of its virtual nodes.
func (c *Client) JoinGetSucc(recipient key.DHTKey, recipientNa ring.NetAddress,
	sender key.DHTKey, senderNa ring.NetAddress) (key.DHTKey, ring.NetAddress, types.Status, error) {

	req := types.DHTJoinGetSuccMessage{DHTHeader: c.header(recipient, sender, senderNa)}

	reply, err := c.call(recipientNa, req.RequestID, req)
	if err != nil {
		return key.DHTKey{}, ring.NetAddress{}, types.StatusCall, err
	}

	r, ok := reply.(*types.DHTJoinGetSuccReplyMessage)
	if !ok {
		return key.DHTKey{}, ring.NetAddress{}, types.StatusCall, xerrors.Errorf("wrong type: %T", reply)
	}
	return r.SuccKey, r.SuccAddr, r.Status, nil
}

// FindClosestPredecessor asks the recipient for its finger table entry
// closest to, and strictly preceding, target. A non-zero PredSuccKey in the
// result piggybacks the candidate's own successor.
func (c *Client) FindClosestPredecessor(recipient key.DHTKey, recipientNa ring.NetAddress,
	sender key.DHTKey, senderNa ring.NetAddress, target key.DHTKey) (
	key.DHTKey, ring.NetAddress, key.DHTKey, ring.NetAddress, types.Status, error) {

	req := types.DHTFindClosestPredMessage{
		DHTHeader: c.header(recipient, sender, senderNa),
		Target:    target,
	}

	reply, err := c.call(recipientNa, req.RequestID, req)
	if err != nil {
		return key.DHTKey{}, ring.NetAddress{}, key.DHTKey{}, ring.NetAddress{}, types.StatusCall, err
	}

	r, ok := reply.(*types.DHTFindClosestPredReplyMessage)
	if !ok {
		return key.DHTKey{}, ring.NetAddress{}, key.DHTKey{}, ring.NetAddress{},
			types.StatusCall, xerrors.Errorf("wrong type: %T", reply)
	}
	return r.PredKey, r.PredAddr, r.PredSuccKey, r.PredSuccAddr, r.Status, nil
}

// GetSuccessor asks the recipient for its direct successor.
func (c *Client) GetSuccessor(recipient key.DHTKey, recipientNa ring.NetAddress,
	sender key.DHTKey, senderNa ring.NetAddress) (key.DHTKey, ring.NetAddress, types.Status, error) {

	req := types.DHTGetSuccessorMessage{DHTHeader: c.header(recipient, sender, senderNa)}

	reply, err := c.call(recipientNa, req.RequestID, req)
	if err != nil {
		return key.DHTKey{}, ring.NetAddress{}, types.StatusCall, err
	}

	r, ok := reply.(*types.DHTGetSuccessorReplyMessage)
	if !ok {
		return key.DHTKey{}, ring.NetAddress{}, types.StatusCall, xerrors.Errorf("wrong type: %T", reply)
	}
	return r.SuccKey, r.SuccAddr, r.Status, nil
}

// GetPredecessor asks the recipient for its predecessor. A zero key in the
// result means the recipient has none.
func (c *Client) GetPredecessor(recipient key.DHTKey, recipientNa ring.NetAddress,
	sender key.DHTKey, senderNa ring.NetAddress) (key.DHTKey, ring.NetAddress, types.Status, error) {

	req := types.DHTGetPredecessorMessage{DHTHeader: c.header(recipient, sender, senderNa)}

	reply, err := c.call(recipientNa, req.RequestID, req)
	if err != nil {
		return key.DHTKey{}, ring.NetAddress{}, types.StatusCall, err
	}

	r, ok := reply.(*types.DHTGetPredecessorReplyMessage)
	if !ok {
		return key.DHTKey{}, ring.NetAddress{}, types.StatusCall, xerrors.Errorf("wrong type: %T", reply)
	}
	return r.PredKey, r.PredAddr, r.Status, nil
}

// GetSuccList asks the recipient for its successor list.
func (c *Client) GetSuccList(recipient key.DHTKey, recipientNa ring.NetAddress,
	sender key.DHTKey, senderNa ring.NetAddress) ([]types.LocationInfo, types.Status, error) {

	req := types.DHTGetSuccListMessage{DHTHeader: c.header(recipient, sender, senderNa)}

	reply, err := c.call(recipientNa, req.RequestID, req)
	if err != nil {
		return nil, types.StatusCall, err
	}

	r, ok := reply.(*types.DHTGetSuccListReplyMessage)
	if !ok {
		return nil, types.StatusCall, xerrors.Errorf("wrong type: %T", reply)
	}
	return r.Entries, r.Status, nil
}

// Ping probes the recipient's liveness.
func (c *Client) Ping(recipient key.DHTKey, recipientNa ring.NetAddress,
	sender key.DHTKey, senderNa ring.NetAddress) (types.Status, error) {

	req := types.DHTPingMessage{DHTHeader: c.header(recipient, sender, senderNa)}

	reply, err := c.call(recipientNa, req.RequestID, req)
	if err != nil {
		return types.StatusCall, err
	}

	r, ok := reply.(*types.DHTPingReplyMessage)
	if !ok {
		return types.StatusCall, xerrors.Errorf("wrong type: %T", reply)
	}
	return r.Status, nil
}

// Notify tells the recipient that the sender believes it is the recipient's
// predecessor.
func (c *Client) Notify(recipient key.DHTKey, recipientNa ring.NetAddress,
	sender key.DHTKey, senderNa ring.NetAddress) (types.Status, error) {

	req := types.DHTNotifyMessage{DHTHeader: c.header(recipient, sender, senderNa)}

	reply, err := c.call(recipientNa, req.RequestID, req)
	if err != nil {
		return types.StatusCall, err
	}

	r, ok := reply.(*types.DHTNotifyReplyMessage)
	if !ok {
		return types.StatusCall, xerrors.Errorf("wrong type: %T", reply)
	}
	return r.Status, nil
}
