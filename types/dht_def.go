package types

import (
	"github.com/nettlebay/seeks/dht/impl/key"
	"github.com/nettlebay/seeks/dht/impl/ring"
)

// LocationInfo is the wire form of one (key, address) binding.
type LocationInfo struct {
	Key  key.DHTKey
	Addr ring.NetAddress
}

// DHTHeader carries the fields common to every DHT request: the caller's
// identity, so the callee can refresh its location table, and the key of
// the virtual node the request is addressed to.
type DHTHeader struct {
	// RequestID must be a unique identifier. Use xid.New().String() to
	// generate it.
	RequestID string

	// SenderKey and SenderAddr identify the calling virtual node.
	SenderKey  key.DHTKey
	SenderAddr ring.NetAddress

	// RecipientKey is the virtual node the request is addressed to. A zero
	// key lets the receiving process pick any of its virtual nodes, used
	// by a joining node that only knows the bootstrap address.
	RecipientKey key.DHTKey
}

// DHTJoinGetSuccMessage asks a bootstrap node for the sender's successor on
// the ring. Sent by a joining virtual node.
//
// - implements types.Message
type DHTJoinGetSuccMessage struct {
	DHTHeader
}

// DHTJoinGetSuccReplyMessage is the reply to DHTJoinGetSuccMessage.
//
// - implements types.Message
type DHTJoinGetSuccReplyMessage struct {
	// ReplyPacketID is the RequestID this reply is for
	ReplyPacketID string

	Status Status

	// SenderKey and SenderAddr identify the replying virtual node.
	SenderKey  key.DHTKey
	SenderAddr ring.NetAddress

	// SuccKey and SuccAddr are the bootstrap's view of the joiner's
	// successor.
	SuccKey  key.DHTKey
	SuccAddr ring.NetAddress
}

// DHTFindClosestPredMessage asks the recipient for the entry of its finger
// table closest to, and strictly preceding, Target.
//
// - implements types.Message
type DHTFindClosestPredMessage struct {
	DHTHeader

	// Target is the key being looked up.
	Target key.DHTKey
}

// DHTFindClosestPredReplyMessage is the reply to DHTFindClosestPredMessage.
// When the callee knows the candidate's own successor it piggybacks it in
// PredSuccKey/PredSuccAddr, saving the caller a getSuccessor round trip; a
// zero PredSuccKey means the piggyback is absent.
//
// - implements types.Message
type DHTFindClosestPredReplyMessage struct {
	ReplyPacketID string

	Status Status

	SenderKey  key.DHTKey
	SenderAddr ring.NetAddress

	PredKey  key.DHTKey
	PredAddr ring.NetAddress

	PredSuccKey  key.DHTKey
	PredSuccAddr ring.NetAddress
}

// DHTGetSuccessorMessage asks the recipient for its direct successor.
//
// - implements types.Message
type DHTGetSuccessorMessage struct {
	DHTHeader
}

// DHTGetSuccessorReplyMessage is the reply to DHTGetSuccessorMessage.
//
// - implements types.Message
type DHTGetSuccessorReplyMessage struct {
	ReplyPacketID string

	Status Status

	SenderKey  key.DHTKey
	SenderAddr ring.NetAddress

	SuccKey  key.DHTKey
	SuccAddr ring.NetAddress
}

// DHTGetPredecessorMessage asks the recipient for its current predecessor.
// Sent by the stabilizer to its successor. A zero PredKey in the reply
// means the recipient has no predecessor set.
//
// - implements types.Message
type DHTGetPredecessorMessage struct {
	DHTHeader
}

// DHTGetPredecessorReplyMessage is the reply to DHTGetPredecessorMessage.
//
// - implements types.Message
type DHTGetPredecessorReplyMessage struct {
	ReplyPacketID string

	Status Status

	SenderKey  key.DHTKey
	SenderAddr ring.NetAddress

	PredKey  key.DHTKey
	PredAddr ring.NetAddress
}

// DHTGetSuccListMessage asks the recipient for its successor list, used to
// refresh the tail of the caller's own list after stabilization.
//
// - implements types.Message
type DHTGetSuccListMessage struct {
	DHTHeader
}

// DHTGetSuccListReplyMessage is the reply to DHTGetSuccListMessage.
//
// - implements types.Message
type DHTGetSuccListReplyMessage struct {
	ReplyPacketID string

	Status Status

	SenderKey  key.DHTKey
	SenderAddr ring.NetAddress

	Entries []LocationInfo
}

// DHTPingMessage probes the recipient's liveness. A successful reply means
// the callee was alive at call time.
//
// - implements types.Message
type DHTPingMessage struct {
	DHTHeader
}

// DHTPingReplyMessage is the reply to DHTPingMessage.
//
// - implements types.Message
type DHTPingReplyMessage struct {
	ReplyPacketID string

	Status Status

	SenderKey  key.DHTKey
	SenderAddr ring.NetAddress
}

// DHTNotifyMessage tells the recipient that the sender believes it is the
// recipient's predecessor.
//
// - implements types.Message
type DHTNotifyMessage struct {
	DHTHeader
}

// DHTNotifyReplyMessage is the reply to DHTNotifyMessage.
//
// - implements types.Message
type DHTNotifyReplyMessage struct {
	ReplyPacketID string

	Status Status

	SenderKey  key.DHTKey
	SenderAddr ring.NetAddress
}
