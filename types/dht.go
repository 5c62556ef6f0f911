package types

import "fmt"

// -----------------------------------------------------------------------------
// DHTJoinGetSuccMessage

// NewEmpty implements types.Message.
func (m DHTJoinGetSuccMessage) NewEmpty() Message {
	return &DHTJoinGetSuccMessage{}
}

// Name implements types.Message.
func (m DHTJoinGetSuccMessage) Name() string {
	return "dhtjoingetsucc"
}

// String implements types.Message.
func (m DHTJoinGetSuccMessage) String() string {
	return fmt.Sprintf("{dhtjoingetsucc %s from %s}", m.SenderKey, m.SenderAddr)
}

// HTML implements types.Message.
func (m DHTJoinGetSuccMessage) HTML() string {
	return m.String()
}

// -----------------------------------------------------------------------------
// DHTJoinGetSuccReplyMessage

// NewEmpty implements types.Message.
func (m DHTJoinGetSuccReplyMessage) NewEmpty() Message {
	return &DHTJoinGetSuccReplyMessage{}
}

// Name implements types.Message.
func (m DHTJoinGetSuccReplyMessage) Name() string {
	return "dhtjoingetsuccreply"
}

// String implements types.Message.
func (m DHTJoinGetSuccReplyMessage) String() string {
	return fmt.Sprintf("{dhtjoingetsuccreply for packet: %s}", m.ReplyPacketID)
}

// HTML implements types.Message.
func (m DHTJoinGetSuccReplyMessage) HTML() string {
	return m.String()
}

// -----------------------------------------------------------------------------
// DHTFindClosestPredMessage

// NewEmpty implements types.Message.
func (m DHTFindClosestPredMessage) NewEmpty() Message {
	return &DHTFindClosestPredMessage{}
}

// Name implements types.Message.
func (m DHTFindClosestPredMessage) Name() string {
	return "dhtfindclosestpred"
}

// String implements types.Message.
func (m DHTFindClosestPredMessage) String() string {
	return fmt.Sprintf("{dhtfindclosestpred %s towards %s}", m.Target, m.RecipientKey)
}

// HTML implements types.Message.
func (m DHTFindClosestPredMessage) HTML() string {
	return m.String()
}

// -----------------------------------------------------------------------------
// DHTFindClosestPredReplyMessage

// NewEmpty implements types.Message.
func (m DHTFindClosestPredReplyMessage) NewEmpty() Message {
	return &DHTFindClosestPredReplyMessage{}
}

// Name implements types.Message.
func (m DHTFindClosestPredReplyMessage) Name() string {
	return "dhtfindclosestpredreply"
}

// String implements types.Message.
func (m DHTFindClosestPredReplyMessage) String() string {
	return fmt.Sprintf("{dhtfindclosestpredreply for packet: %s}", m.ReplyPacketID)
}

// HTML implements types.Message.
func (m DHTFindClosestPredReplyMessage) HTML() string {
	return m.String()
}

// -----------------------------------------------------------------------------
// DHTGetSuccessorMessage

// NewEmpty implements types.Message.
func (m DHTGetSuccessorMessage) NewEmpty() Message {
	return &DHTGetSuccessorMessage{}
}

// Name implements types.Message.
func (m DHTGetSuccessorMessage) Name() string {
	return "dhtgetsucc"
}

// String implements types.Message.
func (m DHTGetSuccessorMessage) String() string {
	return fmt.Sprintf("{dhtgetsucc to %s}", m.RecipientKey)
}

// HTML implements types.Message.
func (m DHTGetSuccessorMessage) HTML() string {
	return m.String()
}

// -----------------------------------------------------------------------------
// DHTGetSuccessorReplyMessage

// NewEmpty implements types.Message.
func (m DHTGetSuccessorReplyMessage) NewEmpty() Message {
	return &DHTGetSuccessorReplyMessage{}
}

// Name implements types.Message.
func (m DHTGetSuccessorReplyMessage) Name() string {
	return "dhtgetsuccreply"
}

// String implements types.Message.
func (m DHTGetSuccessorReplyMessage) String() string {
	return fmt.Sprintf("{dhtgetsuccreply for packet: %s}", m.ReplyPacketID)
}

// HTML implements types.Message.
func (m DHTGetSuccessorReplyMessage) HTML() string {
	return m.String()
}

// -----------------------------------------------------------------------------
// DHTGetPredecessorMessage

// NewEmpty implements types.Message.
func (m DHTGetPredecessorMessage) NewEmpty() Message {
	return &DHTGetPredecessorMessage{}
}

// Name implements types.Message.
func (m DHTGetPredecessorMessage) Name() string {
	return "dhtgetpred"
}

// String implements types.Message.
func (m DHTGetPredecessorMessage) String() string {
	return fmt.Sprintf("{dhtgetpred to %s}", m.RecipientKey)
}

// HTML implements types.Message.
func (m DHTGetPredecessorMessage) HTML() string {
	return m.String()
}

// -----------------------------------------------------------------------------
// DHTGetPredecessorReplyMessage

// NewEmpty implements types.Message.
func (m DHTGetPredecessorReplyMessage) NewEmpty() Message {
	return &DHTGetPredecessorReplyMessage{}
}

// Name implements types.Message.
func (m DHTGetPredecessorReplyMessage) Name() string {
	return "dhtgetpredreply"
}

// String implements types.Message.
func (m DHTGetPredecessorReplyMessage) String() string {
	return fmt.Sprintf("{dhtgetpredreply for packet: %s}", m.ReplyPacketID)
}

// HTML implements types.Message.
func (m DHTGetPredecessorReplyMessage) HTML() string {
	return m.String()
}

// -----------------------------------------------------------------------------
// DHTGetSuccListMessage

// NewEmpty implements types.Message.
func (m DHTGetSuccListMessage) NewEmpty() Message {
	return &DHTGetSuccListMessage{}
}

// Name implements types.Message.
func (m DHTGetSuccListMessage) Name() string {
	return "dhtgetsucclist"
}

// String implements types.Message.
func (m DHTGetSuccListMessage) String() string {
	return fmt.Sprintf("{dhtgetsucclist to %s}", m.RecipientKey)
}

// HTML implements types.Message.
func (m DHTGetSuccListMessage) HTML() string {
	return m.String()
}

// -----------------------------------------------------------------------------
// DHTGetSuccListReplyMessage

// NewEmpty implements types.Message.
func (m DHTGetSuccListReplyMessage) NewEmpty() Message {
	return &DHTGetSuccListReplyMessage{}
}

// Name implements types.Message.
func (m DHTGetSuccListReplyMessage) Name() string {
	return "dhtgetsucclistreply"
}

// String implements types.Message.
func (m DHTGetSuccListReplyMessage) String() string {
	return fmt.Sprintf("{dhtgetsucclistreply %d entries}", len(m.Entries))
}

// HTML implements types.Message.
func (m DHTGetSuccListReplyMessage) HTML() string {
	return m.String()
}

// -----------------------------------------------------------------------------
// DHTPingMessage

// NewEmpty implements types.Message.
func (m DHTPingMessage) NewEmpty() Message {
	return &DHTPingMessage{}
}

// Name implements types.Message.
func (m DHTPingMessage) Name() string {
	return "dhtping"
}

// String implements types.Message.
func (m DHTPingMessage) String() string {
	return fmt.Sprintf("{dhtping to %s}", m.RecipientKey)
}

// HTML implements types.Message.
func (m DHTPingMessage) HTML() string {
	return m.String()
}

// -----------------------------------------------------------------------------
// DHTPingReplyMessage

// NewEmpty implements types.Message.
func (m DHTPingReplyMessage) NewEmpty() Message {
	return &DHTPingReplyMessage{}
}

// Name implements types.Message.
func (m DHTPingReplyMessage) Name() string {
	return "dhtpingreply"
}

// String implements types.Message.
func (m DHTPingReplyMessage) String() string {
	return fmt.Sprintf("{dhtpingreply for packet: %s}", m.ReplyPacketID)
}

// HTML implements types.Message.
func (m DHTPingReplyMessage) HTML() string {
	return m.String()
}

// -----------------------------------------------------------------------------
// DHTNotifyMessage

// NewEmpty implements types.Message.
func (m DHTNotifyMessage) NewEmpty() Message {
	return &DHTNotifyMessage{}
}

// Name implements types.Message.
func (m DHTNotifyMessage) Name() string {
	return "dhtnotify"
}

// String implements types.Message.
func (m DHTNotifyMessage) String() string {
	return fmt.Sprintf("{dhtnotify %s -> %s}", m.SenderKey, m.RecipientKey)
}

// HTML implements types.Message.
func (m DHTNotifyMessage) HTML() string {
	return m.String()
}

// -----------------------------------------------------------------------------
// DHTNotifyReplyMessage

// NewEmpty implements types.Message.
func (m DHTNotifyReplyMessage) NewEmpty() Message {
	return &DHTNotifyReplyMessage{}
}

// Name implements types.Message.
func (m DHTNotifyReplyMessage) Name() string {
	return "dhtnotifyreply"
}

// String implements types.Message.
func (m DHTNotifyReplyMessage) String() string {
	return fmt.Sprintf("{dhtnotifyreply for packet: %s}", m.ReplyPacketID)
}

// HTML implements types.Message.
func (m DHTNotifyReplyMessage) HTML() string {
	return m.String()
}
