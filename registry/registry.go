package registry

import (
	"github.com/nettlebay/seeks/transport"
	"github.com/nettlebay/seeks/types"
)

// Exec is the type of function executed when a message of the registered
// type is processed.
type Exec func(types.Message, transport.Packet) error

// Registry defines the primitives to process messages based on their types,
// and to marshal/unmarshal them for the transport layer.
type Registry interface {
	// RegisterMessageCallback registers a callback for the provided message
	// type. The message argument is only used to know the type, its content
	// is irrelevant.
	RegisterMessageCallback(m types.Message, exec Exec)

	// ProcessPacket unmarshals the packet's message and executes the
	// callback registered for its type.
	ProcessPacket(pkt transport.Packet) error

	// MarshalMessage transforms a types.Message to a transport.Message that
	// can be sent over the network.
	MarshalMessage(msg types.Message) (transport.Message, error)

	// UnmarshalMessage transforms a transport.Message back to its
	// types.Message form. msg must be of the corresponding concrete type.
	UnmarshalMessage(msg *transport.Message, result types.Message) error
}
