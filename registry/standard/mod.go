package standard

import (
	"encoding/json"
	"sync"

	"golang.org/x/xerrors"

	"github.com/nettlebay/seeks/registry"
	"github.com/nettlebay/seeks/transport"
	"github.com/nettlebay/seeks/types"
)

// NewRegistry returns a new initialized registry.
func NewRegistry() registry.Registry {
	return &Registry{
		callbacks: make(map[string]registry.Exec),
		protos:    make(map[string]types.Message),
	}
}

// Registry is a json-based registry implementation.
//
// - implements registry.Registry
type Registry struct {
	sync.RWMutex
	callbacks map[string]registry.Exec
	protos    map[string]types.Message
}

// RegisterMessageCallback implements registry.Registry
func (r *Registry) RegisterMessageCallback(m types.Message, exec registry.Exec) {
	r.Lock()
	defer r.Unlock()

	r.callbacks[m.Name()] = exec
	r.protos[m.Name()] = m.NewEmpty()
}

// ProcessPacket implements registry.Registry
func (r *Registry) ProcessPacket(pkt transport.Packet) error {
	if pkt.Msg == nil {
		return xerrors.New("message is nil")
	}

	r.RLock()
	exec, okCb := r.callbacks[pkt.Msg.Type]
	proto, okProto := r.protos[pkt.Msg.Type]
	r.RUnlock()

	if !okCb || !okProto {
		return xerrors.Errorf("callback not found for message type: %s", pkt.Msg.Type)
	}

	// NewEmpty returns a pointer, which json can unmarshal into directly.
	msg := proto.NewEmpty()

	err := json.Unmarshal(pkt.Msg.Payload, msg)
	if err != nil {
		return xerrors.Errorf("failed to unmarshal message: %v", err)
	}

	return exec(msg, pkt)
}

// MarshalMessage implements registry.Registry
func (r *Registry) MarshalMessage(msg types.Message) (transport.Message, error) {
	buf, err := json.Marshal(msg)
	if err != nil {
		return transport.Message{}, xerrors.Errorf("failed to marshal message: %v", err)
	}

	return transport.Message{
		Type:    msg.Name(),
		Payload: buf,
	}, nil
}

// UnmarshalMessage implements registry.Registry
func (r *Registry) UnmarshalMessage(msg *transport.Message, result types.Message) error {
	if msg == nil {
		return xerrors.New("message is nil")
	}

	return json.Unmarshal(msg.Payload, result)
}
