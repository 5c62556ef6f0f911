package dht

import (
	"errors"

	"golang.org/x/xerrors"
)

// Local call outcomes. A call site's own verdict is distinct from the
// remote status a callee returns on a successful transport; callers must
// inspect both tiers.
var (
	// ErrCall is a connection-level failure, retryable.
	ErrCall = xerrors.New("call failed")

	// ErrTimeout means the remote peer did not answer in time, retryable.
	ErrTimeout = xerrors.New("call timed out")

	// ErrUnknownPeer is the dispatcher's sentinel: the recipient key is
	// not hosted by this process, fall back to the RPC client.
	ErrUnknownPeer = xerrors.New("unknown peer")

	// ErrNotJoined means the virtual node has no successor yet: it has not
	// joined a ring.
	ErrNotJoined = xerrors.New("node has not joined a ring")

	// ErrUnreachable means the lookup target could not be resolved and
	// retrying against the same target is pointless.
	ErrUnreachable = xerrors.New("target unreachable")
)

// IsTemporary returns true when the error is worth retrying: transport
// failures recover as the stabilizer repairs the ring.
func IsTemporary(err error) bool {
	return errors.Is(err, ErrCall) || errors.Is(err, ErrTimeout)
}
