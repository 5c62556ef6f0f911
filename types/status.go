package types

// Status is the domain-level verdict a callee returns on a successful
// transport. It is distinct from the caller's local transport error: both
// tiers must be checked.
type Status int

const (
	// StatusOk means the operation succeeded.
	StatusOk Status = iota

	// StatusUnknownPeer means the recipient key is not hosted by the
	// process. Used by the local dispatcher as the fall-back-to-RPC
	// sentinel, and on the wire when a message reached the wrong node.
	StatusUnknownPeer

	// StatusCall means a connection-level failure, retryable.
	StatusCall

	// StatusTimeout means the remote peer did not answer in time, retryable.
	StatusTimeout

	// StatusRetry means the operation failed transiently and may be retried
	// by the caller.
	StatusRetry

	// StatusBootstrap means the node has not joined a ring yet.
	StatusBootstrap

	// StatusMaintenance means the callee's ring state is inconsistent; the
	// stabilizer will repair it.
	StatusMaintenance
)

// String returns a human readable form of the status.
func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusUnknownPeer:
		return "unknown-peer"
	case StatusCall:
		return "call"
	case StatusTimeout:
		return "timeout"
	case StatusRetry:
		return "retry"
	case StatusBootstrap:
		return "bootstrap"
	case StatusMaintenance:
		return "maintenance"
	default:
		return "invalid"
	}
}
