package dht

import (
	"time"

	"github.com/nettlebay/seeks/dht/impl/key"
	"github.com/nettlebay/seeks/registry"
	"github.com/nettlebay/seeks/transport"
)

// Configuration is the struct that will contain the configuration argument
// when creating a node.
type Configuration struct {
	Socket          transport.ClosableSocket
	MessageRegistry registry.Registry

	// NumVirtualNodes is the number of virtual nodes created at startup.
	// Default: 1
	NumVirtualNodes int

	// VNodeKeys fixes the keys of the initial virtual nodes instead of
	// drawing random ones. Used by tests and simulations that need
	// deterministic ring positions. Extra virtual nodes beyond the list
	// get random keys.
	VNodeKeys []key.DHTKey

	// SuccListLength is the number of successors each virtual node tracks.
	// Default: 8
	SuccListLength int

	// RPCTimeout is the time a caller waits for a reply until it considers
	// the remote peer won't answer.
	// Default: 5s
	RPCTimeout time.Duration

	// RetryBudget bounds the undershoot recoveries of a single lookup.
	// Default: 2
	RetryBudget int

	// StabilizeInterval is the interval at which each virtual node
	// reconciles its successor pointer. 0 disables stabilization.
	// Default: 5s
	StabilizeInterval time.Duration

	// FixFingerInterval is the interval at which each virtual node repairs
	// one finger table slot. 0 disables finger repair.
	// Default: 5s
	FixFingerInterval time.Duration

	// CheckPredInterval is the interval at which each virtual node checks
	// its predecessor's liveness. 0 disables the check.
	// Default: 60s
	CheckPredInterval time.Duration

	// MaintenanceParallelism bounds how many virtual nodes run a
	// maintenance round concurrently.
	// Default: 4
	MaintenanceParallelism int64

	// SnapshotPath, when set, is where each virtual node loads its
	// location table hints from at startup and saves them at shutdown.
	// Loaded entries are hints only; the stabilizer confirms liveness.
	SnapshotPath string

	// CheckInvariants enables the ring invariant assertions. A violated
	// invariant aborts the process: continuing on inconsistent local state
	// risks silent data loss.
	// Default: true
	CheckInvariants bool
}
