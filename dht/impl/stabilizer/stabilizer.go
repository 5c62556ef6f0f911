package stabilizer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/nettlebay/seeks/dht"
	"github.com/nettlebay/seeks/dht/impl/key"
	"github.com/nettlebay/seeks/dht/impl/vnode"
)

// NewStabilizer returns the maintenance actor of a node. It drives the
// periodic repair of every registered virtual node: stabilize, fix
// fingers, and check predecessor, each on its own interval.
func NewStabilizer(conf *dht.Configuration) *Stabilizer {
	parallelism := conf.MaintenanceParallelism
	if parallelism <= 0 {
		parallelism = 4
	}
	return &Stabilizer{
		conf:              conf,
		vnodes:            make(map[key.DHTKey]*vnode.VirtualNode),
		sem:               semaphore.NewWeighted(parallelism),
		stopStabilizeChan: make(chan bool, 1),
		stopFixFingerChan: make(chan bool, 1),
		stopCheckPredChan: make(chan bool, 1),
		logger:            log.With().Str("mod", "stabilizer").Logger(),
	}
}

// Stabilizer runs the background repair protocol that restores the ring
// invariants after churn.
type Stabilizer struct {
	conf *dht.Configuration

	mu     sync.Mutex
	vnodes map[key.DHTKey]*vnode.VirtualNode

	// sem bounds how many virtual nodes run a maintenance round at once
	sem *semaphore.Weighted

	stopStabilizeChan chan bool
	stopFixFingerChan chan bool
	stopCheckPredChan chan bool

	logger zerolog.Logger
}

// Register adds a virtual node to the maintenance set.
func (s *Stabilizer) Register(v *vnode.VirtualNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vnodes[v.Key()] = v
}

// Deregister drops a virtual node from the maintenance set. Called
// atomically with the node container's own removal.
func (s *Stabilizer) Deregister(k key.DHTKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vnodes, k)
}

func (s *Stabilizer) snapshot() []*vnode.VirtualNode {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]*vnode.VirtualNode, 0, len(s.vnodes))
	for _, v := range s.vnodes {
		res = append(res, v)
	}
	return res
}

// Start starts the maintenance daemons.
func (s *Stabilizer) Start() {
	/* Start the stabilizeDaemon */
	go s.stabilizeDaemon()
	/* Start the fixFingerDaemon */
	go s.fixFingerDaemon()
	/* Start the checkPredecessorDaemon */
	go s.checkPredecessorDaemon()
}

// Stop stops the maintenance daemons.
func (s *Stabilizer) Stop() {
	s.stopStabilizeChan <- true
	s.stopFixFingerChan <- true
	s.stopCheckPredChan <- true
}

// runRound runs one maintenance task over every registered virtual node,
// bounded by the maintenance parallelism.
func (s *Stabilizer) runRound(task func(*vnode.VirtualNode)) {
	for _, v := range s.snapshot() {
		err := s.sem.Acquire(context.Background(), 1)
		if err != nil {
			return
		}
		go func(v *vnode.VirtualNode) {
			defer s.sem.Release(1)
			task(v)
		}(v)
	}
}

// stabilizeDaemon ensures the correctness of the ring: each virtual node
// reconciles its successor pointer with the successor's predecessor, sends
// a notify, and refreshes its successor list.
func (s *Stabilizer) stabilizeDaemon() {
	if s.conf.StabilizeInterval == 0 {
		// Stabilization mechanism is disabled
		return
	}

	ticker := time.NewTicker(s.conf.StabilizeInterval)
	for {
		select {
		case <-s.stopStabilizeChan:
			// The node receives the stop message from the Stop() function,
			// exit from the goroutine
			ticker.Stop()
			return
		case <-ticker.C:
			s.runRound((*vnode.VirtualNode).StabilizeOnce)
		}
	}
}

// fixFingerDaemon cycles through the finger table slots of each virtual
// node and recomputes them with a fresh lookup.
func (s *Stabilizer) fixFingerDaemon() {
	if s.conf.FixFingerInterval == 0 {
		// Fix finger mechanism is disabled
		return
	}

	ticker := time.NewTicker(s.conf.FixFingerInterval)
	for {
		select {
		case <-s.stopFixFingerChan:
			ticker.Stop()
			return
		case <-ticker.C:
			s.runRound((*vnode.VirtualNode).FixFingerOnce)
		}
	}
}

// checkPredecessorDaemon pings each virtual node's predecessor and clears
// it on failure.
func (s *Stabilizer) checkPredecessorDaemon() {
	if s.conf.CheckPredInterval == 0 {
		// Predecessor liveness check is disabled
		return
	}

	ticker := time.NewTicker(s.conf.CheckPredInterval)
	for {
		select {
		case <-s.stopCheckPredChan:
			ticker.Stop()
			return
		case <-ticker.C:
			s.runRound((*vnode.VirtualNode).CheckPredecessorOnce)
		}
	}
}
