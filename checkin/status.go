package checkin

import (
	"sync"
)

// Status is one network's eligibility entry in the shared snapshot.
// JustCompleted is a short-lived client-side success marker, distinct from
// the authoritative countdown; it is cleared by the next scanner overwrite.
type Status struct {
	CanCheckin       bool   `json:"canCheckin"`
	LastCheckin      *int64 `json:"lastCheckin"`
	SecondsUntilNext int64  `json:"timeUntilNextCheckin"`
	JustCompleted    bool   `json:"justCompleted,omitempty"`
}

// OptimisticStatus is the default assigned to a network before any probe
// returns, so the interface is never blocked on network latency.
func OptimisticStatus() Status {
	return Status{CanCheckin: true}
}

// StatusStore owns the shared eligibility map. Every mutation is a
// read-modify-write under one lock, so scanner overwrites, ticker decrements
// and reconciler markers never interleave mid-update. A scanner Set always
// replaces whatever a concurrent ticker pass computed for the same network.
type StatusStore struct {
	mu       sync.RWMutex
	statuses map[uint64]Status
}

func NewStatusStore() *StatusStore {
	return &StatusStore{
		statuses: make(map[uint64]Status),
	}
}

func (s *StatusStore) Get(chainId uint64) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.statuses[chainId]
	return status, ok
}

// Snapshot returns a copy of the map; callers never see live state.
func (s *StatusStore) Snapshot() map[uint64]Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uint64]Status, len(s.statuses))
	for chainId, status := range s.statuses {
		out[chainId] = status
	}
	return out
}

// Set records a fresh probe result for one network.
func (s *StatusStore) Set(chainId uint64, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[chainId] = status
}

// Seed resets the given networks to the optimistic default.
func (s *StatusStore) Seed(chainIds []uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chainId := range chainIds {
		s.statuses[chainId] = OptimisticStatus()
	}
}

// Tick ages every positive countdown by one second. The decrement that
// reaches exactly zero flips the network to eligible in the same update;
// networks already at zero are left untouched.
func (s *StatusStore) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for chainId, status := range s.statuses {
		if status.SecondsUntilNext <= 0 {
			continue
		}
		status.SecondsUntilNext--
		if status.SecondsUntilNext == 0 {
			status.CanCheckin = true
		}
		s.statuses[chainId] = status
	}
}

// MarkJustCompleted records a client-side success for one network. The
// authoritative countdown stays untouched until the next scanner pass.
func (s *StatusStore) MarkJustCompleted(chainId uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := s.statuses[chainId]
	status.CanCheckin = false
	status.JustCompleted = true
	s.statuses[chainId] = status
}
