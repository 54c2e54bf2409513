// Package exclusion tracks the runtime swap-exclusion set: the management
// interface's override of the statically configured excluded_interfaces
// list, without requiring a config reload.
package exclusion

import "sync"

// Set holds the configured exclusion list alongside a swap bit per
// interface name. Effective exclusion is configured XOR swapped, so
// toggling swap lets an operator temporarily include an excluded
// interface, or temporarily exclude one that config allows, without
// touching the config file. Held as an owned value by the Client root and
// shared by reference with the poller and the management server — never
// a process-wide singleton.
type Set struct {
	mu         sync.Mutex
	configured map[string]bool
	swapped    map[string]bool
}

// New builds a Set from the statically configured exclusion list.
func New(configuredExcluded []string) *Set {
	s := &Set{
		configured: make(map[string]bool, len(configuredExcluded)),
		swapped:    make(map[string]bool),
	}
	for _, name := range configuredExcluded {
		s.configured[name] = true
	}
	return s
}

// EffectiveExcluded reports whether name is excluded right now:
// configured_excluded XOR swapped.
func (s *Set) EffectiveExcluded(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configured[name] != s.swapped[name]
}

// SwapExclusion toggles the swap bit for name and returns the resulting
// effective-exclusion state.
func (s *Set) SwapExclusion(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swapped[name] = !s.swapped[name]
	return s.configured[name] != s.swapped[name]
}

// ResetExclusions clears every swap bit, reverting to the statically
// configured exclusion list.
func (s *Set) ResetExclusions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swapped = make(map[string]bool)
}

// Include idempotently sets the swap bit so that, combined with the
// configured state, the interface ends up not excluded.
func (s *Set) Include(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swapped[name] = s.configured[name]
}

// Exclude idempotently sets the swap bit so the interface ends up excluded.
func (s *Set) Exclude(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swapped[name] = !s.configured[name]
}

// Status is the management-listing classification for one interface.
type Status string

const (
	StatusActive   Status = "active"
	StatusIdle     Status = "idle"
	StatusExcluded Status = "excluded"
)
