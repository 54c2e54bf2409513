// Package reply holds the single shared WireGuard reply address: the most
// recent source seen on the downstream socket, which every per-link
// upstream ingress task forwards incoming datagrams to.
package reply

import (
	"net/netip"
	"sync"
)

// Cell is a single-writer/many-reader latest-wins value. The downstream
// ingress task is the sole writer, strictly ordered by arrival on its
// socket; every upstream ingress task is a reader. May be unset at
// startup.
type Cell struct {
	mu  sync.RWMutex
	set bool
	val netip.AddrPort
}

// Set overwrites the current address. Writes are strictly ordered by
// arrival on the downstream socket, so last-write-wins already matches
// the invariant without any additional sequencing.
func (c *Cell) Set(addr netip.AddrPort) {
	c.mu.Lock()
	c.val = addr
	c.set = true
	c.mu.Unlock()
}

// Get returns the current address and whether one has ever been set.
func (c *Cell) Get() (netip.AddrPort, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.val, c.set
}
