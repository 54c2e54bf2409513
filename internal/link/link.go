// Package link holds the canonical set of currently usable outbound paths:
// one Link per local interface, keyed by interface name, each owning a UDP
// socket and the scheduler-visible state (tokens, weight, health) the
// scheduler package consumes as a transient snapshot.
package link

import (
	"math"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"bondwg/internal/scheduler"
)

// Link is one local interface's outbound path to the remote Server. The
// embedded mutex guards only the scheduling-relevant fields that change
// independently of the socket itself; SourceAddress, DestinationAddress,
// and Conn are set once at construction and never mutated.
type Link struct {
	Name              string
	SourceAddress     netip.Addr
	DestinationAddress netip.AddrPort
	Conn              *net.UDPConn

	lastReceive atomic.Int64 // unix nanos; 0 means never

	mu            sync.Mutex
	up            bool
	weight        float64
	smoothedRTT   float64
	lossRate      float64
	sendRateBPS   float64
	inflightBytes float64

	tokens        atomic.Int64
	tokenCapacity atomic.Int64 // bytes/window; scheduler.Unlimited disables bucketing
}

// New constructs a Link in the "up" state with the given static weight and
// per-window token budget. budget == scheduler.Unlimited disables bucketing.
func New(name string, source netip.Addr, dest netip.AddrPort, conn *net.UDPConn, weight float64, budget int64) *Link {
	l := &Link{
		Name:               name,
		SourceAddress:      source,
		DestinationAddress: dest,
		Conn:               conn,
		up:                 true,
		weight:             weight,
	}
	l.tokens.Store(budget)
	l.tokenCapacity.Store(budget)
	return l
}

// Touch records that a datagram just arrived on this link's socket.
func (l *Link) Touch(now time.Time) {
	l.lastReceive.Store(now.UnixNano())
}

// LastReceive reports the last arrival time, or the zero Time if none yet.
func (l *Link) LastReceive() time.Time {
	ns := l.lastReceive.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// SetWeight updates the static scheduling weight, substituting 0 for
// non-finite or negative values per the weight store's contract.
func (l *Link) SetWeight(w float64) {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		w = 0
	}
	l.mu.Lock()
	l.weight = w
	l.mu.Unlock()
}

// SetUp marks the link up or down. Nothing in this package calls it with
// false today — a tabled link is always up by construction, see
// DESIGN.md — but scheduler.LinkState.Up is part of the public data model
// and a future health check may need to flip it without an eviction.
func (l *Link) SetUp(up bool) {
	l.mu.Lock()
	l.up = up
	l.mu.Unlock()
}

// RefillTokens resets the token bucket to its configured per-window
// capacity. Called once per scheduling window through Table.RefillAll by
// the relay's refill ticker.
func (l *Link) RefillTokens() {
	cap := l.tokenCapacity.Load()
	if cap == scheduler.Unlimited {
		return
	}
	l.tokens.Store(cap)
}

// SetTokenCapacity changes the per-window byte budget going forward; it
// does not retroactively adjust the current window's remaining tokens.
func (l *Link) SetTokenCapacity(budget int64) {
	l.tokenCapacity.Store(budget)
}

// State returns a scheduler.LinkState snapshot for this link. id is the
// stable path id the table assigned at upsert.
func (l *Link) State(id scheduler.PathID) scheduler.LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return scheduler.LinkState{
		ID:            id,
		Up:            l.up,
		Weight:        l.weight,
		SmoothedRTT:   l.smoothedRTT,
		LossRate:      l.lossRate,
		SendRateBPS:   l.sendRateBPS,
		InflightBytes: l.inflightBytes,
		Tokens:        l.tokens.Load(),
	}
}

// ReserveTokens mirrors a scheduler's reservation decision back onto the
// live link after SelectPaths has run against a detached snapshot slice.
func (l *Link) ReserveTokens(n int64) {
	if l.tokenCapacity.Load() == scheduler.Unlimited {
		return
	}
	l.tokens.Add(-n)
}
