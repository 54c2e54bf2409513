package iface

import (
	"context"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"bondwg/internal/exclusion"
	"bondwg/internal/link"
	"bondwg/internal/scheduler"
	"bondwg/internal/weights"
)

const tickInterval = 1 * time.Second

// Poller runs the cooperative interface-reconciliation loop: evict
// tabled interfaces that vanished, got excluded, or changed address;
// admit new candidates that are usable and not excluded. Modeled on this
// codebase's other fixed-cadence reconciliation loops — a ticker plus a
// context-cancellation select, no separate cancellation channel needed
// since ctx.Done() already covers shutdown.
type Poller struct {
	Lister      Lister
	Table       *link.Table
	Weights     *weights.Store
	Exclusions  *exclusion.Set
	Destination netip.AddrPort            // default remote endpoint
	Overrides   map[string]netip.AddrPort // per-interface destination override
	TokenBudget int64                     // bytes/window; scheduler.Unlimited disables bucketing

	// NewConn binds the per-link upstream socket for a given source
	// address. Defaults to a real net.ListenUDP bind; tests substitute a
	// fake that hands back a loopback-bound socket without requiring the
	// candidate address to be real and locally routable.
	NewConn func(addr netip.Addr) (*net.UDPConn, error)
}

func (p *Poller) newConn(addr netip.Addr) (*net.UDPConn, error) {
	if p.NewConn != nil {
		return p.NewConn(addr)
	}
	return net.ListenUDP("udp4", &net.UDPAddr{IP: addr.AsSlice(), Port: 0})
}

func (p *Poller) destinationFor(name string) netip.AddrPort {
	if d, ok := p.Overrides[name]; ok {
		return d
	}
	return p.Destination
}

// Run blocks until ctx is canceled, ticking once immediately and then
// every tickInterval.
func (p *Poller) Run(ctx context.Context) error {
	p.tick()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *Poller) tick() {
	candidates, err := p.Lister.List()
	if err != nil {
		slog.Warn("poller: interface enumeration failed", "err", err)
		return
	}

	byName := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		byName[c.Name] = c
	}

	p.evictStale(byName)
	p.admitNew(candidates)
}

// evictStale removes every tabled interface that no longer exists, is
// now effectively excluded, or whose selected IPv4 changed underneath it.
func (p *Poller) evictStale(byName map[string]Candidate) {
	for _, name := range p.Table.Names() {
		l, ok := p.Table.Lookup(name)
		if !ok {
			continue
		}

		cand, stillExists := byName[name]
		evict := false
		switch {
		case !stillExists:
			evict = true
		case p.Exclusions.EffectiveExcluded(name):
			evict = true
		default:
			addr, ok := SelectAddress(cand)
			if !ok || addr != l.SourceAddress {
				evict = true
			}
		}
		if !evict {
			continue
		}

		if removed, ok := p.Table.Remove(name); ok {
			removed.Conn.Close()
			slog.Debug("poller: evicted link", "interface", name)
		}
	}
}

// admitNew tables every candidate that is usable, not excluded, and not
// already tabled.
func (p *Poller) admitNew(candidates []Candidate) {
	var toEnsure []string
	for _, c := range candidates {
		if _, already := p.Table.Lookup(c.Name); already {
			continue
		}
		if p.Exclusions.EffectiveExcluded(c.Name) {
			continue
		}
		addr, ok := SelectAddress(c)
		if !ok {
			continue
		}
		toEnsure = append(toEnsure, c.Name)
		p.admitOne(c.Name, addr)
	}
	if len(toEnsure) > 0 && p.Weights != nil {
		p.Weights.EnsureInterfaces(toEnsure)
	}
}

func (p *Poller) admitOne(name string, addr netip.Addr) {
	conn, err := p.newConn(addr)
	if err != nil {
		slog.Warn("poller: bind failed, will retry next tick", "interface", name, "source", addr, "err", err)
		return
	}

	dest := p.destinationFor(name)
	weight := 1.0
	if p.Weights != nil {
		weight = p.Weights.WeightsFor([]string{name})[name]
	}

	l := link.New(name, addr, dest, conn, weight, p.tokenBudget())
	if _, err := p.Table.Upsert(name, addr, dest, l); err != nil {
		slog.Warn("poller: upsert failed", "interface", name, "err", err)
		conn.Close()
		return
	}
	slog.Debug("poller: admitted link", "interface", name, "source", addr, "destination", dest)
}

func (p *Poller) tokenBudget() int64 {
	if p.TokenBudget == 0 {
		return scheduler.Unlimited
	}
	return p.TokenBudget
}
