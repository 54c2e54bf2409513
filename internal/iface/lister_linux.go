//go:build linux

package iface

import (
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/vishvananda/netlink"
)

// netlinkLister enumerates interfaces via rtnetlink.
type netlinkLister struct{}

// NewLister returns the platform-appropriate Lister.
func NewLister() Lister {
	return netlinkLister{}
}

func (netlinkLister) List() ([]Candidate, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("iface: netlink link list: %w", err)
	}

	out := make([]Candidate, 0, len(links))
	for _, l := range links {
		attrs := l.Attrs()
		addrs, err := netlink.AddrList(l, netlink.FAMILY_V4)
		if err != nil {
			return nil, fmt.Errorf("iface: netlink addr list for %s: %w", attrs.Name, err)
		}
		slog.Debug("iface: netlink link", "name", attrs.Name, "operstate", attrs.OperState.String(), "mtu", attrs.MTU)

		c := Candidate{Name: attrs.Name}
		for _, a := range addrs {
			ip, ok := netip.AddrFromSlice(a.IP.To4())
			if !ok {
				continue
			}
			c.Addresses = append(c.Addresses, ip)
		}
		out = append(out, c)
	}
	return out, nil
}
