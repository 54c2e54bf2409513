//go:build !linux

package iface

import (
	"fmt"
	"net"
	"net/netip"
)

// portableLister enumerates interfaces via the standard library. It is
// slower and coarser than the Linux netlink lister — no distinction
// between link states beyond what net.Interfaces exposes — but it is the
// only option without a platform-specific syscall layer.
type portableLister struct{}

// NewLister returns the platform-appropriate Lister.
func NewLister() Lister {
	return portableLister{}
}

func (portableLister) List() ([]Candidate, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("iface: enumerate interfaces: %w", err)
	}

	out := make([]Candidate, 0, len(ifaces))
	for _, ifi := range ifaces {
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		c := Candidate{Name: ifi.Name}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			v4 := ipNet.IP.To4()
			if v4 == nil {
				continue
			}
			ip, ok := netip.AddrFromSlice(v4)
			if !ok {
				continue
			}
			c.Addresses = append(c.Addresses, ip)
		}
		out = append(out, c)
	}
	return out, nil
}
