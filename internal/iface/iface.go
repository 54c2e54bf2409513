// Package iface enumerates host network interfaces and reconciles them
// against the link table on a fixed cadence: the interface poller.
package iface

import "net/netip"

// Candidate is one host interface as seen by a Lister, with every IPv4
// address it currently carries in enumeration order.
type Candidate struct {
	Name      string
	Addresses []netip.Addr
}

// Lister enumerates host interfaces. Two implementations exist: a Linux
// one backed by vishvananda/netlink (lister_linux.go) and a portable one
// backed by net.Interfaces (lister_other.go) for every other GOOS.
type Lister interface {
	List() ([]Candidate, error)
}

// linkLocalPrefix and loopbackPrefix are excluded from address selection
// regardless of platform.
var (
	loopbackPrefix  = netip.MustParsePrefix("127.0.0.0/8")
	linkLocalPrefix = netip.MustParsePrefix("169.254.0.0/16")
)

// SelectAddress applies the deterministic address-selection rule: the
// first IPv4 address, in enumeration order, outside 127.0.0.0/8 and
// 169.254.0.0/16. Reports ok=false if the interface has no usable IPv4.
func SelectAddress(c Candidate) (addr netip.Addr, ok bool) {
	for _, a := range c.Addresses {
		if !a.Is4() {
			continue
		}
		if loopbackPrefix.Contains(a) || linkLocalPrefix.Contains(a) {
			continue
		}
		return a, true
	}
	return netip.Addr{}, false
}
