package reply

import (
	"net/netip"
	"testing"
)

func TestCell_UnsetUntilFirstSet(t *testing.T) {
	var c Cell
	if _, ok := c.Get(); ok {
		t.Fatalf("a fresh Cell should report unset")
	}
}

func TestCell_LatestWriteWins(t *testing.T) {
	var c Cell
	a := netip.MustParseAddrPort("198.51.100.1:40000")
	b := netip.MustParseAddrPort("198.51.100.2:40001")

	c.Set(a)
	c.Set(b)

	got, ok := c.Get()
	if !ok || got != b {
		t.Fatalf("Get() = (%v, %v), want (%v, true)", got, ok, b)
	}
}
