package ingress

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"bondwg/internal/link"
	"bondwg/internal/reply"
	"bondwg/internal/scheduler"
)

func TestUpstream_ForwardsToReplyAddressAndTouchesLink(t *testing.T) {
	downConn := listenLoopback(t)
	upConn := listenLoopback(t)
	server := listenLoopback(t)
	wgClient := listenLoopback(t)

	table := link.NewTable()
	dest := netip.MustParseAddrPort(server.LocalAddr().String())
	l := link.New("eth0", netip.MustParseAddr("127.0.0.1"), dest, upConn, 1.0, scheduler.Unlimited)
	table.Upsert("eth0", netip.MustParseAddr("127.0.0.1"), dest, l)

	replyCell := &reply.Cell{}
	wgAddr := netip.MustParseAddrPort(wgClient.LocalAddr().String())
	replyCell.Set(wgAddr)

	u := &Upstream{
		Name:           "eth0",
		Conn:           upConn,
		DownstreamConn: downConn,
		Link:           l,
		Table:          table,
		Reply:          replyCell,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- u.Run(ctx) }()

	if _, err := server.WriteToUDPAddrPort([]byte("server says hi"), netip.MustParseAddrPort(upConn.LocalAddr().String())); err != nil {
		t.Fatalf("server write: %v", err)
	}

	wgClient.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1500)
	n, _, err := wgClient.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("wireguard client did not receive the forwarded reply: %v", err)
	}
	if string(buf[:n]) != "server says hi" {
		t.Fatalf("payload = %q, want %q", buf[:n], "server says hi")
	}
	if l.LastReceive().IsZero() {
		t.Fatalf("link's last-receive time should have been updated")
	}

	cancel()
	upConn.Close()
	<-done
}

func TestUpstream_SourceFilterDropsUnexpectedSender(t *testing.T) {
	downConn := listenLoopback(t)
	upConn := listenLoopback(t)
	server := listenLoopback(t)
	impostor := listenLoopback(t)
	wgClient := listenLoopback(t)

	table := link.NewTable()
	dest := netip.MustParseAddrPort(server.LocalAddr().String())
	l := link.New("eth0", netip.MustParseAddr("127.0.0.1"), dest, upConn, 1.0, scheduler.Unlimited)
	table.Upsert("eth0", netip.MustParseAddr("127.0.0.1"), dest, l)

	replyCell := &reply.Cell{}
	replyCell.Set(netip.MustParseAddrPort(wgClient.LocalAddr().String()))

	u := &Upstream{
		Name:           "eth0",
		Conn:           upConn,
		DownstreamConn: downConn,
		Link:           l,
		Table:          table,
		Reply:          replyCell,
		SourceFilter:   true,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- u.Run(ctx) }()
	defer func() {
		cancel()
		upConn.Close()
		<-done
	}()

	if _, err := impostor.WriteToUDPAddrPort([]byte("off-path injection"), netip.MustParseAddrPort(upConn.LocalAddr().String())); err != nil {
		t.Fatalf("impostor write: %v", err)
	}

	wgClient.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 1500)
	if _, _, err := wgClient.ReadFromUDP(buf); err == nil {
		t.Fatalf("source-filtered datagram should not have reached the WireGuard client")
	}
}
