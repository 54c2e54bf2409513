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
	"bondwg/internal/weights"
)

func listenLoopback(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestDownstream_DispatchesToScheduledLink(t *testing.T) {
	downConn := listenLoopback(t)
	upConn := listenLoopback(t)
	remote := listenLoopback(t)

	table := link.NewTable()
	dest := netip.MustParseAddrPort(remote.LocalAddr().String())
	l := link.New("eth0", netip.MustParseAddr("127.0.0.1"), dest, upConn, 1.0, scheduler.Unlimited)
	table.Upsert("eth0", netip.MustParseAddr("127.0.0.1"), dest, l)

	d := &Downstream{
		Conn:         downConn,
		Table:        table,
		Weights:      weights.Open(t.TempDir() + "/w.yaml"),
		Reply:        &reply.Cell{},
		Scheduler:    &scheduler.MirrorScheduler{},
		WriteTimeout: 50 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	wgClient, err := net.DialUDP("udp4", nil, downConn.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("DialUDP: %v", err)
	}
	defer wgClient.Close()

	if _, err := wgClient.Write([]byte("hello wireguard")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	remote.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1500)
	n, _, err := remote.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("remote did not receive the forwarded datagram: %v", err)
	}
	if string(buf[:n]) != "hello wireguard" {
		t.Fatalf("payload = %q, want %q", buf[:n], "hello wireguard")
	}

	if addr, ok := d.Reply.Get(); !ok || addr.Addr().String() != "127.0.0.1" {
		t.Fatalf("Reply cell = (%v, %v), want loopback source set", addr, ok)
	}

	cancel()
	downConn.Close()
	<-done
}
