package ingress

import (
	"context"
	"log/slog"
	"net"
	"time"

	"bondwg/internal/link"
	"bondwg/internal/reply"
)

// Upstream reads one link's remote-facing socket and forwards whatever
// arrives back to the captured WireGuard reply address. One instance per
// link, started at link creation; it exits on its own when the poller
// closes the link's socket out from under it — there is no explicit
// cancellation channel, the socket is the cancellation primitive.
type Upstream struct {
	Name           string
	Conn           *net.UDPConn // this link's remote-facing socket
	DownstreamConn *net.UDPConn // the shared WireGuard-facing socket replies go out on
	Link           *link.Link
	Table          *link.Table
	Reply          *reply.Cell
	SourceFilter   bool // drop datagrams not from the link's configured destination
}

// Run blocks until the socket errors, typically because it was closed by
// the poller on eviction. Canceling ctx alone does not unblock the pending
// read; ctx is consulted only after a read error, to return ctx.Err().
func (u *Upstream) Run(ctx context.Context) error {
	buf := make([]byte, maxDatagramSize)
	for {
		n, srcAddr, err := u.Conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Debug("upstream: recv error, link ingress exiting", "interface", u.Name, "err", err)
			return err
		}

		if u.SourceFilter && srcAddr != u.Link.DestinationAddress {
			slog.Debug("upstream: dropping datagram from unexpected source", "interface", u.Name, "got", srcAddr, "want", u.Link.DestinationAddress)
			continue
		}

		now := time.Now()
		u.Table.Touch(u.Name, now)
		u.Link.RecordInflight(0)

		addr, ok := u.Reply.Get()
		if !ok {
			continue
		}
		if _, err := u.DownstreamConn.WriteToUDPAddrPort(buf[:n], addr); err != nil {
			slog.Debug("upstream: forward to WireGuard failed", "interface", u.Name, "err", err)
		}
	}
}
