// Package ingress runs the two datapath loops: Downstream reads the local
// WireGuard-facing socket and fans datagrams out via the scheduler;
// Upstream, one per link, reads a remote-facing socket and forwards
// replies back to WireGuard.
package ingress

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"bondwg/internal/link"
	"bondwg/internal/reply"
	"bondwg/internal/scheduler"
	"bondwg/internal/weights"
)

const maxDatagramSize = 1500

// Downstream owns the WireGuard-facing socket: every outbound datagram
// from the local WireGuard endpoint arrives here and is fanned out across
// the scheduler's chosen links.
type Downstream struct {
	Conn        *net.UDPConn
	Table       *link.Table
	Weights     *weights.Store
	Reply       *reply.Cell
	Scheduler   scheduler.Scheduler
	WriteTimeout time.Duration

	weightsVersion uint64
}

// Run reads datagrams until ctx is canceled or the socket errors. Closing
// Conn from the caller (e.g. on shutdown) is the cancellation primitive:
// the pending ReadFromUDP unblocks with an error and Run returns.
func (d *Downstream) Run(ctx context.Context) error {
	buf := make([]byte, maxDatagramSize)
	for {
		n, srcAddr, err := d.Conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		d.Reply.Set(srcAddr)
		d.dispatch(ctx, buf[:n])
	}
}

// dispatch snapshots the link table, asks the scheduler which links carry
// this datagram, and sends concurrently with a per-packet deadline. The
// ingress task waits for every send before returning to recv, so per-link
// FIFO ordering holds: each link has exactly one writer, this task.
func (d *Downstream) dispatch(ctx context.Context, payload []byte) {
	d.refreshWeightsIfChanged()

	records := d.Table.Snapshot()
	if len(records) == 0 {
		return
	}

	states := make([]scheduler.LinkState, len(records))
	for i, r := range records {
		states[i] = r.State
	}

	chosen := d.Scheduler.SelectPaths(len(payload), scheduler.PacketMeta{}, states)
	if len(chosen) == 0 {
		return
	}

	byID := make(map[scheduler.PathID]link.Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	var wg sync.WaitGroup
	for _, id := range chosen {
		rec, ok := byID[id]
		if !ok {
			continue
		}
		l, ok := d.Table.ByID(id)
		if !ok {
			continue
		}
		l.ReserveTokens(int64(len(payload)))

		wg.Add(1)
		go func(rec link.Record, l *link.Link) {
			defer wg.Done()
			d.sendOne(rec, l, payload)
		}(rec, l)
	}
	wg.Wait()
}

func (d *Downstream) sendOne(rec link.Record, l *link.Link, payload []byte) {
	deadline := time.Now().Add(d.WriteTimeout)
	if err := l.Conn.SetWriteDeadline(deadline); err != nil {
		slog.Warn("downstream: set write deadline failed", "interface", rec.Name, "err", err)
		return
	}

	start := time.Now()
	n, err := l.Conn.WriteToUDPAddrPort(payload, rec.DestinationAddress)
	elapsed := time.Since(start)

	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			slog.Debug("downstream: send timed out, dropping for this link", "interface", rec.Name, "timeout", d.WriteTimeout)
		} else {
			slog.Debug("downstream: send failed", "interface", rec.Name, "err", err)
		}
		l.RecordSendAttempt(len(payload), elapsed, true)
		return
	}
	l.RecordSendAttempt(n, elapsed, false)
}

func (d *Downstream) refreshWeightsIfChanged() {
	if d.Weights == nil {
		return
	}
	// WeightsFor runs the store's mtime-gated reload, which bumps Version
	// when the file on disk changed.
	d.Weights.WeightsFor(nil)
	v := d.Weights.Version()
	if v == d.weightsVersion {
		return
	}
	d.weightsVersion = v

	records := d.Table.Snapshot()
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	current := d.Weights.WeightsFor(names)
	for _, r := range records {
		if l, ok := d.Table.Lookup(r.Name); ok {
			l.SetWeight(current[r.Name])
		}
	}
}
