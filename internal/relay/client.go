// Package relay wires the Client's six core components together: link
// table, interface poller, scheduler, weight store, downstream ingress,
// and per-link upstream ingress. It is the composition root the daemon
// entrypoint constructs from configuration, and the Handler the
// management server dispatches to.
package relay

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"golang.org/x/sync/errgroup"

	"bondwg/config"
	"bondwg/internal/exclusion"
	"bondwg/internal/iface"
	"bondwg/internal/ingress"
	"bondwg/internal/link"
	"bondwg/internal/management"
	"bondwg/internal/reply"
	"bondwg/internal/scheduler"
	"bondwg/internal/weights"
)

// tokenRefillWindow is the cadence at which every tabled link's byte
// budget resets to its per-window capacity. Not exposed in config today —
// there is no per-interface bandwidth cap to size it against yet — but
// the reset itself always runs so a future cap takes effect without
// further wiring.
const tokenRefillWindow = 100 * time.Millisecond

// Client owns every core component and runs them to completion together
// via an errgroup: if any task fails, the others are canceled through the
// shared context (golang.org/x/sync/errgroup.WithContext).
type Client struct {
	cfg        *config.Config
	table      *link.Table
	weights    *weights.Store
	exclusions *exclusion.Set
	sched      scheduler.Scheduler
	reply      *reply.Cell
	poller     *iface.Poller
	downConn   *net.UDPConn
	downstream *ingress.Downstream

	// upstreamTasks tracks per-link ingress goroutines started outside
	// the poller's own lifecycle, keyed by the tabled *link.Link, so a
	// restart after eviction-then-readmission (a new Link under the same
	// name) starts exactly one task per link.
	upstreamTasks map[*link.Link]context.CancelFunc
}

// New constructs a Client from a validated configuration. It binds the
// downstream socket immediately (bind failure here is the configuration
// error class — fatal at startup) but does not start any goroutine.
func New(cfg *config.Config) (*Client, error) {
	listenAddr, err := net.ResolveUDPAddr("udp4", cfg.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("relay: resolve listen_address: %w", err)
	}
	downConn, err := net.ListenUDP("udp4", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("relay: bind downstream socket: %w", err)
	}

	dest, err := netip.ParseAddrPort(cfg.DestinationAddress)
	if err != nil {
		downConn.Close()
		return nil, fmt.Errorf("relay: parse destination_address: %w", err)
	}
	overrides, err := cfg.DestinationOverridesMap()
	if err != nil {
		downConn.Close()
		return nil, err
	}

	sched, err := scheduler.Build(scheduler.Algorithm(cfg.AggregationAlgorithm), cfg.MinLinksForAggregation, cfg.Replica2Config())
	if err != nil {
		downConn.Close()
		return nil, fmt.Errorf("relay: build scheduler: %w", err)
	}

	table := link.NewTable()
	weightStore := weights.Open(cfg.WeightsFile)
	exclusions := exclusion.New(cfg.ExcludedInterfaces)
	replyCell := &reply.Cell{}

	c := &Client{
		cfg:        cfg,
		table:      table,
		weights:    weightStore,
		exclusions: exclusions,
		sched:      sched,
		reply:      replyCell,
		downConn:   downConn,
		poller: &iface.Poller{
			Lister:      iface.NewLister(),
			Table:       table,
			Weights:     weightStore,
			Exclusions:  exclusions,
			Destination: dest,
			Overrides:   overrides,
		},
		downstream: &ingress.Downstream{
			Conn:         downConn,
			Table:        table,
			Weights:      weightStore,
			Reply:        replyCell,
			Scheduler:    sched,
			WriteTimeout: cfg.WriteTimeout(),
		},
		upstreamTasks: make(map[*link.Link]context.CancelFunc),
	}
	return c, nil
}

// Run starts the poller, downstream ingress, and a per-link reconciliation
// loop that spins up/tears down upstream ingress tasks as the poller adds
// and evicts links. Blocks until ctx is canceled or a component fails.
func (c *Client) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return c.poller.Run(ctx) })
	g.Go(func() error { return c.downstream.Run(ctx) })
	g.Go(func() error { return c.reconcileUpstreamTasks(ctx) })
	g.Go(func() error { return c.runTokenRefill(ctx) })
	g.Go(func() error {
		// Closing the downstream socket unblocks downstream.Run's read.
		<-ctx.Done()
		c.downConn.Close()
		return nil
	})

	err := g.Wait()
	c.downConn.Close()
	return err
}

// runTokenRefill resets every tabled link's token budget on a fixed
// cadence, independent of the poller's own 1s reconciliation tick.
func (c *Client) runTokenRefill(ctx context.Context) error {
	ticker := time.NewTicker(tokenRefillWindow)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.table.RefillAll()
		}
	}
}

// reconcileUpstreamTasks polls the link table for membership changes and
// starts/stops per-link upstream ingress goroutines to match. The link
// table itself has no change-notification channel (snapshot-then-act is
// its whole contract), so this runs on the same cadence as the poller.
func (c *Client) reconcileUpstreamTasks(ctx context.Context) error {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	sync := func() {
		live := make(map[*link.Link]bool)
		for _, name := range c.table.Names() {
			l, ok := c.table.Lookup(name)
			if !ok {
				continue
			}
			live[l] = true
			if _, running := c.upstreamTasks[l]; running {
				continue
			}
			taskCtx, cancel := context.WithCancel(ctx)
			c.upstreamTasks[l] = cancel
			up := &ingress.Upstream{
				Name:           name,
				Conn:           l.Conn,
				DownstreamConn: c.downConn,
				Link:           l,
				Table:          c.table,
				Reply:          c.reply,
				SourceFilter:   c.cfg.SourceFilterEnabled(),
			}
			go up.Run(taskCtx)
		}
		for l, cancel := range c.upstreamTasks {
			if !live[l] {
				cancel()
				delete(c.upstreamTasks, l)
			}
		}
	}

	sync()
	for {
		select {
		case <-ctx.Done():
			for _, cancel := range c.upstreamTasks {
				cancel()
			}
			return ctx.Err()
		case <-ticker.C:
			sync()
		}
	}
}
