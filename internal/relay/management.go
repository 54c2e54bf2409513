package relay

import (
	"time"

	"bondwg/internal/management"
)

// List implements management.Handler: the per-interface status table the
// CLI's `list` subcommand renders. Excluded interfaces never make it into
// the link table (the poller evicts them), so this enumerates the host
// directly for the excluded rows and overlays table state for everything
// currently admitted. Host interfaces that are neither tabled nor excluded
// are not listed.
func (c *Client) List() []management.InterfaceStatus {
	records := c.table.Snapshot()
	tabled := make(map[string]bool, len(records))
	out := make([]management.InterfaceStatus, 0, len(records))
	for _, r := range records {
		tabled[r.Name] = true
		status := "idle"
		if !r.LastReceive.IsZero() && time.Since(r.LastReceive) < 30*time.Second {
			status = "active"
		}
		row := management.InterfaceStatus{
			Name:               r.Name,
			Status:             status,
			SourceAddress:      r.SourceAddress.String(),
			DestinationAddress: r.DestinationAddress.String(),
		}
		if !r.LastReceive.IsZero() {
			secs := time.Since(r.LastReceive).Seconds()
			row.SecondsSinceLastReceive = &secs
		}
		out = append(out, row)
	}

	if c.poller != nil && c.poller.Lister != nil {
		candidates, err := c.poller.Lister.List()
		if err == nil {
			for _, cand := range candidates {
				if tabled[cand.Name] || !c.exclusions.EffectiveExcluded(cand.Name) {
					continue
				}
				out = append(out, management.InterfaceStatus{Name: cand.Name, Status: "excluded"})
			}
		}
	}
	return out
}

// SwapExclusion implements management.Handler.
func (c *Client) SwapExclusion(name string) bool {
	return c.exclusions.SwapExclusion(name)
}

// ResetExclusions implements management.Handler.
func (c *Client) ResetExclusions() {
	c.exclusions.ResetExclusions()
}

// Include implements management.Handler.
func (c *Client) Include(name string) {
	c.exclusions.Include(name)
}

// Exclude implements management.Handler.
func (c *Client) Exclude(name string) {
	c.exclusions.Exclude(name)
}
