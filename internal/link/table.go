package link

import (
	"fmt"
	"net/netip"
	"sort"
	"sync"
	"time"

	"bondwg/internal/scheduler"
)

// entry pairs a Link with the stable path id it was assigned at upsert.
// The id, not the map iteration order, is what the scheduler and the
// token-reservation feedback path key on.
type entry struct {
	id   scheduler.PathID
	link *Link
}

// Table is the link table: the canonical set of currently usable outbound
// paths, keyed by interface name. One writer at a time (the poller), many
// readers (downstream ingress, management). All operations take the
// single exclusive lock for O(1) or O(#links) work and never hold it
// across a socket call — callers snapshot, release, then act.
type Table struct {
	mu      sync.Mutex
	entries map[string]entry
	nextID  scheduler.PathID
}

func NewTable() *Table {
	return &Table{entries: make(map[string]entry)}
}

// Upsert installs or updates the link named name. It fails if an existing
// record under name has a different source address — callers must Remove
// first, per the link table's upsert contract, so path ids never silently
// migrate to a different source underneath the scheduler.
func (t *Table) Upsert(name string, source netip.Addr, dest netip.AddrPort, l *Link) (scheduler.PathID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.entries[name]; ok {
		if existing.link.SourceAddress != source {
			return 0, fmt.Errorf("link: upsert %q: existing record has source %s, got %s; remove first", name, existing.link.SourceAddress, source)
		}
		existing.link = l
		t.entries[name] = existing
		return existing.id, nil
	}

	t.nextID++
	id := t.nextID
	t.entries[name] = entry{id: id, link: l}
	return id, nil
}

// Remove drops the record for name and returns the evicted Link so the
// caller can close its socket; the per-link ingress task observes the
// closure as a recv error and exits on its own.
func (t *Table) Remove(name string) (*Link, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[name]
	if !ok {
		return nil, false
	}
	delete(t.entries, name)
	return e.link, true
}

// Names returns the currently-tabled interface names, for the poller's
// set-reconciliation pass.
func (t *Table) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the link tabled under name, if any.
func (t *Table) Lookup(name string) (*Link, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[name]
	if !ok {
		return nil, false
	}
	return e.link, true
}

// Touch records arrival of a datagram on the named link's socket. No-op if
// the link has since been evicted.
func (t *Table) Touch(name string, now time.Time) {
	t.mu.Lock()
	l := t.entries[name].link
	t.mu.Unlock()
	if l != nil {
		l.Touch(now)
	}
}

// RefillAll resets every tabled link's token bucket. Called once per
// scheduling window by the relay's refill ticker.
func (t *Table) RefillAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		e.link.RefillTokens()
	}
}

// Record is a cheap, name-ordered snapshot entry: enough for the
// scheduler and the management listing without exposing the Link itself.
type Record struct {
	Name               string
	ID                 scheduler.PathID
	SourceAddress      netip.Addr
	DestinationAddress netip.AddrPort
	LastReceive        time.Time
	State              scheduler.LinkState
}

// Snapshot returns a name-sorted, consistent view of every tabled link.
// Consistent within this call; callers must re-snapshot to see later
// writes (snapshot-then-act is mandatory on the hot path).
func (t *Table) Snapshot() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Record, 0, len(names))
	for _, name := range names {
		e := t.entries[name]
		out = append(out, Record{
			Name:               name,
			ID:                 e.id,
			SourceAddress:      e.link.SourceAddress,
			DestinationAddress: e.link.DestinationAddress,
			LastReceive:        e.link.LastReceive(),
			State:              e.link.State(e.id),
		})
	}
	return out
}

// ByID looks up a link by the stable path id it was handed at upsert, for
// feeding a scheduler decision's reservations back onto the live link.
func (t *Table) ByID(id scheduler.PathID) (*Link, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.id == id {
			return e.link, true
		}
	}
	return nil, false
}
