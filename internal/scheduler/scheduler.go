// Package scheduler implements the pluggable per-datagram path-selection
// algorithms: Mirror, smooth weighted round robin, and replica-of-two
// weighted. Each variant is a pure function over a packet length and a
// mutable slice of link scheduling state — it never retains references
// across calls, and the only state it may mutate on the slice is the
// token-bucket reservation on links it selects.
package scheduler

import (
	"fmt"
	"math"
)

// PathID identifies a link by the link table's stable per-link id.
type PathID uint32

// Unlimited is the token-bucket sentinel meaning "bucketing disabled".
const Unlimited = int64(math.MaxInt64)

// PacketMeta carries per-packet metadata. Empty today; reserved so a
// future FEC scheduler variant (explicitly out of scope — see SPEC_FULL.md §4.3)
// has somewhere to attach shard/parity information without changing the
// Scheduler signature.
type PacketMeta struct{}

// LinkState is the transient, scheduler-visible view of one link. Callers
// build a fresh slice from a link-table snapshot before every
// SelectPaths call and discard it afterward.
type LinkState struct {
	ID            PathID
	Up            bool
	Weight        float64
	SmoothedRTT   float64 // seconds
	LossRate      float64 // 0..1
	SendRateBPS   float64
	InflightBytes float64
	Tokens        int64
}

// Metrics accumulate additively: a scheduler that delegates to a fallback
// folds the fallback's metrics into its own, so outer counters reflect
// the whole decision chain.
type Metrics struct {
	Replica2Primary   uint64
	Replica2Secondary uint64
	Replica2Fallbacks uint64
	NoTokenSkips      uint64
}

func (m *Metrics) accumulate(other Metrics) {
	m.Replica2Primary += other.Replica2Primary
	m.Replica2Secondary += other.Replica2Secondary
	m.Replica2Fallbacks += other.Replica2Fallbacks
	m.NoTokenSkips += other.NoTokenSkips
}

// Scheduler selects which links carry a datagram of the given length.
// Returning an empty slice means "drop this packet"; returning more than
// one id means "send identical copies on each".
type Scheduler interface {
	SelectPaths(pktLen int, meta PacketMeta, links []LinkState) []PathID
	Metrics() Metrics
}

// Algorithm names the scheduling variant, as read from configuration.
type Algorithm string

const (
	Mirror             Algorithm = "mirror"
	WeightedRoundRobin Algorithm = "weighted_round_robin"
	Replica2Weighted   Algorithm = "replica2_weighted"
)

// Replica2Config holds the tunables for the replica-of-two weighted
// scheduler.
type Replica2Config struct {
	UseWeights        bool
	LossPenalty       float64
	QueuePenaltyScale float64
	RTTAlpha          float64
}

// DefaultReplica2Config returns the baseline tunables.
func DefaultReplica2Config() Replica2Config {
	return Replica2Config{
		UseWeights:        true,
		LossPenalty:       5.0,
		QueuePenaltyScale: 1.0,
		RTTAlpha:          1.0,
	}
}

// Build constructs the scheduler named by algo. Replica2Weighted is built
// with a smooth-WRR fallback held by composition, not inheritance.
func Build(algo Algorithm, minLinksForAggregation int, replica2 Replica2Config) (Scheduler, error) {
	switch algo {
	case Mirror, "":
		return &MirrorScheduler{}, nil
	case WeightedRoundRobin:
		return NewWRRScheduler(), nil
	case Replica2Weighted:
		return NewReplica2Scheduler(minLinksForAggregation, replica2, NewWRRScheduler()), nil
	default:
		return nil, fmt.Errorf("scheduler: unknown aggregation algorithm %q", algo)
	}
}

// findLink returns a pointer into links for id, or nil.
func findLink(links []LinkState, id PathID) *LinkState {
	for i := range links {
		if links[i].ID == id {
			return &links[i]
		}
	}
	return nil
}
