package scheduler

import "math"

// weightedEntry is one link's position in the smooth-WRR rotation.
type weightedEntry struct {
	id            PathID
	weight        float64
	currentWeight float64
}

// WRRScheduler implements Nginx-style smooth weighted round robin: each
// eligible entry accrues its static weight every call, the entry with the
// largest accumulator wins, and the total eligible weight is subtracted
// from the winner. Long-run selection frequency converges to weight
// share; short-run output interleaves rather than bursts.
type WRRScheduler struct {
	entries []weightedEntry
}

func NewWRRScheduler() *WRRScheduler {
	return &WRRScheduler{}
}

// rebuild refreshes the entry list from the current link set on every
// call. This is simpler than version-gating the rebuild against a
// weight-store version counter and has the same externally observable
// behavior, since a no-op rebuild costs only an O(#links) map pass.
// Existing accumulators are preserved across calls so the rotation stays
// smooth; an entry whose static weight changed has its accumulator reset
// to avoid a stale accumulator biasing the next pick.
func (s *WRRScheduler) rebuild(links []LinkState) {
	existing := make(map[PathID]weightedEntry, len(s.entries))
	for _, e := range s.entries {
		existing[e.id] = e
	}

	rebuilt := make([]weightedEntry, 0, len(links))
	for i := range links {
		l := &links[i]
		if !l.Up {
			continue
		}
		weight := l.Weight
		if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 {
			weight = 0
		}
		entry, ok := existing[l.ID]
		if !ok {
			entry = weightedEntry{id: l.ID, weight: weight}
		} else if math.Abs(entry.weight-weight) > 1e-12 {
			entry.weight = weight
			entry.currentWeight = 0
		}
		rebuilt = append(rebuilt, entry)
	}
	s.entries = rebuilt
}

func (s *WRRScheduler) totalEligibleWeight(links []LinkState, pktLen int) float64 {
	total := 0.0
	for _, e := range s.entries {
		l := findLink(links, e.id)
		if l == nil || !l.Up || l.Tokens < int64(pktLen) || e.weight <= 0 {
			continue
		}
		total += e.weight
	}
	return total
}

func (s *WRRScheduler) SelectPaths(pktLen int, _ PacketMeta, links []LinkState) []PathID {
	s.rebuild(links)

	bestIdx := -1
	bestWeight := math.Inf(-1)
	for i := range s.entries {
		e := &s.entries[i]
		l := findLink(links, e.id)
		if l == nil || !l.Up || l.Tokens < int64(pktLen) || e.weight <= 0 {
			continue
		}
		e.currentWeight += e.weight
		if bestIdx < 0 || e.currentWeight > bestWeight ||
			(e.currentWeight == bestWeight && e.id < s.entries[bestIdx].id) {
			bestWeight = e.currentWeight
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return nil
	}

	total := s.totalEligibleWeight(links, pktLen)
	if total <= 0 {
		return nil
	}

	chosen := s.entries[bestIdx].id
	s.entries[bestIdx].currentWeight -= total
	if l := findLink(links, chosen); l != nil {
		l.Tokens -= int64(pktLen)
	}
	return []PathID{chosen}
}

func (s *WRRScheduler) Metrics() Metrics { return Metrics{} }
