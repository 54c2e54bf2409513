package scheduler

import "sort"

// candidate is a link being weighed for this packet's replica set.
type candidate struct {
	index int
	id    PathID
	eta   float64
}

// Replica2Scheduler sends identical copies on the two lowest-cost links,
// falling back to WRR when fewer than minLinksForAggregation links are
// up, or when no up link has enough tokens for the packet. With a single
// eligible link it returns that link alone. The fallback is held by ownership: its metrics
// accumulate into this scheduler's, so callers only ever read one set of
// counters regardless of which path a given packet took.
type Replica2Scheduler struct {
	minLinksForAggregation int
	config                 Replica2Config
	fallback               Scheduler
	metrics                Metrics
}

func NewReplica2Scheduler(minLinksForAggregation int, config Replica2Config, fallback Scheduler) *Replica2Scheduler {
	if minLinksForAggregation < 3 {
		minLinksForAggregation = 3
	}
	return &Replica2Scheduler{
		minLinksForAggregation: minLinksForAggregation,
		config:                 config,
		fallback:               fallback,
	}
}

// computeETA blends smoothed RTT, queue occupancy, and loss into a single
// cost; lower is better. Dividing by weight lets a higher-weighted link
// win ties among otherwise-equal links.
func (s *Replica2Scheduler) computeETA(l *LinkState) float64 {
	sendRate := l.SendRateBPS
	if sendRate <= 0 {
		sendRate = 1
	}
	eta := s.config.RTTAlpha*l.SmoothedRTT +
		s.config.QueuePenaltyScale*(l.InflightBytes/sendRate) +
		l.LossRate*s.config.LossPenalty
	if s.config.UseWeights {
		weight := l.Weight
		if weight < 0.1 {
			weight = 0.1
		}
		eta /= weight
	}
	return eta
}

func (s *Replica2Scheduler) selectViaFallback(pktLen int, meta PacketMeta, links []LinkState) []PathID {
	s.metrics.Replica2Fallbacks++
	result := s.fallback.SelectPaths(pktLen, meta, links)
	s.metrics.accumulate(s.fallback.Metrics())
	return result
}

func (s *Replica2Scheduler) SelectPaths(pktLen int, meta PacketMeta, links []LinkState) []PathID {
	linksUp := 0
	for i := range links {
		if links[i].Up {
			linksUp++
		}
	}
	if linksUp < s.minLinksForAggregation {
		return s.selectViaFallback(pktLen, meta, links)
	}

	var candidates []candidate
	var tokenSkips uint64
	for i := range links {
		l := &links[i]
		if !l.Up {
			continue
		}
		if l.Tokens < int64(pktLen) {
			tokenSkips++
			continue
		}
		candidates = append(candidates, candidate{index: i, id: l.ID, eta: s.computeETA(l)})
	}
	s.metrics.NoTokenSkips += tokenSkips

	if len(candidates) == 0 {
		return s.selectViaFallback(pktLen, meta, links)
	}

	if len(candidates) == 1 {
		links[candidates[0].index].Tokens -= int64(pktLen)
		s.metrics.Replica2Primary++
		return []PathID{candidates[0].id}
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].eta == candidates[b].eta {
			return candidates[a].id < candidates[b].id
		}
		return candidates[a].eta < candidates[b].eta
	})

	result := make([]PathID, 0, 2)
	for _, c := range candidates[:2] {
		links[c.index].Tokens -= int64(pktLen)
		result = append(result, c.id)
	}
	if len(result) > 0 {
		s.metrics.Replica2Primary++
	}
	if len(result) > 1 {
		s.metrics.Replica2Secondary++
	}
	return result
}

func (s *Replica2Scheduler) Metrics() Metrics { return s.metrics }
