package scheduler

// MirrorScheduler sends identical copies on every up link that still has
// budget for the packet. It carries no state of its own, and is the
// default algorithm: Build maps an empty algorithm name to it.
type MirrorScheduler struct{}

func (m *MirrorScheduler) SelectPaths(pktLen int, _ PacketMeta, links []LinkState) []PathID {
	var selected []PathID
	for i := range links {
		l := &links[i]
		if !l.Up || l.Tokens < int64(pktLen) {
			continue
		}
		selected = append(selected, l.ID)
		l.Tokens -= int64(pktLen)
	}
	return selected
}

func (m *MirrorScheduler) Metrics() Metrics { return Metrics{} }
