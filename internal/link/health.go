package link

import "time"

// Health-sampling EMA constants. The original reference never populates
// smoothed_rtt/loss_rate/send_rate_bps/inflight_bytes from a real prober —
// there is no RTT-probing wire protocol in this system, and adding one
// would be new wire-protocol surface out of scope for a relay. These are
// heuristic proxies derived from send/receive events already on the
// datapath, not a substitute for a real round-trip prober.
const (
	rttAlphaEMA  = 0.125 // matches TCP's classic SRTT smoothing factor
	lossAlphaEMA = 0.05
	rateAlphaEMA = 0.2
)

// RecordSendAttempt tracks an outbound send's outcome for the loss-rate EMA
// and bumps inflight/rate counters. Call from the downstream ingress right
// after a per-link send returns.
func (l *Link) RecordSendAttempt(n int, d time.Duration, failed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sample := 0.0
	if failed {
		sample = 1.0
	}
	l.lossRate = ema(l.lossRate, sample, lossAlphaEMA)

	if !failed {
		l.inflightBytes += float64(n)
	}
	if !failed && d > 0 {
		instBPS := float64(n) / d.Seconds()
		l.sendRateBPS = ema(l.sendRateBPS, instBPS, rateAlphaEMA)
		l.smoothedRTT = ema(l.smoothedRTT, d.Seconds(), rttAlphaEMA)
	}
}

// RecordInflight sets the current best-effort inflight-byte estimate: bytes
// handed to the socket for this link since the last confirmed arrival.
func (l *Link) RecordInflight(bytes float64) {
	l.mu.Lock()
	l.inflightBytes = bytes
	l.mu.Unlock()
}

func ema(prev, sample, alpha float64) float64 {
	return prev + alpha*(sample-prev)
}
