package session

import "time"

// LatencyStats aggregates round-trip samples. A sample is the gap between
// the most recent send and the next processed receive, which approximates
// round-trip time only under request/response lockstep: pipelined sends
// take one sample for the whole burst and undercount. Responses carry no
// request id, so true per-request correlation is not possible.
type LatencyStats struct {
	Count uint64
	Sum   time.Duration
	Min   time.Duration
	Max   time.Duration
}

// Record folds one sample into the aggregates.
func (l *LatencyStats) Record(d time.Duration) {
	if d < 0 {
		d = 0
	}
	l.Count++
	l.Sum += d
	if l.Count == 1 || d < l.Min {
		l.Min = d
	}
	if d > l.Max {
		l.Max = d
	}
}

// Avg returns the mean sample, or zero when nothing has been recorded.
func (l LatencyStats) Avg() time.Duration {
	if l.Count == 0 {
		return 0
	}
	return l.Sum / time.Duration(l.Count)
}

// Stats carries the session's running counters. DecodeErrors counts
// payloads that were discarded without disturbing the connection.
type Stats struct {
	Sent         uint64
	Received     uint64
	DecodeErrors uint64
	Latency      LatencyStats
}
