package pipeline

import "sync/atomic"

// pipelineStats accumulates counters for the periodic 60s stats log.
type pipelineStats struct {
	partialsReceived atomic.Int64
	translated       atomic.Int64
	published        atomic.Int64
	held             atomic.Int64
	skippedChange    atomic.Int64
	skippedSentence  atomic.Int64
}

// statsSnapshot is a point-in-time read of pipelineStats.
type statsSnapshot struct {
	PartialsReceived int64
	Translated       int64
	Published        int64
	Held             int64
	SkippedChange    int64
	SkippedSentence  int64
}

// snapshotAndReset atomically reads and zeros every counter, the same
// "accumulate for 60s, log, reset" cycle the original stats loop used.
func (s *pipelineStats) snapshotAndReset() statsSnapshot {
	return statsSnapshot{
		PartialsReceived: s.partialsReceived.Swap(0),
		Translated:       s.translated.Swap(0),
		Published:        s.published.Swap(0),
		Held:             s.held.Swap(0),
		SkippedChange:    s.skippedChange.Swap(0),
		SkippedSentence:  s.skippedSentence.Swap(0),
	}
}
