package chaos

import "sync/atomic"

// Stats counts chaos outcomes. The zero value is ready to use and safe for
// concurrent use.
type Stats struct {
	evaluations atomic.Int64
	failures    atomic.Int64
	delayed     atomic.Int64
	cancelled   atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Evaluations int64 `json:"evaluations"`
	Failures    int64 `json:"failures"`
	Delayed     int64 `json:"delayed"`
	Cancelled   int64 `json:"cancelled"`
}

// Record adds one outcome.
func (s *Stats) Record(o Outcome) {
	s.evaluations.Add(1)
	if o.Failed {
		s.failures.Add(1)
	}
	if o.Delay > 0 {
		s.delayed.Add(1)
	}
}

// RecordCancelled counts a delay abandoned because the client went away.
func (s *Stats) RecordCancelled() { s.cancelled.Add(1) }

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Evaluations: s.evaluations.Load(),
		Failures:    s.failures.Load(),
		Delayed:     s.delayed.Load(),
		Cancelled:   s.cancelled.Load(),
	}
}

// Reset zeroes all counters.
func (s *Stats) Reset() {
	s.evaluations.Store(0)
	s.failures.Store(0)
	s.delayed.Store(0)
	s.cancelled.Store(0)
}
