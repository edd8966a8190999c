package fleet

import "sync/atomic"

// Stats - run counters of one aggregator. Safe for concurrent use.
type Stats struct {
	clusters      atomic.Int64
	degraded      atomic.Int64
	noPrimary     atomic.Int64
	fetchFailures atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Clusters      int64
	Degraded      int64
	NoPrimary     int64
	FetchFailures int64
}

// IncClusters increments the built records counter
func (s *Stats) IncClusters() { s.clusters.Add(1) }

// IncDegraded increments the partial records counter
func (s *Stats) IncDegraded() { s.degraded.Add(1) }

// IncNoPrimary increments the counter of clusters without a primary
func (s *Stats) IncNoPrimary() { s.noPrimary.Add(1) }

// IncFetchFailures increments the failed remote calls counter
func (s *Stats) IncFetchFailures() { s.fetchFailures.Add(1) }

// Reset zeroes every counter
func (s *Stats) Reset() {
	s.clusters.Store(0)
	s.degraded.Store(0)
	s.noPrimary.Store(0)
	s.fetchFailures.Store(0)
}

// Snapshot returns the current counter values
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Clusters:      s.clusters.Load(),
		Degraded:      s.degraded.Load(),
		NoPrimary:     s.noPrimary.Load(),
		FetchFailures: s.fetchFailures.Load(),
	}
}
