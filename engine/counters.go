package engine

import "sync/atomic"

// Counters holds the operational counters of one engine. An external
// reporter may sample them at any time; the engine never transmits them.
type Counters struct {
	DocumentsIndexed atomic.Int64
	DocumentsDeleted atomic.Int64
	BatchesApplied   atomic.Int64
	BatchFailures    atomic.Int64
	BatchNanos       atomic.Int64

	QueriesServed atomic.Int64
	QueryFailures atomic.Int64
	QueryNanos    atomic.Int64
}

// CountersSnapshot is a point-in-time copy of the counters.
type CountersSnapshot struct {
	DocumentsIndexed int64
	DocumentsDeleted int64
	BatchesApplied   int64
	BatchFailures    int64
	BatchAvgNanos    int64

	QueriesServed int64
	QueryFailures int64
	QueryAvgNanos int64
}

// Snapshot copies the current counter values.
func (c *Counters) Snapshot() CountersSnapshot {
	s := CountersSnapshot{
		DocumentsIndexed: c.DocumentsIndexed.Load(),
		DocumentsDeleted: c.DocumentsDeleted.Load(),
		BatchesApplied:   c.BatchesApplied.Load(),
		BatchFailures:    c.BatchFailures.Load(),
		QueriesServed:    c.QueriesServed.Load(),
		QueryFailures:    c.QueryFailures.Load(),
	}
	if s.BatchesApplied > 0 {
		s.BatchAvgNanos = c.BatchNanos.Load() / s.BatchesApplied
	}
	if s.QueriesServed > 0 {
		s.QueryAvgNanos = c.QueryNanos.Load() / s.QueriesServed
	}
	return s
}
