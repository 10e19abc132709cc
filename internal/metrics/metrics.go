// Package metrics accumulates the cumulative desiderata (D1, D2) and per-subsystem
// timing counters the simulation tracks. Metrics have no effect on dispatch
// decisions; they are a pure side channel.
package metrics

import (
	"fmt"
	"time"
)

// Timer accumulates elapsed time and call count for one subsystem (closest-node
// lookups, shortest-path queries).
type Timer struct {
	TotalTime time.Duration
	Calls     int64
}

// Observe records one call's elapsed duration.
func (t *Timer) Observe(d time.Duration) {
	t.TotalTime += d
	t.Calls++
}

// Average returns the mean elapsed time per call, or 0 if there were none.
func (t *Timer) Average() time.Duration {
	if t.Calls == 0 {
		return 0
	}
	return t.TotalTime / time.Duration(t.Calls)
}

// Metrics holds the cumulative counters a simulation run produces.
type Metrics struct {
	D1Minutes            float64
	D2Minutes            float64
	TotalRidesCompleted   int64
	ClosestNode           Timer
	ShortestPath          Timer
}

// RecordRide accumulates one ride transaction's D1/D2 contribution in minutes.
// The D1 delta is never negative, so D1 is monotonically non-decreasing. The D2
// delta is signed (trip minus pickup time) and is negative when pickup dominates;
// the cumulative is tracked as a running sum, not clamped, matching the source's
// signed-deadhead convention, so cumulative D2 can decrease.
func (m *Metrics) RecordRide(d1Delta, d2Delta float64) {
	m.D1Minutes += d1Delta
	m.D2Minutes += d2Delta
	m.TotalRidesCompleted++
}

// Summarize renders the cumulative and average values, mirroring the
// console-report idiom used for per-route simulation summaries elsewhere in this
// codebase's lineage.
func (m *Metrics) Summarize() string {
	return fmt.Sprintf(
		"rides=%d D1=%.2fmin D2=%.2fmin closest-node: %d calls, %.3fms avg | shortest-path: %d calls, %.3fms avg",
		m.TotalRidesCompleted,
		m.D1Minutes,
		m.D2Minutes,
		m.ClosestNode.Calls,
		float64(m.ClosestNode.Average().Microseconds())/1000,
		m.ShortestPath.Calls,
		float64(m.ShortestPath.Average().Microseconds())/1000,
	)
}
