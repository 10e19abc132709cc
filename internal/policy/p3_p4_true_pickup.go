package policy

import (
	"time"

	"github.com/ubi-africa/dispatch-sim/internal/matcher"
	"github.com/ubi-africa/dispatch-sim/internal/pathengine"
)

// TruePickupTime implements both P3 (dijkstra heuristic) and P4 (A* euclidean
// heuristic): for every driver in the pool, resolve the driver's node (memoized
// per driver) and the passenger's node once, run the path engine at the
// hour-rule hour, and pick the driver with the minimum pickup time.
type TruePickupTime struct {
	State     *matcher.State
	Heuristic pathengine.Heuristic
}

// NewP3 returns the true-pickup-time policy using the dijkstra heuristic.
func NewP3(st *matcher.State) TruePickupTime {
	return TruePickupTime{State: st, Heuristic: pathengine.Dijkstra}
}

// NewP4 returns the true-pickup-time policy using the euclidean (A*) heuristic.
func NewP4(st *matcher.State) TruePickupTime {
	return TruePickupTime{State: st, Heuristic: pathengine.Euclidean}
}

// Match implements MatchPolicy.
func (p TruePickupTime) Match(pool *matcher.AvailablePool, passengerID int) (int, Aux, error) {
	if pool.Len() == 0 {
		return 0, Aux{}, emptyPoolErr()
	}
	passenger, ok := p.State.Passenger(passengerID)
	if !ok {
		return 0, Aux{}, emptyPoolErr()
	}
	passengerNode := p.State.NearestNode(passenger.SourceLat, passenger.SourceLon)

	bestIdx := -1
	bestTime := 0.0
	ids := pool.IDs()
	for i, driverID := range ids {
		driver, ok := p.State.Driver(driverID)
		if !ok {
			continue
		}
		driverNode := p.State.DriverNode(driver)
		hour := matcher.HourRule(driver.AvailableAt, passenger.RequestTime)
		// Queried directly rather than through TimedShortestPath so the
		// hour-blind PairTimeCache is bypassed; the call is still timed.
		start := time.Now()
		t, err := p.State.Path.Time(driverNode, passengerNode, hour, p.Heuristic)
		p.State.Metrics.ShortestPath.Observe(time.Since(start))
		if err != nil {
			// Unreachable from this candidate: try the next one rather than
			// failing the whole match, per spec.md §7's guidance that a
			// policy should try the next candidate on Unreachable.
			continue
		}
		if bestIdx == -1 || t < bestTime {
			bestIdx = i
			bestTime = t
		}
	}
	if bestIdx == -1 {
		return 0, Aux{}, emptyPoolErr()
	}
	driverID := ids[bestIdx]
	removeDriverFromPool(pool, driverID)
	return driverID, Aux{PickupTime: &bestTime, Heuristic: p.Heuristic}, nil
}
