package policy

import (
	"github.com/ubi-africa/dispatch-sim/internal/matcher"
	"github.com/ubi-africa/dispatch-sim/internal/pathengine"
)

// trafficPoolK mirrors B2's pruned pool size; bonus_algorithms.py's B3_Matcher
// also scans its nearest 5 candidates.
const trafficPoolK = 5

// TrafficAware is B3: replaces the path engine with the congestion-aware
// variant for candidate selection, scanning the nearest trafficPoolK=5
// candidates by distance, then commits the chosen pickup-leg path into the
// shared congestion map so future queries see it as self-loaded traffic. The
// ride's trip leg is NOT routed through the congestion variant (the source's
// complete_ride only ever calls the plain time function for the trip leg),
// so Aux carries only the already-computed pickup time and the euclidean
// heuristic for CompleteRide's own trip-leg query.
type TrafficAware struct {
	State      *matcher.State
	Congestion *pathengine.Congestion
}

// NewTrafficAware returns a B3 policy sharing congestion with the path engine
// calls this policy itself makes during selection.
func NewTrafficAware(st *matcher.State, congestion *pathengine.Congestion) *TrafficAware {
	return &TrafficAware{State: st, Congestion: congestion}
}

// Match implements MatchPolicy.
func (b *TrafficAware) Match(pool *matcher.AvailablePool, passengerID int) (int, Aux, error) {
	if pool.Len() == 0 {
		return 0, Aux{}, emptyPoolErr()
	}
	passenger, ok := b.State.Passenger(passengerID)
	if !ok {
		return 0, Aux{}, emptyPoolErr()
	}

	ranked := sortByDistanceToPassenger(b.State, pool, passenger.SourceLat, passenger.SourceLon)
	if len(ranked) > trafficPoolK {
		ranked = ranked[:trafficPoolK]
	}
	passengerNode := b.State.NearestNode(passenger.SourceLat, passenger.SourceLon)

	bestDriver := -1
	bestTime := 0.0
	var bestPath []pathengine.Edge
	for _, driverID := range ranked {
		driver, ok := b.State.Driver(driverID)
		if !ok {
			continue
		}
		driverNode := b.State.DriverNode(driver)
		hour := matcher.HourRule(driver.AvailableAt, passenger.RequestTime)
		t, path, err := b.State.TimedShortestPathWithTraffic(driverNode, passengerNode, hour, b.Congestion)
		if err != nil {
			continue
		}
		if bestDriver == -1 || t < bestTime {
			bestDriver = driverID
			bestTime = t
			bestPath = path
		}
		if t <= earlyExitThresholdHours {
			break
		}
	}
	if bestDriver == -1 {
		return 0, Aux{}, emptyPoolErr()
	}

	b.Congestion.AddTraffic(bestPath)
	removeDriverFromPool(pool, bestDriver)
	return bestDriver, Aux{PickupTime: &bestTime, Heuristic: pathengine.Euclidean}, nil
}
