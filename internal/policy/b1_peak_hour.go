package policy

import (
	"github.com/ubi-africa/dispatch-sim/internal/matcher"
	"github.com/ubi-africa/dispatch-sim/internal/pathengine"
)

// peakHours is the set of ride-completion hours during which B1 waives the
// capacity floor: a driver who would otherwise retire instead remains in
// rotation.
var peakHours = map[int]bool{
	16: true, 17: true, 18: true, 19: true,
	20: true, 21: true, 22: true, 23: true,
}

// PeakHourRetention is B1: scans the nearest prunedPoolK=10 candidates by
// Euclidean distance (distance order, not re-ranked back to sign-on order,
// unlike P5), picks the minimum true pickup time (manhattan heuristic) with
// the same early-exit threshold as P5, and overrides retirement so a
// capacity-exhausted driver stays in rotation if the ride's resolved hour
// falls in peakHours.
type PeakHourRetention struct {
	State *matcher.State
}

// Match implements MatchPolicy.
func (b PeakHourRetention) Match(pool *matcher.AvailablePool, passengerID int) (int, Aux, error) {
	if pool.Len() == 0 {
		return 0, Aux{}, emptyPoolErr()
	}
	passenger, ok := b.State.Passenger(passengerID)
	if !ok {
		return 0, Aux{}, emptyPoolErr()
	}

	ranked := sortByDistanceToPassenger(b.State, pool, passenger.SourceLat, passenger.SourceLon)
	if len(ranked) > prunedPoolK {
		ranked = ranked[:prunedPoolK]
	}
	passengerNode := b.State.NearestNode(passenger.SourceLat, passenger.SourceLon)

	bestDriver := -1
	bestTime := 0.0
	for _, driverID := range ranked {
		driver, ok := b.State.Driver(driverID)
		if !ok {
			continue
		}
		driverNode := b.State.DriverNode(driver)
		hour := matcher.HourRule(driver.AvailableAt, passenger.RequestTime)
		t, err := b.State.TimedShortestPath(driverNode, passengerNode, hour, pathengine.Manhattan)
		if err != nil {
			continue
		}
		if bestDriver == -1 || t < bestTime {
			bestDriver = driverID
			bestTime = t
		}
		if t <= earlyExitThresholdHours {
			break
		}
	}
	if bestDriver == -1 {
		return 0, Aux{}, emptyPoolErr()
	}
	removeDriverFromPool(pool, bestDriver)
	return bestDriver, Aux{
		PickupTime: &bestTime,
		Heuristic:  pathengine.Manhattan,
		RetainOnExhausted: func(hour int) bool {
			return peakHours[hour]
		},
	}, nil
}
