package policy

import (
	"github.com/ubi-africa/dispatch-sim/internal/matcher"
	"github.com/ubi-africa/dispatch-sim/internal/pathengine"
)

// Euclidean is P2: select the driver minimizing straight-line distance from
// their last known coordinate to the passenger's source coordinate. Ties break
// by insertion order (earliest sign-on), per spec.md §8 invariant 8.
type Euclidean struct {
	State *matcher.State
}

// Match implements MatchPolicy.
func (e Euclidean) Match(pool *matcher.AvailablePool, passengerID int) (int, Aux, error) {
	if pool.Len() == 0 {
		return 0, Aux{}, emptyPoolErr()
	}
	passenger, ok := e.State.Passenger(passengerID)
	if !ok {
		return 0, Aux{}, emptyPoolErr()
	}
	ranked := sortByDistanceToPassenger(e.State, pool, passenger.SourceLat, passenger.SourceLon)
	driverID := ranked[0]
	removeDriverFromPool(pool, driverID)
	return driverID, Aux{Heuristic: pathengine.Euclidean}, nil
}
