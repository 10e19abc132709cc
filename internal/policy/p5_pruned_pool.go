package policy

import (
	"github.com/ubi-africa/dispatch-sim/internal/matcher"
	"github.com/ubi-africa/dispatch-sim/internal/pathengine"
)

// prunedPoolK is the candidate-pool size P5 and B1 prune to before running
// true-pickup-time queries (B2 and B3 use their own smaller pool sizes).
const prunedPoolK = 10

// earlyExitThresholdHours is the pickup time (6 minutes) at or below which P5
// and B1-B3 stop scanning further candidates: good enough is good enough.
const earlyExitThresholdHours = 0.1

// PrunedPool is P5: sort the available pool by Euclidean distance to the
// passenger, keep the nearest K=10, re-rank that sub-pool by driver sign-on
// time (earliest first), then scan computing true pickup time with the
// manhattan heuristic, stopping early once a candidate's pickup time is at
// most earlyExitThresholdHours.
type PrunedPool struct {
	State *matcher.State
}

// Match implements MatchPolicy.
func (p PrunedPool) Match(pool *matcher.AvailablePool, passengerID int) (int, Aux, error) {
	if pool.Len() == 0 {
		return 0, Aux{}, emptyPoolErr()
	}
	passenger, ok := p.State.Passenger(passengerID)
	if !ok {
		return 0, Aux{}, emptyPoolErr()
	}

	candidates := prunedCandidates(p.State, pool, passenger.SourceLat, passenger.SourceLon, prunedPoolK)
	passengerNode := p.State.NearestNode(passenger.SourceLat, passenger.SourceLon)

	bestDriver := -1
	bestTime := 0.0
	for _, driverID := range candidates {
		driver, ok := p.State.Driver(driverID)
		if !ok {
			continue
		}
		driverNode := p.State.DriverNode(driver)
		hour := matcher.HourRule(driver.AvailableAt, passenger.RequestTime)
		t, err := p.State.TimedShortestPath(driverNode, passengerNode, hour, pathengine.Manhattan)
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
	return bestDriver, Aux{PickupTime: &bestTime, Heuristic: pathengine.Manhattan}, nil
}

// prunedCandidates returns up to k driver ids nearest to (lat, lon), re-ranked
// back into sign-on order — P5's pruning step. B1-B3 prune by distance alone
// and keep distance order.
func prunedCandidates(st *matcher.State, pool *matcher.AvailablePool, lat, lon float64, k int) []int {
	signOnOrder := pool.IDs()
	byDistance := sortByDistanceToPassenger(st, pool, lat, lon)

	if len(byDistance) > k {
		byDistance = byDistance[:k]
	}

	indexOf := make(map[int]int, len(signOnOrder))
	for i, id := range signOnOrder {
		indexOf[id] = i
	}
	// Stable re-sort of the pruned subset back into sign-on order.
	for i := 1; i < len(byDistance); i++ {
		j := i
		for j > 0 && indexOf[byDistance[j-1]] > indexOf[byDistance[j]] {
			byDistance[j-1], byDistance[j] = byDistance[j], byDistance[j-1]
			j--
		}
	}
	return byDistance
}
