package policy

import (
	"math"
	"sync"

	"github.com/ubi-africa/dispatch-sim/internal/matcher"
	"github.com/ubi-africa/dispatch-sim/internal/pathengine"
)

// equitablePoolK is the candidate-pool size B2 prunes to before scoring —
// smaller than P5/B1's 10, matching the source's bonus_algorithms.py.
const equitablePoolK = 5

// EquitableDispatch is B2: scans the nearest equitablePoolK=5 candidates by
// distance, ranks them by pickup_time * 1.5^(numRidesAssigned/10 + 1) rather
// than raw pickup time, and logs the raw (unmodified) pickup time. Per
// DESIGN.md's resolution of the corresponding open question,
// numRidesAssigned counts assignments, incremented the moment a driver is
// selected — before the ride transaction runs, not after it completes.
type EquitableDispatch struct {
	State *matcher.State

	mu              sync.Mutex
	ridesAssigned   map[int]int
}

// NewEquitableDispatch returns a B2 policy with a fresh per-driver assignment
// counter.
func NewEquitableDispatch(st *matcher.State) *EquitableDispatch {
	return &EquitableDispatch{State: st, ridesAssigned: make(map[int]int)}
}

// Match implements MatchPolicy.
func (b *EquitableDispatch) Match(pool *matcher.AvailablePool, passengerID int) (int, Aux, error) {
	if pool.Len() == 0 {
		return 0, Aux{}, emptyPoolErr()
	}
	passenger, ok := b.State.Passenger(passengerID)
	if !ok {
		return 0, Aux{}, emptyPoolErr()
	}

	ranked := sortByDistanceToPassenger(b.State, pool, passenger.SourceLat, passenger.SourceLon)
	if len(ranked) > equitablePoolK {
		ranked = ranked[:equitablePoolK]
	}
	passengerNode := b.State.NearestNode(passenger.SourceLat, passenger.SourceLon)

	bestDriver := -1
	bestScore := math.Inf(1)
	bestRawTime := 0.0
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

		b.mu.Lock()
		numRides := b.ridesAssigned[driverID]
		b.mu.Unlock()
		score := t * math.Pow(1.5, float64(numRides)/10.0+1)

		if score < bestScore {
			bestScore = score
			bestDriver = driverID
			bestRawTime = t
		}
		if t <= earlyExitThresholdHours {
			break
		}
	}
	if bestDriver == -1 {
		return 0, Aux{}, emptyPoolErr()
	}
	removeDriverFromPool(pool, bestDriver)

	b.mu.Lock()
	b.ridesAssigned[bestDriver]++
	b.mu.Unlock()

	return bestDriver, Aux{PickupTime: &bestRawTime, Heuristic: pathengine.Manhattan}, nil
}
