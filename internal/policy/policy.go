// Package policy implements the pluggable match-policy capability (C5): a single
// MatchPolicy interface with one operation, per spec.md §9's re-architecture
// guidance to replace the source's inheritance hierarchy of matcher subclasses.
// Concrete policies borrow the shared matcher.State rather than subclassing it.
package policy

import (
	"math"

	"github.com/ubi-africa/dispatch-sim/internal/domainerr"
	"github.com/ubi-africa/dispatch-sim/internal/matcher"
	"github.com/ubi-africa/dispatch-sim/internal/pathengine"
)

// Aux carries whatever a policy already computed while selecting a driver, so
// the ride transaction (matcher.State.CompleteRide) does not repeat work: a
// precomputed pickup time (P3-P5, B1-B3), the heuristic to use for the remaining
// (trip) leg, and B1's RetainOnExhausted hook. B3 commits its own congestion
// traffic during selection (see TrafficAware.Match) rather than through Aux:
// the source's trip leg never queries the traffic-aware engine variant, only
// the selection loop does.
type Aux struct {
	PickupTime        *float64
	Heuristic         pathengine.Heuristic
	RetainOnExhausted func(hour int) bool
}

// MatchPolicy selects one driver from the available pool for a given passenger
// and removes the chosen driver from the pool.
type MatchPolicy interface {
	Match(pool *matcher.AvailablePool, passengerID int) (driverID int, aux Aux, err error)
}

func euclideanDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := lat1 - lat2
	dLon := lon1 - lon2
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

// sortByDistanceToPassenger returns pool driver ids ordered by ascending
// Euclidean distance from the driver's last known coordinate to (lat, lon),
// stable on ties (preserves AvailablePool's sign-on order), the scan-and-rank
// idiom common to P2, P5, B1, B2 and B3.
func sortByDistanceToPassenger(st *matcher.State, pool *matcher.AvailablePool, lat, lon float64) []int {
	ids := pool.IDs()
	type scored = struct {
		id   int
		dist float64
	}
	scoredIDs := make([]scored, 0, len(ids))
	for _, id := range ids {
		d, ok := st.Driver(id)
		if !ok {
			continue
		}
		scoredIDs = append(scoredIDs, scored{id: id, dist: euclideanDistance(lat, lon, d.Lat, d.Lon)})
	}
	insertionSort(scoredIDs)
	out := make([]int, len(scoredIDs))
	for i, s := range scoredIDs {
		out[i] = s.id
	}
	return out
}

// insertionSort is a simple stable sort over every driver in the available
// pool (pruning to K happens after sorting); stability preserves the
// AvailablePool's sign-on order on distance ties.
func insertionSort(s []struct {
	id   int
	dist float64
}) {
	for i := 1; i < len(s); i++ {
		j := i
		for j > 0 && s[j-1].dist > s[j].dist {
			s[j-1], s[j] = s[j], s[j-1]
			j--
		}
	}
}

// removeDriverFromPool locates driverID in the pool and removes it, returning
// whether it was found.
func removeDriverFromPool(pool *matcher.AvailablePool, driverID int) bool {
	for i := 0; i < pool.Len(); i++ {
		if pool.At(i) == driverID {
			pool.RemoveAt(i)
			return true
		}
	}
	return false
}

func emptyPoolErr() error {
	return domainerr.ErrEmptyPool
}
