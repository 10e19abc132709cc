package policy_test

import (
	"testing"
	"time"

	"github.com/ubi-africa/dispatch-sim/internal/matcher"
	"github.com/ubi-africa/dispatch-sim/internal/pathengine"
	"github.com/ubi-africa/dispatch-sim/internal/policy"
	"github.com/ubi-africa/dispatch-sim/internal/roadnet"
	"github.com/ubi-africa/dispatch-sim/internal/spatial"
	"github.com/ubi-africa/dispatch-sim/internal/testutil"
)

func uniformHours(travelTime, maxSpeed float64) [roadnet.HoursPerDay]roadnet.EdgeAttr {
	var hours [roadnet.HoursPerDay]roadnet.EdgeAttr
	for h := range hours {
		hours[h] = roadnet.EdgeAttr{TravelTime: travelTime, MaxSpeed: maxSpeed}
	}
	return hours
}

func newState(t *testing.T, net *roadnet.Network) *matcher.State {
	t.Helper()
	idx, err := spatial.Build(net)
	if err != nil {
		t.Fatalf("spatial.Build: %v", err)
	}
	eng := pathengine.New(net)
	return matcher.NewState(net, idx, eng, nil, false)
}

// TestEuclidean_S2_PicksTheCloserDriver is S2: driver D1 at (0,10), D2 at
// (0,1), passenger source at (0,0); P2 must pick D2.
func TestEuclidean_S2_PicksTheCloserDriver(t *testing.T) {
	assert := testutil.NewAssert(t)
	net := roadnet.New(1)
	net.SetCoord(0, roadnet.Coord{Lat: 0, Lon: 0})
	st := newState(t, net)

	T0 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	st.AddDriver(&matcher.Driver{ID: 1, AvailableAt: T0, Lat: 0, Lon: 10, RidesRemaining: 5})
	st.AddDriver(&matcher.Driver{ID: 2, AvailableAt: T0, Lat: 0, Lon: 1, RidesRemaining: 5})
	st.AddPassenger(&matcher.Passenger{ID: 100, RequestTime: T0, SourceLat: 0, SourceLon: 0, DestLat: 0, DestLon: 0})

	pool := matcher.NewAvailablePool()
	pool.PushBack(1)
	pool.PushBack(2)

	euclidean := policy.Euclidean{State: st}
	driverID, _, err := euclidean.Match(pool, 100)
	assert.NoError(err)
	assert.Equal(2, driverID)
}

// TestFIFOVsEuclidean_S3_Divergence is S3: both drivers available at T0,
// sign-on order D1 then D2, but D2 spatially closer. P1 (FIFO) picks D1; P2
// (Euclidean) picks D2.
func TestFIFOVsEuclidean_S3_Divergence(t *testing.T) {
	assert := testutil.NewAssert(t)
	net := roadnet.New(1)
	net.SetCoord(0, roadnet.Coord{Lat: 0, Lon: 0})
	st := newState(t, net)

	T0 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	st.AddDriver(&matcher.Driver{ID: 1, AvailableAt: T0, Lat: 0, Lon: 10, RidesRemaining: 5})
	st.AddDriver(&matcher.Driver{ID: 2, AvailableAt: T0, Lat: 0, Lon: 1, RidesRemaining: 5})
	st.AddPassenger(&matcher.Passenger{ID: 100, RequestTime: T0, SourceLat: 0, SourceLon: 0, DestLat: 0, DestLon: 0})

	fifoPool := matcher.NewAvailablePool()
	fifoPool.PushBack(1)
	fifoPool.PushBack(2)
	fifo := policy.FIFO{}
	fifoDriver, _, err := fifo.Match(fifoPool, 100)
	assert.NoError(err)
	assert.Equal(1, fifoDriver)

	euclideanPool := matcher.NewAvailablePool()
	euclideanPool.PushBack(1)
	euclideanPool.PushBack(2)
	euclidean := policy.Euclidean{State: st}
	euclideanDriver, _, err := euclidean.Match(euclideanPool, 100)
	assert.NoError(err)
	assert.Equal(2, euclideanDriver)
}

// TestEuclidean_TieBreaksBySignOnOrder is invariant 8: equal distances break
// by earliest sign-on (pool insertion order).
func TestEuclidean_TieBreaksBySignOnOrder(t *testing.T) {
	assert := testutil.NewAssert(t)
	net := roadnet.New(1)
	net.SetCoord(0, roadnet.Coord{Lat: 0, Lon: 0})
	st := newState(t, net)

	T0 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	st.AddDriver(&matcher.Driver{ID: 7, AvailableAt: T0, Lat: 0, Lon: 5, RidesRemaining: 5})
	st.AddDriver(&matcher.Driver{ID: 3, AvailableAt: T0, Lat: 5, Lon: 0, RidesRemaining: 5})
	st.AddPassenger(&matcher.Passenger{ID: 100, RequestTime: T0, SourceLat: 0, SourceLon: 0, DestLat: 0, DestLon: 0})

	pool := matcher.NewAvailablePool()
	pool.PushBack(7)
	pool.PushBack(3)

	euclidean := policy.Euclidean{State: st}
	driverID, _, err := euclidean.Match(pool, 100)
	assert.NoError(err)
	assert.Equal(7, driverID, "equal distances must break by sign-on order, not driver id")
}

// TestPrunedPool_S6_EarlyExitStopsAfterThreeCandidates is S6: among the
// pruned candidate set (here already <= K=10), only the first three
// candidates in sign-on order are evaluated because the third's true pickup
// time (0.05h) is at or below the early-exit threshold (0.1h); a fourth
// candidate with an even smaller true pickup time must never be considered,
// or it would have won instead.
func TestPrunedPool_S6_EarlyExitStopsAfterThreeCandidates(t *testing.T) {
	assert := testutil.NewAssert(t)

	const n = 10
	net := roadnet.New(n + 1)
	net.SetCoord(0, roadnet.Coord{Lat: 0, Lon: 0}) // passenger node
	pickupTimes := []float64{0.5, 0.3, 0.05, 0.01, 0.2, 0.2, 0.2, 0.2, 0.2, 0.2}
	for i := 1; i <= n; i++ {
		net.SetCoord(roadnet.NodeID(i), roadnet.Coord{Lat: float64(i), Lon: 0})
		if err := net.AddEdge(roadnet.NodeID(i), 0, uniformHours(pickupTimes[i-1], 60)); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	st := newState(t, net)

	T0 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	st.AddPassenger(&matcher.Passenger{ID: 100, RequestTime: T0, SourceLat: 0, SourceLon: 0, DestLat: 0, DestLon: 0})

	pool := matcher.NewAvailablePool()
	for i := 1; i <= n; i++ {
		st.AddDriver(&matcher.Driver{ID: i, AvailableAt: T0, Lat: float64(i), Lon: 0, RidesRemaining: 5})
		pool.PushBack(i)
	}

	prunedPool := policy.PrunedPool{State: st}
	driverID, aux, err := prunedPool.Match(pool, 100)
	assert.NoError(err)
	assert.Equal(3, driverID, "the third candidate should win: its pickup time triggers early exit before a cheaper fourth candidate is ever evaluated")
	assert.NotNil(aux.PickupTime)
	assert.InDelta(0.05, *aux.PickupTime, 1e-9)
}
