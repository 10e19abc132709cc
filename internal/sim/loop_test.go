package sim_test

import (
	"testing"
	"time"

	"github.com/ubi-africa/dispatch-sim/internal/matcher"
	"github.com/ubi-africa/dispatch-sim/internal/pathengine"
	"github.com/ubi-africa/dispatch-sim/internal/policy"
	"github.com/ubi-africa/dispatch-sim/internal/roadnet"
	"github.com/ubi-africa/dispatch-sim/internal/sim"
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

func twoNodeState(t *testing.T) *matcher.State {
	t.Helper()
	net := roadnet.New(2)
	net.SetCoord(0, roadnet.Coord{Lat: 0, Lon: 0})
	net.SetCoord(1, roadnet.Coord{Lat: 1, Lon: 0})
	if err := net.AddEdge(0, 1, uniformHours(1.0/60, 60)); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	idx, err := spatial.Build(net)
	if err != nil {
		t.Fatalf("spatial.Build: %v", err)
	}
	eng := pathengine.New(net)
	return matcher.NewState(net, idx, eng, nil, false)
}

// TestLoop_S1_SingleDriverSinglePassenger drives the full Init/Promote/Serve
// loop over the exact S1 fixture end to end.
func TestLoop_S1_SingleDriverSinglePassenger(t *testing.T) {
	assert := testutil.NewAssert(t)
	st := twoNodeState(t)

	T0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	st.AddDriver(&matcher.Driver{ID: 1, AvailableAt: T0, Lat: 0, Lon: 0, RidesRemaining: 5})
	st.AddPassenger(&matcher.Passenger{ID: 100, RequestTime: T0, SourceLat: 0, SourceLon: 0, DestLat: 1, DestLon: 0})

	var events []sim.Event
	ch := make(chan sim.Event, 16)
	loop := sim.NewLoop(st, policy.FIFO{}, []int{1}, []int{100})
	loop.Events = ch

	err := loop.Run()
	close(ch)
	assert.NoError(err)
	for e := range ch {
		events = append(events, e)
	}

	assert.InDelta(1.0, st.Metrics.D1Minutes, 1e-9)
	assert.InDelta(1.0, st.Metrics.D2Minutes, 1e-9)
	assert.Equal(int64(1), st.Metrics.TotalRidesCompleted)

	var sawMatch, sawTerminate bool
	for _, e := range events {
		switch ev := e.(type) {
		case sim.MatchEvent:
			sawMatch = true
			assert.Equal(1, ev.DriverID)
			assert.Equal(100, ev.PassengerID)
			assert.False(ev.Retired)
		case sim.TerminateEvent:
			sawTerminate = true
			assert.Equal(int64(1), ev.TotalRidesCompleted)
		}
	}
	assert.True(sawMatch)
	assert.True(sawTerminate)

	driver, ok := st.Driver(1)
	assert.True(ok)
	assert.Equal(4, driver.RidesRemaining)
}

// TestLoop_S4_RetirementRemovesDriverFromBothPools is S4: a driver with a
// single ride retires after serving it and must never be matched again, even
// when another passenger is waiting.
func TestLoop_S4_RetirementRemovesDriverFromBothPools(t *testing.T) {
	assert := testutil.NewAssert(t)
	st := twoNodeState(t)

	T0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	st.AddDriver(&matcher.Driver{ID: 1, AvailableAt: T0, Lat: 0, Lon: 0, RidesRemaining: 1})
	st.AddPassenger(&matcher.Passenger{ID: 100, RequestTime: T0, SourceLat: 0, SourceLon: 0, DestLat: 1, DestLon: 0})
	st.AddPassenger(&matcher.Passenger{ID: 101, RequestTime: T0.Add(time.Minute), SourceLat: 0, SourceLon: 0, DestLat: 1, DestLon: 0})

	ch := make(chan sim.Event, 16)
	loop := sim.NewLoop(st, policy.FIFO{}, []int{1}, []int{100, 101})
	loop.Events = ch

	err := loop.Run()
	close(ch)
	assert.NoError(err)

	var retireCount, matchCount int
	for e := range ch {
		switch ev := e.(type) {
		case sim.RetireEvent:
			retireCount++
			assert.Equal(1, ev.DriverID)
		case sim.MatchEvent:
			matchCount++
			assert.Equal(100, ev.PassengerID, "the retired driver must never be matched to the second passenger")
		}
	}
	assert.Equal(1, retireCount)
	assert.Equal(1, matchCount, "no driver remains to serve the second passenger once the only driver retires")

	_, ok := st.Driver(1)
	assert.False(ok)
	assert.Equal(int64(1), st.Metrics.TotalRidesCompleted)
}
