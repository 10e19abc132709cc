package roadnet_test

import (
	"errors"
	"testing"

	"github.com/ubi-africa/dispatch-sim/internal/domainerr"
	"github.com/ubi-africa/dispatch-sim/internal/roadnet"
	"github.com/ubi-africa/dispatch-sim/internal/testutil"
)

func uniformHours(travelTime, maxSpeed float64) [roadnet.HoursPerDay]roadnet.EdgeAttr {
	var hours [roadnet.HoursPerDay]roadnet.EdgeAttr
	for h := range hours {
		hours[h] = roadnet.EdgeAttr{TravelTime: travelTime, MaxSpeed: maxSpeed}
	}
	return hours
}

func TestAddEdge_RejectsParallelEdge(t *testing.T) {
	assert := testutil.NewAssert(t)
	net := roadnet.New(2)
	net.SetCoord(0, roadnet.Coord{Lat: 0, Lon: 0})
	net.SetCoord(1, roadnet.Coord{Lat: 1, Lon: 0})

	assert.NoError(net.AddEdge(0, 1, uniformHours(1.0/60, 60)))

	err := net.AddEdge(0, 1, uniformHours(2.0/60, 60))
	assert.Error(err)
	assert.True(errors.Is(err, domainerr.ErrNoSuchEdge))
}

func TestEdgeAttrAt_RejectsOutOfRangeHour(t *testing.T) {
	assert := testutil.NewAssert(t)
	net := roadnet.New(2)
	net.SetCoord(0, roadnet.Coord{Lat: 0, Lon: 0})
	net.SetCoord(1, roadnet.Coord{Lat: 1, Lon: 0})
	assert.NoError(net.AddEdge(0, 1, uniformHours(1.0/60, 60)))

	_, err := net.EdgeAttrAt(0, 1, 24)
	assert.Error(err)

	_, err = net.EdgeAttrAt(0, 1, -1)
	assert.Error(err)
}

func TestEdgeAttrAt_UnknownEdge(t *testing.T) {
	assert := testutil.NewAssert(t)
	net := roadnet.New(2)
	_, err := net.EdgeAttrAt(0, 1, 0)
	assert.Error(err)
}

func TestMaxSpeedLimit_TracksPeakAcrossEdgesAndHours(t *testing.T) {
	assert := testutil.NewAssert(t)
	net := roadnet.New(3)
	for i := 0; i < 3; i++ {
		net.SetCoord(roadnet.NodeID(i), roadnet.Coord{Lat: float64(i), Lon: 0})
	}
	assert.NoError(net.AddEdge(0, 1, uniformHours(1.0/60, 40)))
	hours := uniformHours(1.0/60, 40)
	hours[18] = roadnet.EdgeAttr{TravelTime: 1.0 / 60, MaxSpeed: 90}
	assert.NoError(net.AddEdge(1, 2, hours))

	assert.Equal(90.0, net.MaxSpeedLimit())
}

func TestNodeDistance_Euclidean(t *testing.T) {
	assert := testutil.NewAssert(t)
	net := roadnet.New(2)
	net.SetCoord(0, roadnet.Coord{Lat: 0, Lon: 0})
	net.SetCoord(1, roadnet.Coord{Lat: 3, Lon: 4})

	assert.InDelta(5.0, net.NodeDistance(0, 1), 1e-9)
}

func TestAllNodeIDs_AscendingOrder(t *testing.T) {
	assert := testutil.NewAssert(t)
	net := roadnet.New(4)
	ids := net.AllNodeIDs()
	assert.Len(ids, 4)
	for i, id := range ids {
		assert.Equal(roadnet.NodeID(i), id)
	}
}
