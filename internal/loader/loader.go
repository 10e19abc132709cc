// Package loader parses the CSV input tables spec.md §6 describes as
// collaborator responsibilities — node coordinates, adjacency, drivers, and
// passengers — into the in-memory tables the dispatch core operates on. CSV
// decoding itself uses the standard library's encoding/csv: no third-party CSV
// library appears anywhere in the retrieved reference pack, so there is nothing
// to ground a substitute on.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/ubi-africa/dispatch-sim/internal/domainerr"
	"github.com/ubi-africa/dispatch-sim/internal/matcher"
	"github.com/ubi-africa/dispatch-sim/internal/pathengine"
	"github.com/ubi-africa/dispatch-sim/internal/roadnet"
	"github.com/ubi-africa/dispatch-sim/internal/spatial"
)

// timestampLayout matches spec.md §6's "M/D/YYYY H:M:S" driver/passenger row
// format.
const timestampLayout = "1/2/2006 15:04:05"

// DriverRideCapacityMin/Max bound the uniform random ride-capacity draw spec.md
// §3/§6 specifies for newly loaded drivers.
const (
	DriverRideCapacityMin = 7
	DriverRideCapacityMax = 12
)

// nodeIndex interns string node ids into dense roadnet.NodeID values, per
// spec.md §9's guidance that pair-cache keys should be small integers.
type nodeIndex struct {
	idOf   map[string]roadnet.NodeID
	order  []string
}

func newNodeIndex() *nodeIndex {
	return &nodeIndex{idOf: make(map[string]roadnet.NodeID)}
}

func (n *nodeIndex) intern(raw string) roadnet.NodeID {
	if id, ok := n.idOf[raw]; ok {
		return id
	}
	id := roadnet.NodeID(len(n.order))
	n.idOf[raw] = id
	n.order = append(n.order, raw)
	return id
}

// LoadNodes reads a CSV of (node_id, lat, lon) rows and returns an interned node
// index along with a Network sized and coordinate-populated for those nodes.
func LoadNodes(path string) (*nodeIndex, *roadnet.Network, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, nil, err
	}
	idx := newNodeIndex()
	type raw struct {
		id       string
		lat, lon float64
	}
	var parsed []raw
	for i, row := range rows {
		if i == 0 && looksLikeHeader(row) {
			continue
		}
		if len(row) < 3 {
			return nil, nil, fmt.Errorf("loader: node row %d: expected 3 columns, got %d", i, len(row))
		}
		lat, err := parseFloat(row[1])
		if err != nil {
			return nil, nil, fmt.Errorf("loader: node row %d lat: %w", i, err)
		}
		lon, err := parseFloat(row[2])
		if err != nil {
			return nil, nil, fmt.Errorf("loader: node row %d lon: %w", i, err)
		}
		parsed = append(parsed, raw{id: row[0], lat: lat, lon: lon})
	}
	if len(parsed) == 0 {
		return nil, nil, domainerr.ErrNoNodes
	}
	net := roadnet.New(len(parsed))
	for _, r := range parsed {
		nid := idx.intern(r.id)
		net.SetCoord(nid, roadnet.Coord{Lat: r.lat, Lon: r.lon})
	}
	return idx, net, nil
}

// LoadAdjacency reads a CSV of (from, to, hour, travel_time, max_speed) rows —
// 24 rows per directed edge, one per hour — and adds each fully populated edge
// to net. Missing hours are a load error, per spec.md §6.
func LoadAdjacency(path string, idx *nodeIndex, net *roadnet.Network) error {
	rows, err := readCSV(path)
	if err != nil {
		return err
	}

	type key struct{ u, v roadnet.NodeID }
	bundles := make(map[key]*[roadnet.HoursPerDay]*roadnet.EdgeAttr)
	order := make([]key, 0)

	for i, row := range rows {
		if i == 0 && looksLikeHeader(row) {
			continue
		}
		if len(row) < 5 {
			return fmt.Errorf("loader: adjacency row %d: expected 5 columns, got %d", i, len(row))
		}
		u := idx.intern(row[0])
		v := idx.intern(row[1])
		hour, err := parseInt(row[2])
		if err != nil || hour < 0 || hour >= roadnet.HoursPerDay {
			return fmt.Errorf("loader: adjacency row %d: bad hour %q", i, row[2])
		}
		travelTime, err := parseFloat(row[3])
		if err != nil {
			return fmt.Errorf("loader: adjacency row %d travel_time: %w", i, err)
		}
		maxSpeed, err := parseFloat(row[4])
		if err != nil {
			return fmt.Errorf("loader: adjacency row %d max_speed: %w", i, err)
		}

		k := key{u, v}
		if _, ok := bundles[k]; !ok {
			var empty [roadnet.HoursPerDay]*roadnet.EdgeAttr
			bundles[k] = &empty
			order = append(order, k)
		}
		bundles[k][hour] = &roadnet.EdgeAttr{TravelTime: travelTime, MaxSpeed: maxSpeed}
	}

	for _, k := range order {
		var hours [roadnet.HoursPerDay]roadnet.EdgeAttr
		for h := 0; h < roadnet.HoursPerDay; h++ {
			if bundles[k][h] == nil {
				return fmt.Errorf("loader: edge %d->%d missing hour %d", k.u, k.v, h)
			}
			hours[h] = *bundles[k][h]
		}
		if err := net.AddEdge(k.u, k.v, hours); err != nil {
			return err
		}
	}
	return nil
}

// LoadDrivers reads a CSV of (timestamp, source_lat, source_lon) rows, assigns
// dense ids in row order, draws each driver's ride capacity uniformly from
// [DriverRideCapacityMin, DriverRideCapacityMax] via rng, and registers every
// driver in state. Returns the driver ids in load order, as the loop needs for
// its initial PendingPool.
func LoadDrivers(path string, state *matcher.State, rng *rand.Rand) ([]int, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	var ids []int
	for i, row := range rows {
		if i == 0 && looksLikeHeader(row) {
			continue
		}
		if len(row) < 3 {
			return nil, fmt.Errorf("loader: driver row %d: expected 3 columns, got %d", i, len(row))
		}
		ts, err := time.Parse(timestampLayout, row[0])
		if err != nil {
			return nil, fmt.Errorf("loader: driver row %d timestamp: %w", i, err)
		}
		lat, err := parseFloat(row[1])
		if err != nil {
			return nil, fmt.Errorf("loader: driver row %d lat: %w", i, err)
		}
		lon, err := parseFloat(row[2])
		if err != nil {
			return nil, fmt.Errorf("loader: driver row %d lon: %w", i, err)
		}
		id := len(ids)
		rides := DriverRideCapacityMin + rng.Intn(DriverRideCapacityMax-DriverRideCapacityMin+1)
		state.AddDriver(&matcher.Driver{
			ID:             id,
			AvailableAt:    ts,
			Lat:            lat,
			Lon:            lon,
			RidesRemaining: rides,
		})
		ids = append(ids, id)
	}
	return ids, nil
}

// LoadPassengers reads a CSV of (timestamp, source_lat, source_lon, dest_lat,
// dest_lon) rows, assigns dense ids in row order, and registers every passenger
// in state. Asserts non-decreasing request_time per spec.md §3's passenger
// invariant, returning domainerr.ErrInvariantViolation on violation.
func LoadPassengers(path string, state *matcher.State) ([]int, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	var ids []int
	var lastTime time.Time
	for i, row := range rows {
		if i == 0 && looksLikeHeader(row) {
			continue
		}
		if len(row) < 5 {
			return nil, fmt.Errorf("loader: passenger row %d: expected 5 columns, got %d", i, len(row))
		}
		ts, err := time.Parse(timestampLayout, row[0])
		if err != nil {
			return nil, fmt.Errorf("loader: passenger row %d timestamp: %w", i, err)
		}
		if len(ids) > 0 && ts.Before(lastTime) {
			return nil, fmt.Errorf("loader: passenger row %d out of order: %w", i, domainerr.ErrInvariantViolation)
		}
		lastTime = ts

		srcLat, err := parseFloat(row[1])
		if err != nil {
			return nil, fmt.Errorf("loader: passenger row %d source_lat: %w", i, err)
		}
		srcLon, err := parseFloat(row[2])
		if err != nil {
			return nil, fmt.Errorf("loader: passenger row %d source_lon: %w", i, err)
		}
		dstLat, err := parseFloat(row[3])
		if err != nil {
			return nil, fmt.Errorf("loader: passenger row %d dest_lat: %w", i, err)
		}
		dstLon, err := parseFloat(row[4])
		if err != nil {
			return nil, fmt.Errorf("loader: passenger row %d dest_lon: %w", i, err)
		}

		id := len(ids)
		state.AddPassenger(&matcher.Passenger{
			ID:          id,
			RequestTime: ts,
			SourceLat:   srcLat,
			SourceLon:   srcLon,
			DestLat:     dstLat,
			DestLon:     dstLon,
		})
		ids = append(ids, id)
	}
	return ids, nil
}

// BuildSpatialIndex builds the nearest-node index over net, failing with
// domainerr.ErrNoNodes on an empty node set.
func BuildSpatialIndex(net *roadnet.Network) (*spatial.Index, error) {
	return spatial.Build(net)
}

// NewPathEngine returns a path engine bound to net.
func NewPathEngine(net *roadnet.Network) *pathengine.Engine {
	return pathengine.New(net)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("loader: read %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func looksLikeHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	if _, err := parseFloat(row[0]); err == nil {
		return false
	}
	if _, err := time.Parse(timestampLayout, row[0]); err == nil {
		return false
	}
	return true
}

func parseFloat(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	return f, err
}

func parseInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

// SortPassengerIDsByRequestTime is a defensive re-sort used by callers that
// build passenger ids from a source other than LoadPassengers's own
// non-decreasing scan (e.g. test fixtures).
func SortPassengerIDsByRequestTime(state *matcher.State, ids []int) {
	sort.SliceStable(ids, func(i, j int) bool {
		pi, _ := state.Passenger(ids[i])
		pj, _ := state.Passenger(ids[j])
		return pi.RequestTime.Before(pj.RequestTime)
	})
}
