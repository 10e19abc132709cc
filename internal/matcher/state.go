// Package matcher owns the mutable state shared by every match policy: driver and
// passenger tables, the per-driver nearest-node memo, the pairwise travel-time
// cache, and cumulative metrics. It also implements the ride-completion
// transaction (C6), the only code path allowed to mutate driver records.
package matcher

import (
	"sync"
	"time"

	"github.com/ubi-africa/dispatch-sim/internal/domainerr"
	"github.com/ubi-africa/dispatch-sim/internal/metrics"
	"github.com/ubi-africa/dispatch-sim/internal/pathengine"
	"github.com/ubi-africa/dispatch-sim/internal/roadnet"
	"github.com/ubi-africa/dispatch-sim/internal/spatial"
)

// Driver is a mutable driver record. Only State.UpdateDriver and the ride
// transaction may mutate one; policies read through State's accessors.
type Driver struct {
	ID             int
	AvailableAt    time.Time
	Lat, Lon       float64
	RidesRemaining int
}

// Passenger is an immutable passenger record, discarded once matched.
type Passenger struct {
	ID                       int
	RequestTime              time.Time
	SourceLat, SourceLon     float64
	DestLat, DestLon         float64
}

// PairTimeCache is a read-through cache of (node, node) -> travel time. Policies
// that require hourly accuracy (P3, P4) bypass it in their candidate scan; the
// pickup/trip-leg queries CompleteRide makes still read through it when
// enabled. The default in-memory
// implementation is not invalidated on hour change (see DESIGN.md open-question
// decisions). A last-writer-wins implementation is sufficient even under the
// hinted-at future parallel-match variant, since the cache is purely advisory.
type PairTimeCache interface {
	Get(u, v roadnet.NodeID) (float64, bool)
	Set(u, v roadnet.NodeID, hours float64)
}

type pairKey struct {
	u, v roadnet.NodeID
}

// memCache is the default in-process PairTimeCache.
type memCache struct {
	mu sync.RWMutex
	m  map[pairKey]float64
}

func newMemCache() *memCache {
	return &memCache{m: make(map[pairKey]float64)}
}

func (c *memCache) Get(u, v roadnet.NodeID) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.m[pairKey{u, v}]
	return t, ok
}

func (c *memCache) Set(u, v roadnet.NodeID, hours float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[pairKey{u, v}] = hours
}

// State is the matcher's owned state: driver/passenger tables, NearestMemo,
// PairTimeCache, and Metrics, plus the road network and query engines every
// policy and the ride transaction read from.
type State struct {
	Net     *roadnet.Network
	Spatial *spatial.Index
	Path    *pathengine.Engine

	Metrics *metrics.Metrics

	drivers     map[int]*Driver
	passengers  map[int]*Passenger
	nearestMemo map[int]roadnet.NodeID
	pairCache   PairTimeCache

	useCache bool
}

// NewState constructs matcher state over a built network, spatial index, and path
// engine. useCache controls whether CompleteRide consults/writes the
// PairTimeCache at all; pass a nil cache to use the default in-memory
// implementation.
func NewState(net *roadnet.Network, idx *spatial.Index, path *pathengine.Engine, cache PairTimeCache, useCache bool) *State {
	if cache == nil {
		cache = newMemCache()
	}
	return &State{
		Net:         net,
		Spatial:     idx,
		Path:        path,
		Metrics:     &metrics.Metrics{},
		drivers:     make(map[int]*Driver),
		passengers:  make(map[int]*Passenger),
		nearestMemo: make(map[int]roadnet.NodeID),
		pairCache:   cache,
		useCache:    useCache,
	}
}

// AddDriver registers a newly loaded driver record. Registering a record for
// an id already present replaces it and drops that driver's NearestMemo entry,
// so the next lookup resolves the new coordinate.
func (s *State) AddDriver(d *Driver) {
	s.drivers[d.ID] = d
	delete(s.nearestMemo, d.ID)
}

// AddPassenger registers a newly loaded passenger record.
func (s *State) AddPassenger(p *Passenger) {
	s.passengers[p.ID] = p
}

// Driver returns the driver record for id, or (nil, false) if unknown/retired.
func (s *State) Driver(id int) (*Driver, bool) {
	d, ok := s.drivers[id]
	return d, ok
}

// Passenger returns the passenger record for id.
func (s *State) Passenger(id int) (*Passenger, bool) {
	p, ok := s.passengers[id]
	return p, ok
}

// UpdateDriver atomically replaces a driver's mutable fields after a completed
// ride that did not result in retirement.
func (s *State) UpdateDriver(id int, newAvailableAt time.Time, newRides int, lat, lon float64) {
	d, ok := s.drivers[id]
	if !ok {
		return
	}
	d.AvailableAt = newAvailableAt
	d.RidesRemaining = newRides
	d.Lat = lat
	d.Lon = lon
}

// RetireDriver removes a driver from the matcher's live table entirely; a retired
// driver must never again appear in either pool.
func (s *State) RetireDriver(id int) {
	delete(s.drivers, id)
	delete(s.nearestMemo, id)
}

// NearestNode resolves the node nearest to a coordinate via the spatial index,
// timing the call into Metrics.ClosestNode.
func (s *State) NearestNode(lat, lon float64) roadnet.NodeID {
	start := time.Now()
	id := s.Spatial.Nearest(lat, lon)
	s.Metrics.ClosestNode.Observe(time.Since(start))
	return id
}

// DriverNode resolves the node a driver currently occupies, consulting
// NearestMemo first to avoid a redundant spatial-index query when the driver has
// not moved since their last match cycle.
func (s *State) DriverNode(d *Driver) roadnet.NodeID {
	if node, ok := s.nearestMemo[d.ID]; ok {
		return node
	}
	node := s.NearestNode(d.Lat, d.Lon)
	s.nearestMemo[d.ID] = node
	return node
}

// SetDriverNode overwrites NearestMemo for a driver, used at drop-off.
func (s *State) SetDriverNode(driverID int, node roadnet.NodeID) {
	s.nearestMemo[driverID] = node
}

// TimedShortestPath wraps a path-engine query with Metrics.ShortestPath timing
// and, when enabled, the PairTimeCache read-through. Exported so match-policy
// selection queries (P5, B1-B2) are counted alongside CompleteRide's own
// pickup/trip-leg queries, matching the reference's single shortest-path call
// counter across both the selection and completion phases.
func (s *State) TimedShortestPath(u, v roadnet.NodeID, hour int, h pathengine.Heuristic) (float64, error) {
	if s.useCache {
		if cached, ok := s.pairCache.Get(u, v); ok {
			return cached, nil
		}
	}
	start := time.Now()
	t, err := s.Path.Time(u, v, hour, h)
	s.Metrics.ShortestPath.Observe(time.Since(start))
	if err != nil {
		return 0, err
	}
	if s.useCache {
		s.pairCache.Set(u, v, t)
	}
	return t, nil
}

// TimedShortestPathWithTraffic wraps the congestion-aware path-engine query
// (B3's selection loop) with the same Metrics.ShortestPath timing; it bypasses
// PairTimeCache since a congestion-aware result depends on traffic state
// already committed by prior matches, not just (u, v, hour).
func (s *State) TimedShortestPathWithTraffic(u, v roadnet.NodeID, hour int, congestion *pathengine.Congestion) (float64, []pathengine.Edge, error) {
	start := time.Now()
	t, path, err := s.Path.TimeWithTraffic(u, v, hour, congestion)
	s.Metrics.ShortestPath.Observe(time.Since(start))
	return t, path, err
}

// invariantViolation reports an internal consistency failure (InvariantViolation
// is always fatal per spec.md §7).
func invariantViolation(msg string) error {
	return &invariantError{msg: msg}
}

type invariantError struct{ msg string }

func (e *invariantError) Error() string { return "matcher: invariant violation: " + e.msg }
func (e *invariantError) Unwrap() error { return domainerr.ErrInvariantViolation }
