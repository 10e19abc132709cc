package pathengine

import (
	"sync"

	"github.com/ubi-africa/dispatch-sim/internal/roadnet"
)

// Congestion tracks how many previously selected paths used each directed edge,
// used only by the B3 traffic-aware policy variant to penalize over-used routes
// (self-loading feedback). Safe for concurrent reads; writes should be serialized
// by the caller within a single simulation run.
type Congestion struct {
	mu     sync.RWMutex
	counts map[edgeKey]float64
}

type edgeKey struct {
	u, v roadnet.NodeID
}

// NewCongestion returns an empty congestion map.
func NewCongestion() *Congestion {
	return &Congestion{counts: make(map[edgeKey]float64)}
}

// Count returns the current traffic count for edge u->v (0 if never traveled).
func (c *Congestion) Count(u, v roadnet.NodeID) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[edgeKey{u, v}]
}

// AddTraffic increments the traffic count for every edge along path by one,
// committing the caller's chosen route to the congestion map.
func (c *Congestion) AddTraffic(path []Edge) {
	if len(path) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range path {
		c.counts[edgeKey{e.From, e.To}]++
	}
}
