// Package pathengine implements the time-dependent shortest-path query the dispatch
// core uses to compute pickup and trip times: A* with a pluggable admissible (or, for
// manhattan, merely fast) heuristic, hourly edge weights, and an optional congestion
// overlay for the traffic-aware bonus policy.
package pathengine

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/ubi-africa/dispatch-sim/internal/domainerr"
	"github.com/ubi-africa/dispatch-sim/internal/roadnet"
)

// Edge is one directed hop of a returned path.
type Edge struct {
	From, To roadnet.NodeID
}

// Engine runs A*/Dijkstra queries against a fixed road network. It holds no mutable
// search state between calls; each query allocates its own open set.
type Engine struct {
	net *roadnet.Network
}

// New returns a path engine over net.
func New(net *roadnet.Network) *Engine {
	return &Engine{net: net}
}

// heapItem is one entry in the open set's min-heap, keyed by f = g + h.
type heapItem struct {
	node  roadnet.NodeID
	g     float64
	f     float64
	order int // insertion sequence, for deterministic tie-breaking
	index int
}

type openHeap []*heapItem

func (h openHeap) Len() int { return len(h) }
func (h openHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	// When multiple neighbors yield equal f, insertion order prevails.
	return h[i].order < h[j].order
}
func (h openHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *openHeap) Push(x interface{}) {
	item := x.(*heapItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *openHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

func (e *Engine) heuristicCost(h Heuristic, from, to roadnet.NodeID) float64 {
	switch h {
	case Dijkstra:
		return 0
	case Euclidean:
		maxSpeed := e.net.MaxSpeedLimit()
		if maxSpeed <= 0 {
			return 0
		}
		return e.net.NodeDistance(from, to) / maxSpeed
	case Manhattan:
		a, b := e.net.Coord(from), e.net.Coord(to)
		return math.Abs(a.Lat-b.Lat) + math.Abs(a.Lon-b.Lon)
	default:
		return 0
	}
}

// Time returns the travel time in hours from s to t at the given hour, using h as
// the guiding heuristic. Returns domainerr.ErrUnreachable if no path exists.
func (e *Engine) Time(s, t roadnet.NodeID, hour int, h Heuristic) (float64, error) {
	total, _, err := e.search(s, t, hour, h, nil)
	return total, err
}

// TimeAndPath returns both the travel time and the sequence of directed edges
// traversed from s to t.
func (e *Engine) TimeAndPath(s, t roadnet.NodeID, hour int, h Heuristic) (float64, []Edge, error) {
	return e.search(s, t, hour, h, nil)
}

// TimeWithTraffic is the congestion-aware variant used by the traffic-aware bonus
// policy: each edge's travel time is multiplied by 1 + traffic_count(u,v), where
// traffic is the caller-supplied congestion map. It does not mutate traffic itself;
// the caller commits the chosen path afterward via AddTraffic.
func (e *Engine) TimeWithTraffic(s, t roadnet.NodeID, hour int, traffic *Congestion) (float64, []Edge, error) {
	return e.search(s, t, hour, Dijkstra, traffic)
}

func (e *Engine) search(s, t roadnet.NodeID, hour int, h Heuristic, traffic *Congestion) (float64, []Edge, error) {
	if s == t {
		return 0, nil, nil
	}

	g := map[roadnet.NodeID]float64{s: 0}
	parent := make(map[roadnet.NodeID]roadnet.NodeID)
	closed := make(map[roadnet.NodeID]bool)

	open := &openHeap{}
	heap.Init(open)
	seq := 0
	heap.Push(open, &heapItem{node: s, g: 0, f: e.heuristicCost(h, s, t), order: seq})

	for open.Len() > 0 {
		item := heap.Pop(open).(*heapItem)
		u := item.node

		// Stale entry: a better g for u was already found and committed.
		if bestG, ok := g[u]; ok && item.g > bestG {
			continue
		}
		if closed[u] {
			continue
		}
		closed[u] = true

		if u == t {
			return g[u], reconstructPath(parent, s, t), nil
		}

		for _, v := range e.net.Neighbors(u) {
			if closed[v] {
				continue
			}
			attr, err := e.net.EdgeAttrAt(u, v, hour)
			if err != nil {
				return 0, nil, fmt.Errorf("pathengine: %w", err)
			}
			weight := attr.TravelTime
			if traffic != nil {
				weight *= 1 + traffic.Count(u, v)
			}
			candidateG := g[u] + weight
			if existingG, ok := g[v]; !ok || candidateG < existingG {
				g[v] = candidateG
				parent[v] = u
				seq++
				heap.Push(open, &heapItem{
					node:  v,
					g:     candidateG,
					f:     candidateG + e.heuristicCost(h, v, t),
					order: seq,
				})
			}
		}
	}

	return 0, nil, fmt.Errorf("pathengine: %d -> %d: %w", s, t, domainerr.ErrUnreachable)
}

func reconstructPath(parent map[roadnet.NodeID]roadnet.NodeID, s, t roadnet.NodeID) []Edge {
	var rev []Edge
	cur := t
	for cur != s {
		prev, ok := parent[cur]
		if !ok {
			break
		}
		rev = append(rev, Edge{From: prev, To: cur})
		cur = prev
	}
	path := make([]Edge, len(rev))
	for i, e := range rev {
		path[len(rev)-1-i] = e
	}
	return path
}
