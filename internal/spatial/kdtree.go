// Package spatial implements the static nearest-node index the dispatch core uses
// to map an arbitrary coordinate to the nearest road-network node.
package spatial

import (
	"sort"

	"github.com/ubi-africa/dispatch-sim/internal/domainerr"
	"github.com/ubi-africa/dispatch-sim/internal/roadnet"
)

// point is one indexed node: its coordinate and the node id it resolves to.
type point struct {
	coord roadnet.Coord
	id    roadnet.NodeID
}

type kdNode struct {
	p           point
	axis        int // 0 = lat, 1 = lon
	left, right *kdNode
}

// Index is a 2-D k-d tree over node coordinates, built once and queried many times.
// Construction is O(N log N); a query is expected O(log N) with true backtracking
// bounded by squared distance, rather than a fixed-radius scan.
type Index struct {
	root *kdNode
	n    int
}

// Build constructs the index from every node's coordinate in net. Returns
// domainerr.ErrNoNodes if net has zero nodes.
func Build(net *roadnet.Network) (*Index, error) {
	n := net.NumNodes()
	if n == 0 {
		return nil, domainerr.ErrNoNodes
	}
	pts := make([]point, n)
	for i := 0; i < n; i++ {
		id := roadnet.NodeID(i)
		pts[i] = point{coord: net.Coord(id), id: id}
	}
	idx := &Index{n: n}
	idx.root = build(pts, 0)
	return idx, nil
}

func build(pts []point, depth int) *kdNode {
	if len(pts) == 0 {
		return nil
	}
	axis := depth % 2
	sort.Slice(pts, func(i, j int) bool {
		if axis == 0 {
			if pts[i].coord.Lat != pts[j].coord.Lat {
				return pts[i].coord.Lat < pts[j].coord.Lat
			}
			return pts[i].id < pts[j].id
		}
		if pts[i].coord.Lon != pts[j].coord.Lon {
			return pts[i].coord.Lon < pts[j].coord.Lon
		}
		return pts[i].id < pts[j].id
	})
	mid := len(pts) / 2
	// Nodes sharing the split value may fall on either side of the median; the
	// secondary id key above keeps the sort order, and so the tree, deterministic.
	node := &kdNode{p: pts[mid], axis: axis}
	node.left = build(pts[:mid], depth+1)
	node.right = build(pts[mid+1:], depth+1)
	return node
}

// Nearest returns the node id whose coordinate is closest (Euclidean, on the
// locally-flat plane) to (lat, lon). Ties are broken by lower node id.
func (idx *Index) Nearest(lat, lon float64) roadnet.NodeID {
	q := roadnet.Coord{Lat: lat, Lon: lon}
	best := idx.root.p
	bestSq := sqDist(q, best.coord)
	nearest(idx.root, q, &best, &bestSq)
	return best.id
}

func sqDist(a, b roadnet.Coord) float64 {
	dLat := a.Lat - b.Lat
	dLon := a.Lon - b.Lon
	return dLat*dLat + dLon*dLon
}

func nearest(n *kdNode, q roadnet.Coord, best *point, bestSq *float64) {
	if n == nil {
		return
	}

	d := sqDist(q, n.p.coord)
	if d < *bestSq || (d == *bestSq && n.p.id < best.id) {
		*bestSq = d
		*best = n.p
	}

	var axisVal, splitVal float64
	if n.axis == 0 {
		axisVal, splitVal = q.Lat, n.p.coord.Lat
	} else {
		axisVal, splitVal = q.Lon, n.p.coord.Lon
	}

	near, far := n.left, n.right
	if axisVal > splitVal {
		near, far = n.right, n.left
	}

	nearest(near, q, best, bestSq)

	// Only descend into the far side if the splitting plane could still hold a
	// closer point than the current best — this is the backtracking bound the
	// source's kd-tree variants omit or compute incorrectly.
	gap := axisVal - splitVal
	if gap*gap < *bestSq {
		nearest(far, q, best, bestSq)
	}
}
