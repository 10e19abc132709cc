// Package geoindex buckets road-network nodes into H3 cells, grounded on this
// codebase's surge-pricing service (real uber/h3-go/v4 usage, not the mock H3
// helpers a sibling service carries for local development).
package geoindex

import (
	"github.com/uber/h3-go/v4"

	"github.com/ubi-africa/dispatch-sim/internal/roadnet"
)

// Resolution matches the surge service's city-scale hexagon size.
const Resolution = 8

// Index maps H3 cells to the node ids that fall within them, built once over a
// road network and queried by the dashboard's heatmap endpoint.
type Index struct {
	cellNodes map[h3.Cell][]roadnet.NodeID
}

// Build buckets every node in net by its H3 cell at Resolution.
func Build(net *roadnet.Network) *Index {
	idx := &Index{cellNodes: make(map[h3.Cell][]roadnet.NodeID)}
	for _, id := range net.AllNodeIDs() {
		c := net.Coord(id)
		cell := h3.LatLngToCell(h3.LatLng{Lat: c.Lat, Lng: c.Lon}, Resolution)
		idx.cellNodes[cell] = append(idx.cellNodes[cell], id)
	}
	return idx
}

// CellCounts returns the node count per occupied H3 cell, keyed by the cell's
// string form, for the dashboard's heatmap rendering.
func (idx *Index) CellCounts() map[string]int {
	out := make(map[string]int, len(idx.cellNodes))
	for cell, nodes := range idx.cellNodes {
		out[cell.String()] = len(nodes)
	}
	return out
}

// NodesNear returns every node within ring rings of the cell containing
// (lat, lon).
func (idx *Index) NodesNear(lat, lon float64, ring int) []roadnet.NodeID {
	center := h3.LatLngToCell(h3.LatLng{Lat: lat, Lng: lon}, Resolution)
	cells := h3.GridDisk(center, ring)
	var out []roadnet.NodeID
	for _, c := range cells {
		out = append(out, idx.cellNodes[c]...)
	}
	return out
}
