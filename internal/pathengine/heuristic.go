package pathengine

// Heuristic selects the A* lower-bound estimate used to guide search toward the
// target. Passed as an enum rather than a string per the re-architecture guidance;
// Engine.heuristicCost switches on it for every node it scores.
type Heuristic int

const (
	// Dijkstra means h ≡ 0: pure Dijkstra, always admissible.
	Dijkstra Heuristic = iota
	// Euclidean adds spatial_distance(current, t) / max_speed_limit. Admissible
	// because it is a provable lower bound on remaining travel time.
	Euclidean
	// Manhattan adds |Δlat| + |Δlon|. NOT guaranteed admissible on an arbitrary
	// graph; kept only for parity with the source's fastest variant (see
	// DESIGN.md's open-question decision).
	Manhattan
)

func (h Heuristic) String() string {
	switch h {
	case Dijkstra:
		return "dijkstra"
	case Euclidean:
		return "euclidean"
	case Manhattan:
		return "manhattan"
	default:
		return "unknown"
	}
}
