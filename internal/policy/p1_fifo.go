package policy

import (
	"github.com/ubi-africa/dispatch-sim/internal/matcher"
	"github.com/ubi-africa/dispatch-sim/internal/pathengine"
)

// FIFO is P1: pop the head of the available pool (the driver who signed on
// earliest). Time-free — it never queries the path engine to choose, leaving
// CompleteRide to compute the pickup time with the euclidean heuristic.
type FIFO struct{}

// Match implements MatchPolicy.
func (FIFO) Match(pool *matcher.AvailablePool, _ int) (int, Aux, error) {
	driverID, ok := pool.PopFront()
	if !ok {
		return 0, Aux{}, emptyPoolErr()
	}
	return driverID, Aux{Heuristic: pathengine.Euclidean}, nil
}
