package matcher

import (
	"fmt"
	"time"

	"github.com/ubi-africa/dispatch-sim/internal/pathengine"
)

// RideOptions configures one call to CompleteRide. Heuristic and PickupTime let a
// policy reuse work it already did (P3-P5 and B1-B3 resolve the pickup time
// itself before calling CompleteRide; P1 and P2 leave it to CompleteRide); RetainOnExhausted
// is B1's hook. The trip leg always uses the plain (non-congestion) engine, even
// for B3: the source's complete_ride never calls the traffic-aware query itself,
// only B3's own selection loop does, which commits its traffic directly.
type RideOptions struct {
	// PickupTime, if non-nil, is used as-is instead of recomputed; this is how
	// P3-P5 avoid querying the path engine twice for the same driver/passenger
	// pair they already resolved while ranking candidates.
	PickupTime *float64
	Heuristic  pathengine.Heuristic
	// RetainOnExhausted overrides the default "retire when rides_remaining <= 0"
	// rule: if non-nil and it returns true for the ride's resolved hour, the
	// driver remains in rotation despite exhausted capacity (B1).
	RetainOnExhausted func(hour int) bool
}

// CompleteRide is the C6 ride-completion transaction: it resolves driver,
// passenger, and destination nodes, computes pickup and trip time, accumulates
// D1/D2, decrements the driver's remaining capacity, and either retires the
// driver or updates their record for re-queueing. The transaction is
// atomic-or-nothing: on error, no driver or metrics state has been mutated.
func (s *State) CompleteRide(driverID, passengerID int, opts RideOptions) (retired bool, err error) {
	driver, ok := s.Driver(driverID)
	if !ok {
		return false, invariantViolation(fmt.Sprintf("complete_ride: unknown driver %d", driverID))
	}
	passenger, ok := s.Passenger(passengerID)
	if !ok {
		return false, invariantViolation(fmt.Sprintf("complete_ride: unknown passenger %d", passengerID))
	}

	driverNode := s.DriverNode(driver)
	passengerNode := s.NearestNode(passenger.SourceLat, passenger.SourceLon)
	destNode := s.NearestNode(passenger.DestLat, passenger.DestLon)

	hour := HourRule(driver.AvailableAt, passenger.RequestTime)

	var pickupTime float64
	if opts.PickupTime != nil {
		pickupTime = *opts.PickupTime
	} else {
		t, qErr := s.TimedShortestPath(driverNode, passengerNode, hour, opts.Heuristic)
		if qErr != nil {
			return false, fmt.Errorf("complete_ride: pickup leg: %w", qErr)
		}
		pickupTime = t
	}

	startTime := driver.AvailableAt
	if passenger.RequestTime.After(startTime) {
		startTime = passenger.RequestTime
	}
	arriveAtPickup := startTime.Add(hoursToDuration(pickupTime))

	tripTime, qErr := s.TimedShortestPath(passengerNode, destNode, hour, opts.Heuristic)
	if qErr != nil {
		return false, fmt.Errorf("complete_ride: trip leg: %w", qErr)
	}

	arriveAtDest := arriveAtPickup.Add(hoursToDuration(tripTime))

	d1 := arriveAtDest.Sub(passenger.RequestTime).Minutes()
	d2 := (tripTime - pickupTime) * 60
	s.Metrics.RecordRide(d1, d2)

	ridesRemaining := driver.RidesRemaining - 1
	s.SetDriverNode(driverID, destNode)
	destCoord := s.Net.Coord(destNode)

	if ridesRemaining <= 0 {
		if opts.RetainOnExhausted != nil && opts.RetainOnExhausted(hour) {
			s.UpdateDriver(driverID, arriveAtDest, ridesRemaining, destCoord.Lat, destCoord.Lon)
			return false, nil
		}
		s.RetireDriver(driverID)
		return true, nil
	}

	s.UpdateDriver(driverID, arriveAtDest, ridesRemaining, destCoord.Lat, destCoord.Lon)
	return false, nil
}

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
