package sim

import "time"

// Event is implemented by every discrete occurrence the loop can emit on its
// optional event channel (PromoteEvent, MatchEvent, RetireEvent, SkipEvent,
// TerminateEvent). Marker-interface pattern, grounded on the event-trace idiom
// used for this codebase's earlier fixed-route simulators; adapted here to a
// synchronous single-threaded loop rather than a wall-clock-paced runner, so the
// channel is purely an observability tap, never a scheduling primitive.
type Event interface {
	isEvent()
}

// PromoteEvent fires when a driver moves from PendingPool to AvailablePool.
type PromoteEvent struct {
	Time     time.Time
	DriverID int
}

// MatchEvent fires when a policy selects a driver for a passenger and the ride
// transaction completes successfully.
type MatchEvent struct {
	Time        time.Time
	DriverID    int
	PassengerID int
	PickupTime  float64
	Retired     bool
}

// RetireEvent fires when a driver exits every pool for good.
type RetireEvent struct {
	Time     time.Time
	DriverID int
}

// SkipEvent fires when a passenger is dropped because the policy could not
// match a driver or the ride transaction failed (Unreachable), per the
// open-question decision to skip and continue rather than abort the simulation.
type SkipEvent struct {
	Time        time.Time
	PassengerID int
	Reason      error
}

// TerminateEvent fires once, when the loop's Terminate condition is reached.
type TerminateEvent struct {
	Time               time.Time
	TotalRidesCompleted int64
}

func (PromoteEvent) isEvent()   {}
func (MatchEvent) isEvent()     {}
func (RetireEvent) isEvent()    {}
func (SkipEvent) isEvent()      {}
func (TerminateEvent) isEvent() {}
