// Package sim implements the discrete-event simulation loop (C7): a sequential
// state machine over virtual time with no parallelism and no suspension points,
// exactly as spec.md §5 requires of the core.
package sim

import (
	"time"

	"github.com/ubi-africa/dispatch-sim/internal/domainerr"
	"github.com/ubi-africa/dispatch-sim/internal/matcher"
	"github.com/ubi-africa/dispatch-sim/internal/policy"
)

// Loop drives the Init/Promote/Serve/Advance/Terminate state machine over a
// matcher.State using one match policy. Events, if a non-nil channel is
// supplied, are emitted synchronously as they occur.
type Loop struct {
	State  *matcher.State
	Policy policy.MatchPolicy

	Pending   *matcher.PendingPool
	Available *matcher.AvailablePool

	Trace  TraceSink
	Events chan<- Event

	passengers    []int
	passengerIdx  int
	current       []int // FIFO of passengers with request_time <= T, oldest first
}

// NewLoop constructs a loop. driverIDs and passengerIDs must already be present
// in state (via AddDriver/AddPassenger); passengerIDs must be sorted by
// non-decreasing request_time, which the loader asserts at load time.
func NewLoop(state *matcher.State, pol policy.MatchPolicy, driverIDs, passengerIDs []int) *Loop {
	l := &Loop{
		State:     state,
		Policy:    pol,
		Pending:   matcher.NewPendingPool(),
		Available: matcher.NewAvailablePool(),
		Trace:     NoopTrace{},
		passengers: passengerIDs,
	}
	for _, id := range driverIDs {
		if d, ok := state.Driver(id); ok {
			l.Pending.Push(matcher.PendingEntry{DriverID: id, AvailableAt: d.AvailableAt})
		}
	}
	return l
}

func (l *Loop) emit(e Event) {
	if l.Events != nil {
		l.Events <- e
	}
}

// Run executes the state machine to completion (Terminate). It returns only on
// InvariantViolation (fatal per spec.md §7); Unreachable ride failures are
// logged as SkipEvents and the loop continues, per the corresponding open
// question's resolution in SPEC_FULL.md §9.
func (l *Loop) Run() error {
	if len(l.passengers) == 0 {
		l.emit(TerminateEvent{TotalRidesCompleted: l.State.Metrics.TotalRidesCompleted})
		return nil
	}

	first, ok := l.State.Passenger(l.passengers[0])
	if !ok {
		return invariantErr("first passenger not found in matcher state")
	}
	t := first.RequestTime
	l.current = append(l.current, l.passengers[0])
	l.passengerIdx = 1

	for {
		l.promote(t)
		if err := l.serve(t); err != nil {
			return err
		}

		l.Trace.OnTick(TickPoint{Timestamp: t, WaitingPassengers: len(l.current), AvailableDrivers: l.Available.Len()})

		if l.passengerIdx >= len(l.passengers) && len(l.current) == 0 {
			l.emit(TerminateEvent{Time: t, TotalRidesCompleted: l.State.Metrics.TotalRidesCompleted})
			return nil
		}

		if l.passengerIdx < len(l.passengers) {
			next := l.passengers[l.passengerIdx]
			l.passengerIdx++
			p, ok := l.State.Passenger(next)
			if !ok {
				return invariantErr("queued passenger not found in matcher state")
			}
			if p.RequestTime.Before(t) {
				return invariantErr("passengers out of order")
			}
			l.current = append(l.current, next)
			t = p.RequestTime
			continue
		}

		// No more passengers will ever arrive, but some are still waiting
		// because the available pool ran dry. Advance virtual time to the
		// next pending driver's available_at so Promote can make progress; spec.md's
		// Advance step is defined purely in terms of passenger arrivals, so
		// this fallback only engages in the input stream's tail.
		if entry, ok := l.Pending.Peek(); ok {
			t = entry.AvailableAt
			continue
		}

		// No drivers will ever become available again: every remaining
		// waiting passenger can never be served. Terminate rather than spin.
		l.emit(TerminateEvent{Time: t, TotalRidesCompleted: l.State.Metrics.TotalRidesCompleted})
		return nil
	}
}

// promote moves every driver whose available_at <= t from PendingPool into
// AvailablePool, preserving sign-on order.
func (l *Loop) promote(t time.Time) {
	for {
		entry, ok := l.Pending.Peek()
		if !ok || entry.AvailableAt.After(t) {
			return
		}
		l.Pending.Pop()
		l.Available.PushBack(entry.DriverID)
		l.emit(PromoteEvent{Time: t, DriverID: entry.DriverID})
	}
}

// serve matches and completes rides while both pools are non-empty.
func (l *Loop) serve(t time.Time) error {
	for l.Available.Len() > 0 && len(l.current) > 0 {
		passengerID := l.current[0]
		l.current = l.current[1:]

		driverID, aux, err := l.Policy.Match(l.Available, passengerID)
		if err != nil {
			l.emit(SkipEvent{Time: t, PassengerID: passengerID, Reason: err})
			continue
		}

		retired, err := l.State.CompleteRide(driverID, passengerID, matcher.RideOptions{
			PickupTime:        aux.PickupTime,
			Heuristic:         aux.Heuristic,
			RetainOnExhausted: aux.RetainOnExhausted,
		})
		if err != nil {
			l.emit(SkipEvent{Time: t, PassengerID: passengerID, Reason: err})
			continue
		}

		pickup := 0.0
		if aux.PickupTime != nil {
			pickup = *aux.PickupTime
		}
		l.emit(MatchEvent{Time: t, DriverID: driverID, PassengerID: passengerID, PickupTime: pickup, Retired: retired})
		l.Trace.OnMatch(MatchPoint{Timestamp: t, CumulativeD1: l.State.Metrics.D1Minutes, CumulativeD2: l.State.Metrics.D2Minutes})

		if retired {
			l.emit(RetireEvent{Time: t, DriverID: driverID})
			continue
		}

		if d, ok := l.State.Driver(driverID); ok {
			l.Pending.Push(matcher.PendingEntry{DriverID: driverID, AvailableAt: d.AvailableAt})
		}
	}
	return nil
}

func invariantErr(msg string) error {
	return &loopInvariantError{msg: msg}
}

type loopInvariantError struct{ msg string }

func (e *loopInvariantError) Error() string { return "sim: invariant violation: " + e.msg }
func (e *loopInvariantError) Unwrap() error { return domainerr.ErrInvariantViolation }
