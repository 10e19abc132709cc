package matcher

import "time"

// HourRule resolves which hour-of-day to use for an edge lookup when a driver and
// a passenger timestamp might fall on different days: if both fall on the same
// day-of-month, the later hour-of-day of the two governs; otherwise the hour-of-day
// of whichever timestamp has the strictly later day-of-month governs. This matches
// the reference's day-of-month comparison (`.day < .day`), not a full calendar-date
// comparison, so it resolves a month boundary the same way the reference does.
func HourRule(driverTime, passengerTime time.Time) int {
	dd := driverTime.Day()
	pd := passengerTime.Day()

	switch {
	case dd < pd:
		return passengerTime.Hour()
	case dd > pd:
		return driverTime.Hour()
	default:
		if driverTime.Hour() > passengerTime.Hour() {
			return driverTime.Hour()
		}
		return passengerTime.Hour()
	}
}
