package engine

import "time"

// Clock abstracts time.Now() to allow deterministic testing.
// The refresh cycle reads it once and derives every instant from that reading.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time, monotonic reading included.
func (RealClock) Now() time.Time {
	return time.Now()
}

// NextMidnight returns the start of the calendar day after now, in now's location.
func NextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}
