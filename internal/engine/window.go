package engine

import (
	"fmt"
	"time"

	"github.com/tartampluch/go-prayer/internal/config"
)

// Snapshot is the derived prayer window state at one instant.
type Snapshot struct {
	Current   Prayer
	Next      Prayer
	Boundary  time.Time
	Countdown time.Duration
}

// Derive computes the current and next prayer for now.
//
// Instants are built in now's location. After Isha the boundary is tomorrow's
// Fajr, approximated with today's Fajr time of day; the provider is not asked
// for tomorrow here. Derive is pure and is shared by the refresh cycle and the
// live display loop.
func Derive(times PrayerTimes, now time.Time) Snapshot {
	var starts [5]time.Time
	for i, p := range Prayers {
		starts[i] = times.Of(p).On(now)
	}

	snap := Snapshot{Current: Isha, Next: Fajr, Boundary: times.Fajr.On(now.AddDate(0, 0, 1))}
	switch {
	case now.Before(starts[Fajr]):
		snap = Snapshot{Current: Isha, Next: Fajr, Boundary: starts[Fajr]}
	default:
		for i := Dhuhr; i <= Isha; i++ {
			if now.Before(starts[i]) {
				snap = Snapshot{Current: i - 1, Next: i, Boundary: starts[i]}
				break
			}
		}
	}
	snap.Countdown = CountdownTo(snap.Boundary, now)
	return snap
}

// Select picks the window to display at now. The row comes from
// now+config.WindowLookahead so a render just before a boundary already shows
// the starting prayer; the countdown is still measured from now.
func Select(times PrayerTimes, now time.Time) Snapshot {
	snap := Derive(times, now.Add(config.WindowLookahead))
	snap.Countdown = CountdownTo(snap.Boundary, now)
	return snap
}

// CountdownTo returns the whole seconds left until boundary, never negative.
func CountdownTo(boundary, now time.Time) time.Duration {
	d := boundary.Sub(now)
	if d <= 0 {
		return 0
	}
	return d.Truncate(time.Second)
}

// FormatCountdown renders d as HH:MM:SS.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf(config.CountdownFormat, secs/3600, (secs/60)%60, secs%60)
}
