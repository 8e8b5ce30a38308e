package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/tartampluch/go-prayer/internal/config"
)

// Outcome classifies how a refresh cycle ended.
type Outcome int

const (
	OutcomeNoLocation Outcome = iota + 1
	OutcomeUnavailable
	OutcomeStale
	OutcomeLive
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoLocation:
		return "no_location"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeStale:
		return "stale"
	case OutcomeLive:
		return "live"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// View is what a render surface displays.
//
// When Live is true the countdown runs toward Target and the surface re-renders
// it itself with CountdownAt; Countdown then holds the value at render time.
// When Live is false Countdown is a fixed string.
type View struct {
	Current   string    `json:"current"`
	Next      string    `json:"next"`
	Countdown string    `json:"countdown"`
	Target    time.Time `json:"target,omitzero"`
	Live      bool      `json:"live"`
	Footer    string    `json:"footer"`
	Outcome   Outcome   `json:"outcome"`
}

// CountdownAt returns the countdown text at now.
// Target carries the monotonic reading of the cycle clock, so a wall clock
// change between renders does not make the countdown jump.
func (v View) CountdownAt(now time.Time) string {
	if !v.Live {
		return v.Countdown
	}
	return FormatCountdown(CountdownTo(v.Target, now))
}

// Renderer displays a View. Implementations must not block for long.
type Renderer interface {
	Render(ctx context.Context, v View) error
}

// Notifier emits the "prayer has started" notification.
type Notifier interface {
	Notify(ctx context.Context, p Prayer) error
}

// CalendarSink receives the ICS export after each live cycle.
type CalendarSink interface {
	UpdateCalendar(data []byte)
}

// Labels produces the user-visible strings. Hosts inject localized versions.
type Labels struct {
	PrayerName       func(p Prayer) string
	NextPrayer       func(name string) string
	NextUnknown      string
	LocationRequired string
	UnableToLoad     string
}

// DefaultLabels returns the English labels.
func DefaultLabels() Labels {
	return Labels{
		PrayerName:       Prayer.String,
		NextPrayer:       func(name string) string { return fmt.Sprintf(config.LabelNextPrayer, name) },
		NextUnknown:      config.LabelNextUnknown,
		LocationRequired: config.LabelLocationNeeded,
		UnableToLoad:     config.LabelUnableToLoad,
	}
}

// withDefaults fills unset fields from DefaultLabels.
func (l Labels) withDefaults() Labels {
	d := DefaultLabels()
	if l.PrayerName == nil {
		l.PrayerName = d.PrayerName
	}
	if l.NextPrayer == nil {
		l.NextPrayer = d.NextPrayer
	}
	if l.NextUnknown == "" {
		l.NextUnknown = d.NextUnknown
	}
	if l.LocationRequired == "" {
		l.LocationRequired = d.LocationRequired
	}
	if l.UnableToLoad == "" {
		l.UnableToLoad = d.UnableToLoad
	}
	return l
}
