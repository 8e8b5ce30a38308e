package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tartampluch/go-prayer/internal/config"
)

// Prayer identifies one of the five canonical daily prayer windows.
type Prayer int

const (
	Fajr Prayer = iota
	Dhuhr
	Asr
	Maghrib
	Isha
)

// Prayers lists the window boundaries in chronological order.
var Prayers = []Prayer{Fajr, Dhuhr, Asr, Maghrib, Isha}

var prayerNames = [...]string{"Fajr", "Dhuhr", "Asr", "Maghrib", "Isha"}

func (p Prayer) String() string {
	if p < Fajr || p > Isha {
		return fmt.Sprintf("Prayer(%d)", int(p))
	}
	return prayerNames[p]
}

// ParsePrayer maps a canonical name back to its Prayer value.
func ParsePrayer(name string) (Prayer, bool) {
	for i, n := range prayerNames {
		if strings.EqualFold(n, name) {
			return Prayer(i), true
		}
	}
	return 0, false
}

// MarshalText implements encoding.TextMarshaler so prayers persist by name.
func (p Prayer) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Prayer) UnmarshalText(b []byte) error {
	v, ok := ParsePrayer(string(b))
	if !ok {
		return fmt.Errorf("%s %q", config.ErrUnknownPrayer, string(b))
	}
	*p = v
	return nil
}

// TimeOfDay is a wall-clock hour and minute without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts "H:mm" values, ignoring anything after the first space
// (the provider appends timezone hints such as "05:12 (CEST)").
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	value := strings.TrimSpace(raw)
	if i := strings.IndexByte(value, ' '); i >= 0 {
		value = value[:i]
	}

	hh, mm, ok := strings.Cut(value, ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("%s: %q", config.ErrTimeParse, raw)
	}
	h, errH := strconv.Atoi(hh)
	m, errM := strconv.Atoi(mm)
	if err := errors.Join(errH, errM); err != nil {
		return TimeOfDay{}, fmt.Errorf("%s: %q: %w", config.ErrTimeParse, raw, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("%s: %q out of range", config.ErrTimeParse, raw)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf(config.TimeOfDayLayout, t.Hour, t.Minute)
}

// On anchors the time of day to the calendar date of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, day.Location())
}

// MarshalText implements encoding.TextMarshaler ("HH:MM").
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// PrayerTimes holds the five window boundaries of one day.
// Ordering (Fajr < Dhuhr < Asr < Maghrib < Isha) is guaranteed by the provider.
type PrayerTimes struct {
	Fajr    TimeOfDay  `json:"fajr"`
	Sunrise *TimeOfDay `json:"sunrise,omitempty"`
	Dhuhr   TimeOfDay  `json:"dhuhr"`
	Asr     TimeOfDay  `json:"asr"`
	Maghrib TimeOfDay  `json:"maghrib"`
	Isha    TimeOfDay  `json:"isha"`
}

// Of returns the start time of the given prayer.
func (pt PrayerTimes) Of(p Prayer) TimeOfDay {
	switch p {
	case Fajr:
		return pt.Fajr
	case Dhuhr:
		return pt.Dhuhr
	case Asr:
		return pt.Asr
	case Maghrib:
		return pt.Maghrib
	default:
		return pt.Isha
	}
}

// PrayerDay is one immutable provider answer for a calendar date.
type PrayerDay struct {
	Date           string      `json:"date"` // ISO yyyy-mm-dd
	Times          PrayerTimes `json:"times"`
	HijriLabel     string      `json:"hijri"`
	GregorianLabel string      `json:"gregorian"`
}

// DateKey formats the calendar date of t as used for cache keys.
func DateKey(t time.Time) string {
	return t.Format(config.ISODateLayout)
}
