package engine

import (
	"fmt"
	"time"

	"github.com/tartampluch/go-prayer/internal/config"
)

// DateFooter renders "<hijri>, <gregorian>" for the display.
// The Islamic day starts at sunset, so from today's Maghrib onward the hijri
// label of tomorrow is shown when it is cached.
func DateFooter(today *PrayerDay, tomorrow *PrayerDay, now time.Time) string {
	if today == nil {
		return config.FooterUnknown
	}

	hijri := today.HijriLabel
	if !now.Before(today.Times.Maghrib.On(now)) && tomorrow != nil {
		hijri = tomorrow.HijriLabel
	}
	if hijri == "" {
		hijri = config.DateUnknown
	}
	gregorian := today.GregorianLabel
	if gregorian == "" {
		gregorian = config.DateUnknown
	}
	return fmt.Sprintf(config.FooterFormat, hijri, gregorian)
}
