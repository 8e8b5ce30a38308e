package engine

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	"github.com/tartampluch/go-prayer/internal/config"
)

// BuildCalendar renders cached days as an iCalendar feed, one event per prayer.
// Times are interpreted in loc and stamped in UTC. name localizes the summary;
// nil falls back to the canonical prayer name.
func BuildCalendar(days []PrayerDay, loc *time.Location, now time.Time, name func(Prayer) string) ([]byte, error) {
	if len(days) == 0 {
		// Return a valid empty calendar so subscribers do not flag the feed.
		return []byte(config.StubVCalendar), nil
	}
	if name == nil {
		name = Prayer.String
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	// RFC 7986 refresh hint.
	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	stamp := ical.NewProp(config.PropDTStamp)
	stamp.SetDateTime(now.UTC())

	for _, day := range days {
		date, err := time.ParseInLocation(config.ISODateLayout, day.Date, loc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
		}
		for _, p := range Prayers {
			event := ical.NewEvent()
			event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, day.Date, p, config.ICalDomain))
			event.Props.SetText(config.PropSummary, name(p))
			event.Props.SetText(config.PropCategories, config.ICalCalName)

			start := ical.NewProp(config.PropDTStart)
			start.SetDateTime(day.Times.Of(p).On(date).UTC())
			event.Props.Set(start)
			event.Props.Set(stamp)

			cal.Children = append(cal.Children, event.Component)
		}
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	return buf.Bytes(), nil
}
