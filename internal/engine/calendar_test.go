package engine

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartampluch/go-prayer/internal/config"
)

func TestBuildCalendar_Empty(t *testing.T) {
	data, err := BuildCalendar(nil, time.UTC, at(12, 0, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, config.StubVCalendar, string(data))
}

func TestBuildCalendar_OneEventPerPrayer(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	days := []PrayerDay{
		{Date: "2024-05-01", Times: mustTimes(t)},
		{Date: "2024-05-02", Times: mustTimes(t)},
	}
	names := map[Prayer]string{Fajr: "Sobh"}
	name := func(p Prayer) string {
		if n, ok := names[p]; ok {
			return n
		}
		return p.String()
	}

	data, err := BuildCalendar(days, loc, at(12, 0, 0), name)
	require.NoError(t, err)

	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, len(days)*len(Prayers))

	first := events[0]
	uid, err := first.Props.Text(config.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01-Fajr@"+config.ICalDomain, uid)

	summary, err := first.Props.Text(config.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "Sobh", summary)

	start, err := first.DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)), "05:00 at UTC+2 is 03:00 UTC, got %s", start)

	last, err := events[len(events)-1].Props.Text(config.PropUID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(last, "2024-05-02-Isha@"))
}

func TestBuildCalendar_BadDate(t *testing.T) {
	_, err := BuildCalendar([]PrayerDay{{Date: "01/05/2024", Times: mustTimes(t)}}, time.UTC, at(12, 0, 0), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrICalEncode)
}
