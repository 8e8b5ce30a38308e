package engine_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-prayer/internal/config"
	"github.com/tartampluch/go-prayer/internal/engine"
)

const providerBody = `{
  "code": 200,
  "data": {
    "timings": {
      "Fajr": "05:00 (CEST)",
      "Sunrise": "06:31",
      "Dhuhr": "12:10",
      "Asr": "15:40",
      "Maghrib": "18:50",
      "Isha": "20:10"
    },
    "date": {
      "hijri": {"day": "23", "month": {"en": "Shawwal"}, "year": "1445"},
      "gregorian": {"day": "01", "month": {"en": "May"}, "year": "2024"}
    }
  }
}`

// TestHTTPProvider_Fetch_Coordinates verifies URL layout, headers and parsing.
func TestHTTPProvider_Fetch_Coordinates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/timings/01-05-2024", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "51.5", q.Get("latitude"))
		assert.Equal(t, "-0.12", q.Get("longitude"))
		assert.Equal(t, "1", q.Get("method"))
		assert.Equal(t, "0", q.Get("school"))

		// Verify User-Agent matches the config constant
		assert.Equal(t, config.UserAgent, r.Header.Get("User-Agent"), "User-Agent mismatch")

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(providerBody))
	}))
	defer ts.Close()

	p := engine.NewHTTPProvider(ts.URL)
	loc := engine.LocationSpec{Kind: engine.LocationCoordinates, Latitude: 51.5, Longitude: -0.12, Method: 1, School: 0}
	day, err := p.Fetch(context.Background(), time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), loc)

	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", day.Date)
	assert.Equal(t, engine.TimeOfDay{Hour: 5, Minute: 0}, day.Times.Fajr, "Trailing timezone hint must be discarded")
	assert.Equal(t, engine.TimeOfDay{Hour: 20, Minute: 10}, day.Times.Isha)
	require.NotNil(t, day.Times.Sunrise)
	assert.Equal(t, "06:31", day.Times.Sunrise.String())
	assert.Equal(t, "23 Shawwal 1445 AH", day.HijriLabel)
	assert.Equal(t, "01 May 2024", day.GregorianLabel)
}

// TestHTTPProvider_Fetch_City verifies the city endpoint and query escaping.
func TestHTTPProvider_Fetch_City(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/timingsByCity/02-05-2024", r.URL.Path)
		assert.Equal(t, "Saint Denis", r.URL.Query().Get("city"))
		assert.Equal(t, "France", r.URL.Query().Get("country"))
		assert.Contains(t, r.URL.RawQuery, "city=Saint+Denis")
		_, _ = w.Write([]byte(providerBody))
	}))
	defer ts.Close()

	p := engine.NewHTTPProvider(ts.URL + "/")
	loc := engine.LocationSpec{Kind: engine.LocationCity, City: "Saint Denis", Country: "France", Method: 1, School: 1}
	_, err := p.Fetch(context.Background(), time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), loc)
	require.NoError(t, err)
}

// TestHTTPProvider_Fetch_Errors verifies every failure collapses into ErrFetchFailed.
func TestHTTPProvider_Fetch_Errors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
	}{
		{"Server Error", http.StatusInternalServerError, "boom"},
		{"Not Found", http.StatusNotFound, ""},
		{"Malformed JSON", http.StatusOK, "{not json"},
		{"Missing Isha", http.StatusOK, `{"data":{"timings":{"Fajr":"05:00","Dhuhr":"12:10","Asr":"15:40","Maghrib":"18:50"}}}`},
		{"Unparseable Time", http.StatusOK, `{"data":{"timings":{"Fajr":"five","Dhuhr":"12:10","Asr":"15:40","Maghrib":"18:50","Isha":"20:10"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			p := engine.NewHTTPProvider(ts.URL)
			_, err := p.Fetch(context.Background(), time.Now(), engine.LocationSpec{Kind: engine.LocationCity, City: "a", Country: "b"})

			require.Error(t, err)
			assert.ErrorIs(t, err, engine.ErrFetchFailed)
		})
	}
}

// TestHTTPProvider_InvalidScheme ensures non-HTTP base URLs are refused before any I/O.
func TestHTTPProvider_InvalidScheme(t *testing.T) {
	p := engine.NewHTTPProvider("ftp://example.com")
	_, err := p.Fetch(context.Background(), time.Now(), engine.LocationSpec{Kind: engine.LocationCity, City: "a", Country: "b"})

	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrFetchFailed)
	assert.Contains(t, err.Error(), config.ErrProtocol)
}

// TestHTTPProvider_ContextCancelled ensures a cancelled context aborts the request.
func TestHTTPProvider_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := engine.NewHTTPProvider(ts.URL)
	_, err := p.Fetch(ctx, time.Now(), engine.LocationSpec{Kind: engine.LocationCity, City: "a", Country: "b"})
	assert.ErrorIs(t, err, engine.ErrFetchFailed)
}
