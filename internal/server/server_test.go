package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartampluch/go-prayer/internal/config"
	"github.com/tartampluch/go-prayer/internal/engine"
)

// fixedState serves a constant view.
type fixedState struct{ v *engine.View }

func (f fixedState) LastView() *engine.View { return f.v }

// -----------------------------------------------------------------------------
// Calendar feed
// -----------------------------------------------------------------------------

// TestCalendar_ServingContent verifies headers and body when data is available.
func TestCalendar_ServingContent(t *testing.T) {
	srv := NewFeedServer("0")
	expectedICS := []byte("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR")
	srv.UpdateCalendar(expectedICS)

	for _, route := range []string{config.RouteRoot, config.RouteCalendar} {
		t.Run(route, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, route, nil))

			resp := w.Result()
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, config.MimeTextCalendar, resp.Header.Get(config.HeaderContentType))
			assert.Equal(t, config.MimeNoSniff, resp.Header.Get(config.HeaderXContentType))
			assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))

			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, expectedICS, body)
		})
	}
}

// TestCalendar_Caching verifies If-None-Match and If-Modified-Since handling.
func TestCalendar_Caching(t *testing.T) {
	srv := NewFeedServer("0")
	srv.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	srv.UpdateCalendar([]byte("DATA_VERSION_1"))

	w1 := httptest.NewRecorder()
	srv.handleCalendarRequest(w1, httptest.NewRequest(http.MethodGet, "/", nil))
	etag := w1.Result().Header.Get(config.HeaderETag)
	require.NotEmpty(t, etag, "Server must provide an ETag")

	t.Run("ETag match", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(config.HeaderIfNoneMatch, etag)
		w := httptest.NewRecorder()
		srv.handleCalendarRequest(w, req)

		assert.Equal(t, http.StatusNotModified, w.Code)
		assert.Empty(t, w.Body.Bytes(), "Body must be empty on 304 Not Modified")
	})

	t.Run("Not modified since", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(config.HeaderIfModifiedSince, time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC).Format(http.TimeFormat))
		w := httptest.NewRecorder()
		srv.handleCalendarRequest(w, req)

		assert.Equal(t, http.StatusNotModified, w.Code)
	})

	t.Run("Modified since", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(config.HeaderIfModifiedSince, time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC).Format(http.TimeFormat))
		w := httptest.NewRecorder()
		srv.handleCalendarRequest(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

// TestCalendar_UnchangedContentKeepsLastModified avoids spurious client refreshes.
func TestCalendar_UnchangedContentKeepsLastModified(t *testing.T) {
	srv := NewFeedServer("0")
	srv.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	srv.UpdateCalendar([]byte("SAME"))
	first := srv.feed.Load()

	srv.now = func() time.Time { return time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC) }
	srv.UpdateCalendar([]byte("SAME"))

	assert.Same(t, first, srv.feed.Load())
}

// TestHandler_MethodNotAllowed ensures strictly GET and HEAD are accepted.
func TestHandler_MethodNotAllowed(t *testing.T) {
	srv := NewFeedServer("0")

	for _, route := range []string{config.RouteCalendar, config.RouteState} {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, route, nil))

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, route)
		assert.NotEmpty(t, w.Header().Get(config.HeaderAllow))
	}
}

// TestHandler_Initializing verifies the 503 behavior when data is not yet ready.
func TestHandler_Initializing(t *testing.T) {
	srv := NewFeedServer("0")

	for _, route := range []string{config.RouteCalendar, config.RouteState} {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, route, nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code, route)
		assert.Equal(t, config.RetryAfterSeconds, w.Header().Get(config.HeaderRetryAfter))
	}
}

// -----------------------------------------------------------------------------
// State endpoint
// -----------------------------------------------------------------------------

// TestState_CountdownEvaluatedAtRequestTime checks that the served countdown is live.
func TestState_CountdownEvaluatedAtRequestTime(t *testing.T) {
	target := time.Date(2024, 5, 1, 20, 10, 0, 0, time.UTC)
	srv := NewFeedServer("0")
	srv.State = fixedState{v: &engine.View{
		Current:   "Maghrib",
		Next:      "next prayer: Isha",
		Countdown: "01:10:00",
		Target:    target,
		Live:      true,
		Footer:    "22 Shawwal 1445 AH, 01 May 2024",
		Outcome:   engine.OutcomeLive,
	}}
	srv.now = func() time.Time { return target.Add(-30 * time.Minute) }

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, config.RouteState, nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, config.MimeJSON, w.Header().Get(config.HeaderContentType))

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Maghrib", got["current"])
	assert.Equal(t, "00:30:00", got["countdown"])
	assert.Equal(t, "live", got["outcome"])
}

// TestMetricsRoute ensures the optional metrics handler is mounted.
func TestMetricsRoute(t *testing.T) {
	srv := NewFeedServer("0")
	srv.Metrics = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("goprayer_up 1"))
	})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, config.RouteMetrics, nil))
	assert.Equal(t, "goprayer_up 1", w.Body.String())
}

// -----------------------------------------------------------------------------
// Concurrency Tests (Race Detection)
// -----------------------------------------------------------------------------

// TestServer_RaceCondition validates the thread-safety of atomic.Pointer usage.
// Run this with `go test -race`.
func TestServer_RaceCondition(t *testing.T) {
	srv := NewFeedServer("0")
	var wg sync.WaitGroup
	end := time.Now().Add(500 * time.Millisecond)

	for w := 0; w < 5; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; time.Now().Before(end); i++ {
				srv.UpdateCalendar([]byte(fmt.Sprintf("VERSION:%d-%d", id, i)))
				time.Sleep(1 * time.Microsecond)
			}
		}(w)
	}

	for r := 0; r < 20; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) {
				w := httptest.NewRecorder()
				srv.handleCalendarRequest(w, httptest.NewRequest(http.MethodGet, "/", nil))
				if w.Code != http.StatusOK && w.Code != http.StatusServiceUnavailable {
					t.Errorf("Unexpected status code during race test: %d", w.Code)
				}
			}
		}()
	}

	wg.Wait()
}

// -----------------------------------------------------------------------------
// Integration Tests (Real TCP Lifecycle)
// -----------------------------------------------------------------------------

// TestServer_Lifecycle spins up the actual TCP listener to verify network binding
// and graceful shutdown logic.
func TestServer_Lifecycle(t *testing.T) {
	const port = "18099"

	srv := NewFeedServer(port)
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	go func() {
		errChan <- srv.Start(ctx)
	}()

	url := "http://127.0.0.1:" + port + config.RouteCalendar

	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}, 2*time.Second, 50*time.Millisecond, "Server failed to bind/listen in time")

	resp, err := http.Get(url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()

	srv.UpdateCalendar([]byte(config.StubVCalendar))

	resp, err = http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "BEGIN:VCALENDAR")

	cancel()

	select {
	case err := <-errChan:
		assert.NoError(t, err, "Server should shutdown gracefully without error")
	case <-time.After(5 * time.Second):
		t.Fatal("Server shutdown timed out")
	}
}

// TestServer_PortRequired rejects an empty port before binding.
func TestServer_PortRequired(t *testing.T) {
	err := NewFeedServer("").Start(context.Background())
	assert.EqualError(t, err, config.ErrPortRequired)
}
