// Package metrics records refresh engine activity. The engine depends on its
// own Recorder contract; this package provides the Prometheus implementation.
package metrics

import (
	"time"

	"github.com/tartampluch/go-prayer/internal/config"
	"github.com/tartampluch/go-prayer/internal/engine"
)

// Recorder is the full set of hooks fed by the engine and the wake scheduler.
type Recorder interface {
	engine.Recorder
	IncWakeFallback(channel string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not served).
type NoopRecorder struct {
	engine.NoopRecorder
}

func (NoopRecorder) IncWakeFallback(string) {}

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

// resultLabel maps a boolean outcome to the counter label.
func resultLabel(ok bool) string {
	if ok {
		return config.MetricResultOK
	}
	return config.MetricResultFail
}

// durationSeconds keeps every histogram in seconds.
func durationSeconds(d time.Duration) float64 { return d.Seconds() }
