package engine

import "time"

// Recorder receives engine measurements. The metrics package provides the
// Prometheus implementation.
type Recorder interface {
	ObserveSync(ok bool, d time.Duration)
	ObserveCycle(outcome Outcome, d time.Duration)
	IncNotification(p Prayer)
	SetRetryWindowOpen(open bool)
}

// NoopRecorder discards all measurements.
type NoopRecorder struct{}

func (NoopRecorder) ObserveSync(bool, time.Duration)     {}
func (NoopRecorder) ObserveCycle(Outcome, time.Duration) {}
func (NoopRecorder) IncNotification(Prayer)              {}
func (NoopRecorder) SetRetryWindowOpen(bool)             {}
