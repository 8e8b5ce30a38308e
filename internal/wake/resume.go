package wake

import (
	"context"
	"log/slog"
	"time"

	"github.com/tartampluch/go-prayer/internal/config"
)

// ResumeDetector notices suspend/resume cycles and wall clock changes.
// The monotonic clock stops during suspend and ignores clock adjustments,
// so a gap between wall and monotonic elapsed time means every armed
// wake-up should be recomputed.
type ResumeDetector struct {
	Interval  time.Duration
	Threshold time.Duration
	OnJump    func()
}

// NewResumeDetector returns a detector using the configured timings.
func NewResumeDetector(onJump func()) *ResumeDetector {
	return &ResumeDetector{
		Interval:  config.ResumeCheckInterval,
		Threshold: config.ResumeDriftThreshold,
		OnJump:    onJump,
	}
}

// Run samples both clocks every Interval until ctx is cancelled.
func (d *ResumeDetector) Run(ctx context.Context) {
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	prev := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			if drift, jumped := d.check(prev.Round(0), now.Sub(prev), now.Round(0)); jumped {
				slog.Info(config.MsgResumeDetected,
					config.LogKeyComponent, config.CompWake,
					config.LogKeyDrift, drift.String())
				if d.OnJump != nil {
					d.OnJump()
				}
			}
			prev = now
		}
	}
}

// check compares the wall clock delta to the monotonic elapsed time.
func (d *ResumeDetector) check(prevWall time.Time, monoElapsed time.Duration, nowWall time.Time) (time.Duration, bool) {
	drift := nowWall.Sub(prevWall) - monoElapsed
	if drift < 0 {
		drift = -drift
	}
	return drift, drift > d.Threshold
}
