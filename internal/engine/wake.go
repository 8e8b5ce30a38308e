package engine

import (
	"time"

	"github.com/tartampluch/go-prayer/internal/config"
)

// WakeChannel names an independent logical timer.
type WakeChannel string

const (
	// ChannelPrayer wakes the engine at the next prayer boundary or short retry.
	ChannelPrayer WakeChannel = config.WakeChannelPrayer
	// ChannelMidnight wakes the engine for the daily cache sync.
	ChannelMidnight WakeChannel = config.WakeChannelMidnight
)

// WakeScheduler delivers at-least-once callbacks at or after an instant.
// Arm replaces any wake-up already armed on the same channel.
type WakeScheduler interface {
	Arm(ch WakeChannel, at time.Time) error
	Cancel(ch WakeChannel)
}

// ClampWake keeps at no earlier than config.MinWakeDelay after now.
func ClampWake(at, now time.Time) time.Time {
	earliest := now.Add(config.MinWakeDelay)
	if at.Before(earliest) {
		return earliest
	}
	return at
}
