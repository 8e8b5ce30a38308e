package wake

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/tartampluch/go-prayer/internal/config"
	"github.com/tartampluch/go-prayer/internal/engine"
)

// FallbackCounter is notified whenever an exact wake-up degrades to a timer.
type FallbackCounter interface {
	IncWakeFallback(channel string)
}

// Scheduler implements engine.WakeScheduler on gocron one-time jobs.
// Each channel holds at most one job, tagged with the channel name.
type Scheduler struct {
	scheduler gocron.Scheduler
	metrics   FallbackCounter

	mu      sync.Mutex
	handler func(engine.WakeChannel)
	timers  map[engine.WakeChannel]*time.Timer
}

// NewScheduler creates a new scheduler instance. Call Start before arming.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSchedulerCreate, err)
	}
	return &Scheduler{
		scheduler: s,
		timers:    map[engine.WakeChannel]*time.Timer{},
	}, nil
}

// SetHandler injects the callback invoked when a channel fires.
// The handler must not block; the refresher's Trigger is the intended target.
func (s *Scheduler) SetHandler(h func(engine.WakeChannel)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// SetMetrics injects the fallback counter.
func (s *Scheduler) SetMetrics(m FallbackCounter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info(config.MsgWakeStart, config.LogKeyComponent, config.CompWake)
	s.scheduler.Start()
}

// Stop cancels every pending wake-up and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	slog.Info(config.MsgWakeStop, config.LogKeyComponent, config.CompWake)
	s.mu.Lock()
	for ch, t := range s.timers {
		t.Stop()
		delete(s.timers, ch)
	}
	s.mu.Unlock()
	return s.scheduler.Shutdown()
}

// Arm replaces the wake-up of ch with one at at (clamped to config.MinWakeDelay).
// If gocron refuses the job, a best-effort timer is used instead and the
// refusal is only logged.
func (s *Scheduler) Arm(ch engine.WakeChannel, at time.Time) error {
	at = engine.ClampWake(at, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(ch)

	_, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)),
		gocron.NewTask(s.fire, ch),
		gocron.WithName(fmt.Sprintf(config.WakeJobNameFormat, ch)),
		gocron.WithTags(string(ch)),
	)
	if err == nil {
		return nil
	}

	slog.Warn(config.MsgWakeFallback,
		config.LogKeyComponent, config.CompWake,
		config.LogKeyChannel, string(ch),
		config.LogKeyAt, at,
		config.LogKeyError, fmt.Errorf("%w: %w", engine.ErrScheduleFailed, err))
	if s.metrics != nil {
		s.metrics.IncWakeFallback(string(ch))
	}
	var t *time.Timer
	t = time.AfterFunc(time.Until(at), func() {
		s.mu.Lock()
		if s.timers[ch] == t {
			delete(s.timers, ch)
		}
		s.mu.Unlock()
		s.fire(ch)
	})
	s.timers[ch] = t
	return nil
}

// Cancel removes the pending wake-up of ch, if any.
func (s *Scheduler) Cancel(ch engine.WakeChannel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(ch)
	slog.Debug(config.MsgWakeCancelled, config.LogKeyComponent, config.CompWake, config.LogKeyChannel, string(ch))
}

func (s *Scheduler) cancelLocked(ch engine.WakeChannel) {
	s.scheduler.RemoveByTags(string(ch))
	if t, ok := s.timers[ch]; ok {
		t.Stop()
		delete(s.timers, ch)
	}
}

func (s *Scheduler) fire(ch engine.WakeChannel) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()

	slog.Debug(config.MsgWakeFired, config.LogKeyComponent, config.CompWake, config.LogKeyChannel, string(ch))
	if h != nil {
		h(ch)
	}
}

// Dispatch maps wake channels to refresher triggers.
func Dispatch(r interface{ Trigger(engine.TriggerKind) }) func(engine.WakeChannel) {
	return func(ch engine.WakeChannel) {
		switch ch {
		case engine.ChannelMidnight:
			r.Trigger(engine.TriggerSync)
		default:
			r.Trigger(engine.TriggerRefresh)
		}
	}
}
