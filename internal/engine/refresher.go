package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tartampluch/go-prayer/internal/config"
)

// TriggerKind is a reason to wake the refresh worker.
type TriggerKind uint8

const (
	// TriggerRefresh runs one refresh cycle (prayer wake-up, manual refresh).
	TriggerRefresh TriggerKind = iota
	// TriggerSync re-syncs the cache first (midnight wake-up, "sync now").
	TriggerSync
	// TriggerReschedule re-arms both channels after boot, resume or a clock change.
	TriggerReschedule
	// TriggerSettings re-reads settings; a location change invalidates the cache.
	TriggerSettings
	// TriggerHalt cancels both wake channels and stops arming new ones.
	TriggerHalt
	// TriggerResume undoes TriggerHalt.
	TriggerResume
)

var triggerNames = [...]string{"refresh", "sync", "reschedule", "settings", "halt", "resume"}

func (k TriggerKind) String() string {
	if int(k) < len(triggerNames) {
		return triggerNames[k]
	}
	return "unknown"
}

// Refresher is the refresh orchestrator. All cycles run serialized on the
// worker started by Run; external callers only enqueue work through Trigger.
type Refresher struct {
	Clock    Clock
	Cache    *DailyCache
	Gate     *NotificationGate
	Store    Store
	Settings SettingsSource
	Wake     WakeScheduler
	Renderer Renderer
	Notifier Notifier     // optional
	Calendar CalendarSink // optional
	Labels   Labels
	Metrics  Recorder

	initOnce sync.Once
	signal   chan struct{}

	mu      sync.Mutex
	pending uint8
	haltReq *bool

	// Owned by the worker goroutine.
	halted      bool
	locationKey string
	syncRetryAt time.Time

	lastView atomic.Pointer[View]
}

func (r *Refresher) init() {
	r.initOnce.Do(func() {
		r.signal = make(chan struct{}, config.ChannelBufferSize)
		r.Labels = r.Labels.withDefaults()
	})
}

// Trigger enqueues kind for the worker and returns immediately.
// Triggers arriving while a cycle runs are coalesced into one follow-up pass.
func (r *Refresher) Trigger(kind TriggerKind) {
	r.init()

	r.mu.Lock()
	switch kind {
	case TriggerHalt, TriggerResume:
		halt := kind == TriggerHalt
		r.haltReq = &halt
	default:
		r.pending |= 1 << kind
	}
	r.mu.Unlock()

	// Non-blocking send. If the buffer is full, a pass is already pending.
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// Run processes triggers until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	r.init()
	log := slog.With(config.LogKeyComponent, config.CompWorker)
	log.Info(config.MsgWorkerStart)

	if loc, err := r.Settings.Settings().Location(); err == nil {
		r.locationKey = loc.Key()
	}
	r.halted = !r.Settings.Settings().WidgetEnabled

	for {
		select {
		case <-ctx.Done():
			log.Info(config.MsgWorkerStop)
			return
		case <-r.signal:
			r.drain(ctx)
		}
	}
}

// LastView returns the most recently rendered view, or nil before the first cycle.
func (r *Refresher) LastView() *View {
	return r.lastView.Load()
}

func (r *Refresher) drain(ctx context.Context) {
	r.mu.Lock()
	pending, haltReq := r.pending, r.haltReq
	r.pending, r.haltReq = 0, nil
	r.mu.Unlock()

	has := func(k TriggerKind) bool { return pending&(1<<k) != 0 }

	var kinds []string
	for k := TriggerRefresh; k <= TriggerSettings; k++ {
		if has(k) {
			kinds = append(kinds, k.String())
		}
	}
	if haltReq != nil && *haltReq {
		kinds = append(kinds, TriggerHalt.String())
	} else if haltReq != nil {
		kinds = append(kinds, TriggerResume.String())
	}
	slog.Debug(config.MsgTriggerReceived,
		config.LogKeyComponent, config.CompWorker,
		config.LogKeyTrigger, strings.Join(kinds, ","))

	if haltReq != nil {
		if *haltReq {
			r.halt()
		} else if r.halted {
			r.resume()
			pending |= 1 << TriggerRefresh
		}
	}
	if has(TriggerSettings) {
		r.applySettings(ctx)
		pending |= 1 << TriggerRefresh
	}
	if r.halted {
		return
	}

	switch {
	case has(TriggerSync):
		_ = r.SyncCycle(ctx)
	case pending != 0:
		r.Refresh(ctx)
	}
}

// applySettings reacts to a new settings snapshot.
func (r *Refresher) applySettings(ctx context.Context) {
	s := r.Settings.Settings()

	key := ""
	if loc, err := s.Location(); err == nil {
		key = loc.Key()
	}
	if key != r.locationKey {
		if err := r.Cache.Invalidate(ctx); err != nil {
			slog.Warn(config.MsgStoreFailed,
				config.LogKeyComponent, config.CompWorker,
				config.LogKeyError, err)
		}
		r.Cache.ClearRetryWindow(ctx)
		r.locationKey = key
	}

	switch {
	case !s.WidgetEnabled && !r.halted:
		r.halt()
	case s.WidgetEnabled && r.halted:
		r.resume()
	}
}

func (r *Refresher) halt() {
	r.halted = true
	r.Wake.Cancel(ChannelPrayer)
	r.Wake.Cancel(ChannelMidnight)
	slog.Info(config.MsgHalted, config.LogKeyComponent, config.CompWorker)
}

func (r *Refresher) resume() {
	r.halted = false
	slog.Info(config.MsgResumed, config.LogKeyComponent, config.CompWorker)
}

// Refresh runs one refresh cycle and returns its outcome.
// Every cycle arms the midnight channel, keeping a pending sync retry; the
// prayer channel is armed at the next boundary minus config.BoundaryLead, or
// after config.ShortRetryInterval when no live data is available.
func (r *Refresher) Refresh(ctx context.Context) Outcome {
	r.init()
	start := time.Now()
	now := r.Clock.Now()
	log := slog.With(
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyCycle, uuid.NewString(),
	)
	log.DebugContext(ctx, config.MsgCycleStart)

	r.armMidnight(ctx, log, now)

	outcome := r.cycle(ctx, log, now)

	r.recorder().ObserveCycle(outcome, time.Since(start))
	log.InfoContext(ctx, config.MsgCycleDone,
		config.LogKeyOutcome, outcome.String(),
		config.LogKeyDuration, time.Since(start).Milliseconds())
	return outcome
}

func (r *Refresher) cycle(ctx context.Context, log *slog.Logger, now time.Time) Outcome {
	settings := r.Settings.Settings()
	if _, err := settings.Location(); err != nil {
		log.InfoContext(ctx, config.MsgNoLocation)
		r.render(ctx, log, View{
			Current:   r.Labels.LocationRequired,
			Next:      r.Labels.NextUnknown,
			Countdown: config.CountdownUnknown,
			Footer:    config.FooterUnknown,
			Outcome:   OutcomeNoLocation,
		})
		r.arm(log, ChannelPrayer, now.Add(config.ShortRetryInterval), now)
		return OutcomeNoLocation
	}

	today, err := r.Cache.EnsureCurrentData(ctx)
	if err != nil {
		log.WarnContext(ctx, config.MsgSyncFailed, slog.Any(config.LogKeyError, err))
		return r.fallback(ctx, log, now)
	}
	return r.live(ctx, log, now, settings, today)
}

// fallback renders the last known state, or the "unable to load" placeholder.
func (r *Refresher) fallback(ctx context.Context, log *slog.Logger, now time.Time) Outcome {
	last, err := r.Store.LoadLastState(ctx)
	if err != nil {
		log.WarnContext(ctx, config.MsgStoreFailed,
			config.LogKeyRegion, config.RegionLastState,
			config.LogKeyError, err)
		last = nil
	}

	var v View
	if last == nil {
		log.InfoContext(ctx, config.MsgNoFallback)
		v = View{
			Current:   r.Labels.UnableToLoad,
			Next:      r.Labels.NextUnknown,
			Countdown: config.CountdownUnknown,
			Footer:    config.FooterUnknown,
			Outcome:   OutcomeUnavailable,
		}
	} else {
		log.InfoContext(ctx, config.MsgStaleFallback, config.LogKeyBoundary, last.Boundary)
		v = View{
			Current: r.Labels.PrayerName(last.Current),
			Next:    r.Labels.NextPrayer(r.Labels.PrayerName(last.Next)),
			Footer:  config.FooterUnknown,
			Outcome: OutcomeStale,
		}
		if !now.Before(last.Boundary) {
			// Past the stored boundary with no fresh data: hold at zero.
			v.Countdown = config.CountdownZero
		} else {
			v.Live = true
			v.Target = now.Add(last.Boundary.Sub(now))
			v.Countdown = FormatCountdown(CountdownTo(last.Boundary, now))
		}
	}
	r.render(ctx, log, v)
	r.armRetry(ctx, log, now)

	if last == nil {
		return OutcomeUnavailable
	}
	return OutcomeStale
}

// armRetry arms the short retry while the retry window is open. Once the
// window has expired it is cleared and only the midnight channel remains.
func (r *Refresher) armRetry(ctx context.Context, log *slog.Logger, now time.Time) {
	until, open := r.Cache.RetryWindow(ctx)
	if open && !now.Before(until) {
		r.Cache.ClearRetryWindow(ctx)
		r.recorder().SetRetryWindowOpen(false)
		r.Wake.Cancel(ChannelPrayer)
		log.InfoContext(ctx, config.MsgRetryExpired, config.LogKeyUntil, until)
		return
	}
	r.recorder().SetRetryWindowOpen(open)
	r.arm(log, ChannelPrayer, now.Add(config.ShortRetryInterval), now)
}

func (r *Refresher) live(ctx context.Context, log *slog.Logger, now time.Time, settings Settings, today PrayerDay) Outcome {
	snap := Select(today.Times, now)
	starting := Derive(today.Times, now)

	if err := r.Store.SaveLastState(ctx, LastState{
		Current:  snap.Current,
		Next:     snap.Next,
		Boundary: snap.Boundary,
	}); err != nil {
		log.WarnContext(ctx, config.MsgStoreFailed,
			config.LogKeyRegion, config.RegionLastState,
			config.LogKeyError, err)
	}

	var tomorrow *PrayerDay
	if d, ok := r.Cache.Get(ctx, now.AddDate(0, 0, 1)); ok {
		tomorrow = &d
	}

	r.render(ctx, log, View{
		Current:   r.Labels.PrayerName(snap.Current),
		Next:      r.Labels.NextPrayer(r.Labels.PrayerName(snap.Next)),
		Countdown: FormatCountdown(snap.Countdown),
		Target:    now.Add(snap.Boundary.Sub(now)),
		Live:      true,
		Footer:    DateFooter(&today, tomorrow, now),
		Outcome:   OutcomeLive,
	})
	log.DebugContext(ctx, config.MsgRender,
		config.LogKeyPrayer, snap.Current.String(),
		config.LogKeyNext, snap.Next.String(),
		config.LogKeyBoundary, snap.Boundary,
		config.LogKeyCountdown, FormatCountdown(snap.Countdown))

	if settings.NotificationsEnabled {
		r.notify(ctx, log, today, now)
	}
	r.publishCalendar(ctx, log, now)

	wakeAt := snap.Boundary.Add(-config.BoundaryLead)
	if settings.NotificationsEnabled && !starting.Boundary.Equal(snap.Boundary) {
		// The displayed prayer has not started yet; wake once more at its
		// start so the notification gate sees it.
		wakeAt = starting.Boundary
	}
	r.arm(log, ChannelPrayer, wakeAt, now)
	return OutcomeLive
}

// notify emits at most one notification for a prayer that has just started.
func (r *Refresher) notify(ctx context.Context, log *slog.Logger, today PrayerDay, now time.Time) {
	if r.Gate == nil {
		return
	}
	date := DateKey(now)
	for _, p := range Prayers {
		fire, err := r.Gate.ShouldFire(ctx, p, date, today.Times.Of(p).On(now), now)
		if err != nil {
			log.WarnContext(ctx, config.MsgNotifyFailed, config.LogKeyError, err)
			return
		}
		if !fire {
			continue
		}
		r.recorder().IncNotification(p)
		if r.Notifier == nil {
			return
		}
		if err := r.Notifier.Notify(ctx, p); err != nil {
			log.WarnContext(ctx, config.MsgNotifyFailed,
				config.LogKeyPrayer, p.String(),
				config.LogKeyError, err)
			return
		}
		log.InfoContext(ctx, config.MsgNotifyFired, config.LogKeyPrayer, p.String())
		return
	}
}

func (r *Refresher) publishCalendar(ctx context.Context, log *slog.Logger, now time.Time) {
	if r.Calendar == nil {
		return
	}
	data, err := BuildCalendar(r.Cache.Days(ctx), now.Location(), now, r.Labels.PrayerName)
	if err != nil {
		log.WarnContext(ctx, config.ErrICalEncode, config.LogKeyError, err)
		return
	}
	r.Calendar.UpdateCalendar(data)
}

// SyncCycle handles the midnight channel: re-sync the cache, then refresh.
// On failure the sync is retried every config.SyncRetryInterval while the
// retry window is open; after it expires the next attempt is the next midnight.
func (r *Refresher) SyncCycle(ctx context.Context) error {
	r.init()
	now := r.Clock.Now()
	log := slog.With(
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyCycle, uuid.NewString(),
	)

	err := r.Cache.SyncNow(ctx)
	if err == nil || errors.Is(err, ErrConfiguration) {
		r.syncRetryAt = time.Time{}
		r.Refresh(ctx)
		return err
	}

	until, open := r.Cache.RetryWindow(ctx)
	if open && !now.Before(until) {
		r.Cache.ClearRetryWindow(ctx)
		r.syncRetryAt = time.Time{}
		log.InfoContext(ctx, config.MsgRetryExpired, config.LogKeyUntil, until)
		r.arm(log, ChannelMidnight, NextMidnight(now), now)
		return err
	}
	if !open {
		r.Cache.OpenRetryWindow(ctx)
	}
	r.syncRetryAt = now.Add(config.SyncRetryInterval)
	r.arm(log, ChannelMidnight, r.syncRetryAt, now)
	return err
}

// armMidnight arms the midnight channel at the next midnight unless a failed
// sync is waiting for an earlier retry inside an open retry window.
func (r *Refresher) armMidnight(ctx context.Context, log *slog.Logger, now time.Time) {
	at := NextMidnight(now)
	if r.syncRetryAt.After(now) && r.syncRetryAt.Before(at) {
		if until, open := r.Cache.RetryWindow(ctx); open && now.Before(until) {
			r.arm(log, ChannelMidnight, r.syncRetryAt, now)
			return
		}
	}
	r.syncRetryAt = time.Time{}
	r.arm(log, ChannelMidnight, at, now)
}

func (r *Refresher) render(ctx context.Context, log *slog.Logger, v View) {
	r.lastView.Store(&v)
	if r.Renderer == nil {
		return
	}
	if err := r.Renderer.Render(ctx, v); err != nil {
		log.WarnContext(ctx, config.MsgRenderFailed, config.LogKeyError, err)
	}
}

// arm schedules a wake-up unless the worker is halted.
func (r *Refresher) arm(log *slog.Logger, ch WakeChannel, at, now time.Time) {
	if r.halted {
		return
	}
	at = ClampWake(at, now)
	if err := r.Wake.Arm(ch, at); err != nil {
		log.Warn(config.MsgWakeArmFailed,
			config.LogKeyChannel, string(ch),
			config.LogKeyError, err)
		return
	}
	log.Debug(config.MsgWakeArmed, config.LogKeyChannel, string(ch), config.LogKeyAt, at)
}

func (r *Refresher) recorder() Recorder {
	if r.Metrics == nil {
		return NoopRecorder{}
	}
	return r.Metrics
}

// MultiRenderer fans a View out to several surfaces.
type MultiRenderer []Renderer

func (m MultiRenderer) Render(ctx context.Context, v View) error {
	var errs []error
	for _, r := range m {
		if err := r.Render(ctx, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
