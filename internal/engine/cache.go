package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tartampluch/go-prayer/internal/config"
)

// DailyCache keeps the provider answers for today and the next two days.
// Readers see either the previous snapshot or the new one, never a mix.
type DailyCache struct {
	Clock    Clock
	Provider Provider
	Store    Store
	Settings SettingsSource
	Metrics  Recorder

	loadMu sync.Mutex
	snap   atomic.Pointer[CacheSnapshot]
}

// Get returns the cached day for date. It never touches the network.
// A snapshot fetched for a different location misses.
func (c *DailyCache) Get(ctx context.Context, date time.Time) (PrayerDay, bool) {
	loc, err := c.Settings.Settings().Location()
	if err != nil {
		return PrayerDay{}, false
	}
	snap := c.load(ctx)
	if snap.LocationKey != loc.Key() {
		return PrayerDay{}, false
	}
	day, ok := snap.Days[DateKey(date)]
	return day, ok
}

// Days returns the cached days for the current location, sorted by date.
func (c *DailyCache) Days(ctx context.Context) []PrayerDay {
	loc, err := c.Settings.Settings().Location()
	if err != nil {
		return nil
	}
	snap := c.load(ctx)
	if snap.LocationKey != loc.Key() {
		return nil
	}
	keys := slices.Sorted(maps.Keys(snap.Days))
	days := make([]PrayerDay, 0, len(keys))
	for _, k := range keys {
		days = append(days, snap.Days[k])
	}
	return days
}

// SyncNow fetches today, today+1 and today+2 concurrently and commits them only
// if all three succeed. On any failure the previous cache is left untouched.
func (c *DailyCache) SyncNow(ctx context.Context) error {
	start := time.Now()
	loc, err := c.Settings.Settings().Location()
	if err != nil {
		return err
	}

	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompCache),
		slog.String(config.LogKeyLocation, loc.Key()),
	)
	log.InfoContext(ctx, config.MsgSyncStarted)

	today := c.Clock.Now()
	days := make([]PrayerDay, config.PrefetchDays)

	g, gctx := errgroup.WithContext(ctx)
	for i := range days {
		date := today.AddDate(0, 0, i)
		g.Go(func() error {
			day, err := c.Provider.Fetch(gctx, date, loc)
			if err != nil {
				return err
			}
			// Key by the requested date, not by whatever the provider echoes back.
			day.Date = DateKey(date)
			days[i] = day
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.recorder().ObserveSync(false, time.Since(start))
		log.WarnContext(ctx, config.MsgSyncFailed, slog.Any(config.LogKeyError, err))
		if !errors.Is(err, ErrFetchFailed) {
			err = fmt.Errorf("%w: %w", ErrFetchFailed, err)
		}
		return err
	}

	next := &CacheSnapshot{LocationKey: loc.Key(), Days: make(map[string]PrayerDay, len(days))}
	for _, d := range days {
		next.Days[d.Date] = d
	}

	if err := c.Store.SaveCache(ctx, *next); err != nil {
		c.recorder().ObserveSync(false, time.Since(start))
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	if err := c.Store.ClearRetryUntil(ctx); err != nil {
		log.WarnContext(ctx, config.MsgStoreFailed, slog.Any(config.LogKeyError, err))
	}
	c.snap.Store(next)

	c.recorder().ObserveSync(true, time.Since(start))
	log.InfoContext(ctx, config.MsgSyncSuccess, slog.Int(config.LogKeyDays, len(next.Days)))
	return nil
}

// EnsureCurrentData returns today's day from the cache, syncing when it is missing.
// When the sync fails a retry window of config.RetryWindowDuration is opened,
// unless one is already open.
func (c *DailyCache) EnsureCurrentData(ctx context.Context) (PrayerDay, error) {
	now := c.Clock.Now()
	if day, ok := c.Get(ctx, now); ok {
		return day, nil
	}

	err := c.SyncNow(ctx)
	if err == nil {
		if day, ok := c.Get(ctx, now); ok {
			return day, nil
		}
		return PrayerDay{}, fmt.Errorf("%w: today missing after sync", ErrFetchFailed)
	}
	if errors.Is(err, ErrConfiguration) {
		return PrayerDay{}, err
	}

	if _, open, loadErr := c.Store.LoadRetryUntil(ctx); loadErr == nil && !open {
		c.openRetryWindow(ctx, now)
	}
	return PrayerDay{}, err
}

// RetryWindow reports the persisted retry deadline, if any.
func (c *DailyCache) RetryWindow(ctx context.Context) (time.Time, bool) {
	until, ok, err := c.Store.LoadRetryUntil(ctx)
	if err != nil {
		slog.WarnContext(ctx, config.MsgStoreFailed,
			config.LogKeyComponent, config.CompCache,
			config.LogKeyRegion, config.RegionRetryUntil,
			config.LogKeyError, err)
		return time.Time{}, false
	}
	return until, ok
}

// OpenRetryWindow starts a retry window at now unless one is already open.
// It returns the effective deadline.
func (c *DailyCache) OpenRetryWindow(ctx context.Context) time.Time {
	if until, ok := c.RetryWindow(ctx); ok {
		return until
	}
	return c.openRetryWindow(ctx, c.Clock.Now())
}

func (c *DailyCache) openRetryWindow(ctx context.Context, now time.Time) time.Time {
	until := now.Add(config.RetryWindowDuration)
	if err := c.Store.SaveRetryUntil(ctx, until); err != nil {
		slog.WarnContext(ctx, config.MsgStoreFailed,
			config.LogKeyComponent, config.CompCache,
			config.LogKeyRegion, config.RegionRetryUntil,
			config.LogKeyError, err)
	}
	slog.InfoContext(ctx, config.MsgRetryOpened,
		config.LogKeyComponent, config.CompCache,
		config.LogKeyUntil, until)
	return until
}

// ClearRetryWindow removes the retry deadline.
func (c *DailyCache) ClearRetryWindow(ctx context.Context) {
	if err := c.Store.ClearRetryUntil(ctx); err != nil {
		slog.WarnContext(ctx, config.MsgStoreFailed,
			config.LogKeyComponent, config.CompCache,
			config.LogKeyRegion, config.RegionRetryUntil,
			config.LogKeyError, err)
	}
}

// Invalidate drops every cached day. Used when the location changes.
func (c *DailyCache) Invalidate(ctx context.Context) error {
	empty := &CacheSnapshot{Days: map[string]PrayerDay{}}
	if err := c.Store.SaveCache(ctx, *empty); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	c.snap.Store(empty)
	slog.InfoContext(ctx, config.MsgCacheInvalidated, config.LogKeyComponent, config.CompCache)
	return nil
}

// load returns the in-memory snapshot, reading the store on first use.
func (c *DailyCache) load(ctx context.Context) *CacheSnapshot {
	if s := c.snap.Load(); s != nil {
		return s
	}
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if s := c.snap.Load(); s != nil {
		return s
	}

	snap, err := c.Store.LoadCache(ctx)
	if err != nil {
		// An unreadable region behaves like an empty cache; the next sync overwrites it.
		slog.WarnContext(ctx, config.MsgStoreFailed,
			config.LogKeyComponent, config.CompCache,
			config.LogKeyRegion, config.RegionCache,
			config.LogKeyError, err)
		snap = CacheSnapshot{}
	}
	if snap.Days == nil {
		snap.Days = map[string]PrayerDay{}
	}
	c.snap.Store(&snap)
	return &snap
}

func (c *DailyCache) recorder() Recorder {
	if c.Metrics == nil {
		return NoopRecorder{}
	}
	return c.Metrics
}
