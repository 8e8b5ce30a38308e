package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"github.com/nicksnyder/go-i18n/v2/i18n"

	"github.com/tartampluch/go-prayer/internal/config"
	"github.com/tartampluch/go-prayer/internal/engine"
)

// Triggerer enqueues work on the refresh worker.
type Triggerer interface {
	Trigger(kind engine.TriggerKind)
}

// PrayerApp is the system tray host. It is the render surface and the
// notifier of the refresh engine, and the owner of the settings window.
type PrayerApp struct {
	App         fyne.App
	Window      fyne.Window
	Preferences fyne.Preferences
	I18nBundle  *i18n.Bundle
	Ctx         context.Context

	Engine Triggerer
	Source *PreferencesSource
	Clock  engine.Clock // Injected clock for testability

	Tray desktop.App
	Menu *fyne.Menu

	TrayCurrentItem    *fyne.MenuItem
	TrayNextItem       *fyne.MenuItem
	TrayFooterItem     *fyne.MenuItem
	TraySyncItem       *fyne.MenuItem
	TraySettingsItem   *fyne.MenuItem
	SupportedLanguages []string

	locMu     sync.RWMutex
	localizer *i18n.Localizer

	view       atomic.Pointer[engine.View]
	manualSync atomic.Bool
}

var (
	_ engine.Renderer = (*PrayerApp)(nil)
	_ engine.Notifier = (*PrayerApp)(nil)
)

// NewPrayerApp constructs the tray host. The engine is attached later with
// Attach because the refresher itself needs the host as its renderer.
func NewPrayerApp(a fyne.App, ctx context.Context) *PrayerApp {
	a.SetIcon(theme.HistoryIcon())

	return &PrayerApp{
		App:                a,
		Preferences:        a.Preferences(),
		Source:             NewPreferencesSource(a.Preferences()),
		Ctx:                ctx,
		Clock:              engine.RealClock{},
		SupportedLanguages: config.SupportedLanguages,
	}
}

// Attach wires the refresh worker that tray actions and preference changes feed.
func (app *PrayerApp) Attach(e Triggerer) {
	app.Engine = e
}

// Run launches the tray and blocks on the fyne event loop until the app quits.
func (app *PrayerApp) Run() {
	if app.I18nBundle == nil {
		app.SetupI18n()
	}
	app.watchPreferences()

	if desk, ok := app.App.(desktop.App); ok {
		app.Tray = desk
		app.Tray.SetSystemTrayIcon(app.App.Icon())
		app.setupTrayMenu()
	} else {
		slog.Warn(config.ErrTrayNotSupported,
			config.LogKeyComponent, config.CompUI)
	}

	go app.liveCountdown()
	app.App.Run()
}

func (app *PrayerApp) trigger(kind engine.TriggerKind) {
	if app.Engine != nil {
		app.Engine.Trigger(kind)
	}
}

// watchPreferences forwards every preference change to the refresh worker,
// which compares the new location with the cached one.
func (app *PrayerApp) watchPreferences() {
	app.Preferences.AddChangeListener(func() {
		app.trigger(engine.TriggerSettings)
	})
}

// setupTrayMenu constructs the system tray menu.
func (app *PrayerApp) setupTrayMenu() {
	app.TrayCurrentItem = fyne.NewMenuItem(app.GetMsg(config.TKeyLocationRequired), nil)
	app.TrayCurrentItem.Disabled = true
	app.TrayNextItem = fyne.NewMenuItem(app.GetMsg(config.TKeyNextUnknown), nil)
	app.TrayNextItem.Disabled = true
	app.TrayFooterItem = fyne.NewMenuItem(config.FooterUnknown, nil)
	app.TrayFooterItem.Disabled = true

	app.TraySyncItem = fyne.NewMenuItem(app.GetMsg(config.TKeyMenuSync), func() {
		app.manualSync.Store(true)
		app.trigger(engine.TriggerSync)
	})

	app.TraySettingsItem = fyne.NewMenuItem(app.GetMsg(config.TKeyMenuSettings), func() {
		app.ShowSettingsWindow()
	})

	app.Menu = fyne.NewMenu(config.AppName,
		app.TrayCurrentItem,
		app.TrayNextItem,
		app.TrayFooterItem,
		fyne.NewMenuItemSeparator(),
		app.TraySyncItem,
		app.TraySettingsItem,
	)

	if app.Tray != nil {
		app.Tray.SetSystemTrayMenu(app.Menu)
	}
	if v := app.view.Load(); v != nil {
		app.applyView(*v, app.Clock.Now())
	}
}

// RefreshTrayMenu updates localized labels in the tray menu.
func (app *PrayerApp) RefreshTrayMenu() {
	if app.Menu == nil {
		return
	}
	app.TraySyncItem.Label = app.GetMsg(config.TKeyMenuSync)
	app.TraySettingsItem.Label = app.GetMsg(config.TKeyMenuSettings)
	if v := app.view.Load(); v != nil {
		app.applyView(*v, app.Clock.Now())
		return
	}
	app.Menu.Refresh()
}

// Render implements engine.Renderer. It is called from the refresh worker.
func (app *PrayerApp) Render(_ context.Context, v engine.View) error {
	app.view.Store(&v)

	if v.Outcome == engine.OutcomeLive && app.manualSync.CompareAndSwap(true, false) {
		app.App.SendNotification(fyne.NewNotification(config.AppName, app.GetMsg(config.TKeyNotifSyncOK)))
	}

	fyne.Do(func() { app.applyView(v, app.Clock.Now()) })
	return nil
}

// Notify implements engine.Notifier.
func (app *PrayerApp) Notify(_ context.Context, p engine.Prayer) error {
	body := app.localize(config.TKeyNotifBody, map[string]any{"Prayer": app.PrayerName(p)})
	app.App.SendNotification(fyne.NewNotification(app.GetMsg(config.TKeyNotifTitle), body))
	return nil
}

// applyView writes v into the tray items. Must run on the fyne thread.
func (app *PrayerApp) applyView(v engine.View, now time.Time) {
	if app.Menu == nil || app.TrayCurrentItem == nil {
		return
	}
	current, next := app.placeholders(v)
	app.TrayCurrentItem.Label = trayLine(current, v.CountdownAt(now))
	app.TrayNextItem.Label = next
	app.TrayFooterItem.Label = v.Footer
	app.Menu.Refresh()
}

// placeholders re-localizes the engine's fixed texts, which are resolved once
// at startup, so a language switch applies without waiting for a cycle.
func (app *PrayerApp) placeholders(v engine.View) (current, next string) {
	switch v.Outcome {
	case engine.OutcomeNoLocation:
		return app.GetMsg(config.TKeyLocationRequired), app.GetMsg(config.TKeyNextUnknown)
	case engine.OutcomeUnavailable:
		return app.GetMsg(config.TKeyUnableToLoad), app.GetMsg(config.TKeyNextUnknown)
	default:
		return v.Current, v.Next
	}
}

// liveCountdown re-renders the countdown every second while the view is live.
func (app *PrayerApp) liveCountdown() {
	log := slog.With(config.LogKeyComponent, config.CompUI)
	ticker := time.NewTicker(config.LiveTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-app.Ctx.Done():
			log.Info(config.MsgWorkerStop)
			return
		case <-ticker.C:
			v := app.view.Load()
			if v == nil || !v.Live {
				continue
			}
			view := *v
			fyne.Do(func() { app.applyView(view, app.Clock.Now()) })
		}
	}
}

// trayLine joins the current prayer and its countdown into one menu label.
func trayLine(current, countdown string) string {
	if countdown == "" {
		return current
	}
	return fmt.Sprintf(config.TrayLineFormat, current, countdown)
}
