package ui

import (
	"context"
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/tartampluch/go-prayer/internal/config"
	"github.com/tartampluch/go-prayer/internal/engine"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockClock controls time for deterministic testing.
type MockClock struct {
	CurrentTime time.Time
}

func (m MockClock) Now() time.Time {
	return m.CurrentTime
}

// MockTray implements minimal system tray functionality for headless testing.
type MockTray struct {
	Menu *fyne.Menu
}

func (m *MockTray) SetSystemTrayMenu(menu *fyne.Menu) {
	m.Menu = menu
}

func (m *MockTray) SetSystemTrayIcon(icon fyne.Resource) {}
func (m *MockTray) SetSystemTrayWindow(w fyne.Window)    {}
func (m *MockTray) Run()                                 {}
func (m *MockTray) Quit()                                {}

// MockEngine records triggers.
type MockEngine struct {
	mu    sync.Mutex
	kinds []engine.TriggerKind
}

func (m *MockEngine) Trigger(k engine.TriggerKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kinds = append(m.kinds, k)
}

func (m *MockEngine) Has(k engine.TriggerKind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, got := range m.kinds {
		if got == k {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Test Setup Helper
// -----------------------------------------------------------------------------

var fixedNow = time.Date(2024, 5, 1, 19, 0, 0, 0, time.UTC)

// setupTestApp initializes a headless Fyne app with mocked dependencies.
func setupTestApp(t *testing.T) (*PrayerApp, *MockEngine, *MockTray) {
	keyring.MockInit()
	a := test.NewApp()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	app := NewPrayerApp(a, ctx)
	eng := &MockEngine{}
	app.Attach(eng)

	mockTray := &MockTray{}
	app.Tray = mockTray
	app.Clock = MockClock{CurrentTime: fixedNow}

	// Run() is skipped in tests.
	app.SetupI18n()

	return app, eng, mockTray
}

func liveView() engine.View {
	return engine.View{
		Current:   "Maghrib",
		Next:      "Next prayer: Isha",
		Countdown: "01:10:00",
		Target:    fixedNow.Add(70 * time.Minute),
		Live:      true,
		Footer:    "22 Shawwal 1445 AH, 01 May 2024",
		Outcome:   engine.OutcomeLive,
	}
}

// -----------------------------------------------------------------------------
// Localization Tests
// -----------------------------------------------------------------------------

func TestLocalization_Switching(t *testing.T) {
	app, _, _ := setupTestApp(t)

	app.Preferences.SetString(config.PrefLanguage, "en")
	app.UpdateLocalizer()
	assert.Equal(t, "Settings...", app.GetMsg(config.TKeyMenuSettings))

	app.Preferences.SetString(config.PrefLanguage, "fr")
	app.UpdateLocalizer()
	assert.Equal(t, "Paramètres...", app.GetMsg(config.TKeyMenuSettings))
	assert.Equal(t, "Icha", app.PrayerName(engine.Isha))
}

func TestLocalization_Labels(t *testing.T) {
	app, _, _ := setupTestApp(t)
	app.Preferences.SetString(config.PrefLanguage, "en")
	app.UpdateLocalizer()

	labels := app.Labels()
	assert.Equal(t, "Asr", labels.PrayerName(engine.Asr))
	assert.Equal(t, "Next prayer: Asr", labels.NextPrayer("Asr"))
	assert.Equal(t, "Location required", labels.LocationRequired)
	assert.Equal(t, "Next prayer: --", labels.NextUnknown)
}

func TestLocalization_MissingLocalizerFallsBack(t *testing.T) {
	app := &PrayerApp{}
	assert.Equal(t, config.TKeyMenuSync, app.GetMsg(config.TKeyMenuSync))
	assert.Equal(t, "Fajr", app.PrayerName(engine.Fajr))
	assert.Equal(t, config.LabelUnableToLoad, app.Labels().UnableToLoad)
}

// -----------------------------------------------------------------------------
// Tray Rendering
// -----------------------------------------------------------------------------

func TestTray_RendersLiveView(t *testing.T) {
	app, _, mockTray := setupTestApp(t)
	app.setupTrayMenu()
	require.NotNil(t, mockTray.Menu)

	app.applyView(liveView(), fixedNow.Add(10*time.Minute))

	assert.Equal(t, "Maghrib · 01:00:00", app.TrayCurrentItem.Label)
	assert.Equal(t, "Next prayer: Isha", app.TrayNextItem.Label)
	assert.Equal(t, "22 Shawwal 1445 AH, 01 May 2024", app.TrayFooterItem.Label)
}

func TestTray_PlaceholdersFollowLanguage(t *testing.T) {
	app, _, _ := setupTestApp(t)
	app.setupTrayMenu()

	v := engine.View{
		Current:   config.LabelLocationNeeded,
		Next:      config.LabelNextUnknown,
		Countdown: config.CountdownUnknown,
		Footer:    config.FooterUnknown,
		Outcome:   engine.OutcomeNoLocation,
	}

	app.Preferences.SetString(config.PrefLanguage, "fr")
	app.UpdateLocalizer()
	app.applyView(v, fixedNow)

	assert.Equal(t, "Lieu requis · --:--:--", app.TrayCurrentItem.Label)
	assert.Equal(t, "Prochaine prière : --", app.TrayNextItem.Label)
	assert.Equal(t, config.FooterUnknown, app.TrayFooterItem.Label)
}

func TestTray_SyncItemTriggersSync(t *testing.T) {
	app, eng, _ := setupTestApp(t)
	app.setupTrayMenu()

	app.TraySyncItem.Action()

	assert.True(t, eng.Has(engine.TriggerSync))
	assert.True(t, app.manualSync.Load())
}

func TestRender_StoresViewAndClearsManualSync(t *testing.T) {
	app, _, _ := setupTestApp(t)
	app.manualSync.Store(true)

	require.NoError(t, app.Render(context.Background(), engine.View{Outcome: engine.OutcomeUnavailable}))
	assert.True(t, app.manualSync.Load(), "a failed sync keeps waiting for the live view")

	require.NoError(t, app.Render(context.Background(), liveView()))
	assert.False(t, app.manualSync.Load())
	require.NotNil(t, app.view.Load())
	assert.Equal(t, "Maghrib", app.view.Load().Current)
}

func TestNotify_DoesNotFail(t *testing.T) {
	app, _, _ := setupTestApp(t)
	assert.NoError(t, app.Notify(context.Background(), engine.Fajr))
}

// -----------------------------------------------------------------------------
// Preferences & Settings
// -----------------------------------------------------------------------------

func TestPreferences_ChangeTriggersSettings(t *testing.T) {
	app, eng, _ := setupTestApp(t)
	app.watchPreferences()

	app.Preferences.SetString(config.PrefCity, "Cairo")

	assert.Eventually(t, func() bool { return eng.Has(engine.TriggerSettings) }, time.Second, 10*time.Millisecond)
}

func TestSaveSettings_PersistsFormAndCoordinates(t *testing.T) {
	app, eng, _ := setupTestApp(t)
	app.setupTrayMenu()

	sw := app.newSettingsWidgets()
	sw.cityEntry.SetText("  Cairo ")
	sw.countryEntry.SetText("Egypt")
	sw.latEntry.SetText("30.0444")
	sw.lonEntry.SetText("31.2357")
	sw.checkDevice.SetChecked(false)
	sw.schoolSelect.SetSelected(app.GetMsg(config.TKeySchoolShafi))
	sw.checkNotif.SetChecked(true)

	require.NoError(t, sw.validateCoordinates("bad"))
	app.saveSettings(sw)

	got := app.Source.Settings()
	assert.Equal(t, "Cairo", got.City)
	assert.Equal(t, "Egypt", got.Country)
	assert.False(t, got.UseDeviceLocation)
	assert.Equal(t, 0, got.School)
	assert.True(t, got.NotificationsEnabled)
	require.NotNil(t, got.Latitude)
	assert.InDelta(t, 30.0444, *got.Latitude, 1e-6)
	assert.InDelta(t, 31.2357, *got.Longitude, 1e-6)
	assert.True(t, eng.Has(engine.TriggerSettings))

	loc, err := got.Location()
	require.NoError(t, err)
	assert.Equal(t, engine.LocationCity, loc.Kind)
}

func TestSaveSettings_ClearingCoordinates(t *testing.T) {
	app, _, _ := setupTestApp(t)
	require.NoError(t, SaveCoordinates(1, 2))

	sw := app.newSettingsWidgets()
	assert.Equal(t, "1", sw.latEntry.Text)
	sw.latEntry.SetText("")
	sw.lonEntry.SetText("")
	app.saveSettings(sw)

	assert.Nil(t, app.Source.Settings().Latitude)
}

func TestSaveSettings_UpdatesCachedCoordinates(t *testing.T) {
	app, _, _ := setupTestApp(t)
	require.NoError(t, SaveCoordinates(1, 2))

	sw := app.newSettingsWidgets()
	sw.latEntry.SetText("30.5")
	sw.lonEntry.SetText("31.5")
	app.saveSettings(sw)

	// Written behind the source's back: the cached pair is still served.
	require.NoError(t, SaveCoordinates(10, 20))
	got := app.Source.Settings()
	require.NotNil(t, got.Latitude)
	assert.InDelta(t, 30.5, *got.Latitude, 1e-9)
	assert.InDelta(t, 31.5, *got.Longitude, 1e-9)
}

func TestSettingsWidgets_RejectsPartialCoordinates(t *testing.T) {
	app, _, _ := setupTestApp(t)
	sw := app.newSettingsWidgets()

	sw.latEntry.SetText("48.85")
	assert.EqualError(t, sw.validateCoordinates("invalid"), "invalid")

	sw.lonEntry.SetText("200")
	assert.Error(t, sw.validateCoordinates("invalid"))

	sw.lonEntry.SetText("2.35")
	assert.NoError(t, sw.validateCoordinates("invalid"))
}
