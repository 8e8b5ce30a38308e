package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"github.com/zalando/go-keyring"

	"github.com/tartampluch/go-prayer/internal/config"
	"github.com/tartampluch/go-prayer/internal/engine"
)

// PreferencesSource reads the engine settings from fyne Preferences.
// Device coordinates are kept in the OS keyring rather than the plain
// preferences file; they are read once and cached until changed through
// SetCoordinates or ReloadCoordinates.
type PreferencesSource struct {
	Prefs fyne.Preferences

	mu       sync.Mutex
	loaded   bool
	lat, lon *float64
}

var _ engine.SettingsSource = (*PreferencesSource)(nil)

// NewPreferencesSource returns a source over prefs.
func NewPreferencesSource(prefs fyne.Preferences) *PreferencesSource {
	return &PreferencesSource{Prefs: prefs}
}

// Settings implements engine.SettingsSource.
func (p *PreferencesSource) Settings() engine.Settings {
	s := engine.Settings{
		City:                 p.Prefs.String(config.PrefCity),
		Country:              p.Prefs.String(config.PrefCountry),
		UseDeviceLocation:    p.Prefs.BoolWithFallback(config.PrefUseDeviceLoc, config.DefaultUseDeviceLoc),
		School:               p.Prefs.IntWithFallback(config.PrefSchool, config.DefaultSchool),
		NotificationsEnabled: p.Prefs.BoolWithFallback(config.PrefNotifications, config.DefaultNotifications),
		WidgetEnabled:        p.Prefs.BoolWithFallback(config.PrefWidgetEnabled, config.DefaultWidgetEnabled),
	}
	s.Latitude, s.Longitude = p.coordinates()
	return s
}

// SetCoordinates replaces the cached coordinates after a keyring write.
// Nil values mean the coordinates were cleared.
func (p *PreferencesSource) SetCoordinates(lat, lon *float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lat, p.lon = copyFloat(lat), copyFloat(lon)
	p.loaded = true
}

// ReloadCoordinates drops the cache; the next Settings call reads the keyring.
func (p *PreferencesSource) ReloadCoordinates() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loaded = false
	p.lat, p.lon = nil, nil
}

func (p *PreferencesSource) coordinates() (lat, lon *float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		p.loaded = true
		la, lo, err := LoadCoordinates()
		switch {
		case err == nil:
			p.lat, p.lon = &la, &lo
		case errors.Is(err, keyring.ErrNotFound):
			slog.Debug(config.MsgCoordsMissing, config.LogKeyComponent, config.CompUI)
		default:
			slog.Warn(config.ErrCoordsParse,
				config.LogKeyComponent, config.CompUI,
				config.LogKeyError, err,
			)
		}
	}
	return copyFloat(p.lat), copyFloat(p.lon)
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// LoadCoordinates reads the stored device coordinates.
func LoadCoordinates() (lat, lon float64, err error) {
	raw, err := keyring.Get(config.KeyringService, config.KeyringCoordsUser)
	if err != nil {
		return 0, 0, err
	}
	return ParseCoordinates(raw)
}

// SaveCoordinates stores the device coordinates.
func SaveCoordinates(lat, lon float64) error {
	return keyring.Set(config.KeyringService, config.KeyringCoordsUser, fmt.Sprintf(config.CoordsFormat, lat, lon))
}

// ClearCoordinates forgets the device coordinates.
func ClearCoordinates() error {
	err := keyring.Delete(config.KeyringService, config.KeyringCoordsUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// ParseCoordinates parses "lat,lon" and checks the ranges.
func ParseCoordinates(raw string) (lat, lon float64, err error) {
	latStr, lonStr, ok := strings.Cut(raw, config.CoordsSeparator)
	if !ok {
		return 0, 0, errors.New(config.ErrCoordsParse)
	}
	if lat, err = strconv.ParseFloat(strings.TrimSpace(latStr), 64); err != nil {
		return 0, 0, fmt.Errorf("%s: %w", config.ErrCoordsParse, err)
	}
	if lon, err = strconv.ParseFloat(strings.TrimSpace(lonStr), 64); err != nil {
		return 0, 0, fmt.Errorf("%s: %w", config.ErrCoordsParse, err)
	}
	if !validCoordinates(lat, lon) {
		return 0, 0, errors.New(config.ErrCoordsParse)
	}
	return lat, lon, nil
}

func validCoordinates(lat, lon float64) bool {
	return lat >= -config.MaxLatitude && lat <= config.MaxLatitude &&
		lon >= -config.MaxLongitude && lon <= config.MaxLongitude
}
