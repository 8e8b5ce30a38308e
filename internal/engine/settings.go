package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tartampluch/go-prayer/internal/config"
)

// Settings is a read-only snapshot of the user configuration.
type Settings struct {
	City                 string   `yaml:"city" json:"city"`
	Country              string   `yaml:"country" json:"country"`
	Latitude             *float64 `yaml:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude            *float64 `yaml:"longitude,omitempty" json:"longitude,omitempty"`
	UseDeviceLocation    bool     `yaml:"use_device_location" json:"use_device_location"`
	School               int      `yaml:"school" json:"school"`
	NotificationsEnabled bool     `yaml:"notifications_enabled" json:"notifications_enabled"`
	WidgetEnabled        bool     `yaml:"widget_enabled" json:"widget_enabled"`
}

// DefaultSettings returns the first-run configuration.
func DefaultSettings() Settings {
	return Settings{
		UseDeviceLocation:    config.DefaultUseDeviceLoc,
		School:               config.DefaultSchool,
		NotificationsEnabled: config.DefaultNotifications,
		WidgetEnabled:        config.DefaultWidgetEnabled,
	}
}

// SettingsSource provides the current settings snapshot.
// Implementations must be safe for concurrent use.
type SettingsSource interface {
	Settings() Settings
}

// StaticSettings is a fixed SettingsSource, mostly useful in tests.
type StaticSettings Settings

func (s StaticSettings) Settings() Settings { return Settings(s) }

// LocationKind tells which form a LocationSpec carries.
type LocationKind int

const (
	LocationCoordinates LocationKind = iota
	LocationCity
)

// LocationSpec is the provider query identity for a place.
type LocationSpec struct {
	Kind      LocationKind
	Latitude  float64
	Longitude float64
	City      string
	Country   string
	Method    int
	School    int
}

// Key returns a stable identity used to detect location changes in the cache.
func (l LocationSpec) Key() string {
	if l.Kind == LocationCoordinates {
		return fmt.Sprintf(config.CoordsKeyFormat, l.Latitude, l.Longitude, l.Method, l.School)
	}
	return fmt.Sprintf(config.CityKeyFormat, strings.ToLower(l.City), strings.ToLower(l.Country), l.Method, l.School)
}

// Location resolves the settings into a provider query.
// UseDeviceLocation picks the preferred form; when that form is incomplete the
// other complete form is used. With neither complete it returns ErrConfiguration.
func (s Settings) Location() (LocationSpec, error) {
	school := s.School
	if school != 0 {
		school = 1
	}
	base := LocationSpec{Method: config.CalculationMethod, School: school}

	city, country := strings.TrimSpace(s.City), strings.TrimSpace(s.Country)
	hasCoords := s.Latitude != nil && s.Longitude != nil
	hasCity := city != "" && country != ""

	coords := func() LocationSpec {
		l := base
		l.Kind = LocationCoordinates
		l.Latitude, l.Longitude = *s.Latitude, *s.Longitude
		return l
	}
	named := func() LocationSpec {
		l := base
		l.Kind = LocationCity
		l.City, l.Country = city, country
		return l
	}

	switch {
	case s.UseDeviceLocation && hasCoords:
		return coords(), nil
	case !s.UseDeviceLocation && hasCity:
		return named(), nil
	case hasCoords:
		return coords(), nil
	case hasCity:
		return named(), nil
	}
	return LocationSpec{}, ErrConfiguration
}

// Sentinel errors. Callers match with errors.Is; detail is wrapped with %w.
var (
	ErrConfiguration  = errors.New(config.ErrConfiguration)
	ErrFetchFailed    = errors.New(config.ErrFetchFailed)
	ErrScheduleFailed = errors.New(config.ErrScheduleFailed)
)
