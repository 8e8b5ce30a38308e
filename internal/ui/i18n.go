package ui

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/tartampluch/go-prayer/internal/config"
	"github.com/tartampluch/go-prayer/internal/engine"
)

//go:embed locales/*.json
var localeFS embed.FS

var prayerKeys = map[engine.Prayer]string{
	engine.Fajr:    config.TKeyPrayerFajr,
	engine.Dhuhr:   config.TKeyPrayerDhuhr,
	engine.Asr:     config.TKeyPrayerAsr,
	engine.Maghrib: config.TKeyPrayerMaghrib,
	engine.Isha:    config.TKeyPrayerIsha,
}

// SetupI18n initializes the translation bundle and detects available languages.
func (app *PrayerApp) SetupI18n() {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
		return
	}

	var detectedLangs []string

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if langCode == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}
		detectedLangs = append(detectedLangs, langCode)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode,
			config.LogKeyFile, name,
		)
	}

	app.SupportedLanguages = detectedLangs
	app.I18nBundle = bundle
	app.UpdateLocalizer()
}

// UpdateLocalizer refreshes the translator based on the user's language preference.
func (app *PrayerApp) UpdateLocalizer() {
	lang := app.Preferences.StringWithFallback(config.PrefLanguage, config.DefaultLanguage)
	loc := i18n.NewLocalizer(app.I18nBundle, lang)

	app.locMu.Lock()
	app.localizer = loc
	app.locMu.Unlock()
}

// GetMsg translates key, falling back to the key itself.
// It is called from both the fyne thread and the refresh worker.
func (app *PrayerApp) GetMsg(key string) string {
	return app.localize(key, nil)
}

func (app *PrayerApp) localize(key string, data map[string]any) string {
	app.locMu.RLock()
	loc := app.localizer
	app.locMu.RUnlock()

	if loc == nil || app.I18nBundle == nil {
		return key
	}
	msg, err := loc.Localize(&i18n.LocalizeConfig{MessageID: key, TemplateData: data})
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
			config.LogKeyError, err,
		)
		return key
	}
	return msg
}

// PrayerName returns the localized prayer name, or its English name when the
// translation is missing.
func (app *PrayerApp) PrayerName(p engine.Prayer) string {
	key, ok := prayerKeys[p]
	if !ok {
		return p.String()
	}
	if msg := app.GetMsg(key); msg != key {
		return msg
	}
	return p.String()
}

// Labels returns engine labels backed by the localizer.
func (app *PrayerApp) Labels() engine.Labels {
	return engine.Labels{
		PrayerName: app.PrayerName,
		NextPrayer: func(name string) string {
			msg := app.localize(config.TKeyNextPrayer, map[string]any{"Prayer": name})
			if msg == config.TKeyNextPrayer {
				return fmt.Sprintf(config.LabelNextPrayer, name)
			}
			return msg
		},
		NextUnknown:      app.msgOr(config.TKeyNextUnknown, config.LabelNextUnknown),
		LocationRequired: app.msgOr(config.TKeyLocationRequired, config.LabelLocationNeeded),
		UnableToLoad:     app.msgOr(config.TKeyUnableToLoad, config.LabelUnableToLoad),
	}
}

func (app *PrayerApp) msgOr(key, fallback string) string {
	if msg := app.GetMsg(key); msg != key {
		return msg
	}
	return fallback
}
