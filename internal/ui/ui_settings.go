package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/tartampluch/go-prayer/internal/config"
	"github.com/tartampluch/go-prayer/internal/engine"
)

// settingsWidgets holds references to UI elements to simplify data retrieval during save.
type settingsWidgets struct {
	cityEntry    *widget.Entry
	countryEntry *widget.Entry
	latEntry     *CoordinateEntry
	lonEntry     *CoordinateEntry
	checkDevice  *widget.Check
	schoolSelect *widget.Select
	langSelect   *widget.Select
	checkNotif   *widget.Check
	checkWidget  *widget.Check
}

// ShowSettingsWindow displays the configuration dialog.
func (app *PrayerApp) ShowSettingsWindow() {
	if app.Window != nil {
		slog.Debug(config.MsgSettingsFocus, config.LogKeyComponent, config.CompUISet)
		app.Window.RequestFocus()
		return
	}

	slog.Info(config.MsgSettingsOpen, config.LogKeyComponent, config.CompUISet)
	w := app.App.NewWindow(app.GetMsg(config.TKeyWinTitle))
	app.Window = w

	sw := app.newSettingsWidgets()

	saveAction := func() {
		if err := sw.validateCoordinates(app.GetMsg(config.TKeyErrCoords)); err != nil {
			dialog.ShowError(err, w)
			return
		}
		app.saveSettings(sw)
		w.Close()
	}

	btnSave := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnSave), theme.DocumentSaveIcon(), saveAction)
	btnSave.Importance = widget.HighImportance
	btnCancel := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnCancel), theme.CancelIcon(), func() { w.Close() })

	footerLabel := widget.NewLabel(fmt.Sprintf(app.GetMsg(config.TKeyLblFooter), config.Version))
	footerLabel.Alignment = fyne.TextAlignCenter
	footerLabel.TextStyle = fyne.TextStyle{Italic: true}

	paddedContent := container.NewPadded(container.NewVBox(
		app.buildLocationCard(sw),
		app.buildGeneralCard(sw),
		container.NewGridWithColumns(config.LayoutColumnsDouble, btnCancel, btnSave),
		footerLabel,
	))

	w.SetContent(paddedContent)
	w.SetFixedSize(true)
	w.SetOnClosed(func() { app.Window = nil })
	w.Resize(fyne.NewSize(config.SettingsWindowWidth, paddedContent.MinSize().Height))
	w.Show()
}

// newSettingsWidgets builds the form widgets pre-filled from the current settings.
func (app *PrayerApp) newSettingsWidgets() *settingsWidgets {
	current := app.Source.Settings()
	sw := &settingsWidgets{}

	sw.cityEntry = widget.NewEntry()
	sw.cityEntry.SetText(current.City)
	sw.countryEntry = widget.NewEntry()
	sw.countryEntry.SetText(current.Country)

	sw.latEntry = NewCoordinateEntry()
	sw.lonEntry = NewCoordinateEntry()
	if current.Latitude != nil && current.Longitude != nil {
		sw.latEntry.SetText(strconv.FormatFloat(*current.Latitude, 'f', -1, 64))
		sw.lonEntry.SetText(strconv.FormatFloat(*current.Longitude, 'f', -1, 64))
	}

	sw.checkDevice = widget.NewCheck(app.GetMsg(config.TKeyLblUseDevice), nil)
	sw.checkDevice.Checked = current.UseDeviceLocation

	sw.schoolSelect = widget.NewSelect([]string{
		app.GetMsg(config.TKeySchoolShafi),
		app.GetMsg(config.TKeySchoolHanafi),
	}, nil)
	if current.School == 0 {
		sw.schoolSelect.SetSelected(app.GetMsg(config.TKeySchoolShafi))
	} else {
		sw.schoolSelect.SetSelected(app.GetMsg(config.TKeySchoolHanafi))
	}

	sw.langSelect = widget.NewSelect(app.SupportedLanguages, nil)
	sw.langSelect.SetSelected(app.Preferences.StringWithFallback(config.PrefLanguage, config.DefaultLanguage))

	sw.checkNotif = widget.NewCheck(app.GetMsg(config.TKeyLblNotif), nil)
	sw.checkNotif.Checked = current.NotificationsEnabled
	sw.checkWidget = widget.NewCheck(app.GetMsg(config.TKeyLblWidget), nil)
	sw.checkWidget.Checked = current.WidgetEnabled

	return sw
}

func (app *PrayerApp) buildLocationCard(sw *settingsWidgets) *widget.Card {
	form := widget.NewForm(
		widget.NewFormItem(app.GetMsg(config.TKeyLblCity), sw.cityEntry),
		widget.NewFormItem(app.GetMsg(config.TKeyLblCountry), sw.countryEntry),
		widget.NewFormItem(app.GetMsg(config.TKeyLblLatitude), sw.latEntry),
		widget.NewFormItem(app.GetMsg(config.TKeyLblLongitude), sw.lonEntry),
		widget.NewFormItem(app.GetMsg(config.TKeyLblSchool), sw.schoolSelect),
	)
	return widget.NewCard(app.GetMsg(config.TKeyLblLocation), "", container.NewVBox(form, sw.checkDevice))
}

func (app *PrayerApp) buildGeneralCard(sw *settingsWidgets) *widget.Card {
	form := widget.NewForm(widget.NewFormItem(app.GetMsg(config.TKeyLblLanguage), sw.langSelect))
	return widget.NewCard(app.GetMsg(config.TKeyLblGeneral), "", container.NewVBox(form, sw.checkNotif, sw.checkWidget))
}

// coordinates returns the entered pair. Both empty means "no coordinates".
func (sw *settingsWidgets) coordinates() (lat, lon float64, set bool, err error) {
	latText, lonText := strings.TrimSpace(sw.latEntry.Text), strings.TrimSpace(sw.lonEntry.Text)
	if latText == "" && lonText == "" {
		return 0, 0, false, nil
	}
	lat, lon, err = ParseCoordinates(latText + config.CoordsSeparator + lonText)
	return lat, lon, err == nil, err
}

func (sw *settingsWidgets) validateCoordinates(msg string) error {
	if _, _, _, err := sw.coordinates(); err != nil {
		return errors.New(msg)
	}
	return nil
}

// saveSettings persists the form and updates the cached coordinates.
func (app *PrayerApp) saveSettings(sw *settingsWidgets) {
	slog.Info(config.MsgSettingsSaving, config.LogKeyComponent, config.CompUISet)

	if lat, lon, set, err := sw.coordinates(); err == nil {
		if set {
			err = SaveCoordinates(lat, lon)
		} else {
			err = ClearCoordinates()
		}
		switch {
		case err != nil:
			slog.Error(config.ErrCoordsSave, config.LogKeyError, err, config.LogKeyComponent, config.CompUISet)
			app.Source.ReloadCoordinates()
		case set:
			app.Source.SetCoordinates(&lat, &lon)
		default:
			app.Source.SetCoordinates(nil, nil)
		}
	}

	school := 1
	if sw.schoolSelect.Selected == app.GetMsg(config.TKeySchoolShafi) {
		school = 0
	}

	app.Preferences.SetString(config.PrefCity, strings.TrimSpace(sw.cityEntry.Text))
	app.Preferences.SetString(config.PrefCountry, strings.TrimSpace(sw.countryEntry.Text))
	app.Preferences.SetBool(config.PrefUseDeviceLoc, sw.checkDevice.Checked)
	app.Preferences.SetInt(config.PrefSchool, school)
	app.Preferences.SetBool(config.PrefNotifications, sw.checkNotif.Checked)
	app.Preferences.SetBool(config.PrefWidgetEnabled, sw.checkWidget.Checked)
	if sw.langSelect.Selected != "" {
		app.Preferences.SetString(config.PrefLanguage, sw.langSelect.Selected)
	}

	app.UpdateLocalizer()
	app.RefreshTrayMenu()
	// Keyring writes do not fire the preference listener.
	app.trigger(engine.TriggerSettings)
}
