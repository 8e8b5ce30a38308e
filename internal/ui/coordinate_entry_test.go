package ui_test

import (
	"testing"

	"fyne.io/fyne/v2/driver/mobile"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"

	"github.com/tartampluch/go-prayer/internal/ui"
)

func TestCoordinateEntry_TypedRune(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Digits", "51", "51"},
		{"Negative decimal", "-0.1278", "-0.1278"},
		{"Letters rejected", "4a5", "45"},
		{"Second point rejected", "1.2.3", "1.23"},
		{"Minus only in front", "12-3", "123"},
		{"Second minus rejected", "--5", "-5"},
		{"Space and comma rejected", "4 5,6", "456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := ui.NewCoordinateEntry()
			window := test.NewWindow(entry)
			defer window.Close()

			test.Type(entry, tt.input)
			assert.Equal(t, tt.want, entry.Text)
		})
	}
}

func TestCoordinateEntry_Keyboard(t *testing.T) {
	entry := ui.NewCoordinateEntry()
	assert.Equal(t, mobile.NumberKeyboard, entry.Keyboard())
}

// TestCoordinateEntry_DirectSetText documents that programmatic text bypasses
// the keystroke filter; the settings form validates on save.
func TestCoordinateEntry_DirectSetText(t *testing.T) {
	entry := ui.NewCoordinateEntry()
	entry.SetText("abc")
	assert.Equal(t, "abc", entry.Text)
}
