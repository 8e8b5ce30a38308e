package ui

import (
	"strings"

	"fyne.io/fyne/v2/driver/mobile"
	"fyne.io/fyne/v2/widget"
)

// CoordinateEntry is an Entry widget that only accepts the characters of a
// signed decimal degree value.
type CoordinateEntry struct {
	widget.Entry
}

// NewCoordinateEntry creates a new instance of CoordinateEntry.
func NewCoordinateEntry() *CoordinateEntry {
	entry := &CoordinateEntry{}
	entry.ExtendBaseWidget(entry)
	return entry
}

// TypedRune filters keystrokes to digits, a leading minus sign and one
// decimal point. Pasted text bypasses this and is caught by the Validator.
func (e *CoordinateEntry) TypedRune(r rune) {
	switch {
	case r >= '0' && r <= '9':
	case r == '-' && e.Text == "":
	case r == '.' && !strings.ContainsRune(e.Text, '.'):
	default:
		return
	}
	e.Entry.TypedRune(r)
}

// Keyboard requests the numeric keypad on mobile devices.
func (e *CoordinateEntry) Keyboard() mobile.KeyboardType {
	return mobile.NumberKeyboard
}
