// Package settings loads the headless settings file and keeps it current.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/tartampluch/go-prayer/internal/config"
	"github.com/tartampluch/go-prayer/internal/engine"
)

// Load reads a YAML settings file on top of engine.DefaultSettings.
// A missing file yields the defaults.
func Load(path string) (engine.Settings, error) {
	s := engine.DefaultSettings()

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("%s: %w", config.ErrSettingsRead, err)
	}
	return Parse(raw)
}

// Parse decodes YAML settings. Unknown keys are rejected so typos surface.
func Parse(raw []byte) (engine.Settings, error) {
	s := engine.DefaultSettings()
	if len(raw) == 0 {
		return s, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return engine.DefaultSettings(), fmt.Errorf("%s: %w", config.ErrSettingsParse, err)
	}
	if len(doc.Content) == 0 {
		return s, nil
	}
	if err := decodeStrict(doc.Content[0], &s); err != nil {
		return engine.DefaultSettings(), fmt.Errorf("%s: %w", config.ErrSettingsParse, err)
	}
	if s.School != 0 && s.School != 1 {
		return engine.DefaultSettings(), fmt.Errorf("%s: got %d", config.ErrSettingsSchool, s.School)
	}
	return s, nil
}

// decodeStrict rejects mapping keys that engine.Settings does not declare.
func decodeStrict(n *yaml.Node, s *engine.Settings) error {
	if n.Kind == yaml.MappingNode {
		known := map[string]bool{
			"city": true, "country": true, "latitude": true, "longitude": true,
			"use_device_location": true, "school": true,
			"notifications_enabled": true, "widget_enabled": true,
		}
		for i := 0; i < len(n.Content); i += 2 {
			if k := n.Content[i].Value; !known[k] {
				return fmt.Errorf("line %d: %s %q", n.Content[i].Line, config.ErrUnknownKey, k)
			}
		}
	}
	return n.Decode(s)
}

// FileSource is an engine.SettingsSource backed by a YAML file.
// Reload swaps the snapshot atomically; a failed reload keeps the previous one.
type FileSource struct {
	path    string
	current atomic.Pointer[engine.Settings]
}

var _ engine.SettingsSource = (*FileSource)(nil)

// NewFileSource loads path once and returns the source.
func NewFileSource(path string) (*FileSource, error) {
	src := &FileSource{path: path}
	if err := src.Reload(); err != nil {
		return nil, err
	}
	return src, nil
}

// Path returns the watched file.
func (f *FileSource) Path() string { return f.path }

// Settings implements engine.SettingsSource.
func (f *FileSource) Settings() engine.Settings {
	if s := f.current.Load(); s != nil {
		return *s
	}
	return engine.DefaultSettings()
}

// Reload re-reads the file.
func (f *FileSource) Reload() error {
	s, err := Load(f.path)
	if err != nil {
		return err
	}
	f.current.Store(&s)
	slog.Debug(config.MsgSettingsReload,
		config.LogKeyComponent, config.CompSettings,
		config.LogKeyFile, f.path,
	)
	return nil
}
