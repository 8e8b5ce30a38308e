package settings

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tartampluch/go-prayer/internal/config"
)

// Watcher reloads a FileSource when its file changes on disk and then calls
// OnChange. Bursts of events within Debounce collapse into one reload.
type Watcher struct {
	Source   *FileSource
	OnChange func()
	Debounce time.Duration
}

// NewWatcher returns a watcher with the default debounce.
func NewWatcher(src *FileSource, onChange func()) *Watcher {
	return &Watcher{Source: src, OnChange: onChange, Debounce: config.SettingsDebounce}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrWatcher, err)
	}
	defer func() { _ = fw.Close() }()

	abs, err := filepath.Abs(w.Source.Path())
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrWatcher, err)
	}
	// Editors replace files by rename, so the directory is watched instead of the file.
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("%s: %w", config.ErrWatcher, err)
	}
	name := filepath.Base(abs)

	slog.Info(config.MsgWorkerStart,
		config.LogKeyComponent, config.CompSettings,
		config.LogKeyFile, abs,
	)

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name || !relevant(ev.Op) {
				continue
			}
			slog.Debug(config.MsgSettingsEvent,
				config.LogKeyComponent, config.CompSettings,
				config.LogKeyFile, ev.Name,
				config.LogKeyOp, ev.Op.String(),
			)
			debounce.Reset(w.Debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Error(config.MsgWatcherError,
				config.LogKeyComponent, config.CompSettings,
				config.LogKeyError, err,
			)

		case <-debounce.C:
			w.reload()
		}
	}
}

func relevant(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create) || op.Has(fsnotify.Rename)
}

func (w *Watcher) reload() {
	if err := w.Source.Reload(); err != nil {
		slog.Error(config.MsgWatcherError,
			config.LogKeyComponent, config.CompSettings,
			config.LogKeyError, err,
		)
		return
	}
	slog.Info(config.MsgSettingsReload,
		config.LogKeyComponent, config.CompSettings,
		config.LogKeyFile, w.Source.Path(),
	)
	if w.OnChange != nil {
		w.OnChange()
	}
}
