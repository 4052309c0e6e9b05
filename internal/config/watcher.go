package config

import (
	"context"
	"path/filepath"
	"time"

	"dealflow/pkg/logging"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces editor write bursts into one reload.
const watchDebounce = 500 * time.Millisecond

// Watcher reloads config.yaml when it changes on disk and delivers valid
// snapshots to a callback. Invalid snapshots are rejected with a log entry;
// the previous configuration stays in effect.
type Watcher struct {
	configPath string
	onChange   func(Config)
}

// NewWatcher creates a watcher for the config.yaml inside configPath.
// onChange is called with each validated snapshot.
func NewWatcher(configPath string, onChange func(Config)) *Watcher {
	return &Watcher{configPath: configPath, onChange: onChange}
}

// Run watches until the context is cancelled. The directory is watched
// rather than the file so atomic-rename saves are observed.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.configPath); err != nil {
		return err
	}
	logging.Info("ConfigWatcher", "Watching %s for configuration changes", w.configPath)

	var (
		debounce <-chan time.Time
		timer    *time.Timer
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != configFileName {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			debounce = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("ConfigWatcher", err, "Watch error")

		case <-debounce:
			debounce = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	config, err := LoadConfig(w.configPath)
	if err != nil {
		logging.Error("ConfigWatcher", err, "Reload failed, keeping previous configuration")
		return
	}
	if errs := config.Validate(); errs.HasErrors() {
		logging.Error("ConfigWatcher", errs, "Reloaded configuration is invalid, keeping previous configuration")
		return
	}
	logging.Info("ConfigWatcher", "Configuration reloaded")
	w.onChange(config)
}
