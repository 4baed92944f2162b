package config

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watch monitors path for changes and calls onChange with the newly loaded,
// validated config each time the file is written. It runs until ctx is
// cancelled.
//
// If a reload fails (invalid YAML or failed validation), the error is logged
// and the previous config remains active — Watch does not call onChange.
func Watch(ctx context.Context, path string, log *logrus.Entry, onChange func(*AppConfig)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	log.Infof("Watching config for changes: %s", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Only reload on write or create events. Editors often write via
			// rename (atomic save), so also catch fsnotify.Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, loadErr := Load(path)
			if loadErr != nil {
				log.Errorf("Config reload failed, keeping previous config: %v", loadErr)
				continue
			}
			warnings, validateErr := cfg.Validate()
			for _, w := range warnings {
				log.Warnf("Config reload: %s", w)
			}
			if validateErr != nil {
				log.Errorf("Config reload validation failed, keeping previous config: %v", validateErr)
				continue
			}

			log.Infof("Config reloaded from %s", path)
			onChange(cfg)

			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorf("Config watcher error: %v", watchErr)
		}
	}
}
