package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watchDebounce coalesces the bursts of write events editors and atomic
// renames produce for a single save.
const watchDebounce = 250 * time.Millisecond

// Watch reloads the config file whenever it changes and hands the result
// to onChange. It blocks until ctx is cancelled. Reload failures are
// logged and the previous configuration stays in effect; onChange only
// runs for configs that loaded and validated cleanly.
//
// The parent directory is watched rather than the file itself so that
// atomic save strategies (write temp file, rename over target) are still
// observed.
func Watch(ctx context.Context, configPath string, logger *zap.Logger, onChange func(*Config)) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(configPath)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	target := filepath.Clean(configPath)
	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			cfg, err := Load(configPath)
			if err != nil {
				logger.Warn("config reload failed, keeping previous config",
					zap.String("path", configPath),
					zap.Error(err))
				continue
			}
			logger.Info("config reloaded", zap.String("path", configPath))
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", zap.Error(err))

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
