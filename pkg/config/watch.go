package config

import (
	"context"
	"fmt"
	"log"

	"github.com/fsnotify/fsnotify"
)

// Watch follows the config file and reloads the global configuration
// whenever it is rewritten. onReload, when non-nil, is invoked with the
// fresh configuration after each successful reload. Watch blocks until
// the context is cancelled.
func Watch(ctx context.Context, onReload func(*VeripassConfig)) error {
	cfg := Get()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(cfg.ConfigFilePath()); err != nil {
		return fmt.Errorf("failed to watch file %s: %w", cfg.ConfigFilePath(), err)
	}

	log.Printf("Watching %s for configuration changes", cfg.ConfigFilePath())

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if err := Reload(); err != nil {
					log.Printf("Configuration reload failed: %v", err)
					continue
				}
				fresh := Get()
				if err := fresh.Validate(); err != nil {
					log.Printf("Reloaded configuration is invalid: %v", err)
					continue
				}
				log.Printf("Configuration reloaded from %s", fresh.ConfigFilePath())
				if onReload != nil {
					onReload(fresh)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Watcher error: %v", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
