package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// HotConfig wraps Config with hot-reload support
type HotConfig struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
	subs []func(*Config)

	watcher *fsnotify.Watcher
}

func NewHotConfig(path string) (*HotConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &HotConfig{cfg: cfg, path: path}, nil
}

func (hc *HotConfig) Get() *Config {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.cfg
}

// OnReload registers a callback for config changes
func (hc *HotConfig) OnReload(fn func(*Config)) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.subs = append(hc.subs, fn)
}

func (hc *HotConfig) reload() {
	cfg, err := Load(hc.path)
	if err != nil {
		slog.Error("config reload failed", "err", err)
		return
	}
	hc.mu.Lock()
	hc.cfg = cfg
	subs := append([]func(*Config){}, hc.subs...)
	hc.mu.Unlock()

	slog.Info("config reloaded", "path", hc.path)
	for _, fn := range subs {
		fn(cfg)
	}
}

// Watch starts watching the config file for changes. The parent directory is
// watched so editors that replace the file on save are picked up too.
func (hc *HotConfig) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	target := filepath.Clean(hc.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", hc.path, err)
	}

	hc.mu.Lock()
	hc.watcher = watcher
	hc.mu.Unlock()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					hc.reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("config watcher error", "err", err)
			}
		}
	}()
	return nil
}

// Close stops the file watcher, if running.
func (hc *HotConfig) Close() error {
	hc.mu.Lock()
	w := hc.watcher
	hc.watcher = nil
	hc.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}
