package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/five82/videopipe/internal/logging"
)

// reloadable is the subset of Config fields that may change without a
// pipeline restart.
type reloadable struct {
	LogLevel         string   `json:"log_level"`
	WatchLabels      []string `json:"watch_labels"`
	WarningThreshold int      `json:"warning_threshold"`
}

// Watcher hot-reloads log_level, watch labels, and warning threshold from a
// JSON file, swapping an atomic pointer so in-flight stages never observe a
// half-applied config — they simply keep using whatever pointer they last
// read until their next read picks up the swap.
type Watcher struct {
	path    string
	current atomic.Pointer[Config]
	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}
}

// NewWatcher starts watching base.ConfigFilePath, if set, for changes to
// the reloadable fields. If ConfigFilePath is empty, the returned Watcher
// simply serves base forever with no filesystem watch.
func NewWatcher(base *Config) (*Watcher, error) {
	w := &Watcher{
		path: base.ConfigFilePath,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	w.current.Store(base)

	if base.ConfigFilePath == "" {
		close(w.done)
		return w, nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(base.ConfigFilePath)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("config watcher: watch dir: %w", err)
	}
	w.watcher = fw

	go w.run()
	return w, nil
}

// Get returns the currently active Config. Callers should call this once
// per loop iteration rather than caching the pointer across iterations, so
// a reload takes effect on the next iteration.
func (w *Watcher) Get() *Config {
	return w.current.Load()
}

func (w *Watcher) run() {
	defer close(w.done)
	logger := logging.WithComponent("config-watcher")

	var debounce *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-w.stop:
			_ = w.watcher.Close()
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			if err := w.reload(); err != nil {
				logger.Warn().Err(err).Msg("config reload rejected, keeping previous config")
			} else {
				logger.Info().Msg("config reloaded")
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) reload() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var r reloadable
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if _, err := parseLogLevel(r.LogLevel); err != nil {
		return err
	}
	if r.WarningThreshold < 1 {
		return fmt.Errorf("warning_threshold must be at least 1, got %d", r.WarningThreshold)
	}
	if len(r.WatchLabels) == 0 {
		return fmt.Errorf("watch_labels must not be empty")
	}

	prev := w.current.Load()
	next := *prev
	next.LogLevel = r.LogLevel
	next.WatchLabels = r.WatchLabels
	next.WarningThreshold = r.WarningThreshold
	w.current.Store(&next)

	return logging.SetLevel(r.LogLevel)
}

// Close stops the watcher goroutine, if any, and waits for it to exit.
func (w *Watcher) Close() {
	select {
	case <-w.done:
		return
	default:
	}
	close(w.stop)
	<-w.done
}
