package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/openroad/roadcall/errors"
	"github.com/openroad/roadcall/logger"
)

// Watcher watches the config file for changes and swaps the holder's active
// snapshot when a valid configuration is written. Invalid writes are logged
// and the previous snapshot stays active.
type Watcher struct {
	configPath     string
	holder         *Holder
	watcher        *fsnotify.Watcher
	mu             sync.Mutex
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
	isOwnWrite     bool
}

// NewWatcher creates a config file watcher bound to a snapshot holder.
func NewWatcher(configPath string, holder *Holder) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	if err := fsw.Add(configPath); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "failed to watch config file %s", configPath)
	}

	return &Watcher{
		configPath:     configPath,
		holder:         holder,
		watcher:        fsw,
		debouncePeriod: 500 * time.Millisecond, // Debounce rapid file changes
	}, nil
}

// MarkOwnWrite marks the next write as coming from us (prevents reload loops)
func (w *Watcher) MarkOwnWrite() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.isOwnWrite = true
}

func (w *Watcher) checkOwnWrite() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isOwnWrite {
		w.isOwnWrite = false
		return true
	}
	return false
}

// Start begins watching for config file changes
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop stops watching for config changes. A reload still pending in the
// debounce window is cancelled so it cannot fire during shutdown.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.mu.Unlock()

	return w.watcher.Close()
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if isBackupFile(event.Name) {
					continue
				}
				if w.checkOwnWrite() {
					logger.Debugw("Config watcher ignoring own write", "file", event.Name)
					continue
				}

				logger.Infow("Config watcher detected change",
					"file", event.Name,
					"op", event.Op.String())
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("Config watcher error", "error", err)
		}
	}
}

// scheduleReload debounces rapid file changes and triggers reload
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.debouncePeriod, func() {
		if err := w.reload(); err != nil {
			logger.Errorw("Config reload rejected, previous snapshot stays active",
				"path", w.configPath,
				"error", err)
		}
	})
}

// reload loads the file and swaps the holder. The swap validates first, so a
// bad edit never reaches the engine.
func (w *Watcher) reload() error {
	cfg, err := LoadFromFile(w.configPath)
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	snap, err := w.holder.Swap(cfg)
	if err != nil {
		return err
	}

	logger.Infow("Config reloaded successfully",
		"path", w.configPath,
		"version", snap.Version)
	return nil
}
