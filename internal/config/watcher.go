package config

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the optional config file for changes and reloads only
// the compaction threshold, matching the teacher's tlsroots.Watcher
// shape (watch the containing directory so editors that rename-and-replace
// still trigger a reload, debounce rapid successive writes).
type Watcher struct {
	loader   *Loader
	onChange func(int64)
	logger   *slog.Logger

	debounce   time.Duration
	lastReload time.Time
	reloadMu   sync.Mutex

	done chan struct{}
}

// NewWatcher constructs a Watcher for loader's config file. onChange is
// called with the new compaction threshold whenever the file changes and
// sets one. If loader has no file path, Start is a no-op.
func NewWatcher(loader *Loader, onChange func(int64), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		loader:   loader,
		onChange: onChange,
		logger:   logger,
		debounce: 250 * time.Millisecond,
		done:     make(chan struct{}),
	}
}

// Start watches the config file until Stop is called. It blocks, so callers
// typically run it in a goroutine.
func (w *Watcher) Start() error {
	if w.loader.filePath == "" {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dir := filepath.Dir(w.loader.filePath)
	if err := fw.Add(dir); err != nil {
		return err
	}
	base := filepath.Base(w.loader.filePath)

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.debouncedReload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("config: watcher error", "error", err)

		case <-w.done:
			return nil
		}
	}
}

// StartAsync runs Start in a goroutine, logging a terminal watcher error
// rather than crashing the process — config hot-reload is a convenience,
// not something a request path depends on.
func (w *Watcher) StartAsync() {
	go func() {
		if err := w.Start(); err != nil {
			w.logger.Error("config: watcher stopped", "error", err)
		}
	}()
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.done)
}

func (w *Watcher) debouncedReload() {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	now := time.Now()
	if now.Sub(w.lastReload) < w.debounce {
		return
	}
	w.lastReload = now

	value, ok, err := w.loader.CompactionThreshold()
	if err != nil {
		w.logger.Error("config: reload failed", "error", err)
		return
	}
	if !ok {
		return
	}
	w.logger.Info("config: compaction threshold reloaded", "value", value)
	w.onChange(value)
}
