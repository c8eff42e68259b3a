// Package watcher triggers an attendance sync whenever the record store file
// changes on disk.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/noah-isme/recordsync/internal/models"
	"github.com/noah-isme/recordsync/pkg/config"
	"github.com/noah-isme/recordsync/pkg/storage"
)

// Trigger is the sync trigger label used by the watcher.
const Trigger = "watcher"

// Syncer runs one sync and waits for it.
type Syncer interface {
	Run(ctx context.Context, trigger string) (*models.SyncResult, error)
}

// WriteStamper reports the modification time of the syncer's own most
// recent write to the watched file.
type WriteStamper interface {
	LastWrite() time.Time
}

// Watcher detects modifications of one file by polling its modification
// time or by subscribing to filesystem events.
type Watcher struct {
	path     string
	mode     string
	interval time.Duration
	sync     Syncer
	writes   WriteStamper
	logger   *zap.Logger
	modTime  func(string) (time.Time, error)

	mu      sync.Mutex
	lastMod time.Time
	cancel  context.CancelFunc
	done    chan struct{}
}

// New builds a watcher for path. writes tells the watcher which
// modification its own syncs produced. Mode defaults to polling every second.
func New(path string, syncer Syncer, writes WriteStamper, cfg config.WatcherConfig, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Mode != config.WatchNotify {
		cfg.Mode = config.WatchPoll
	}
	return &Watcher{
		path:     filepath.Clean(path),
		mode:     cfg.Mode,
		interval: cfg.Interval,
		sync:     syncer,
		writes:   writes,
		logger:   logger,
		modTime:  storage.ModTime,
	}
}

// Start records the current modification time and launches the loop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return nil
	}

	mod, err := w.modTime(w.path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", w.path, err)
	}
	w.lastMod = mod

	var fsw *fsnotify.Watcher
	if w.mode == config.WatchNotify {
		fsw, err = fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create fsnotify watcher: %w", err)
		}
		// Writes replace the file by rename, so watch the directory.
		if err := fsw.Add(filepath.Dir(w.path)); err != nil {
			_ = fsw.Close()
			return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		if fsw != nil {
			defer fsw.Close()
			w.notifyLoop(loopCtx, fsw)
			return
		}
		w.pollLoop(loopCtx)
	}()
	w.logger.Info("record watcher started", zap.String("path", w.path), zap.String("mode", w.mode), zap.Duration("interval", w.interval))
	return nil
}

// Stop cancels the loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	w.logger.Info("record watcher stopped", zap.String("path", w.path))
}

func (w *Watcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *Watcher) notifyLoop(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.check(ctx)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fsnotify error", zap.Error(err))
		}
	}
}

// check syncs when the modification time moved. Afterwards it remembers
// the time of the sync's own write, so that write is not seen as a change
// while a later write by another process still is.
func (w *Watcher) check(ctx context.Context) {
	mod, err := w.modTime(w.path)
	if err != nil {
		w.logger.Warn("stat record file", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.mu.Lock()
	changed := !mod.Equal(w.lastMod)
	w.mu.Unlock()
	if !changed {
		return
	}

	w.logger.Info("record file changed, syncing", zap.String("path", w.path))
	before := w.writes.LastWrite()
	result, err := w.sync.Run(ctx, Trigger)
	switch {
	case err != nil:
		w.logger.Warn("watcher sync failed", zap.Error(err))
	case len(result.Errors) > 0:
		w.logger.Warn("watcher sync finished with errors", zap.Int("updated", result.Updated), zap.Strings("errors", result.Errors))
	}

	seen := mod
	if written := w.writes.LastWrite(); !written.Equal(before) {
		seen = written
	}
	w.mu.Lock()
	w.lastMod = seen
	w.mu.Unlock()
}
