package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDelay batches the bursts of events editors produce for one save.
const reloadDelay = 200 * time.Millisecond

// #region watch
// Watch clears the cache whenever a bundle or the sources metadata changes
// under the data root. It blocks until ctx is done. onReload, if non-nil,
// runs after each clear.
func (l *Loader) Watch(ctx context.Context, onReload func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(l.root); err != nil {
		return fmt.Errorf("watch %s: %w", l.root, err)
	}
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			l.addWatch(w, filepath.Join(l.root, e.Name()))
		}
	}
	l.log.Info("watching interpretation sources", zap.String("root", l.root))

	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && filepath.Dir(ev.Name) == filepath.Clean(l.root) {
					l.addWatch(w, ev.Name)
				}
			}
			if !relevant(ev) {
				continue
			}
			l.log.Debug("source changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			reload = time.After(reloadDelay)

		case <-reload:
			reload = nil
			l.ClearCache()
			l.log.Info("interpretation sources reloaded")
			if onReload != nil {
				onReload()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.log.Warn("watcher error", zap.Error(err))
		}
	}
}

func (l *Loader) addWatch(w *fsnotify.Watcher, dir string) {
	if err := w.Add(dir); err != nil {
		l.log.Warn("cannot watch source", zap.String("dir", dir), zap.Error(err))
	}
}

// relevant reports whether ev can change what the loader would read.
func relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if filepath.Base(ev.Name) == SourcesFileName {
		return true
	}
	switch filepath.Ext(ev.Name) {
	case ".yaml", ".yml", ".json":
		return true
	}
	// a source directory appeared or went away
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// #endregion watch
