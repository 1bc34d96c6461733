package catalog

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	zlog "github.com/rs/zerolog/log"
)

// DefaultSettleDelay is how long the watcher waits for a burst of changes to end.
const DefaultSettleDelay = 2 * time.Second

// Watcher rescans the local source when the media directory changes.
type Watcher struct {
	catalog *Catalog
	dir     string
	watcher *fsnotify.Watcher
	settle  time.Duration
}

// NewWatcher watches dir and its playlist subdirectories.
func NewWatcher(c *Catalog, dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	w := &Watcher{catalog: c, dir: dir, watcher: fw, settle: DefaultSettleDelay}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		fw.Close()
		return nil, errors.Wrap(err, "failed to read media directory")
	}
	for _, e := range entries {
		if e.IsDir() {
			w.add(filepath.Join(dir, e.Name()))
		}
	}
	return w, nil
}

func (w *Watcher) add(path string) {
	if err := w.watcher.Add(path); err != nil {
		zlog.Warn().Msgf("watcher: cannot watch %s: %v", path, err)
	}
}

// Run processes file system events until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	var pending <-chan time.Time
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 && filepath.Dir(event.Name) == filepath.Clean(w.dir) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.add(event.Name)
				}
			}
			zlog.Debug().Msgf("watcher: %s", event)
			if timer == nil {
				timer = time.NewTimer(w.settle)
			} else {
				timer.Reset(w.settle)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			if err := w.catalog.RefreshLocal(ctx); err != nil {
				zlog.Warn().Msgf("watcher: rescan failed: %v", err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			zlog.Warn().Msgf("watcher: error: %v", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
