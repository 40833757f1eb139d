package views

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// ErrWatchUnsupported is returned by Watch when templates are not read from
// the OS filesystem.
var ErrWatchUnsupported = errors.New("views: watching requires the OS filesystem")

// Watch invalidates cached templates as their files change on disk, until
// ctx is done. Created, written, renamed and removed files are dropped from
// the cache; any of those below the partials directory also drops the
// partials listing. Watch returns immediately when caching is disabled.
func (r *Renderer) Watch(ctx context.Context) error {
	if _, ok := r.fsys.(OSFileSystem); !ok {
		return ErrWatchUnsupported
	}
	if r.cache == nil {
		r.logger.Debug("Template cache disabled, not watching")
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func(w *fsnotify.Watcher) {
		_ = w.Close()
	}(w)

	dirs := []string{
		filepath.Join(r.config.Root, r.config.ViewsDir),
		filepath.Join(r.config.Root, r.config.LayoutsDir),
		r.PartialPath(""),
	}
	for _, dir := range dirs {
		if err := r.watchTree(w, dir); err != nil {
			return err
		}
	}
	r.logger.Info("Watching template directories", "root", r.config.Root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			r.handleEvent(w, ev)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("Template watcher error", "error", err)
		}
	}
}

func (r *Renderer) handleEvent(w *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := r.watchTree(w, ev.Name); err != nil {
				r.logger.Warn("Failed to watch new directory", "dir", ev.Name, "error", err)
			}
		}
	}

	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}

	if r.Invalidate(ev.Name) {
		r.logger.Debug("Template changed, dropped from cache", "file", r.rel(ev.Name))
	}

	partials := r.PartialPath("") + string(filepath.Separator)
	if strings.HasPrefix(ev.Name, partials) && !ev.Has(fsnotify.Write) {
		r.InvalidatePartials()
		r.logger.Debug("Partials directory changed, listing dropped", "file", r.rel(ev.Name))
	}
}

// watchTree adds dir and every directory below it. A missing dir is not an
// error.
func (r *Renderer) watchTree(w *fsnotify.Watcher, dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.Add(path)
	})
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Debug("Template directory missing, not watching", "dir", r.rel(dir))
		return nil
	}
	return err
}
