// Package watch keeps badges up to date while notebooks are created and
// edited.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/nbbadge/internal/inject"
	"github.com/starford/nbbadge/internal/storage"
)

// DefaultDebounce is the quiet period before a changed notebook is processed.
const DefaultDebounce = 300 * time.Millisecond

// Processor handles a single notebook. *inject.Injector satisfies it.
type Processor interface {
	ProcessFile(ctx context.Context, rel string, dryRun bool) (*inject.FileResult, error)
}

// Callback is invoked after each successfully processed notebook.
type Callback func(res *inject.FileResult)

// Options controls the watcher.
type Options struct {
	Recursive bool
	Debounce  time.Duration
	DryRun    bool
}

// Watch watches the root of store and re-processes notebooks that are
// created or written, until ctx is cancelled. Failures on a single notebook
// are logged and do not stop the watcher.
//
// Events for the same path are debounced so an editor's burst of writes
// results in one pass. Rewrites that leave content unchanged are skipped by
// the processor, so the watcher does not retrigger on its own output.
func Watch(ctx context.Context, proc Processor, store *storage.FS, opts Options, logger *slog.Logger, cb Callback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if opts.Recursive {
		err = addDirsRecursive(w, root)
	} else {
		err = w.Add(root)
	}
	if err != nil {
		return err
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	logger.Info("watch: started", slog.String("root", root), slog.Bool("recursive", opts.Recursive))

	due := make(chan string, 64)
	timers := make(map[string]*time.Timer)
	schedule := func(rel string) {
		if t, ok := timers[rel]; ok {
			t.Reset(debounce)
			return
		}
		timers[rel] = time.AfterFunc(debounce, func() {
			select {
			case due <- rel:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			for _, t := range timers {
				t.Stop()
			}
			logger.Info("watch: stopped")
			return nil

		case rel := <-due:
			delete(timers, rel)
			res, procErr := proc.ProcessFile(ctx, rel, opts.DryRun)
			if procErr != nil {
				logger.Warn("watch: process failed", slog.String("path", rel), slog.String("error", procErr.Error()))
				continue
			}
			if cb != nil {
				cb(res)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			if ev.Op&fsnotify.Create != 0 && opts.Recursive {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if storage.SkipDir(filepath.Base(ev.Name)) {
						continue
					}
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watch: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
						continue
					}
					logger.Debug("watch: watching new dir", slog.String("path", ev.Name))
					for _, rel := range notebooksIn(store, ev.Name) {
						schedule(rel)
					}
					continue
				}
			}

			if !storage.IsNotebook(ev.Name) {
				continue
			}
			rel, relErr := store.Rel(ev.Name)
			if relErr != nil {
				continue
			}
			schedule(rel)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}

// notebooksIn lists notebooks already present in a newly created directory.
func notebooksIn(store *storage.FS, dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != dir && storage.SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !storage.IsNotebook(d.Name()) {
			return nil
		}
		if rel, relErr := store.Rel(p); relErr == nil {
			out = append(out, rel)
		}
		return nil
	})
	return out
}

// addDirsRecursive adds root and its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && storage.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
