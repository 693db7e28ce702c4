package folders

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called after the watcher dropped cached folder lookups.
// name is the folder (relative to root/products) whose change triggered it.
type ChangeCallback func(name string)

const invalidateDebounce = 200 * time.Millisecond

// Watch starts an fsnotify watcher on root/products and its immediate
// product folders until ctx is cancelled. Folder creation, removal and
// renames, and sidecar writes done outside the application, invalidate the
// registry's cache for root so the next lookup rescans sidecars.
func Watch(ctx context.Context, reg *Registry, root string, logger *slog.Logger, cb ChangeCallback) error {
	productsDir := filepath.Join(root, ProductsDir)
	if err := os.MkdirAll(productsDir, 0o755); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(productsDir); err != nil {
		return err
	}
	entries, err := os.ReadDir(productsDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			if addErr := w.Add(filepath.Join(productsDir, e.Name())); addErr != nil {
				logger.Warn("folder watcher: add dir failed", slog.String("name", e.Name()), slog.String("error", addErr.Error()))
			}
		}
	}

	logger.Info("folder watcher: started", slog.String("root", productsDir))

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
		pending string
	)
	schedule := func(name string) {
		pending = name
		if timer == nil {
			timer = time.NewTimer(invalidateDebounce)
			timerCh = timer.C
		} else {
			timer.Reset(invalidateDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("folder watcher: stopped")
			return nil

		case <-timerCh:
			reg.InvalidateRoot(root)
			logger.Debug("folder watcher: cache invalidated", slog.String("name", pending))
			if cb != nil {
				cb(pending)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, relErr := filepath.Rel(productsDir, ev.Name)
			if relErr != nil {
				continue
			}
			dir, file := filepath.Split(rel)
			topLevel := dir == ""
			if !topLevel && file != SidecarFile {
				continue
			}
			folder := filepath.Clean(dir)
			if topLevel {
				folder = file
			}

			if topLevel && ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := w.Add(ev.Name); addErr != nil {
						logger.Warn("folder watcher: add new dir failed", slog.String("name", folder), slog.String("error", addErr.Error()))
					}
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
				schedule(folder)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("folder watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
