package ingest

import (
	"context"
	"fluentsend/internal/global"
	"fluentsend/internal/logctx"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watches the directory of path so replacement files are noticed too
func newWatcher(path string) (watcher *fsnotify.Watcher, err error) {
	watcher, err = fsnotify.NewWatcher()
	if err != nil {
		err = fmt.Errorf("failed to create file watcher: %w", err)
		return
	}

	err = watcher.Add(filepath.Dir(path))
	if err != nil {
		watcher.Close()
		err = fmt.Errorf("failed to watch directory of '%s': %w", path, err)
		return
	}
	return
}

// Non-blocking single slot notify
func notify(signal chan struct{}) {
	select {
	case signal <- struct{}{}:
	default:
	}
}

// Translates directory events for path into changed/rotated notifications until ctx is done
func watch(ctx context.Context, watcher *fsnotify.Watcher, path string, changed chan struct{}, rotated chan struct{}) {
	ctx = logctx.AppendCtxTag(ctx, global.NSWatcher)
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}

			if event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
					"source file '%s' replaced (%s)\n", path, event.Op)
				notify(rotated)
				notify(changed)
				continue
			}
			if event.Has(fsnotify.Write) {
				notify(changed)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "file watcher error: %v\n", err)
		}
	}
}
