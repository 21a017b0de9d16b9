// Line sources feeding records into a sender
package ingest

import (
	"bufio"
	"context"
	"errors"
	"fluentsend/internal/global"
	"fluentsend/internal/logctx"
	"fluentsend/internal/metrics"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Re-check interval for filesystems that do not deliver change events
const filePollInterval time.Duration = time.Second

// Creates new file source. Returns nil nil if no path.
func NewFile(namespace []string, filePath string, baseStateFile string, label string, emitter Emitter) (mod *FileSource, err error) {
	if filePath == "" {
		return
	}

	file, err := os.Open(filePath)
	if err != nil {
		err = fmt.Errorf("failed to open source file: %w", err)
		return
	}

	mod = &FileSource{
		Namespace: append(append([]string{}, namespace...), global.NSoFile, filepath.Base(filePath)),
		label:     label,
		filePath:  filePath,
		stateFile: stateFileFor(filePath, baseStateFile),
		file:      file,
		emitter:   emitter,
	}
	return
}

// Follows the file until ctx is cancelled, then saves the read position
func (mod *FileSource) Run(ctx context.Context) {
	ctx = logctx.AppendCtxTag(ctx, global.NSoFile)

	inode, offset, err := getLastPosition(mod.filePath, mod.stateFile)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
			"failed to get position of last read for '%s': %v\n", mod.filePath, err)
	}
	mod.inode, mod.offset = inode, offset

	watcher, err := newWatcher(mod.filePath)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "%v\n", err)
		return
	}
	defer watcher.Close()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()

	changed := make(chan struct{}, 1)
	rotated := make(chan struct{}, 1)
	go watch(watchCtx, watcher, mod.filePath, changed, rotated)

	ticker := time.NewTicker(filePollInterval)
	defer ticker.Stop()

	for {
		mod.readLines(ctx)

		select {
		case <-ctx.Done():
			err = savePosition(mod.stateFile, mod.inode, mod.offset)
			if err != nil {
				logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
					"failed to save position in file source '%s': %v\n", mod.filePath, err)
			}
			return
		case <-changed:
		case <-ticker.C:
		}

		select {
		case <-rotated:
			err = mod.reopen(ctx)
			if err != nil {
				// Retried on the next create event
				logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
					"failed to reopen replaced source file: %v\n", err)
			}
		default:
		}
	}
}

// Emits every complete line past the saved offset. A trailing partial line is left for the next call.
func (mod *FileSource) readLines(ctx context.Context) {
	info, err := mod.file.Stat()
	if err == nil && info.Size() < mod.offset {
		logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
			"source file '%s' truncated, reading from start\n", mod.filePath)
		mod.offset = 0
	}

	_, err = mod.file.Seek(mod.offset, io.SeekStart)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "failed to seek to last offset: %v\n", err)
		return
	}

	reader := bufio.NewReaderSize(mod.file, 65536)
	for ctx.Err() == nil {
		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "read error: %v\n", err)
			}
			return
		}
		mod.offset += int64(len(line))

		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		deliver(ctx, mod.emitter, mod.label, line, &mod.metrics)
	}
}

// Switches to the file now at the source path after draining the old one
func (mod *FileSource) reopen(ctx context.Context) (err error) {
	file, err := os.Open(mod.filePath)
	if err != nil {
		return
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return
	}

	inode := fileInode(info)
	if inode == mod.inode {
		file.Close()
		return
	}

	mod.readLines(ctx)
	mod.file.Close()

	mod.file = file
	mod.inode = inode
	mod.offset = 0
	return
}

// Gracefully stops module
func (mod *FileSource) Shutdown() (err error) {
	if mod == nil {
		return
	}
	if mod.file != nil {
		err = mod.file.Close()
	}
	return
}

func (mod *FileSource) CollectMetrics() (collection []metrics.Metric) {
	collection = mod.metrics.collect(mod.Namespace)
	return
}
