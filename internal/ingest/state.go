package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// Per-source state file next to baseStateFile, prefixed by the encoded source path
func stateFileFor(sourcePath string, baseStateFile string) (stateFile string) {
	encoded := strings.NewReplacer("/", "_", ".", "-").Replace(strings.TrimPrefix(sourcePath, "/"))
	stateFile = filepath.Join(filepath.Dir(baseStateFile), encoded+"_"+filepath.Base(baseStateFile))
	return
}

func fileInode(info os.FileInfo) (inode uint64) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if ok {
		inode = stat.Ino
	}
	return
}

// Retrieves the saved read position for the source file.
// Unknown, corrupt or stale (other inode) state resumes from the start of the current file.
func getLastPosition(sourcePath string, stateFilePath string) (inode uint64, position int64, err error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		err = fmt.Errorf("unable to stat source file: %w", err)
		return
	}
	inode = fileInode(info)

	data, err := os.ReadFile(stateFilePath)
	if os.IsNotExist(err) {
		err = nil
		return
	} else if err != nil {
		err = fmt.Errorf("unable to read state file: %w", err)
		return
	}

	parts := strings.Fields(string(data))
	if len(parts) != 2 {
		return
	}
	savedInode, err1 := strconv.ParseUint(parts[0], 10, 64)
	savedPosition, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil || savedPosition < 0 {
		return
	}

	if savedInode != inode {
		// Rotated since last run
		return
	}

	// Truncated since last run
	if savedPosition > info.Size() {
		return
	}
	position = savedPosition
	return
}

// Saves the current read position to the state file
func savePosition(stateFilePath string, inode uint64, position int64) (err error) {
	stateDirectory := filepath.Dir(stateFilePath)

	err = os.MkdirAll(stateDirectory, 0700)
	if err != nil {
		err = fmt.Errorf("failed to create missing state directory '%s': %w", stateDirectory, err)
		return
	}

	err = os.WriteFile(stateFilePath, []byte(fmt.Sprintf("%d %d", inode, position)), 0600)
	if err != nil {
		err = fmt.Errorf("failed to write current read position to state file: %w", err)
		return
	}
	return
}
