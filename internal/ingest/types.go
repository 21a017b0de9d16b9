package ingest

import (
	"io"
	"os"
	"sync/atomic"
)

// Destination for parsed records (satisfied by *fluent.Sender)
type Emitter interface {
	Emit(label string, fields map[string]any) (err error)
}

// Tails one file, resuming from the position saved in stateFile
type FileSource struct {
	Namespace []string
	label     string
	filePath  string
	stateFile string
	file      *os.File
	inode     uint64
	offset    int64 // end of the last complete line read
	emitter   Emitter
	metrics   counters
}

// Reads records from a stream (normally os.Stdin) until EOF
type StreamSource struct {
	Namespace []string
	label     string
	input     io.Reader
	emitter   Emitter
	metrics   counters
}

type counters struct {
	linesRead    atomic.Uint64 // complete lines seen
	emitted      atomic.Uint64 // records accepted by the emitter
	plainLines   atomic.Uint64 // lines without structure, sent as message only
	emitFailures atomic.Uint64 // records the emitter rejected
}
