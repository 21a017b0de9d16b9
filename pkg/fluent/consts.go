package fluent

import "time"

const (
	DefaultHost        string        = "localhost"
	DefaultPort        int           = 24224
	DefaultBufferLimit int           = 1 * 1024 * 1024
	DefaultTimeout     time.Duration = 3 * time.Second

	// Host prefix selecting a UNIX-domain stream socket (path follows the prefix)
	UnixPrefix string = "unix://"

	// Record keys written by the codec, always overriding caller values
	LabelKey string = "label"
	TimeKey  string = "time"

	// Default time representation used by PostEvent when the record has none
	EventTimeLayout string = "2006-01-02T15:04:05"

	// Private diagnostics queue depth (oldest echo lines dropped past this)
	diagnosticQueueDepth int = 1024
)

// Transport network names
const (
	transportTCP  string = "tcp"
	transportUnix string = "unix"
	transportUDP  string = "udp"
)
