package fluent

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Sender settings, fixed once the sender is constructed
type Config struct {
	Host        string        // Collector host, "unix://<path>" selects a UNIX-domain socket
	Port        int           // Collector port (ignored for UNIX-domain sockets)
	BufferLimit int           // Maximum pending bytes kept across failed sends
	Timeout     time.Duration // Connect and write timeout for stream transports
	Verbose     bool          // Echo every merged record to Diagnostics
	MsgPack     bool          // msgpack records instead of JSON
	UDP         bool          // One datagram per record, no retry buffering

	// Kernel socket send buffer in bytes (0 keeps system default)
	SendBufferSize int

	// Destination for verbose echo and transport warnings (default os.Stderr).
	// Ignored when the context given to NewWithContext already carries a logger.
	Diagnostics io.Writer

	// Called with the discarded payload when the retry buffer overflows.
	// Runs while the sender is locked, must not call back into the sender.
	OverflowHandler func(discarded []byte)

	// Opens the transport connection (default uses internal/network)
	Dial DialFunc
}

// Opens a connection for network "tcp", "unix" or "udp".
// UDP connections must not be connected: each Write is one datagram to address.
type DialFunc func(network string, address string, timeout time.Duration) (conn net.Conn, err error)

// Event forwarder to a single collector
type Sender struct {
	tag     string
	cfg     Config
	codec   codec
	ctx     context.Context // carries diagnostics logger and namespace tags
	metrics counters

	mutex   sync.Mutex // guards conn and pending
	conn    *connection
	pending pendingBuffer

	maxDatagram int // largest unfragmented UDP payload, 0 when unknown

	// Only set when the sender started its own diagnostics watcher
	logDone   chan struct{}
	closeOnce sync.Once
}

// Point-in-time view of sender counters
type Stats struct {
	Events          uint64 // Emit calls
	EncodeFailures  uint64 // records rejected by the codec
	PacketsSent     uint64 // successful socket writes
	BytesSent       uint64
	ConnectFailures uint64
	SendFailures    uint64
	Overflows       uint64 // retry buffer discards
	BytesDropped    uint64 // bytes lost to overflows and failed datagrams
	PendingBytes    int    // bytes waiting for the next send
	Connected       bool
}

type counters struct {
	events          atomic.Uint64
	encodeFailures  atomic.Uint64
	packetsSent     atomic.Uint64
	bytesSent       atomic.Uint64
	connectFailures atomic.Uint64
	sendFailures    atomic.Uint64
	overflows       atomic.Uint64
	bytesDropped    atomic.Uint64
}
