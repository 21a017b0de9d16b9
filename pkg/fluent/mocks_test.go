package fluent

import (
	"bytes"
	"errors"
	"net"
	"sync"
	"time"
)

var errTransportDown = errors.New("transport down")

// In-memory collector: dials and writes succeed only while up.
// Successful writes are recorded across reconnects in arrival order.
type mockTransport struct {
	mu         sync.Mutex
	up         bool
	dials      int
	writes     [][]byte
	writeDelay time.Duration
	active     int  // writes in progress
	overlapped bool // two writes were in progress at once
	lastDial   struct {
		network string
		address string
	}
}

func newMockTransport(up bool) (transport *mockTransport) {
	transport = &mockTransport{up: up}
	return
}

func (m *mockTransport) setUp(up bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.up = up
}

func (m *mockTransport) dial(network string, address string, timeout time.Duration) (conn net.Conn, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dials++
	m.lastDial.network = network
	m.lastDial.address = address
	if !m.up {
		err = errTransportDown
		return
	}
	conn = &mockConn{transport: m}
	return
}

func (m *mockTransport) write(p []byte) (n int, err error) {
	m.mu.Lock()
	m.active++
	if m.active > 1 {
		m.overlapped = true
	}
	delay := m.writeDelay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.active--
	if !m.up {
		err = errTransportDown
		return
	}
	m.writes = append(m.writes, append([]byte(nil), p...))
	n = len(p)
	return
}

func (m *mockTransport) recorded() (writes [][]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	writes = append(writes, m.writes...)
	return
}

func (m *mockTransport) wire() (all []byte) {
	all = bytes.Join(m.recorded(), nil)
	return
}

func (m *mockTransport) dialCount() (n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n = m.dials
	return
}

// Connection handed out by mockTransport
type mockConn struct {
	transport     *mockTransport
	mu            sync.Mutex
	closed        bool
	writeDeadline time.Time
	shortWrite    bool // report one byte less than requested
}

func (c *mockConn) Write(p []byte) (n int, err error) {
	c.mu.Lock()
	closed := c.closed
	short := c.shortWrite
	c.mu.Unlock()

	if closed {
		err = net.ErrClosed
		return
	}
	if c.transport == nil {
		n = len(p)
		if short {
			n--
		}
		return
	}
	n, err = c.transport.write(p)
	if err == nil && short {
		n--
	}
	return
}

func (c *mockConn) Read(p []byte) (n int, err error) {
	err = errors.New("not supported")
	return
}

func (c *mockConn) Close() (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return
}

func (c *mockConn) isClosed() (closed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	closed = c.closed
	return
}

func (c *mockConn) LocalAddr() net.Addr                { return &net.TCPAddr{} }
func (c *mockConn) RemoteAddr() net.Addr               { return &net.TCPAddr{} }
func (c *mockConn) SetDeadline(t time.Time) error      { return nil }
func (c *mockConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *mockConn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeDeadline = t
	return nil
}

// Writer safe for concurrent use by a diagnostics watcher
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
