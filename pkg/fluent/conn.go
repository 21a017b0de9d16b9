package fluent

import (
	"errors"
	"fluentsend/internal/network"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

var errNotConnected = errors.New("no open connection")

// Owns the single outbound socket of a sender
type connection struct {
	transport string // "tcp", "unix" or "udp"
	address   string
	timeout   time.Duration
	dial      DialFunc
	conn      net.Conn
}

func newConnection(cfg Config) (c *connection) {
	c = &connection{
		timeout: cfg.Timeout,
		dial:    cfg.Dial,
	}

	switch {
	case cfg.UDP:
		c.transport = transportUDP
		c.address = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	case strings.HasPrefix(cfg.Host, UnixPrefix):
		c.transport = transportUnix
		c.address = strings.TrimPrefix(cfg.Host, UnixPrefix)
	default:
		c.transport = transportTCP
		c.address = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}

	if c.dial == nil {
		c.dial = defaultDial(cfg.SendBufferSize)
	}
	return
}

// Dials through internal/network with the configured socket send buffer
func defaultDial(sendBuffer int) (dial DialFunc) {
	dial = func(transport string, address string, timeout time.Duration) (conn net.Conn, err error) {
		if transport == transportUDP {
			conn, err = network.OpenDatagram(address, sendBuffer)
			return
		}
		conn, err = network.DialStream(transport, address, timeout, sendBuffer)
		return
	}
	return
}

func (c *connection) connected() (live bool) {
	live = c.conn != nil
	return
}

func (c *connection) stream() (isStream bool) {
	isStream = c.transport != transportUDP
	return
}

// Opens the socket unless one is already live
func (c *connection) ensureConnected() (err error) {
	if c.conn != nil {
		return
	}

	conn, err := c.dial(c.transport, c.address, c.timeout)
	if err != nil {
		err = c.failure(OpConnect, err)
		return
	}
	c.conn = conn
	return
}

// Writes all of data or fails. Any failure tears the connection down.
func (c *connection) send(data []byte) (err error) {
	if c.conn == nil {
		err = c.failure(OpWrite, errNotConnected)
		return
	}

	if c.stream() && c.timeout > 0 {
		err = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
		if err != nil {
			err = c.failure(OpWrite, err)
			return
		}
	}

	n, err := c.conn.Write(data)
	if err == nil && n != len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		err = c.failure(OpWrite, err)
		return
	}
	return
}

// Idempotent
func (c *connection) close() {
	if c.conn == nil {
		return
	}
	_ = c.conn.Close()
	c.conn = nil
}

// Closes the connection and wraps cause with the failing stage
func (c *connection) failure(op TransportOp, cause error) (err error) {
	c.close()
	err = &TransportError{
		Op:      op,
		Network: c.transport,
		Address: c.address,
		Err:     cause,
	}
	return
}
