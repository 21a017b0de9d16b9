package network

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Returns a socket control hook that sets the kernel send buffer size.
// Zero or negative size leaves the system default in place.
func sendBufferControl(size int) (control func(network, address string, c syscall.RawConn) error) {
	control = func(network, address string, c syscall.RawConn) (err error) {
		if size <= 0 {
			return
		}
		// Using x/sys/unix package for more up-to-date syscall numbers
		ctrlErr := c.Control(func(fd uintptr) {
			err = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, size)
		})
		if ctrlErr != nil {
			err = ctrlErr
		}
		return
	}
	return
}

// Opens stream connection ("tcp" or "unix") bounded by timeout
func DialStream(network string, address string, timeout time.Duration, sendBuffer int) (conn net.Conn, err error) {
	dialer := net.Dialer{
		Timeout: timeout,
		Control: sendBufferControl(sendBuffer),
	}

	conn, err = dialer.Dial(network, address)
	if err != nil {
		err = fmt.Errorf("failed to connect to %s %s: %w", network, address, err)
		return
	}
	return
}

// Opens an unconnected UDP socket whose writes all go to address
func OpenDatagram(address string, sendBuffer int) (conn net.Conn, err error) {
	destination, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		err = fmt.Errorf("failed to resolve destination '%s': %w", address, err)
		return
	}

	// Bind matching address family, wildcard local port
	localAddr := ":0"
	if destination.IP != nil && destination.IP.To4() != nil {
		localAddr = "0.0.0.0:0"
	}

	cfg := net.ListenConfig{Control: sendBufferControl(sendBuffer)}
	pc, err := cfg.ListenPacket(context.Background(), "udp", localAddr)
	if err != nil {
		err = fmt.Errorf("failed to open udp socket: %w", err)
		return
	}

	conn = &DatagramConn{
		PacketConn:  pc,
		destination: destination,
	}
	return
}
