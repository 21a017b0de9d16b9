package network

import (
	"net"
	"time"
)

// Unconnected datagram socket presented as a net.Conn.
// Every Write is a single datagram sent to the fixed destination.
type DatagramConn struct {
	net.PacketConn
	destination net.Addr
}

func (conn *DatagramConn) Write(datagram []byte) (n int, err error) {
	n, err = conn.WriteTo(datagram, conn.destination)
	return
}

func (conn *DatagramConn) Read(buf []byte) (n int, err error) {
	n, _, err = conn.ReadFrom(buf)
	return
}

func (conn *DatagramConn) RemoteAddr() (addr net.Addr) {
	addr = conn.destination
	return
}

// Datagram sends never wait on the peer, only read deadlines are meaningful
func (conn *DatagramConn) SetWriteDeadline(t time.Time) (err error) {
	return
}
