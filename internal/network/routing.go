package network

import (
	"fmt"
	"net"
)

// Determines the interface used to reach a given destination address
func getInterfaceForDestination(destination net.IP) (iface *net.Interface, err error) {
	// Quick dial (no packets sent) to see what source address the system would use
	probe := &net.UDPAddr{IP: destination, Port: 9}
	conn, err := net.DialUDP("udp", nil, probe)
	if err != nil {
		err = fmt.Errorf("failed to find interface for destination %s: %w", destination, err)
		return
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	iface, err = getInterfaceForAddress(localAddr.IP)
	return
}
