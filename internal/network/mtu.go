package network

import (
	"fmt"
	"net"
)

const (
	ip4Overhead int = 60 // maximum IPv4 header
	ip6Overhead int = 80 // IPv6 header plus room for extension headers
	udpOverhead int = 8
	defaultMTU  int = 1500 // ethernet standard
)

// Retrieves total IP+UDP overhead for the destination address family
func datagramOverhead(ip net.IP) (overhead int) {
	if ip.To4() != nil {
		overhead = ip4Overhead + udpOverhead
	} else {
		overhead = ip6Overhead + udpOverhead
	}
	return
}

// Determines the largest UDP payload that reaches host without IP fragmentation.
// Host may be a name or literal address (with or without brackets).
func MaxDatagramPayload(host string) (maxPayloadSize int, err error) {
	ip, err := resolveHost(host)
	if err != nil {
		return
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		err = fmt.Errorf("failed to list network interfaces: %w", err)
		return
	}

	var mtu int
	if ip.IsLoopback() {
		for _, iface := range ifaces {
			if iface.Flags&net.FlagLoopback != 0 {
				mtu = iface.MTU
				break
			}
		}
	} else {
		mtu = commonMTU(ifaces)
		if mtu == 0 {
			// Interfaces disagree, ask the route table
			var iface *net.Interface
			iface, err = getInterfaceForDestination(ip)
			if err != nil {
				return
			}
			mtu = iface.MTU
		}
	}

	// Safety check - assign default
	if mtu <= 0 {
		mtu = defaultMTU
	}

	maxPayloadSize = mtu - datagramOverhead(ip)
	return
}

// MTU shared by every non-loopback interface, zero if they differ
func commonMTU(ifaces []net.Interface) (mtu int) {
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if mtu == 0 {
			mtu = iface.MTU
		} else if mtu != iface.MTU {
			mtu = 0
			return
		}
	}
	return
}

// Parses literal addresses, falls back to resolver for names
func resolveHost(host string) (ip net.IP, err error) {
	if len(host) > 1 && host[0] == '[' && host[len(host)-1] == ']' {
		host = host[1 : len(host)-1]
	}

	ip = net.ParseIP(host)
	if ip != nil {
		return
	}

	addr, err := net.ResolveIPAddr("ip", host)
	if err != nil {
		err = fmt.Errorf("failed to resolve '%s': %w", host, err)
		return
	}
	ip = addr.IP
	return
}
