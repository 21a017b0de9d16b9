package network

import (
	"fmt"
	"net"
)

// Retrieves the network interface holding a specific local address
func getInterfaceForAddress(address net.IP) (iface *net.Interface, err error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return
	}

	for i := range ifaces {
		addrs, addrErr := ifaces[i].Addrs()
		if addrErr != nil {
			continue
		}

		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if ok && ipNet.IP.Equal(address) {
				iface = &ifaces[i]
				return
			}
		}
	}

	err = fmt.Errorf("no matching interface found for address %v", address)
	return
}
