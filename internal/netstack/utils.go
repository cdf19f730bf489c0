package netstack

import (
	"fmt"
	"net"
	"strings"
)

func macToString(addr [6]byte) string {
	parts := make([]string, 6)
	for i, b := range addr {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}

// interfaceMAC returns the hardware address of the named interface.
func interfaceMAC(iface string) ([6]byte, error) {
	var mac [6]byte

	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return mac, err
	}
	if len(ifi.HardwareAddr) != 6 {
		return mac, fmt.Errorf("netstack: interface %q has no ethernet hardware address", iface)
	}
	copy(mac[:], ifi.HardwareAddr)

	return mac, nil
}
