package netstack

import (
	"log"
	"net"
	"sync"

	"github.com/jibi/hydrogen-peroxide/internal/xsk"
)

// NetStack glues one xsk.Handle to the protocol layer above it: it owns the
// interface's MAC/bind identity, the ARP cache learned passively from
// traffic, and the App that ultimately receives UDP payloads.
type NetStack struct {
	handle *xsk.Handle

	ifaceMAC    [6]byte
	bindAddr    net.IP
	bindPort    uint16
	udpChecksum bool

	arpMu    sync.RWMutex
	arpTable map[[4]byte][6]byte
}

// Net adapts a NetStack to the xsk.Net interface xsk's RX loop calls into.
type Net struct {
	app      App
	netstack *NetStack
}

// NewNet builds a NetStack bound to handle's interface and bind address,
// and constructs its App via appAlloc.
func NewNet(handle *xsk.Handle, appAlloc AppAllocator) (*Net, error) {
	cfg := handle.Config()

	mac, err := interfaceMAC(cfg.Interface)
	if err != nil {
		return nil, err
	}

	ns := &NetStack{
		handle:      handle,
		ifaceMAC:    mac,
		bindAddr:    cfg.BindAddr,
		bindPort:    cfg.BindPort,
		udpChecksum: cfg.UDPChecksum,
		arpTable:    make(map[[4]byte][6]byte),
	}

	return &Net{app: appAlloc(ns), netstack: ns}, nil
}

// RxPacket implements xsk.Net: it's called once per received descriptor by
// the owning socket's RX loop.
func (n *Net) RxPacket(desc xsk.Desc) error {
	return n.doRxPacket(desc)
}

func ipKey(ip net.IP) [4]byte {
	var k [4]byte
	copy(k[:], ip.To4())
	return k
}

func (ns *NetStack) learnArp(ip net.IP, mac [6]byte) {
	ns.arpMu.Lock()
	ns.arpTable[ipKey(ip)] = mac
	ns.arpMu.Unlock()
}

func (ns *NetStack) lookupArp(ip net.IP) ([6]byte, bool) {
	ns.arpMu.RLock()
	mac, ok := ns.arpTable[ipKey(ip)]
	ns.arpMu.RUnlock()
	return mac, ok
}

// NetAllocator adapts an AppAllocator into the xsk.NetAllocator signature
// xsk.New expects, wiring a fresh NetStack/Net pair in for every socket.
func NetAllocator(appAlloc AppAllocator) xsk.NetAllocator {
	return func(h *xsk.Handle) xsk.Net {
		n, err := NewNet(h, appAlloc)
		if err != nil {
			log.Fatalf("netstack: %v", err)
		}
		return n
	}
}
