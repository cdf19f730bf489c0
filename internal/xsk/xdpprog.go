package xsk

import (
	"encoding/binary"
	"fmt"
	"log"
	"net"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
)

// attachFlags picks the link.XDPAttachFlags matching cfg.Mode.
func attachFlags(mode Mode) link.XDPAttachFlags {
	switch mode {
	case ModeDrv:
		return link.XDPDriverMode
	case ModeDrvZeroCopy:
		return link.XDPDriverMode
	default:
		return link.XDPGenericMode
	}
}

// XdpProg owns the lifecycle of the XDP program attached to an interface:
// load, populate its maps with the sockets it should redirect into, and
// detach on Close.
type XdpProg struct {
	coll *ebpf.Collection
	link link.Link
}

// LoadXdpProg loads the compiled XDP object at cfg.XDPProgPath, attaches its
// "xdp/prog" program to cfg.Interface, and populates xsks_map with the fds
// of sockets (one entry per socket, in queue order), plus the socks_per_queue_map/bind_addr_map/
// bind_port_map maps the program consults to decide which packets to steer
// to userspace.
func LoadXdpProg(cfg *Config, sockets []*Socket) (*XdpProg, error) {
	ifi, err := net.InterfaceByName(cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("%w: interface %q: %v", ErrBpfProgLoadFailed, cfg.Interface, err)
	}

	spec, err := ebpf.LoadCollectionSpec(cfg.XDPProgPath)
	if err != nil {
		return nil, fmt.Errorf("%w: loading %q: %v", ErrBpfProgLoadFailed, cfg.XDPProgPath, err)
	}

	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBpfProgLoadFailed, err)
	}

	prog := coll.Programs["prog"]
	if prog == nil {
		coll.Close()
		return nil, fmt.Errorf("%w: program %q not found in %q", ErrBpfProgLoadFailed, "xdp/prog", cfg.XDPProgPath)
	}

	if err := populateMaps(coll, cfg, sockets); err != nil {
		coll.Close()
		return nil, err
	}

	l, err := link.AttachXDP(link.XDPOptions{
		Program:   prog,
		Interface: ifi.Index,
		Flags:     attachFlags(cfg.Mode),
	})
	if err != nil && cfg.Mode == ModeDrv {
		// Driver mode needs native XDP support from the NIC driver; fall
		// back to the generic (skb) mode rather than failing startup.
		log.Printf("xsk: driver-mode XDP attach failed (%v), falling back to generic mode", err)
		l, err = link.AttachXDP(link.XDPOptions{
			Program:   prog,
			Interface: ifi.Index,
			Flags:     link.XDPGenericMode,
		})
	}
	if err != nil {
		coll.Close()
		return nil, fmt.Errorf("%w: %v", ErrBpfAttachFailed, err)
	}

	return &XdpProg{coll: coll, link: l}, nil
}

func populateMaps(coll *ebpf.Collection, cfg *Config, sockets []*Socket) error {
	xsksMap, ok := coll.Maps["xsks_map"]
	if !ok {
		return fmt.Errorf("%w: xsks_map", ErrMapNotFound)
	}
	for i, sock := range sockets {
		if err := xsksMap.Update(uint32(i), uint32(sock.FD()), ebpf.UpdateAny); err != nil {
			return fmt.Errorf("%w: xsks_map[%d]: %v", ErrMapUpdateFailed, i, err)
		}
	}

	socksPerQueueMap, ok := coll.Maps["socks_per_queue_map"]
	if !ok {
		return fmt.Errorf("%w: socks_per_queue_map", ErrMapNotFound)
	}
	if err := socksPerQueueMap.Update(uint32(0), uint32(cfg.SocksPerQueue), ebpf.UpdateAny); err != nil {
		return fmt.Errorf("%w: socks_per_queue_map: %v", ErrMapUpdateFailed, err)
	}

	bindAddrMap, ok := coll.Maps["bind_addr_map"]
	if !ok {
		return fmt.Errorf("%w: bind_addr_map", ErrMapNotFound)
	}
	addr := binary.BigEndian.Uint32(cfg.BindAddr.To4())
	if err := bindAddrMap.Update(uint32(0), addr, ebpf.UpdateAny); err != nil {
		return fmt.Errorf("%w: bind_addr_map: %v", ErrMapUpdateFailed, err)
	}

	bindPortMap, ok := coll.Maps["bind_port_map"]
	if !ok {
		return fmt.Errorf("%w: bind_port_map", ErrMapNotFound)
	}
	if err := bindPortMap.Update(uint32(0), uint32(cfg.BindPort), ebpf.UpdateAny); err != nil {
		return fmt.Errorf("%w: bind_port_map: %v", ErrMapUpdateFailed, err)
	}

	return nil
}

// Close detaches the XDP program and releases its collection. Errors are
// logged rather than returned: by the time Close runs, the caller is
// already tearing down and has nothing useful to do with a detach failure.
func (x *XdpProg) Close() {
	if err := x.link.Close(); err != nil {
		log.Printf("xsk: error detaching xdp program: %v", err)
	}
	x.coll.Close()
}
