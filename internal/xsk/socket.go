package xsk

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

func bindFlags(cfg *Config) uint16 {
	var flags uint16

	switch cfg.Mode {
	case ModeDrvZeroCopy:
		flags |= unix.XDP_ZEROCOPY
	default:
		flags |= unix.XDP_COPY
	}

	if cfg.NeedsWakeup {
		flags |= unix.XDP_USE_NEED_WAKEUP
	}

	return flags
}

// Socket is one AF_XDP socket bound to a queue, split into its RX and TX
// halves once created — the RX loop and the TX path never need to touch
// each other's ring.
type Socket struct {
	fd int
	rx *RxSocket
	tx *TxSocket
}

// NewSocket creates and binds a new XSK socket on queueID of cfg.Interface,
// sharing umem's registered memory. pipeReaderFD is the read end of the
// runner's shutdown pipe, polled alongside the socket fd so a shutdown
// request wakes a thread blocked in poll().
func NewSocket(cfg *Config, umem *Umem, queueID uint32, pipeReaderFD int) (*Socket, error) {
	ifi, err := net.InterfaceByName(cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("%w: interface %q: %v", ErrSocketCreateFailed, cfg.Interface, err)
	}

	fd, err := newXDPSocket()
	if err != nil {
		return nil, err
	}

	if err := setRingSizes(fd, cfg.RxRingSize, cfg.TxRingSize); err != nil {
		unix.Close(fd)
		return nil, err
	}

	if err := bindXDP(fd, uint32(ifi.Index), queueID, bindFlags(cfg), umem.FD()); err != nil {
		unix.Close(fd)
		return nil, err
	}

	off, err := mmapOffsets(fd)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	rxMem, err := mmapRing(fd, unix.XDP_PGOFF_RX_RING, off.Rx, cfg.RxRingSize, descElemSize)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	txMem, err := mmapRing(fd, unix.XDP_PGOFF_TX_RING, off.Tx, cfg.TxRingSize, descElemSize)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	rx := newConsRing(rxMem, off.Rx, cfg.RxRingSize, descElemSize)
	tx := newProdRing(txMem, off.Tx, cfg.TxRingSize, descElemSize)

	// Prime the TX ring with frames up front, same as the fill ring: every
	// slot needs a backing frame before the first send can use it.
	for i := uint32(0); i < cfg.TxRingSize; i++ {
		addr, ok := umem.Pool().Alloc()
		if !ok {
			unix.Close(fd)
			return nil, fmt.Errorf("%w: frame pool exhausted while priming tx ring", ErrFrameAllocFailed)
		}
		tx.descAt(i).Addr = addr
	}

	s := &Socket{fd: fd}
	s.rx = &RxSocket{
		fd:       fd,
		rx:       rx,
		umem:     umem,
		pollFDs:  []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}, {Fd: int32(pipeReaderFD), Events: unix.POLLIN}},
	}
	s.tx = &TxSocket{
		fd:               fd,
		tx:               tx,
		umem:             umem,
		needsWakeup:      cfg.NeedsWakeup,
		readyForTX:       make([]bool, cfg.TxRingSize),
		config:           cfg,
	}

	return s, nil
}

// FD returns the socket's file descriptor.
func (s *Socket) FD() int { return s.fd }

// RX returns the socket's RX half.
func (s *Socket) RX() *RxSocket { return s.rx }

// TX returns the socket's TX half.
func (s *Socket) TX() *TxSocket { return s.tx }

// Close closes the underlying file descriptor. The RX/TX ring mmaps are
// released by the process exiting or by an explicit Munmap in tests; the
// kernel tears down ring state when the fd is closed.
func (s *Socket) Close() error {
	return unix.Close(s.fd)
}
