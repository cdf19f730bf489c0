package xsk

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// newXDPSocket opens a raw AF_XDP socket. Every UMEM and every XSK socket
// sharing it starts from one of these.
func newXDPSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_XDP, unix.SOCK_RAW, 0)
	if err != nil {
		return -1, fmt.Errorf("%w: socket(AF_XDP): %v", ErrSocketCreateFailed, err)
	}
	return fd, nil
}

// registerUmem registers the frame pool's backing memory with fd via
// XDP_UMEM_REG and sizes its fill/completion rings.
func registerUmem(fd int, pool *FramePool, fillSize, compSize uint32) error {
	base := pool.Base()
	reg := unix.XDPUmemReg{
		Addr: uint64(uintptr(unsafe.Pointer(&base[0]))),
		Len:  uint64(len(base)),
		Size: pool.FrameSize(),
	}

	if err := unix.SetsockoptXDPUmemReg(fd, unix.SOL_XDP, unix.XDP_UMEM_REG, &reg); err != nil {
		return fmt.Errorf("%w: XDP_UMEM_REG: %v", ErrUmemCreateFailed, err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_XDP, unix.XDP_UMEM_FILL_RING, int(fillSize)); err != nil {
		return fmt.Errorf("%w: XDP_UMEM_FILL_RING: %v", ErrUmemCreateFailed, err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_XDP, unix.XDP_UMEM_COMPLETION_RING, int(compSize)); err != nil {
		return fmt.Errorf("%w: XDP_UMEM_COMPLETION_RING: %v", ErrUmemCreateFailed, err)
	}

	return nil
}

// setRingSizes sizes the RX and TX descriptor rings of an XSK socket fd.
func setRingSizes(fd int, rxSize, txSize uint32) error {
	if rxSize > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_XDP, unix.XDP_RX_RING, int(rxSize)); err != nil {
			return fmt.Errorf("%w: XDP_RX_RING: %v", ErrSocketCreateFailed, err)
		}
	}
	if txSize > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_XDP, unix.XDP_TX_RING, int(txSize)); err != nil {
			return fmt.Errorf("%w: XDP_TX_RING: %v", ErrSocketCreateFailed, err)
		}
	}
	return nil
}

// mmapOffsets fetches the kernel-computed byte offsets of each ring's
// producer/consumer/flags/descriptor-array fields within its mmap region.
func mmapOffsets(fd int) (*unix.XDPMmapOffsets, error) {
	off, err := unix.GetsockoptXDPMmapOffsets(fd, unix.SOL_XDP, unix.XDP_MMAP_OFFSETS)
	if err != nil {
		return nil, fmt.Errorf("%w: XDP_MMAP_OFFSETS: %v", ErrSocketCreateFailed, err)
	}
	return off, nil
}

// mmapRing maps one ring's region (fill, completion, RX or TX) given its
// descriptor offset/size and number of descriptors.
func mmapRing(fd int, pgoff int64, off unix.XDPRingOffset, numDescs uint32, elemSize uintptr) ([]byte, error) {
	length := int(off.Desc) + int(numDescs)*int(elemSize)
	mem, err := unix.Mmap(fd, pgoff, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap ring: %v", ErrSocketCreateFailed, err)
	}
	return mem, nil
}

// bindXDP binds fd to ifIndex/queueID, optionally sharing another socket's
// UMEM registration (sharedUmemFD >= 0).
func bindXDP(fd int, ifIndex, queueID uint32, bindFlags uint16, sharedUmemFD int) error {
	sa := &unix.SockaddrXDP{
		Ifindex:  ifIndex,
		QueueID:  queueID,
		Flags:    uint32(bindFlags),
	}
	if sharedUmemFD >= 0 {
		sa.Flags |= unix.XDP_SHARED_UMEM
		sa.SharedUmemFD = uint32(sharedUmemFD)
	}

	if err := unix.Bind(fd, sa); err != nil {
		return fmt.Errorf("%w: bind: %v", ErrSocketCreateFailed, err)
	}
	return nil
}
