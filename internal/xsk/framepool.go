package xsk

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// FramePool is the UMEM-backed memory area, sliced into fixed-size frames
// and handed out as numeric addresses (byte offsets into the mmap'd
// region), the same indirection AF_XDP rings use to reference packet
// buffers without copying them.
type FramePool struct {
	mem       []byte
	frameSize uint32

	mu       sync.Mutex
	freeList []uint64
}

// NewFramePool mmaps an anonymous, page-aligned region big enough for
// numFrames frames of frameSize bytes each and seeds the free list so that
// the first allocations hand out ascending addresses (0, frameSize,
// 2*frameSize, ...).
func NewFramePool(numFrames int, frameSize uint32) (*FramePool, error) {
	if numFrames <= 0 || frameSize == 0 {
		return nil, fmt.Errorf("%w: invalid frame pool geometry", ErrInvalidConfig)
	}

	total := int(frameSize) * numFrames
	mem, err := unix.Mmap(-1, 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameAllocFailed, err)
	}

	freeList := make([]uint64, numFrames)
	for i := 0; i < numFrames; i++ {
		// Reverse order so a pop() yields ascending addresses, matching the
		// allocation order the rest of the data path assumes when priming
		// the fill ring.
		freeList[numFrames-1-i] = uint64(i) * uint64(frameSize)
	}

	return &FramePool{
		mem:       mem,
		frameSize: frameSize,
		freeList:  freeList,
	}, nil
}

// Close unmaps the pool's backing memory. Must only be called once every
// ring referencing the pool has been torn down.
func (p *FramePool) Close() error {
	return unix.Munmap(p.mem)
}

// Base returns the start of the mmap'd UMEM region, used when registering
// it with the kernel via XDP_UMEM_REG.
func (p *FramePool) Base() []byte {
	return p.mem
}

// FrameSize returns the fixed size of every frame in the pool.
func (p *FramePool) FrameSize() uint32 {
	return p.frameSize
}

// Alloc pops a free frame address, or false if the pool is exhausted.
func (p *FramePool) Alloc() (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.freeList)
	if n == 0 {
		return 0, false
	}

	addr := p.freeList[n-1]
	p.freeList = p.freeList[:n-1]
	return addr, true
}

// Free returns a frame address to the pool.
func (p *FramePool) Free(addr uint64) {
	p.mu.Lock()
	p.freeList = append(p.freeList, addr)
	p.mu.Unlock()
}

// FreeBatch returns many frame addresses to the pool in one locked pass,
// avoiding a lock acquisition per descriptor when releasing processed RX
// descriptors.
func (p *FramePool) FreeBatch(addrs []uint64) {
	if len(addrs) == 0 {
		return
	}
	p.mu.Lock()
	p.freeList = append(p.freeList, addrs...)
	p.mu.Unlock()
}

// Frame returns the byte slice backing the frame at addr, bounded by len
// bytes (the descriptor's reported length).
func (p *FramePool) Frame(addr uint64, length uint32) []byte {
	start := int(addr)
	end := start + int(length)
	if start < 0 || end > len(p.mem) || end < start {
		return nil
	}
	return p.mem[start:end]
}

// FrameCap returns the full frame-sized byte slice at addr, for callers
// (like the TX path) that need to write past the eventual descriptor
// length before it is known.
func (p *FramePool) FrameCap(addr uint64) []byte {
	return p.Frame(addr, p.frameSize)
}
