package xsk

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Umem owns one queue's frame pool together with its fill ring (addresses
// handed to the kernel to receive into) and completion ring (addresses the
// kernel hands back once transmitted). It is shared by every socket bound
// to the same queue, so the methods that touch the rings
// (ReclaimFillRing, ReclaimCompletionRing) take the UMEM-wide lock.
type Umem struct {
	pool *FramePool
	fd   int

	mu sync.Mutex
	fq prodRing
	cq consRing

	needsWakeup bool
}

// umemSize mirrors the reference sizing formula: enough frames for every
// socket sharing the queue to have a full RX and TX ring's worth.
func umemSize(cfg *Config) (rxTotal, txTotal uint32) {
	return cfg.RxRingSize * uint32(cfg.SocksPerQueue), cfg.TxRingSize * uint32(cfg.SocksPerQueue)
}

// NewUmem creates the frame pool for one queue, opens the dedicated UMEM
// socket, registers the pool with the kernel, and primes the fill ring so
// the kernel can start receiving immediately.
func NewUmem(cfg *Config) (*Umem, error) {
	rxTotal, txTotal := umemSize(cfg)

	pool, err := NewFramePool(int(rxTotal+txTotal), cfg.FrameSize)
	if err != nil {
		return nil, err
	}

	fd, err := newXDPSocket()
	if err != nil {
		pool.Close()
		return nil, err
	}

	if err := registerUmem(fd, pool, rxTotal, txTotal); err != nil {
		unix.Close(fd)
		pool.Close()
		return nil, err
	}

	off, err := mmapOffsets(fd)
	if err != nil {
		unix.Close(fd)
		pool.Close()
		return nil, err
	}

	fqMem, err := mmapRing(fd, unix.XDP_UMEM_PGOFF_FILL_RING, off.Fr, rxTotal, addrElemSize)
	if err != nil {
		unix.Close(fd)
		pool.Close()
		return nil, err
	}

	cqMem, err := mmapRing(fd, unix.XDP_UMEM_PGOFF_COMPLETION_RING, off.Cr, txTotal, addrElemSize)
	if err != nil {
		unix.Close(fd)
		pool.Close()
		return nil, err
	}

	u := &Umem{
		pool:        pool,
		fd:          fd,
		fq:          newProdRing(fqMem, off.Fr, rxTotal, addrElemSize),
		cq:          newConsRing(cqMem, off.Cr, txTotal, addrElemSize),
		needsWakeup: cfg.NeedsWakeup,
	}

	if err := u.primeFillRing(rxTotal); err != nil {
		unix.Close(fd)
		pool.Close()
		return nil, err
	}

	return u, nil
}

func (u *Umem) primeFillRing(n uint32) error {
	idx, ok := u.fq.reserve(n)
	if !ok {
		return fmt.Errorf("%w: could not reserve %d fill descriptors", ErrFillRingReserve, n)
	}

	for i := uint32(0); i < n; i++ {
		addr, ok := u.pool.Alloc()
		if !ok {
			return fmt.Errorf("%w: frame pool exhausted while priming fill ring", ErrFillRingReserve)
		}
		*u.fq.addrAt(idx + i) = addr
	}

	u.fq.submit(n)
	return nil
}

// FD returns the file descriptor of the UMEM-owning socket, used as the
// shared-UMEM reference when binding other sockets on the same queue.
func (u *Umem) FD() int {
	return u.fd
}

// Pool exposes the UMEM's frame pool.
func (u *Umem) Pool() *FramePool {
	return u.pool
}

// Close releases the UMEM socket and its frame pool.
func (u *Umem) Close() error {
	unix.Close(u.fd)
	return u.pool.Close()
}

// ReclaimFillRing tops the fill ring back up with num frames, retrying
// (optionally polling the owning socket if needs_wakeup says the kernel
// wants a kick) until the reservation succeeds. num is usually the count
// of RX descriptors just released back to their frames.
func (u *Umem) ReclaimFillRing(pollFn func() error, num uint32) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if num == 0 {
		if u.needsWakeup && u.fq.needsWakeup() && pollFn != nil {
			return pollFn()
		}
		return nil
	}

	if u.fq.free(BatchSize) == 0 {
		return nil
	}

	idx, ok := u.fq.reserve(num)
	for !ok {
		if u.needsWakeup && u.fq.needsWakeup() && pollFn != nil {
			if err := pollFn(); err != nil {
				return err
			}
		}
		idx, ok = u.fq.reserve(num)
	}

	for i := uint32(0); i < num; i++ {
		addr, ok := u.pool.Alloc()
		if !ok {
			// Should not happen: every RX frame about to be reclaimed was
			// freed back into the pool before this call.
			return fmt.Errorf("%w: frame pool exhausted during fill-ring reclaim", ErrFillRingReserve)
		}
		*u.fq.addrAt(idx + i) = addr
	}

	u.fq.submit(num)
	return nil
}

// ReclaimCompletionRing drains up to BatchSize completed TX descriptors.
// Their frames are not returned to the pool: every TX ring slot owns its
// frame permanently (see NewSocket's TX priming), so completion only needs
// to advance the CQ consumer, never to touch the free list.
func (u *Umem) ReclaimCompletionRing() int {
	u.mu.Lock()
	defer u.mu.Unlock()

	_, n := u.cq.peek(BatchSize)
	if n == 0 {
		return 0
	}
	u.cq.release(n)
	return int(n)
}
