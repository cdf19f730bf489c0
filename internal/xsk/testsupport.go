package xsk

import "golang.org/x/sys/unix"

// ringHeaderSize is the size of the producer/consumer/flags region placed
// ahead of the descriptor array in a fabricated ring. Real rings get this
// layout from XDP_MMAP_OFFSETS; test rings lay it out by hand.
const ringHeaderSize = 32

func fabricatedRingOffset() unix.XDPRingOffset {
	return unix.XDPRingOffset{Producer: 0, Consumer: 8, Flags: 16, Desc: ringHeaderSize}
}

func newFabricatedProdRing(numDescs uint32, elemSize uintptr) prodRing {
	mem := make([]byte, ringHeaderSize+int(numDescs)*int(elemSize))
	return newProdRing(mem, fabricatedRingOffset(), numDescs, elemSize)
}

func newFabricatedConsRing(numDescs uint32, elemSize uintptr) consRing {
	mem := make([]byte, ringHeaderSize+int(numDescs)*int(elemSize))
	return newConsRing(mem, fabricatedRingOffset(), numDescs, elemSize)
}

// NewTestHandle builds a Handle around a TxSocket whose TX ring, fill ring
// and completion ring all live in plain process memory instead of a kernel
// mmap, with wakeup gating on (the fabricated rings' flags word is always
// zero, so TX never attempts a real sendto). It lets the protocol
// layer (internal/netstack) exercise NextTxSlot/TX/reclaim against the real
// ring and frame-pool code without a running AF_XDP socket or kernel.
func NewTestHandle(ringSize uint32, frameSize uint32) (*Handle, *FramePool, error) {
	pool, err := NewFramePool(int(ringSize)*2, frameSize)
	if err != nil {
		return nil, nil, err
	}

	umem := &Umem{
		pool:        pool,
		fd:          -1,
		fq:          newFabricatedProdRing(ringSize, addrElemSize),
		cq:          newFabricatedConsRing(ringSize, addrElemSize),
		needsWakeup: false,
	}

	tx := newFabricatedProdRing(ringSize, descElemSize)
	readyForTX := make([]bool, ringSize)
	for i := uint32(0); i < ringSize; i++ {
		addr, ok := pool.Alloc()
		if !ok {
			return nil, nil, ErrFrameAllocFailed
		}
		tx.descAt(i).Addr = addr
	}

	txSocket := &TxSocket{
		fd:          -1,
		tx:          tx,
		umem:        umem,
		needsWakeup: true,
		readyForTX:  readyForTX,
		config:      &Config{},
	}

	return NewHandle(txSocket), pool, nil
}

// SentFrame returns the bytes marked for transmission in TX ring slot i —
// its permanently bound frame's backing buffer, trimmed to the descriptor's
// length — for tests built against NewTestHandle to inspect what a send
// actually wrote to the wire.
func SentFrame(h *Handle, slot uint32) []byte {
	d := h.tx.tx.descAt(slot)
	return h.tx.umem.pool.Frame(d.Addr, d.Len)
}

// NewTestDesc allocates one frame from pool and wraps it in a Desc, for
// tests that need to hand a received packet to a Net implementation without
// a real RX ring. The ring-index field is always 0: nothing in the receive
// path keys off it, only the TX path does.
func NewTestDesc(pool *FramePool) (Desc, error) {
	addr, ok := pool.Alloc()
	if !ok {
		return Desc{}, ErrFrameAllocFailed
	}
	desc := &unix.XDPDesc{Addr: addr}
	return newDesc(pool, desc, 0), nil
}
