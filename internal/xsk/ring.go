package xsk

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ringMem is the mmap'd region backing one AF_XDP ring (fill, completion,
// RX or TX). The kernel and this process both read and write the producer,
// consumer and descriptor-array portions of the same page, so every access
// to producer/consumer/flags goes through sync/atomic instead of a plain
// load/store: that is what gives us the acquire/release semantics libbpf
// gets from explicit memory fences around the same fields.
type ringMem struct {
	mem      []byte
	mask     uint32
	size     uint32
	producer *uint32
	consumer *uint32
	flags    *uint32
	descOff  uintptr
}

func newRingMem(mem []byte, off unix.XDPRingOffset, numDescs uint32) ringMem {
	base := unsafe.Pointer(&mem[0])
	return ringMem{
		mem:      mem,
		mask:     numDescs - 1,
		size:     numDescs,
		producer: (*uint32)(unsafe.Add(base, uintptr(off.Producer))),
		consumer: (*uint32)(unsafe.Add(base, uintptr(off.Consumer))),
		flags:    (*uint32)(unsafe.Add(base, uintptr(off.Flags))),
		descOff:  uintptr(off.Desc),
	}
}

func (r *ringMem) descPtr(idx uint32, elemSize uintptr) unsafe.Pointer {
	base := unsafe.Pointer(&r.mem[0])
	off := r.descOff + uintptr(idx&r.mask)*elemSize
	return unsafe.Add(base, off)
}

// prodRing is the producer side of a ring: the fill ring (addresses handed
// to the kernel to receive into) or the TX ring (descriptors handed to the
// kernel to transmit).
type prodRing struct {
	ring       ringMem
	elemSize   uintptr
	cachedProd uint32
	cachedCons uint32
}

func newProdRing(mem []byte, off unix.XDPRingOffset, numDescs uint32, elemSize uintptr) prodRing {
	r := prodRing{ring: newRingMem(mem, off, numDescs), elemSize: elemSize}
	r.cachedProd = atomic.LoadUint32(r.ring.producer)
	r.cachedCons = atomic.LoadUint32(r.ring.consumer) + numDescs
	return r
}

// free reports how many descriptors can currently be reserved, refreshing
// the cached consumer index from shared memory if the cheap local count
// isn't enough (mirrors xsk_prod_nb_free).
func (r *prodRing) free(nb uint32) uint32 {
	freeEntries := r.cachedCons - r.cachedProd
	if freeEntries >= nb {
		return freeEntries
	}

	r.cachedCons = atomic.LoadUint32(r.ring.consumer) + r.ring.size
	return r.cachedCons - r.cachedProd
}

// reserve reserves nb descriptors and returns the index of the first one.
func (r *prodRing) reserve(nb uint32) (idx uint32, ok bool) {
	if r.free(nb) < nb {
		return 0, false
	}
	idx = r.cachedProd
	r.cachedProd += nb
	return idx, true
}

// submit makes nb previously-reserved descriptors visible to the kernel.
func (r *prodRing) submit(nb uint32) {
	atomic.AddUint32(r.ring.producer, nb)
}

// needsWakeup reports whether the kernel asked for an explicit
// sendto()/poll() kick before it will look at this ring again.
func (r *prodRing) needsWakeup() bool {
	return atomic.LoadUint32(r.ring.flags)&unix.XDP_RING_NEED_WAKEUP != 0
}

func (r *prodRing) addrAt(idx uint32) *uint64 {
	return (*uint64)(r.ring.descPtr(idx, r.elemSize))
}

func (r *prodRing) descAt(idx uint32) *unix.XDPDesc {
	return (*unix.XDPDesc)(r.ring.descPtr(idx, r.elemSize))
}

// consRing is the consumer side of a ring: the completion ring (addresses
// the kernel is done transmitting) or the RX ring (descriptors of newly
// received packets).
type consRing struct {
	ring       ringMem
	elemSize   uintptr
	cachedProd uint32
	cachedCons uint32
}

func newConsRing(mem []byte, off unix.XDPRingOffset, numDescs uint32, elemSize uintptr) consRing {
	r := consRing{ring: newRingMem(mem, off, numDescs), elemSize: elemSize}
	r.cachedProd = atomic.LoadUint32(r.ring.producer)
	r.cachedCons = atomic.LoadUint32(r.ring.consumer)
	return r
}

// avail reports how many descriptors are available to consume, capped at
// nb, refreshing the cached producer index if the local count is stale.
func (r *consRing) avail(nb uint32) uint32 {
	entries := r.cachedProd - r.cachedCons
	if entries == 0 {
		r.cachedProd = atomic.LoadUint32(r.ring.producer)
		entries = r.cachedProd - r.cachedCons
	}
	if entries > nb {
		return nb
	}
	return entries
}

// peek returns the index of the first available descriptor and how many
// are available, up to nb.
func (r *consRing) peek(nb uint32) (idx uint32, n uint32) {
	n = r.avail(nb)
	if n > 0 {
		idx = r.cachedCons
		r.cachedCons += n
	}
	return idx, n
}

// release returns nb consumed descriptors to the kernel.
func (r *consRing) release(nb uint32) {
	atomic.AddUint32(r.ring.consumer, nb)
}

func (r *consRing) addrAt(idx uint32) *uint64 {
	return (*uint64)(r.ring.descPtr(idx, r.elemSize))
}

func (r *consRing) descAt(idx uint32) *unix.XDPDesc {
	return (*unix.XDPDesc)(r.ring.descPtr(idx, r.elemSize))
}

const (
	addrElemSize = unsafe.Sizeof(uint64(0))
	descElemSize = unsafe.Sizeof(unix.XDPDesc{})
)
