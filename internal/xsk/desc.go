package xsk

import "golang.org/x/sys/unix"

// Desc wraps one xdp_desc belonging to a ring slot: an address into the
// UMEM frame pool, a length, and the slot's position in its ring.
type Desc struct {
	pool *FramePool
	desc *unix.XDPDesc
	idx  uint32
}

func newDesc(pool *FramePool, desc *unix.XDPDesc, idx uint32) Desc {
	return Desc{pool: pool, desc: desc, idx: idx}
}

// Packet returns the frame's full frame-sized backing byte slice (via
// FrameCap), regardless of the descriptor's current length; slice it to
// Len() to get just the bytes the descriptor covers.
func (d Desc) Packet() []byte {
	return d.pool.FrameCap(d.desc.Addr)
}

// Len returns the descriptor's current length.
func (d Desc) Len() int {
	return int(d.desc.Len)
}

// IsEmpty reports whether the descriptor carries no data.
func (d Desc) IsEmpty() bool {
	return d.desc.Len == 0
}

// SetLen sets the descriptor's length, e.g. after writing a packet into the
// slice returned by Packet() and before transmitting.
func (d Desc) SetLen(n int) {
	d.desc.Len = uint32(n)
}

// Addr returns the descriptor's UMEM frame address.
func (d Desc) Addr() uint64 {
	return d.desc.Addr
}

// Index returns the descriptor's position within its ring.
func (d Desc) Index() uint32 {
	return d.idx
}
