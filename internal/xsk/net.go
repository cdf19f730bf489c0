package xsk

import "sync"

// Net is implemented by whatever protocol layer sits above the data path
// (here, the netstack package). RxPacket is called once per received
// descriptor; the descriptor's frame is released back to the pool by the
// RX loop once every descriptor of the batch has been handled.
type Net interface {
	RxPacket(desc Desc) error
}

// NetAllocator is the callback signature xsk expects in order to build a
// new Net object once a TxSocket is ready to be wrapped in a Handle.
type NetAllocator func(h *Handle) Net

// Handle exposes the minimal TX surface of a socket to the protocol layer,
// keeping it from reaching into ring/UMEM internals. Its mutex serializes
// TX access across goroutines: a socket's RX loop sends synchronously, but
// an App may also send later from a goroutine of its own (e.g. a delayed
// repeated reply), and the TX ring/ready-bitmap aren't safe for concurrent
// use without it.
type Handle struct {
	mu sync.Mutex
	tx *TxSocket
}

// NewHandle wraps tx in a Handle.
func NewHandle(tx *TxSocket) *Handle {
	return &Handle{tx: tx}
}

// Config returns the configuration associated with the handle's socket.
func (h *Handle) Config() *Config {
	return h.tx.config
}

// NextTxSlot reserves and returns the next TX descriptor.
func (h *Handle) NextTxSlot() (Desc, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tx.NextTxSlot()
}

// TX marks desc ready for transmission and flushes whatever consecutive
// run of ready slots that completes, from the front of the ring.
func (h *Handle) TX(desc Desc) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tx.TX(desc)
}
