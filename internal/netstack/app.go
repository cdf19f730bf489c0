package netstack

import (
	"net"

	"github.com/jibi/hydrogen-peroxide/internal/xsk"
)

// App receives UDP payloads delivered by the stack. Implementations run on
// whatever RX loop goroutine received the packet, so RxPayload must be
// either fast or hand work off elsewhere.
type App interface {
	RxPayload(h Handle, socket Socket, payload []byte) error
}

// AppAllocator builds a new App bound to h, once per socket the xsk layer
// spawns an RX loop for.
type AppAllocator func(h Handle) App

// Socket identifies the remote peer a payload arrived from (or should be
// sent to).
type Socket struct {
	SourceAddress net.IP
	SourcePort    uint16
}

// PayloadBuf is a TX descriptor paired with a cursor seeked past where the
// Ethernet/IPv4/UDP headers will go, ready for an App to write its payload
// starting at the cursor's current offset.
type PayloadBuf struct {
	desc xsk.Desc
	buf  *Buf
}

// Buf returns the cursor an App writes its payload bytes through.
func (p *PayloadBuf) Buf() *Buf {
	return p.buf
}

// Handle is the surface NetStack exposes to an App: obtain a fresh TX
// buffer, and hand a filled one back to be wrapped in headers and sent.
type Handle interface {
	NewTxPayloadBuf() (*PayloadBuf, error)
	SendPayload(socket Socket, payload *PayloadBuf) error
}
