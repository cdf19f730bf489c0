// Package netstack implements a minimal, zero-copy Ethernet/ARP/IPv4/UDP
// stack over raw frames handed up from an AF_XDP socket.
package netstack

import (
	"encoding/binary"
	"errors"
)

// ErrNotEnoughBytes is returned when a Buf read would run past the end of
// its backing frame.
var ErrNotEnoughBytes = errors.New("netstack: not enough bytes remaining in frame")

// ErrInvalidSeekPos is returned by Seek when the requested offset is past
// the end of the backing frame.
var ErrInvalidSeekPos = errors.New("netstack: seek position past end of frame")

// Buf is a cursor over a single UMEM frame. Get* calls advance the cursor
// and return a window directly into the frame's backing array — no copies
// — so headers parsed or written through Buf alias the frame itself.
type Buf struct {
	buf    []byte
	offset int
	length int
}

// NewBuf wraps buf in a fresh Buf positioned at offset 0.
func NewBuf(buf []byte) *Buf {
	return &Buf{buf: buf}
}

// Offset returns the cursor's current position.
func (b *Buf) Offset() int {
	return b.offset
}

// Len returns the high-water mark reached by the cursor so far — the
// logical length of the packet written or parsed through this Buf.
func (b *Buf) Len() int {
	return b.length
}

// AsSlice returns the portion of the backing frame covered by the cursor's
// high-water mark.
func (b *Buf) AsSlice() []byte {
	return b.buf[:b.length]
}

// Seek repositions the cursor to offset. Seeking past the current
// high-water mark raises Len() to offset; seeking back leaves Len() as is.
func (b *Buf) Seek(offset int) error {
	if offset > len(b.buf) {
		return ErrInvalidSeekPos
	}
	b.offset = offset
	if offset > b.length {
		b.length = offset
	}
	return nil
}

// PeekBytes returns the next n bytes without advancing the cursor.
func (b *Buf) PeekBytes(n int) ([]byte, error) {
	if b.offset+n > len(b.buf) {
		return nil, ErrNotEnoughBytes
	}
	return b.buf[b.offset : b.offset+n], nil
}

// GetBytes returns the next n bytes and advances the cursor past them.
func (b *Buf) GetBytes(n int) ([]byte, error) {
	s, err := b.PeekBytes(n)
	if err != nil {
		return nil, err
	}
	b.advance(n)
	return s, nil
}

func (b *Buf) advance(n int) {
	b.offset += n
	if b.offset > b.length {
		b.length = b.offset
	}
}

// GetU8 reads and advances past one byte.
func (b *Buf) GetU8() (uint8, error) {
	s, err := b.GetBytes(1)
	if err != nil {
		return 0, err
	}
	return s[0], nil
}

// GetBE16 reads and advances past a big-endian uint16.
func (b *Buf) GetBE16() (uint16, error) {
	s, err := b.GetBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(s), nil
}

// GetBE32 reads and advances past a big-endian uint32.
func (b *Buf) GetBE32() (uint32, error) {
	s, err := b.GetBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(s), nil
}
