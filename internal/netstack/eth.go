package netstack

import (
	"encoding/binary"
	"fmt"
)

// EthType identifies the protocol carried in an Ethernet frame's payload.
type EthType uint16

const (
	EthTypeIP4 EthType = 0x0800
	EthTypeARP EthType = 0x0806
)

// EthHdrSize is the length of a fixed (untagged) Ethernet header.
const EthHdrSize = 14

// EthHdr is a mutable view over the 14-byte Ethernet header of a frame.
type EthHdr []byte

// EthHdrFromBuf consumes EthHdrSize bytes from buf and wraps them as an
// EthHdr aliasing the frame.
func EthHdrFromBuf(buf *Buf) (EthHdr, error) {
	b, err := buf.GetBytes(EthHdrSize)
	if err != nil {
		return nil, err
	}
	return EthHdr(b), nil
}

func (h EthHdr) DstAddress() [6]byte {
	var a [6]byte
	copy(a[:], h[0:6])
	return a
}

func (h EthHdr) SrcAddress() [6]byte {
	var a [6]byte
	copy(a[:], h[6:12])
	return a
}

func (h EthHdr) Type() EthType {
	return EthType(binary.BigEndian.Uint16(h[12:14]))
}

func (h EthHdr) SetDstAddress(a [6]byte) EthHdr {
	copy(h[0:6], a[:])
	return h
}

func (h EthHdr) SetSrcAddress(a [6]byte) EthHdr {
	copy(h[6:12], a[:])
	return h
}

func (h EthHdr) SetARP() EthHdr {
	binary.BigEndian.PutUint16(h[12:14], uint16(EthTypeARP))
	return h
}

func (h EthHdr) SetIP4() EthHdr {
	binary.BigEndian.PutUint16(h[12:14], uint16(EthTypeIP4))
	return h
}

func (h EthHdr) String() string {
	return fmt.Sprintf("EthHdr{dst: %s, src: %s, type: 0x%04x}",
		macToString(h.DstAddress()), macToString(h.SrcAddress()), uint16(h.Type()))
}
