package netstack

import (
	"encoding/binary"
	"fmt"
	"net"
)

// ArpOpcode distinguishes ARP requests from replies.
type ArpOpcode uint16

const (
	ArpRequest ArpOpcode = 0x1
	ArpReply   ArpOpcode = 0x2
)

const htypeEthernet = 0x1

// ArpHdrSize is the length of an ARP header for IPv4-over-Ethernet.
const ArpHdrSize = 28

// ArpHdr is a mutable view over a 28-byte ARP header (hw_type=Ethernet,
// proto_type=IPv4 layout: 6-byte hardware addresses, 4-byte protocol
// addresses).
type ArpHdr []byte

// ArpHdrFromBuf consumes ArpHdrSize bytes from buf and wraps them as an
// ArpHdr aliasing the frame.
func ArpHdrFromBuf(buf *Buf) (ArpHdr, error) {
	b, err := buf.GetBytes(ArpHdrSize)
	if err != nil {
		return nil, err
	}
	return ArpHdr(b), nil
}

func (h ArpHdr) HwType() uint16        { return binary.BigEndian.Uint16(h[0:2]) }
func (h ArpHdr) ProtoType() uint16     { return binary.BigEndian.Uint16(h[2:4]) }
func (h ArpHdr) HwAddrLen() uint8      { return h[4] }
func (h ArpHdr) ProtoAddrLen() uint8   { return h[5] }
func (h ArpHdr) Opcode() ArpOpcode     { return ArpOpcode(binary.BigEndian.Uint16(h[6:8])) }

func (h ArpHdr) SenderHwAddr() [6]byte {
	var a [6]byte
	copy(a[:], h[8:14])
	return a
}

func (h ArpHdr) SenderProtoAddr() [4]byte {
	var a [4]byte
	copy(a[:], h[14:18])
	return a
}

func (h ArpHdr) TargetHwAddr() [6]byte {
	var a [6]byte
	copy(a[:], h[18:24])
	return a
}

func (h ArpHdr) TargetProtoAddr() [4]byte {
	var a [4]byte
	copy(a[:], h[24:28])
	return a
}

// SetArpReplyIP sets the fixed fields of an IPv4-over-Ethernet ARP reply:
// hw_type, proto_type, address lengths, and opcode.
func (h ArpHdr) SetArpReplyIP() ArpHdr {
	binary.BigEndian.PutUint16(h[0:2], htypeEthernet)
	binary.BigEndian.PutUint16(h[2:4], uint16(EthTypeIP4))
	h[4] = 6
	h[5] = 4
	binary.BigEndian.PutUint16(h[6:8], uint16(ArpReply))
	return h
}

func (h ArpHdr) SetSenderHwAddr(a [6]byte) ArpHdr {
	copy(h[8:14], a[:])
	return h
}

func (h ArpHdr) SetSenderProtoAddr(a [4]byte) ArpHdr {
	copy(h[14:18], a[:])
	return h
}

func (h ArpHdr) SetTargetHwAddr(a [6]byte) ArpHdr {
	copy(h[18:24], a[:])
	return h
}

func (h ArpHdr) SetTargetProtoAddr(a [4]byte) ArpHdr {
	copy(h[24:28], a[:])
	return h
}

func (h ArpHdr) String() string {
	sp := h.SenderProtoAddr()
	tp := h.TargetProtoAddr()
	return fmt.Sprintf("ArpHdr{op: %d, sender: %s(%s), target: %s(%s)}",
		h.Opcode(), macToString(h.SenderHwAddr()), net.IP(sp[:]),
		macToString(h.TargetHwAddr()), net.IP(tp[:]))
}
