package netstack

import (
	"encoding/binary"
	"fmt"
	"net"
)

// UdpHdrSize is the length of a UDP header.
const UdpHdrSize = 8

// UdpHdr is a mutable view over an 8-byte UDP header.
type UdpHdr []byte

// UdpHdrFromBuf consumes UdpHdrSize bytes from buf and wraps them as a
// UdpHdr aliasing the frame.
func UdpHdrFromBuf(buf *Buf) (UdpHdr, error) {
	b, err := buf.GetBytes(UdpHdrSize)
	if err != nil {
		return nil, err
	}
	return UdpHdr(b), nil
}

// NewUdpHdr consumes UdpHdrSize bytes from buf and zeroes the checksum
// field — this stack never computes a UDP checksum unless explicitly
// configured to (see Config.UDPChecksum), matching a zero checksum being
// valid per RFC 768 over IPv4.
func NewUdpHdr(buf *Buf) (UdpHdr, error) {
	h, err := UdpHdrFromBuf(buf)
	if err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint16(h[6:8], 0)
	return h, nil
}

func (h UdpHdr) SrcPort() uint16 { return binary.BigEndian.Uint16(h[0:2]) }
func (h UdpHdr) DstPort() uint16 { return binary.BigEndian.Uint16(h[2:4]) }
func (h UdpHdr) Length() uint16  { return binary.BigEndian.Uint16(h[4:6]) }
func (h UdpHdr) Checksum() uint16 { return binary.BigEndian.Uint16(h[6:8]) }

func (h UdpHdr) SetSrcPort(v uint16) UdpHdr {
	binary.BigEndian.PutUint16(h[0:2], v)
	return h
}

func (h UdpHdr) SetDstPort(v uint16) UdpHdr {
	binary.BigEndian.PutUint16(h[2:4], v)
	return h
}

func (h UdpHdr) SetLength(v uint16) UdpHdr {
	binary.BigEndian.PutUint16(h[4:6], v)
	return h
}

func (h UdpHdr) SetChecksum(v uint16) UdpHdr {
	binary.BigEndian.PutUint16(h[6:8], v)
	return h
}

// udpChecksum computes the UDP checksum over the IPv4 pseudo-header plus
// segment (header+payload), by hand rather than through gvisor's header
// package: unlike the flat 20-byte IPv4 header gvisor's CalculateChecksum
// expects, a UDP pseudo-header is assembled from fields that live in the
// IPv4 header, not the UDP segment itself, and doesn't map onto this
// stack's in-place byte-cursor headers without first copying them out.
func udpChecksum(srcIP, dstIP net.IP, segment []byte) uint16 {
	src := srcIP.To4()
	dst := dstIP.To4()

	var sum uint32
	sum += uint32(src[0])<<8 | uint32(src[1])
	sum += uint32(src[2])<<8 | uint32(src[3])
	sum += uint32(dst[0])<<8 | uint32(dst[1])
	sum += uint32(dst[2])<<8 | uint32(dst[3])
	sum += uint32(IpProtoUDP)
	sum += uint32(len(segment))

	for i := 0; i+1 < len(segment); i += 2 {
		sum += uint32(segment[i])<<8 | uint32(segment[i+1])
	}
	if len(segment)%2 == 1 {
		sum += uint32(segment[len(segment)-1]) << 8
	}

	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}

	csum := ^uint16(sum)
	if csum == 0 {
		csum = 0xffff
	}
	return csum
}

func (h UdpHdr) String() string {
	return fmt.Sprintf("UdpHdr{src: %d, dst: %d, len: %d, sum: 0x%04x}",
		h.SrcPort(), h.DstPort(), h.Length(), h.Checksum())
}
