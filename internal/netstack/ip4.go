package netstack

import (
	"encoding/binary"
	"fmt"
	"net"

	"gvisor.dev/gvisor/pkg/tcpip/header"
)

// IpProto identifies the transport protocol carried by an IPv4 packet.
type IpProto uint8

const IpProtoUDP IpProto = 17

const ip4Version = 4

// IpFlags are the three flag bits of the IPv4 flags/fragment-offset field.
type IpFlags uint8

const (
	IpFlagReserved     IpFlags = 1
	IpFlagDontFragment IpFlags = 2
	IpFlagMoreFragment IpFlags = 4
)

// Ip4HdrSize is the length of an IPv4 header with no options.
const Ip4HdrSize = 20

// Ip4Hdr is a mutable view over a 20-byte, option-free IPv4 header.
type Ip4Hdr []byte

// Ip4HdrFromBuf consumes Ip4HdrSize bytes from buf and wraps them as an
// Ip4Hdr aliasing the frame.
func Ip4HdrFromBuf(buf *Buf) (Ip4Hdr, error) {
	b, err := buf.GetBytes(Ip4HdrSize)
	if err != nil {
		return nil, err
	}
	return Ip4Hdr(b), nil
}

// NewIp4Hdr consumes Ip4HdrSize bytes from buf and fills in the fields that
// are constant for every packet this stack originates: version 4, a
// 20-byte header length, zeroed TOS/ID, the don't-fragment flag, and a
// TTL of 64.
func NewIp4Hdr(buf *Buf) (Ip4Hdr, error) {
	h, err := Ip4HdrFromBuf(buf)
	if err != nil {
		return nil, err
	}

	h.SetVersion(ip4Version)
	h.SetHdrLen(5)
	h[1] = 0 // tos
	binary.BigEndian.PutUint16(h[4:6], 0) // id
	h.SetFlags(uint8(IpFlagDontFragment))
	h.SetFragOffset(0)
	h[8] = 64 // ttl

	return h, nil
}

func (h Ip4Hdr) HdrLen() uint8  { return h[0] & 0xf }
func (h Ip4Hdr) Version() uint8 { return (h[0] & 0xf0) >> 4 }

func (h Ip4Hdr) Flags() uint8 {
	return uint8(binary.BigEndian.Uint16(h[6:8]) >> 13)
}

func (h Ip4Hdr) FragOffset() uint16 {
	return binary.BigEndian.Uint16(h[6:8]) & ((1 << 13) - 1)
}

func (h Ip4Hdr) TTL() uint8     { return h[8] }
func (h Ip4Hdr) Proto() uint8   { return h[9] }
func (h Ip4Hdr) Checksum() uint16 {
	return binary.BigEndian.Uint16(h[10:12])
}
func (h Ip4Hdr) SrcAddr() uint32 { return binary.BigEndian.Uint32(h[12:16]) }
func (h Ip4Hdr) DstAddr() uint32 { return binary.BigEndian.Uint32(h[16:20]) }

func (h Ip4Hdr) SetHdrLen(v uint8) Ip4Hdr {
	h[0] = (h[0] & 0xf0) | (v & 0xf)
	return h
}

func (h Ip4Hdr) SetVersion(v uint8) Ip4Hdr {
	h[0] = (h[0] & 0xf) | ((v & 0xf) << 4)
	return h
}

func (h Ip4Hdr) SetTotalLength(v uint16) Ip4Hdr {
	binary.BigEndian.PutUint16(h[2:4], v)
	return h
}

func (h Ip4Hdr) TotalLength() uint16 {
	return binary.BigEndian.Uint16(h[2:4])
}

func (h Ip4Hdr) SetFlags(v uint8) Ip4Hdr {
	cur := binary.BigEndian.Uint16(h[6:8])
	cur = (cur & 0x1fff) | (uint16(v&0x7) << 13)
	binary.BigEndian.PutUint16(h[6:8], cur)
	return h
}

func (h Ip4Hdr) SetFragOffset(v uint16) Ip4Hdr {
	cur := binary.BigEndian.Uint16(h[6:8])
	cur = (cur & 0xe000) | (v & 0x1fff)
	binary.BigEndian.PutUint16(h[6:8], cur)
	return h
}

func (h Ip4Hdr) SetUDP() Ip4Hdr {
	h[9] = byte(IpProtoUDP)
	return h
}

func (h Ip4Hdr) SetSrcAddress(a net.IP) Ip4Hdr {
	binary.BigEndian.PutUint32(h[12:16], binary.BigEndian.Uint32(a.To4()))
	return h
}

func (h Ip4Hdr) SetDstAddress(a net.IP) Ip4Hdr {
	binary.BigEndian.PutUint32(h[16:20], binary.BigEndian.Uint32(a.To4()))
	return h
}

// CalcChecksum zeroes the checksum field and recomputes it over the
// 20-byte header via the standard ones'-complement IPv4 checksum.
func (h Ip4Hdr) CalcChecksum() Ip4Hdr {
	binary.BigEndian.PutUint16(h[10:12], 0)
	sum := header.IPv4(h[:Ip4HdrSize]).CalculateChecksum()
	binary.BigEndian.PutUint16(h[10:12], ^sum)
	return h
}

func (h Ip4Hdr) String() string {
	return fmt.Sprintf("Ip4Hdr{hdrLen: %d, version: %d, totalLen: %d, ttl: %d, proto: %d, checksum: 0x%04x, src: %s, dst: %s}",
		h.HdrLen(), h.Version(), h.TotalLength(), h.TTL(), h.Proto(), h.Checksum(),
		uint32ToIP(h.SrcAddr()), uint32ToIP(h.DstAddr()))
}

func uint32ToIP(v uint32) net.IP {
	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, v)
	return ip
}
