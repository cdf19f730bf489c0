package netstack

// Packet holds the parsed header views for one frame, each aliasing the
// same underlying buffer as it's discovered layer by layer.
type Packet struct {
	Buf *Buf

	Eth EthHdr
	Arp ArpHdr
	Ip4 Ip4Hdr
	Udp UdpHdr

	L4Payload []byte
}

// NewPacket wraps frame in a fresh, unparsed Packet.
func NewPacket(frame []byte) *Packet {
	return &Packet{Buf: NewBuf(frame)}
}
