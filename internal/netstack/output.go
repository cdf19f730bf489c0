package netstack

import "fmt"

func (ns *NetStack) sendArpReply(pkt *Packet) error {
	desc, err := ns.handle.NextTxSlot()
	if err != nil {
		return err
	}

	buf := NewBuf(desc.Packet())

	eth, err := EthHdrFromBuf(buf)
	if err != nil {
		return err
	}
	eth.SetSrcAddress(ns.ifaceMAC).SetDstAddress(pkt.Eth.SrcAddress()).SetARP()

	arp, err := ArpHdrFromBuf(buf)
	if err != nil {
		return err
	}
	arp.SetArpReplyIP().
		SetSenderHwAddr(ns.ifaceMAC).
		SetSenderProtoAddr(pkt.Arp.TargetProtoAddr()).
		SetTargetHwAddr(pkt.Arp.SenderHwAddr()).
		SetTargetProtoAddr(pkt.Arp.SenderProtoAddr())

	desc.SetLen(buf.Len())

	return ns.handle.TX(desc)
}

// NewTxPayloadBuf implements Handle: it reserves a TX descriptor and seeks
// past where the Ethernet/IPv4/UDP headers will be written, so the caller
// can fill in the payload starting at the right offset.
func (ns *NetStack) NewTxPayloadBuf() (*PayloadBuf, error) {
	desc, err := ns.handle.NextTxSlot()
	if err != nil {
		return nil, err
	}

	buf := NewBuf(desc.Packet())
	if err := buf.Seek(EthHdrSize + Ip4HdrSize + UdpHdrSize); err != nil {
		return nil, err
	}

	return &PayloadBuf{desc: desc, buf: buf}, nil
}

// SendPayload implements Handle: it rewinds to the front of the frame,
// writes the Ethernet/IPv4/UDP headers sized to wrap the payload the
// caller already wrote via PayloadBuf.Buf(), and transmits.
func (ns *NetStack) SendPayload(socket Socket, payload *PayloadBuf) error {
	if err := payload.buf.Seek(0); err != nil {
		return err
	}
	packetLen := payload.buf.Len()

	dstMAC, ok := ns.lookupArp(socket.SourceAddress)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoArpEntry, socket.SourceAddress)
	}

	eth, err := EthHdrFromBuf(payload.buf)
	if err != nil {
		return err
	}
	eth.SetSrcAddress(ns.ifaceMAC).SetDstAddress(dstMAC).SetIP4()

	ip4, err := NewIp4Hdr(payload.buf)
	if err != nil {
		return err
	}
	ip4.SetTotalLength(uint16(packetLen - EthHdrSize)).
		SetUDP().
		SetSrcAddress(ns.bindAddr).
		SetDstAddress(socket.SourceAddress).
		CalcChecksum()

	udp, err := NewUdpHdr(payload.buf)
	if err != nil {
		return err
	}
	udp.SetSrcPort(ns.bindPort).
		SetDstPort(socket.SourcePort).
		SetLength(uint16(packetLen - EthHdrSize - Ip4HdrSize))

	if ns.udpChecksum {
		segment := payload.buf.AsSlice()[EthHdrSize+Ip4HdrSize:]
		udp.SetChecksum(udpChecksum(ns.bindAddr, socket.SourceAddress, segment))
	}

	payload.desc.SetLen(packetLen)

	return ns.handle.TX(payload.desc)
}
