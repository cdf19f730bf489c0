package netstack

import (
	"fmt"
	"net"

	"github.com/jibi/hydrogen-peroxide/internal/xsk"
)

func (n *Net) doRxPacket(desc xsk.Desc) error {
	pkt := NewPacket(desc.Packet()[:desc.Len()])

	eth, err := EthHdrFromBuf(pkt.Buf)
	if err != nil {
		return err
	}
	pkt.Eth = eth

	switch eth.Type() {
	case EthTypeIP4:
		return n.rxIp4Packet(pkt)
	case EthTypeARP:
		return n.rxArpPacket(pkt)
	default:
		return nil
	}
}

func (n *Net) rxIp4Packet(pkt *Packet) error {
	ip4, err := Ip4HdrFromBuf(pkt.Buf)
	if err != nil {
		return err
	}
	if IpProto(ip4.Proto()) != IpProtoUDP {
		return nil
	}
	pkt.Ip4 = ip4

	n.netstack.updateArpCacheFromIP(pkt)

	udp, err := UdpHdrFromBuf(pkt.Buf)
	if err != nil {
		return err
	}
	pkt.Udp = udp

	payloadLen := int(udp.Length()) - UdpHdrSize
	if payloadLen < 0 {
		return fmt.Errorf("netstack: udp length %d shorter than header", udp.Length())
	}

	payload, err := pkt.Buf.GetBytes(payloadLen)
	if err != nil {
		return err
	}
	pkt.L4Payload = payload

	socket := Socket{
		SourceAddress: uint32ToIP(ip4.SrcAddr()),
		SourcePort:    udp.SrcPort(),
	}

	return n.app.RxPayload(n.netstack, socket, payload)
}

func (n *Net) rxArpPacket(pkt *Packet) error {
	arp, err := ArpHdrFromBuf(pkt.Buf)
	if err != nil {
		return err
	}
	pkt.Arp = arp

	n.netstack.updateArpCacheFromArp(pkt)

	if arp.Opcode() != ArpRequest {
		return nil
	}
	target := arp.TargetProtoAddr()
	if net.IP(target[:]).Equal(n.netstack.bindAddr) {
		return n.netstack.sendArpReply(pkt)
	}
	return nil
}

func (ns *NetStack) updateArpCacheFromIP(pkt *Packet) {
	ns.learnArp(uint32ToIP(pkt.Ip4.SrcAddr()), pkt.Eth.SrcAddress())
}

func (ns *NetStack) updateArpCacheFromArp(pkt *Packet) {
	sender := pkt.Arp.SenderProtoAddr()
	ns.learnArp(net.IP(sender[:]), pkt.Eth.SrcAddress())
}
