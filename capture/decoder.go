// Package capture turns raw captured frames into model.Packet records
// and drives the capture source that feeds them to a resolver and
// accumulator.
package capture

import (
	"encoding/binary"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/ftahirops/ntmond/model"
	"github.com/ftahirops/ntmond/netaddr"
)

// PacketDecoder parses a raw frame into a model.Packet, applying the
// discard policy: non-IPv4 ethertypes, non-TCP/UDP/ICMP protocols, and
// frames whose direction cannot be determined from the AddressSet are
// all discarded rather than erroring. A DecodingLayerParser is reused
// across calls to avoid an allocation per packet.
type PacketDecoder struct {
	addrs *netaddr.AddressSet

	eth     layers.Ethernet
	ip4     layers.IPv4
	tcp     layers.TCP
	udp     layers.UDP
	icmp    layers.ICMPv4
	payload gopacket.Payload
	parser  *gopacket.DecodingLayerParser
	decoded []gopacket.LayerType
}

// NewPacketDecoder builds a decoder bound to the given address set.
func NewPacketDecoder(addrs *netaddr.AddressSet) *PacketDecoder {
	d := &PacketDecoder{addrs: addrs, decoded: make([]gopacket.LayerType, 0, 4)}
	d.parser = gopacket.NewDecodingLayerParser(
		layers.LayerTypeEthernet,
		&d.eth, &d.ip4, &d.tcp, &d.udp, &d.icmp, &d.payload,
	)
	// A malformed or unsupported layer further down the stack should
	// not abort decoding of the layers already parsed.
	d.parser.IgnoreUnsupported = true
	return d
}

// Decode parses one captured frame. The second return value reports
// whether the packet should be attributed at all; false covers both
// genuine discards and decode failures, which are never treated as
// destructive errors.
func (d *PacketDecoder) Decode(ci gopacket.CaptureInfo, data []byte) (model.Packet, bool) {
	var pkt model.Packet
	pkt.Timestamp = ci.Timestamp
	pkt.Length = uint32(ci.Length)

	if err := d.parser.DecodeLayers(data, &d.decoded); err != nil {
		return pkt, false
	}

	var haveIPv4, haveTCP, haveUDP, haveICMP bool
	for _, t := range d.decoded {
		switch t {
		case layers.LayerTypeIPv4:
			haveIPv4 = true
		case layers.LayerTypeTCP:
			haveTCP = true
		case layers.LayerTypeUDP:
			haveUDP = true
		case layers.LayerTypeICMPv4:
			haveICMP = true
		}
	}
	if !haveIPv4 {
		return pkt, false
	}
	if !haveTCP && !haveUDP && !haveICMP {
		return pkt, false
	}

	pkt.SrcIP = ipToUint32(d.ip4.SrcIP)
	pkt.DstIP = ipToUint32(d.ip4.DstIP)

	switch {
	case haveTCP:
		pkt.Protocol = model.ProtoTCP
		pkt.SrcPort = uint16(d.tcp.SrcPort)
		pkt.DstPort = uint16(d.tcp.DstPort)
	case haveUDP:
		pkt.SrcPort = uint16(d.udp.SrcPort)
		pkt.DstPort = uint16(d.udp.DstPort)
		pkt.Protocol = model.ClassifyUDPSubtype(pkt.SrcPort, pkt.DstPort)
	case haveICMP:
		pkt.Protocol = model.ProtoICMP
	}

	srcLocal := d.addrs.Contains(pkt.SrcIP)
	dstLocal := d.addrs.Contains(pkt.DstIP)
	switch {
	case haveICMP:
		// ICMP carries no ports; discarded at decode time per spec.
		return pkt, false
	case srcLocal && !dstLocal:
		pkt.Direction = model.DirOut
	case dstLocal && !srcLocal:
		pkt.Direction = model.DirIn
	default:
		// Neither or both local: foreign traffic on a promiscuous
		// capture, or direction otherwise undeterminable.
		return pkt, false
	}

	if isHousekeeping(pkt.Protocol) {
		return pkt, false
	}

	return pkt, true
}

func isHousekeeping(p model.Protocol) bool {
	return p == model.ProtoDNS || p == model.ProtoSSDP || p == model.ProtoNTP
}

func ipToUint32(ip []byte) uint32 {
	if len(ip) != 4 {
		return 0
	}
	return binary.BigEndian.Uint32(ip)
}
