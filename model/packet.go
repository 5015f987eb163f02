package model

import "time"

// Protocol identifies the transport-level classification of a captured
// packet. Housekeeping UDP traffic (DNS, SSDP, NTP) is tagged with its
// own protocol value even though it travels over UDP, because the
// decoder discards it instead of attributing it like ordinary traffic.
type Protocol int

const (
	ProtoUnknown Protocol = iota
	ProtoTCP
	ProtoUDP
	ProtoICMP
	ProtoDNS
	ProtoSSDP
	ProtoNTP
)

func (p Protocol) String() string {
	switch p {
	case ProtoTCP:
		return "TCP"
	case ProtoUDP:
		return "UDP"
	case ProtoICMP:
		return "ICMP"
	case ProtoDNS:
		return "DNS"
	case ProtoSSDP:
		return "SSDP"
	case ProtoNTP:
		return "NTP"
	}
	return "Other"
}

// Direction is the packet's direction relative to this host.
type Direction int

const (
	DirUnknown Direction = iota
	DirIn
	DirOut
)

// Packet is a decoded frame. It is transient: constructed per captured
// frame and never retained beyond the capture goroutine's per-packet
// scope.
type Packet struct {
	Protocol  Protocol
	SrcIP     uint32
	DstIP     uint32
	SrcPort   uint16
	DstPort   uint16
	Length    uint32
	Timestamp time.Time
	Direction Direction
}

const (
	portDNS1 = 53
	portDNS2 = 5353
	portSSDP = 1900
	portNTP  = 123
)

// ClassifyUDPSubtype returns the housekeeping protocol subtype for a UDP
// packet based on well-known local or remote ports, or ProtoUDP if none
// match.
func ClassifyUDPSubtype(localPort, remotePort uint16) Protocol {
	for _, p := range [2]uint16{localPort, remotePort} {
		switch p {
		case portDNS1, portDNS2:
			return ProtoDNS
		case portSSDP:
			return ProtoSSDP
		case portNTP:
			return ProtoNTP
		}
	}
	return ProtoUDP
}
