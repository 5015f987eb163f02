package model

// FlowKey is a direction-invariant identifier for a TCP/UDP flow: a
// packet captured in either direction of the same connection hashes to
// the same key. For UDP only the local port is used, since one
// connected UDP socket can fan out to many remote peers.
//
// FlowKey is a plain comparable struct so it can be used directly as a
// map key without a custom Hash method.
type FlowKey struct {
	LocalIP     uint32
	LocalPort   uint16
	RemoteIP    uint32
	RemotePort  uint16
}

// NewFlowKey builds the canonical flow key for a decoded packet. The
// packet's Direction says which side is local: Out means the source is
// local, In means the destination is local.
func NewFlowKey(p Packet) FlowKey {
	localIsSrc := p.Direction == DirOut
	if p.Protocol == ProtoUDP || p.Protocol == ProtoDNS || p.Protocol == ProtoSSDP || p.Protocol == ProtoNTP {
		if localIsSrc {
			return FlowKey{LocalPort: p.SrcPort}
		}
		return FlowKey{LocalPort: p.DstPort}
	}
	if localIsSrc {
		return FlowKey{LocalIP: p.SrcIP, LocalPort: p.SrcPort, RemoteIP: p.DstIP, RemotePort: p.DstPort}
	}
	return FlowKey{LocalIP: p.DstIP, LocalPort: p.DstPort, RemoteIP: p.SrcIP, RemotePort: p.SrcPort}
}
