package model

// SocketEntry is one parsed line of a kernel socket listing
// (/proc/net/{tcp,tcp6,udp,udp6,raw,raw6}).
type SocketEntry struct {
	LocalIP    uint32
	RemoteIP   uint32
	LocalPort  uint16
	RemotePort uint16
	Inode      uint64
}

// Key returns the FlowKey this entry should be stored under. udp
// reports whether the listing this entry came from is a UDP table
// (only the local port participates in the key for UDP, per FlowKey's
// contract).
func (e SocketEntry) Key(udp bool) FlowKey {
	if udp {
		return FlowKey{LocalPort: e.LocalPort}
	}
	return FlowKey{LocalIP: e.LocalIP, LocalPort: e.LocalPort, RemoteIP: e.RemoteIP, RemotePort: e.RemotePort}
}
