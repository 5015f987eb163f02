package model

import "testing"

func TestNewFlowKeyDirectionInvariant(t *testing.T) {
	out := Packet{
		Protocol: ProtoTCP,
		SrcIP:    0xC0A80001,
		SrcPort:  5000,
		DstIP:    0x08080808,
		DstPort:  443,
		Direction: DirOut,
	}
	in := Packet{
		Protocol: ProtoTCP,
		SrcIP:    0x08080808,
		SrcPort:  443,
		DstIP:    0xC0A80001,
		DstPort:  5000,
		Direction: DirIn,
	}

	got := NewFlowKey(out)
	want := NewFlowKey(in)
	if got != want {
		t.Fatalf("flow keys for opposite directions of the same connection differ: %+v != %+v", got, want)
	}
	if got.LocalIP != 0xC0A80001 || got.LocalPort != 5000 {
		t.Errorf("local side not resolved correctly: %+v", got)
	}
}

func TestNewFlowKeyUDPIgnoresRemote(t *testing.T) {
	a := Packet{Protocol: ProtoUDP, SrcIP: 0xC0A80001, SrcPort: 5000, DstIP: 0x08080808, DstPort: 53, Direction: DirOut}
	b := Packet{Protocol: ProtoUDP, SrcIP: 0xC0A80001, SrcPort: 5000, DstIP: 0x01020304, DstPort: 53, Direction: DirOut}

	ka := NewFlowKey(a)
	kb := NewFlowKey(b)
	if ka != kb {
		t.Fatalf("UDP flow keys to different remote peers from the same local port should match: %+v != %+v", ka, kb)
	}
	if ka.RemoteIP != 0 || ka.RemotePort != 0 {
		t.Errorf("UDP flow key should not carry remote fields: %+v", ka)
	}
}

func TestClassifyUDPSubtype(t *testing.T) {
	tests := []struct {
		name              string
		local, remote     uint16
		want              Protocol
	}{
		{"dns remote 53", 40000, 53, ProtoDNS},
		{"mdns remote 5353", 40000, 5353, ProtoDNS},
		{"ssdp remote 1900", 40000, 1900, ProtoSSDP},
		{"ntp remote 123", 40000, 123, ProtoNTP},
		{"plain udp", 40000, 9999, ProtoUDP},
		{"dns local port", 53, 40000, ProtoDNS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyUDPSubtype(tt.local, tt.remote); got != tt.want {
				t.Errorf("ClassifyUDPSubtype(%d, %d) = %v, want %v", tt.local, tt.remote, got, tt.want)
			}
		})
	}
}
