package socktable

import (
	"testing"

	"github.com/ftahirops/ntmond/model"
)

func TestParseLine(t *testing.T) {
	// Fields: sl, local_address, rem_address, st, tx_queue:rx_queue,
	// tr:tm->when, retrnsmt, uid, timeout, inode, ...
	line := "   0: 0100007F:1F90 00000000:0000 0A 00000000:00000000 00:00000000 00000000  1000        0 12345 1 0000000000000000 100 0 0 10 0"
	entry, ok := parseLine(line)
	if !ok {
		t.Fatal("expected line to parse")
	}
	if entry.Inode != 12345 {
		t.Errorf("inode = %d, want 12345", entry.Inode)
	}
	if entry.LocalPort != 0x1F90 {
		t.Errorf("local port = %#x, want 0x1f90", entry.LocalPort)
	}
}

func TestParseLineMalformed(t *testing.T) {
	if _, ok := parseLine("not enough fields"); ok {
		t.Error("expected malformed line to fail to parse")
	}
}

func TestSplitHexAddrRejectsIPv6(t *testing.T) {
	// A 32-hex-char IPv6 address should be rejected, not silently
	// truncated.
	if _, ok := splitHexAddr("00000000000000000000000000000001:1F90"); ok {
		t.Error("expected a 32-hex-digit (IPv6) address field to be rejected")
	}
}

func TestGetUnknownFlowIsNegativelyCached(t *testing.T) {
	table := New(nil)
	pkt := model.Packet{
		Protocol: model.ProtoTCP,
		SrcIP:    0xC0A80001,
		SrcPort:  5000,
		DstIP:    0x08080808,
		DstPort:  443,
		Direction: model.DirOut,
	}

	if inode := table.Get(pkt); inode != 0 {
		t.Fatalf("expected 0 for an unresolvable flow, got %d", inode)
	}

	key := model.NewFlowKey(pkt)
	table.negMu.Lock()
	_, cached := table.negative[key]
	table.negMu.Unlock()
	if !cached {
		t.Error("expected flow to be recorded in the negative cache after a miss")
	}

	table.ClearNegativeCache()
	table.negMu.Lock()
	_, cached = table.negative[key]
	table.negMu.Unlock()
	if cached {
		t.Error("expected ClearNegativeCache to empty the negative cache")
	}
}
