// Package socktable mirrors the kernel's per-protocol socket listings
// and maps a packet's flow to the kernel inode backing its socket.
package socktable

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ftahirops/ntmond/internal/procfs"
	"github.com/ftahirops/ntmond/model"
)

// listing describes one kernel socket table source.
type listing struct {
	path string
	udp  bool
}

var (
	tcpListings = []listing{{"/proc/net/tcp", false}, {"/proc/net/tcp6", false}}
	udpListings = []listing{{"/proc/net/udp", true}, {"/proc/net/udp6", true}}
	rawListings = []listing{{"/proc/net/raw", false}, {"/proc/net/raw6", false}}
	allListings = append(append(append([]listing{}, tcpListings...), udpListings...), rawListings...)
)

// Table is a mapping FlowKey -> inode reflecting the union of the
// kernel's TCP4, TCP6, UDP4, UDP6 and raw socket listings. It is safe
// for concurrent use.
type Table struct {
	mu      sync.Mutex
	entries map[model.FlowKey]uint64

	negMu    sync.Mutex
	negative map[model.FlowKey]struct{}

	logger *log.Logger
}

// New builds an empty socket table.
func New(logger *log.Logger) *Table {
	return &Table{
		entries:  make(map[model.FlowKey]uint64),
		negative: make(map[model.FlowKey]struct{}),
		logger:   logger,
	}
}

// RefreshAll rebuilds the table from every known listing. Used at
// startup; each listing is applied transactionally so a parse failure
// on one listing never clears entries already populated from another.
func (t *Table) RefreshAll() {
	for _, l := range allListings {
		t.refreshListing(l)
	}
}

// refreshListing reads one listing and inserts/replaces its entries.
// A read failure only warns; other listings are unaffected.
func (t *Table) refreshListing(l listing) {
	lines, err := procfs.ReadLines(l.path)
	if err != nil {
		if t.logger != nil {
			t.logger.Printf("socktable: read %s: %v", l.path, err)
		}
		return
	}
	if len(lines) == 0 {
		return
	}

	parsed := make(map[model.FlowKey]uint64, len(lines)-1)
	for _, line := range lines[1:] { // skip header
		entry, ok := parseLine(line)
		if !ok {
			if t.logger != nil {
				t.logger.Printf("socktable: malformed line in %s, skipping", l.path)
			}
			continue
		}
		if entry.Inode == 0 {
			continue
		}
		parsed[entry.Key(l.udp)] = entry.Inode
	}

	t.mu.Lock()
	for k, inode := range parsed {
		t.entries[k] = inode
	}
	t.mu.Unlock()
}

// parseLine parses one whitespace-separated socket-listing record. The
// inode is the 10th field (index 9); local/remote address fields are
// "hexip:hexport".
func parseLine(line string) (model.SocketEntry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 10 {
		return model.SocketEntry{}, false
	}
	local, ok1 := splitHexAddr(fields[1])
	remote, ok2 := splitHexAddr(fields[2])
	if !ok1 || !ok2 {
		return model.SocketEntry{}, false
	}
	inode := procfs.ParseUint64(fields[9])
	return model.SocketEntry{
		LocalIP:    local.ip,
		LocalPort:  local.port,
		RemoteIP:   remote.ip,
		RemotePort: remote.port,
		Inode:      inode,
	}, true
}

type hexAddr struct {
	ip   uint32
	port uint16
}

func splitHexAddr(field string) (hexAddr, bool) {
	parts := strings.SplitN(field, ":", 2)
	if len(parts) != 2 {
		return hexAddr{}, false
	}
	// IPv6 fields are 32 hex chars; only the IPv4 form is supported,
	// per spec this is opportunistic IPv6 parsing at best.
	if len(parts[0]) != 8 {
		return hexAddr{}, false
	}
	return hexAddr{ip: procfs.ParseHexUint32(parts[0]), port: procfs.ParseHexUint16(parts[1])}, true
}

// negativeCacheWindow is how long a miss is remembered before the
// negative cache is cleared wholesale, letting reused flows be
// rediscovered.
const negativeCacheWindow = 60 * time.Second

// Get resolves a packet's flow to its socket inode, or 0 if not found.
func (t *Table) Get(pkt model.Packet) uint64 {
	key := model.NewFlowKey(pkt)

	t.negMu.Lock()
	_, negHit := t.negative[key]
	t.negMu.Unlock()
	if negHit {
		return 0
	}

	if inode, ok := t.lookup(key); ok {
		return inode
	}

	switch pkt.Protocol {
	case model.ProtoTCP:
		t.refreshListing(tcpListings[0])
		t.refreshListing(tcpListings[1])
	case model.ProtoUDP, model.ProtoDNS, model.ProtoSSDP, model.ProtoNTP:
		t.refreshListing(udpListings[0])
		t.refreshListing(udpListings[1])
	default:
		return 0
	}

	if inode, ok := t.lookup(key); ok {
		return inode
	}

	t.negMu.Lock()
	t.negative[key] = struct{}{}
	t.negMu.Unlock()
	return 0
}

func (t *Table) lookup(key model.FlowKey) (uint64, bool) {
	t.mu.Lock()
	inode, ok := t.entries[key]
	t.mu.Unlock()
	return inode, ok
}

// ClearNegativeCache empties the negative cache. Intended to be called
// from a 60-second housekeeping ticker.
func (t *Table) ClearNegativeCache() {
	t.negMu.Lock()
	t.negative = make(map[model.FlowKey]struct{})
	t.negMu.Unlock()
}

// NegativeCacheInterval is exported for the daemon wiring's ticker.
const NegativeCacheInterval = negativeCacheWindow
