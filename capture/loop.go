package capture

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/gopacket/pcap"

	"github.com/ftahirops/ntmond/model"
)

// BatchTimeout is the pcap read timeout: the capture thread blocks in
// the capture primitive until a batch is ready or this elapses.
const BatchTimeout = 100 * time.Millisecond

// Resolver attributes a packet to an owning process. Implemented by
// resolver.Resolver; declared here to avoid an import cycle.
type Resolver interface {
	Resolve(pkt model.Packet) model.Process
}

// Accumulator receives attributed traffic. Implemented by
// accumulator.Accumulator.
type Accumulator interface {
	Add(p model.Process, pkt model.Packet)
}

// Loop drives a pcap capture handle: decode each frame, resolve its
// owning process, and deposit the traffic into the accumulator. Per
// spec it performs no I/O besides the capture read itself.
type Loop struct {
	handle   *pcap.Handle
	decoder  *PacketDecoder
	resolver Resolver
	accum    Accumulator
	running  atomic.Bool
	logger   *log.Logger
}

// Options configures the underlying pcap handle.
type Options struct {
	Device      string
	Promiscuous bool
	Immediate   bool
	SnapLen     int
}

// Open activates a pcap handle on the named device. Activation failure
// is fatal per spec — callers should treat a non-nil error as a
// startup failure (exit 1).
func Open(opts Options) (*pcap.Handle, error) {
	if opts.SnapLen <= 0 {
		opts.SnapLen = 65536
	}
	inactive, err := pcap.NewInactiveHandle(opts.Device)
	if err != nil {
		return nil, fmt.Errorf("capture: inactive handle for %q: %w", opts.Device, err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(opts.SnapLen); err != nil {
		return nil, fmt.Errorf("capture: snaplen: %w", err)
	}
	if err := inactive.SetPromisc(opts.Promiscuous); err != nil {
		return nil, fmt.Errorf("capture: promisc: %w", err)
	}
	if err := inactive.SetTimeout(BatchTimeout); err != nil {
		return nil, fmt.Errorf("capture: timeout: %w", err)
	}
	if opts.Immediate {
		if err := inactive.SetImmediateMode(true); err != nil {
			return nil, fmt.Errorf("capture: immediate mode: %w", err)
		}
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("capture: activate %q: %w", opts.Device, err)
	}
	return handle, nil
}

// NewLoop builds a capture loop bound to an already-activated handle.
func NewLoop(handle *pcap.Handle, decoder *PacketDecoder, resolver Resolver, accum Accumulator, logger *log.Logger) *Loop {
	l := &Loop{handle: handle, decoder: decoder, resolver: resolver, accum: accum, logger: logger}
	l.running.Store(true)
	return l
}

// Stop requests the loop to exit at the next batch boundary.
func (l *Loop) Stop() {
	l.running.Store(false)
}

// Run reads frames until Stop is called. Each non-discarded frame is
// decoded, resolved to an owning process, and deposited into the
// accumulator exactly once.
func (l *Loop) Run() {
	for l.running.Load() {
		data, ci, err := l.handle.ReadPacketData()
		if err != nil {
			if err == pcap.NextErrorTimeoutExpired {
				continue
			}
			if l.logger != nil {
				l.logger.Printf("capture: read error: %v", err)
			}
			continue
		}

		pkt, ok := l.decoder.Decode(ci, data)
		if !ok {
			continue
		}

		proc := l.resolver.Resolve(pkt)
		l.accum.Add(proc, pkt)
	}
}
