// Package engine wires the capture, resolution, accumulation, storage
// and query components into a single running daemon.
package engine

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gopacket/pcap"

	"github.com/ftahirops/ntmond/accumulator"
	"github.com/ftahirops/ntmond/capture"
	"github.com/ftahirops/ntmond/config"
	"github.com/ftahirops/ntmond/netaddr"
	"github.com/ftahirops/ntmond/proctable"
	"github.com/ftahirops/ntmond/queryserver"
	"github.com/ftahirops/ntmond/resolver"
	"github.com/ftahirops/ntmond/socktable"
	"github.com/ftahirops/ntmond/store"
)

// housekeepingInterval is how often the negative caches in socktable
// and proctable are cleared, bounding how long a socket/process that
// failed to resolve stays unresolvable.
const housekeepingInterval = socktable.NegativeCacheInterval

// Daemon owns every long-lived component of the running attribution
// pipeline and coordinates their startup and shutdown.
type Daemon struct {
	cfg    config.Config
	logger *log.Logger

	addrs   *netaddr.AddressSet
	sockets *socktable.Table
	procs   *proctable.Table
	resolv  *resolver.Resolver
	accum   *accumulator.Accumulator
	db      *store.SQLiteStore
	handle  *pcap.Handle
	loop    *capture.Loop
	qserver *queryserver.Server

	stopHousekeeping chan struct{}
}

// New builds a Daemon from cfg but does not start it.
func New(cfg config.Config, logger *log.Logger) (*Daemon, error) {
	addrs, err := netaddr.New(cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("engine: enumerate local addresses: %w", err)
	}

	sockets := socktable.New(logger)
	sockets.RefreshAll()

	procs := proctable.New(cfg.ProcessCacheSize, cfg.ProcessScanCap, logger)
	if err := procs.Refresh(); err != nil {
		return nil, fmt.Errorf("engine: initial process scan: %w", err)
	}

	resolv := resolver.New(sockets, procs)

	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("engine: open store: %w", err)
	}

	accum := accumulator.New(db, cfg.Interval(), cfg.RetryFailedDeposits, logger)

	handle, err := capture.Open(capture.Options{
		Device:      cfg.Interface,
		Promiscuous: cfg.Promiscuous,
		Immediate:   cfg.Immediate,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("engine: open capture device: %w", err)
	}

	decoder := capture.NewPacketDecoder(addrs)
	loop := capture.NewLoop(handle, decoder, resolv, accum, logger)

	qserver := queryserver.New(accum, db, logger)

	return &Daemon{
		cfg:              cfg,
		logger:           logger,
		addrs:            addrs,
		sockets:          sockets,
		procs:            procs,
		resolv:           resolv,
		accum:            accum,
		db:               db,
		handle:           handle,
		loop:             loop,
		qserver:          qserver,
		stopHousekeeping: make(chan struct{}),
	}, nil
}

// Run starts every component and blocks until SIGINT/SIGTERM or a fatal
// component error, then shuts everything down in reverse dependency
// order.
func (d *Daemon) Run() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", d.cfg.ServerPort))
	if err != nil {
		return fmt.Errorf("engine: listen on port %d: %w", d.cfg.ServerPort, err)
	}

	go d.accum.Run()
	go d.runHousekeeping()
	go d.loop.Run()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- d.qserver.Serve(ln)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d.logger.Printf("ntmond: started (interface=%q port=%d db=%s interval=%s)",
		d.cfg.Interface, d.cfg.ServerPort, d.cfg.DBPath, d.cfg.Interval())

	var runErr error
	select {
	case <-sigCh:
		d.logger.Printf("ntmond: signal received, shutting down")
	case err := <-serverErr:
		d.logger.Printf("ntmond: query server exited: %v", err)
		runErr = err
	}

	d.shutdown(ln)
	return runErr
}

func (d *Daemon) shutdown(ln net.Listener) {
	close(d.stopHousekeeping)
	d.loop.Stop()
	d.handle.Close()
	ln.Close()
	d.accum.Stop()
	if err := d.db.Close(); err != nil {
		d.logger.Printf("ntmond: error closing store: %v", err)
	}
}

// runHousekeeping clears the socket and process negative caches every
// housekeepingInterval so a previously-unresolvable flow is retried.
func (d *Daemon) runHousekeeping() {
	ticker := time.NewTicker(housekeepingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stopHousekeeping:
			return
		case <-ticker.C:
			d.sockets.ClearNegativeCache()
			d.procs.ClearNegativeCache()
		}
	}
}
