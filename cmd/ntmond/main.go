// Command ntmond is a privileged background daemon that attributes
// network traffic to the local processes responsible for it and
// answers queries over a small TCP protocol.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"syscall"

	"github.com/ftahirops/ntmond/config"
	"github.com/ftahirops/ntmond/engine"
)

// Version is set at build time via ldflags.
var Version = "0.1.0"

func main() {
	if syscall.Geteuid() != 0 {
		fmt.Fprintln(os.Stderr, "ntmond: must be run as root to capture packets; try running with sudo")
		os.Exit(1)
	}

	userCfg := config.Load()

	var (
		showVersion bool
		configPath  string
	)

	cfg := userCfg

	flag.StringVar(&cfg.Interface, "interface", userCfg.Interface, "Network interface to capture on (empty: local addresses come from the first up, non-loopback interface with an IPv4 address)")
	flag.IntVar(&cfg.IntervalSec, "interval", userCfg.IntervalSec, "Deposit interval in seconds")
	flag.BoolVar(&cfg.Promiscuous, "promiscuous", userCfg.Promiscuous, "Capture in promiscuous mode")
	flag.BoolVar(&cfg.Immediate, "immediate", userCfg.Immediate, "Enable immediate packet delivery mode")
	flag.IntVar(&cfg.ProcessCacheSize, "process-cache-size", userCfg.ProcessCacheSize, "Number of recently-productive pids to remember (0 disables the cache)")
	flag.IntVar(&cfg.ProcessScanCap, "process-scan-cap", userCfg.ProcessScanCap, "Max candidate pids examined per process-table miss (0=unbounded)")
	flag.StringVar(&cfg.DBPath, "db-path", userCfg.DBPath, "Path to the SQLite traffic database")
	portFlag := flag.Int("server-port", int(userCfg.ServerPort), "TCP port the query server listens on")
	flag.BoolVar(&cfg.RetryFailedDeposits, "retry-failed-deposits", userCfg.RetryFailedDeposits, "Keep un-deposited traffic counters after a store write failure")
	flag.StringVar(&configPath, "config", "", "Write the effective configuration to this path and exit")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Usage = printUsage
	flag.Parse()

	if showVersion {
		fmt.Printf("ntmond v%s\n", Version)
		return
	}

	cfg.ServerPort = uint16(*portFlag)

	if configPath != "" {
		if err := config.Save(cfg, configPath); err != nil {
			fmt.Fprintf(os.Stderr, "ntmond: %v\n", err)
			os.Exit(1)
		}
		return
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	d, err := engine.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ntmond: %v\n", err)
		os.Exit(1)
	}

	if err := d.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "ntmond: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `ntmond — per-process network traffic accounting daemon

Usage: ntmond [flags]

Flags:
`)
	flag.PrintDefaults()
}
