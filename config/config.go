// Package config loads and saves ntmond's on-disk configuration.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Config holds every option the core attribution pipeline consumes.
type Config struct {
	IntervalSec      int    `json:"interval_sec"`
	Interface        string `json:"interface"`
	Promiscuous      bool   `json:"promiscuous"`
	Immediate        bool   `json:"immediate"`
	ProcessCacheSize int    `json:"process_cache_size"`
	// ProcessScanCap bounds the number of candidate pids examined per
	// process-table miss; 0 (default) is unbounded. See SPEC_FULL.md's
	// Open Questions.
	ProcessScanCap int    `json:"process_scan_cap"`
	DBPath         string `json:"db_path"`
	ServerPort     uint16 `json:"server_port"`
	// RetryFailedDeposits, when true, keeps the accumulator
	// un-cleared after a failed store write so the next deposit
	// retries the union of both intervals. Default false: drop and
	// continue, to bound memory growth under sustained store outages.
	RetryFailedDeposits bool `json:"retry_failed_deposits"`
}

// Interval returns IntervalSec as a time.Duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalSec) * time.Second
}

// Default returns a config with the values spec.md §6 names as
// defaults.
func Default() Config {
	return Config{
		IntervalSec:      10,
		Interface:        "",
		Promiscuous:      true,
		Immediate:        true,
		ProcessCacheSize: 5,
		ProcessScanCap:   0,
		DBPath:           "/var/lib/ntmond/traffic.db",
		ServerPort:       13889,
	}
}

// searchPaths returns the config file locations to try, in order,
// mirroring the original ntmd's multi-path search
// ($NTMOND_CONFIG, ~/.config/ntmond/ntmond.conf, /etc/ntmond.conf).
func searchPaths() []string {
	var paths []string
	if p := os.Getenv("NTMOND_CONFIG"); p != "" {
		paths = append(paths, p)
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ntmond", "ntmond.conf"))
	}
	paths = append(paths, "/etc/ntmond.conf")
	return paths
}

// Load starts from the defaults and overlays the first search path that
// can be read. Paths that cannot be read are skipped without a warning,
// and if none can be read the defaults are returned. A parse error is
// logged as a warning and the defaults, with any fields json.Unmarshal
// decoded before failing, are returned.
func Load() Config {
	cfg := Default()
	for _, path := range searchPaths() {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			log.Printf("ntmond: warning: config parse error in %s: %v", path, err)
		}
		return cfg
	}
	return cfg
}

// Save writes cfg as JSON to path.
func Save(cfg Config, path string) error {
	if path == "" {
		return fmt.Errorf("ntmond: no config path given")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
